package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"
)

// PermissionSource answers "which moderation permissions does this user hold
// in this community". The elevated-privilege flag is derived from it on every
// request, never cached in a session, so permission changes apply
// immediately.
type PermissionSource interface {
	ModeratorPermissions(ctx context.Context, username, subreddit string) ([]string, error)
}

// Elevated derives the admin flag from a permission set.
func Elevated(perms []string) bool {
	return len(perms) > 0
}

// PlatformConfig configures the platform API client.
type PlatformConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// PlatformClient fetches moderator permissions from the hosting platform's
// API over an OAuth2 client-credentials transport.
type PlatformClient struct {
	http    *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewPlatformClient builds the client; the returned http.Client refreshes
// its bearer token transparently.
func NewPlatformClient(cfg PlatformConfig, logger zerolog.Logger) *PlatformClient {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	client := cc.Client(context.Background())
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &PlatformClient{
		http:    client,
		baseURL: cfg.BaseURL,
		logger:  logger.With().Str("component", "platform-client").Logger(),
	}
}

type moderatorListing struct {
	Moderators []struct {
		Username    string   `json:"name"`
		Permissions []string `json:"mod_permissions"`
	} `json:"moderators"`
}

// ModeratorPermissions returns the user's permission set in the subreddit,
// empty when the user is not a moderator.
func (c *PlatformClient) ModeratorPermissions(ctx context.Context, username, subreddit string) ([]string, error) {
	if subreddit == "" || username == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/r/%s/about/moderators?user=%s",
		c.baseURL, url.PathEscape(subreddit), url.QueryEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build moderators request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch moderators: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch moderators: status %d", resp.StatusCode)
	}

	var listing moderatorListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode moderators: %w", err)
	}

	for _, mod := range listing.Moderators {
		if mod.Username == username {
			return mod.Permissions, nil
		}
	}
	return nil, nil
}

// StaticPermissions is a PermissionSource with a fixed answer; used by tests
// and local development.
type StaticPermissions map[string][]string

func (s StaticPermissions) ModeratorPermissions(_ context.Context, username, _ string) ([]string, error) {
	return s[username], nil
}
