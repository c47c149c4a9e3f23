// Package host abstracts the hosting platform's side effects (post creation,
// toasts, navigation) behind a thin interface so the request router stays
// testable without a platform.
package host

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PostRequest describes a post to create.
type PostRequest struct {
	Title     string
	Subreddit string
}

// Actions is the surface of platform side effects the router may trigger.
type Actions interface {
	// CreatePost submits a new post and returns its id.
	CreatePost(ctx context.Context, req PostRequest) (string, error)
	// Notify shows a toast to the requesting user.
	Notify(ctx context.Context, userID, text string) error
	// Navigate sends the requesting user to a post.
	Navigate(ctx context.Context, userID, postID string) error
}

// NopActions logs and succeeds; the default when no platform is wired and
// the implementation used in tests.
type NopActions struct {
	logger zerolog.Logger
}

// NewNopActions builds the no-op implementation.
func NewNopActions(logger zerolog.Logger) *NopActions {
	return &NopActions{logger: logger.With().Str("component", "host").Logger()}
}

func (a *NopActions) CreatePost(_ context.Context, req PostRequest) (string, error) {
	postID := "t3_" + uuid.NewString()
	a.logger.Info().Str("title", req.Title).Str("subreddit", req.Subreddit).Str("post_id", postID).Msg("create post (nop)")
	return postID, nil
}

func (a *NopActions) Notify(_ context.Context, userID, text string) error {
	a.logger.Info().Str("user_id", userID).Str("text", text).Msg("notify (nop)")
	return nil
}

func (a *NopActions) Navigate(_ context.Context, userID, postID string) error {
	a.logger.Info().Str("user_id", userID).Str("post_id", postID).Msg("navigate (nop)")
	return nil
}
