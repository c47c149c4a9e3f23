// Package identity resolves who is making a request: the platform context
// token handed to the webview, and the requester's moderation permissions
// looked up against the platform API.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Requester identifies the player behind a connection.
type Requester struct {
	UserID    string
	Username  string
	Subreddit string
}

// Claims is the platform context token payload.
type Claims struct {
	Username  string `json:"username"`
	Subreddit string `json:"subreddit"`
	jwt.RegisteredClaims
}

// TokenConfig holds signing configuration for context tokens.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// TokenVerifier validates platform context tokens (HS256).
type TokenVerifier struct {
	cfg TokenConfig
}

// NewTokenVerifier creates a verifier.
func NewTokenVerifier(cfg TokenConfig) *TokenVerifier {
	return &TokenVerifier{cfg: cfg}
}

// Verify parses and validates a token, returning the requester it names.
func (v *TokenVerifier) Verify(tokenString string) (Requester, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.cfg.Secret, nil
	})
	if err != nil {
		return Requester{}, fmt.Errorf("parse context token: %w", err)
	}
	if !token.Valid {
		return Requester{}, errors.New("invalid context token")
	}
	if claims.Subject == "" {
		return Requester{}, errors.New("context token missing subject")
	}
	username := claims.Username
	if username == "" {
		username = "Anonymous"
	}
	return Requester{
		UserID:    claims.Subject,
		Username:  username,
		Subreddit: claims.Subreddit,
	}, nil
}

// Mint issues a context token; used by tests and local tooling.
func Mint(cfg TokenConfig, req Requester, now time.Time) (string, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := Claims{
		Username:  req.Username,
		Subreddit: req.Subreddit,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.UserID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}
