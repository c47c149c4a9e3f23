// Package store defines the persistence surface the request router consumes.
// Implementations live in subpackages; the router never talks to a concrete
// engine directly.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/duelhub/debate-dueler/internal/deck"
)

// Sentinel errors shared by all implementations.
var (
	ErrDeckNotFound     = errors.New("deck not found")
	ErrSessionNotFound  = errors.New("player session not found")
	ErrQuestionNotFound = errors.New("question not found")
)

// Entry is one materialized leaderboard row.
type Entry struct {
	UserID      string
	Username    string
	TotalScore  int
	Rank        int
	CompletedAt time.Time
}

// Store is the full persistence interface for decks, sessions and the
// derived leaderboard. Every mutation must be atomic from the caller's
// perspective; concurrent deck edits are last-write-wins at whole-deck
// granularity.
type Store interface {
	GetDeck(ctx context.Context, postID string) (deck.Deck, error)
	SaveDeck(ctx context.Context, postID string, d deck.Deck) error

	GetPlayerSession(ctx context.Context, postID, userID string) (deck.PlayerSession, error)
	SaveUserGameData(ctx context.Context, postID, userID string, answers []deck.PlayerAnswer, totalScore int, session deck.PlayerSession) error

	GetLeaderboard(ctx context.Context, postID string) ([]Entry, error)
	// GetPlayerRank returns the 1-based rank; ok is false when the user has
	// no session for the post (rank is undefined, never zero).
	GetPlayerRank(ctx context.Context, postID, userID string) (int, bool, error)

	AddQuestionToDeck(ctx context.Context, postID string, q deck.Question) error
	EditQuestionInDeck(ctx context.Context, postID string, q deck.Question) error
	DeleteQuestionFromDeck(ctx context.Context, postID, questionID string) error
}

// Archive is the durable write-through behind the primary store: decks
// created for new posts land here and survive a flushed cache.
type Archive interface {
	GetDeck(ctx context.Context, postID string) (deck.Deck, error)
	SaveDeck(ctx context.Context, postID string, d deck.Deck) error
}

// RankEntries orders leaderboard rows and assigns 1-based ranks: descending
// total score, ties broken by earliest completion, then user id as a final
// deterministic key.
func RankEntries(entries []Entry) []Entry {
	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].TotalScore != entries[b].TotalScore {
			return entries[a].TotalScore > entries[b].TotalScore
		}
		if !entries[a].CompletedAt.Equal(entries[b].CompletedAt) {
			return entries[a].CompletedAt.Before(entries[b].CompletedAt)
		}
		return entries[a].UserID < entries[b].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
