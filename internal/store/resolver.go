package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/duelhub/debate-dueler/internal/deck"
)

// DeckResolver implements the deck-or-default policy: stored deck first, then
// the durable archive, then the built-in default. Whichever substitute is
// used gets persisted back exactly once so later requests read the stored
// (and possibly edited) version. The singleflight group collapses concurrent
// first-touch requests so the one-time persist stays one-time under load.
type DeckResolver struct {
	store   Store
	archive Archive // may be nil
	group   singleflight.Group
}

// NewDeckResolver builds a resolver; archive may be nil when no durable
// backing is configured.
func NewDeckResolver(s Store, archive Archive) *DeckResolver {
	return &DeckResolver{store: s, archive: archive}
}

// Resolve returns the deck to serve for a post.
func (r *DeckResolver) Resolve(ctx context.Context, postID string) (deck.Deck, error) {
	d, err := r.store.GetDeck(ctx, postID)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrDeckNotFound) {
		return deck.Deck{}, err
	}

	v, err, _ := r.group.Do(postID, func() (any, error) {
		// Re-check: another request may have seeded the deck already.
		if d, err := r.store.GetDeck(ctx, postID); err == nil {
			return d, nil
		} else if !errors.Is(err, ErrDeckNotFound) {
			return deck.Deck{}, err
		}

		seed := deck.Deck{}
		if r.archive != nil {
			archived, err := r.archive.GetDeck(ctx, postID)
			switch {
			case err == nil:
				seed = archived
			case !errors.Is(err, ErrDeckNotFound):
				return deck.Deck{}, err
			}
		}
		if len(seed.Questions) == 0 {
			seed = deck.DefaultDeck()
		}

		if err := r.store.SaveDeck(ctx, postID, seed); err != nil {
			return deck.Deck{}, fmt.Errorf("seed deck for post %s: %w", postID, err)
		}
		return seed, nil
	})
	if err != nil {
		return deck.Deck{}, err
	}
	return v.(deck.Deck), nil
}
