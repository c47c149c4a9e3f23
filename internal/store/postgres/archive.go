// Package postgres holds the durable deck archive. Decks created for new
// posts are written through here so a flushed Redis instance can be
// rehydrated instead of falling back to the default deck.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duelhub/debate-dueler/internal/deck"
	"github.com/duelhub/debate-dueler/internal/store"
)

// Archive reads and writes decks in the decks table.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive creates a Postgres deck archive.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// GetDeck loads an archived deck by post id.
func (a *Archive) GetDeck(ctx context.Context, postID string) (deck.Deck, error) {
	var payload []byte
	err := a.pool.QueryRow(ctx,
		`SELECT payload FROM decks WHERE post_id = $1`, postID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return deck.Deck{}, store.ErrDeckNotFound
	}
	if err != nil {
		return deck.Deck{}, fmt.Errorf("query deck: %w", err)
	}

	var d deck.Deck
	if err := json.Unmarshal(payload, &d); err != nil {
		return deck.Deck{}, fmt.Errorf("unmarshal archived deck: %w", err)
	}
	d.Source = deck.SourceStored
	return d, nil
}

// SaveDeck upserts the deck payload for a post.
func (a *Archive) SaveDeck(ctx context.Context, postID string, d deck.Deck) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal deck: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO decks (post_id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (post_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()`,
		postID, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert deck: %w", err)
	}
	return nil
}
