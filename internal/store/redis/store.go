// Package redis is the primary Store implementation: decks and sessions as
// JSON values, the per-post leaderboard as a sorted set refined by session
// metadata at read time.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/duelhub/debate-dueler/internal/deck"
	"github.com/duelhub/debate-dueler/internal/store"
)

// Store persists game state in Redis.
type Store struct {
	client *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates a Redis-backed store.
func NewStore(client *redis.Client, logger zerolog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With().Str("component", "redis-store").Logger(),
		now:    time.Now,
	}
}

func (s *Store) deckKey(postID string) string {
	return "dueler:deck:" + postID
}

func (s *Store) sessionKey(postID, userID string) string {
	return fmt.Sprintf("dueler:session:%s:%s", postID, userID)
}

func (s *Store) leaderboardKey(postID string) string {
	return "dueler:lb:" + postID
}

// GetDeck loads the stored deck for a post.
func (s *Store) GetDeck(ctx context.Context, postID string) (deck.Deck, error) {
	data, err := s.client.Get(ctx, s.deckKey(postID)).Bytes()
	if err == redis.Nil {
		return deck.Deck{}, store.ErrDeckNotFound
	}
	if err != nil {
		return deck.Deck{}, fmt.Errorf("get deck: %w", err)
	}

	var d deck.Deck
	if err := json.Unmarshal(data, &d); err != nil {
		return deck.Deck{}, fmt.Errorf("unmarshal deck: %w", err)
	}
	d.Source = deck.SourceStored
	return d, nil
}

// SaveDeck stores the deck as a single JSON value; whole-deck replacement is
// the atomicity unit for every deck mutation.
func (s *Store) SaveDeck(ctx context.Context, postID string, d deck.Deck) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal deck: %w", err)
	}
	if err := s.client.Set(ctx, s.deckKey(postID), data, 0).Err(); err != nil {
		return fmt.Errorf("save deck: %w", err)
	}
	return nil
}

// GetPlayerSession loads one player's session for a post.
func (s *Store) GetPlayerSession(ctx context.Context, postID, userID string) (deck.PlayerSession, error) {
	data, err := s.client.Get(ctx, s.sessionKey(postID, userID)).Bytes()
	if err == redis.Nil {
		return deck.PlayerSession{}, store.ErrSessionNotFound
	}
	if err != nil {
		return deck.PlayerSession{}, fmt.Errorf("get session: %w", err)
	}

	var session deck.PlayerSession
	if err := json.Unmarshal(data, &session); err != nil {
		return deck.PlayerSession{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

// SaveUserGameData persists a finished game: the session with its answer
// sheet and total score, the leaderboard sorted-set entry, and the deck's
// aggregate response stats.
func (s *Store) SaveUserGameData(ctx context.Context, postID, userID string, answers []deck.PlayerAnswer, totalScore int, session deck.PlayerSession) error {
	session.UserID = userID
	session.Answers = answers
	session.TotalScore = totalScore
	if session.CompletedAt == nil {
		completed := s.now()
		session.CompletedAt = &completed
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(postID, userID), data, 0)
	pipe.ZAdd(ctx, s.leaderboardKey(postID), redis.Z{
		Score:  float64(totalScore),
		Member: userID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save game data: %w", err)
	}

	if err := s.tallyStats(ctx, postID, answers); err != nil {
		// Stats are an aggregate nicety; the score is already durable.
		s.logger.Warn().Err(err).Str("post_id", postID).Msg("question stats tally failed")
	}
	return nil
}

// GetLeaderboard materializes the ranked list for a post. Redis orders
// same-score members lexically, which is not the tie-break contract, so the
// final order is re-derived from session metadata (earliest completion wins).
func (s *Store) GetLeaderboard(ctx context.Context, postID string) ([]store.Entry, error) {
	results, err := s.client.ZRevRangeWithScores(ctx, s.leaderboardKey(postID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]store.Entry, 0, len(results))
	for _, z := range results {
		userID, _ := z.Member.(string)
		entry := store.Entry{
			UserID:     userID,
			TotalScore: int(z.Score),
		}
		if session, err := s.GetPlayerSession(ctx, postID, userID); err == nil {
			entry.Username = session.Username
			if session.CompletedAt != nil {
				entry.CompletedAt = *session.CompletedAt
			}
		} else {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("leaderboard entry without session")
		}
		entries = append(entries, entry)
	}
	return store.RankEntries(entries), nil
}

// GetPlayerRank returns the user's 1-based rank under the same ordering as
// GetLeaderboard; ok is false when the user has no score recorded.
func (s *Store) GetPlayerRank(ctx context.Context, postID, userID string) (int, bool, error) {
	entries, err := s.GetLeaderboard(ctx, postID)
	if err != nil {
		return 0, false, err
	}
	for _, e := range entries {
		if e.UserID == userID {
			return e.Rank, true, nil
		}
	}
	return 0, false, nil
}

// AddQuestionToDeck appends a question to the stored deck.
func (s *Store) AddQuestionToDeck(ctx context.Context, postID string, q deck.Question) error {
	d, err := s.GetDeck(ctx, postID)
	if err != nil {
		return err
	}
	if _, _, exists := d.QuestionByID(q.ID); exists {
		return fmt.Errorf("question %s already in deck %s", q.ID, postID)
	}
	d.Questions = append(d.Questions, q)
	return s.SaveDeck(ctx, postID, d)
}

// EditQuestionInDeck replaces a question in place by id.
func (s *Store) EditQuestionInDeck(ctx context.Context, postID string, q deck.Question) error {
	d, err := s.GetDeck(ctx, postID)
	if err != nil {
		return err
	}
	_, idx, ok := d.QuestionByID(q.ID)
	if !ok {
		return store.ErrQuestionNotFound
	}
	d.Questions[idx] = q
	return s.SaveDeck(ctx, postID, d)
}

// DeleteQuestionFromDeck removes a question by id, keeping the remaining
// questions in their original relative order.
func (s *Store) DeleteQuestionFromDeck(ctx context.Context, postID, questionID string) error {
	d, err := s.GetDeck(ctx, postID)
	if err != nil {
		return err
	}
	_, idx, ok := d.QuestionByID(questionID)
	if !ok {
		return store.ErrQuestionNotFound
	}
	d.Questions = append(d.Questions[:idx], d.Questions[idx+1:]...)
	return s.SaveDeck(ctx, postID, d)
}

func (s *Store) tallyStats(ctx context.Context, postID string, answers []deck.PlayerAnswer) error {
	d, err := s.GetDeck(ctx, postID)
	if err != nil {
		return err
	}
	deck.TallyAnswers(&d, answers)
	return s.SaveDeck(ctx, postID, d)
}
