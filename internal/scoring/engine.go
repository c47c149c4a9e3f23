package scoring

import (
	"math"

	"github.com/duelhub/debate-dueler/internal/deck"
)

// Config holds the scoring constants. Defaults match the shipped game.
type Config struct {
	BaseScore    int // awarded for a "hit" before any bonus
	MaxTimeBonus int // max extra points for answering instantly
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseScore:    100,
		MaxTimeBonus: 50,
	}
}

// Engine maps an answer to points under the player's scoring mode.
type Engine struct {
	config Config
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Score computes the points for one answer.
//
//   - trivia / default: flat base for any pick, plus a time bonus decaying
//     linearly from max (instant) to 0 (timeout).
//   - conformist: base scaled by the share of previous respondents who picked
//     the same card.
//   - contrarian: base scaled by the inverse of that share.
//
// Sequence answers are judged by their first-ranked card, matching how the
// tallies are aggregated; an empty answer always scores zero.
func (e *Engine) Score(q deck.Question, stats *deck.QuestionStats, ans deck.PlayerAnswer, mode string) int {
	if len(ans.CardIDs) == 0 {
		return 0
	}

	share := popularity(stats, ans.CardIDs[0])

	var points float64
	switch mode {
	case deck.ModeConformist:
		points = float64(e.config.BaseScore) * share
	case deck.ModeContrarian:
		points = float64(e.config.BaseScore) * (1 - share)
	case deck.ModeTrivia, deck.ModeDefault:
		points = float64(e.config.BaseScore)
	default:
		points = float64(e.config.BaseScore)
	}

	points += e.timeBonus(ans.TimeRemaining, q.TimeLimit)
	if points < 0 {
		points = 0
	}
	return int(math.Round(points))
}

// Total scores a whole answer sheet against a deck.
func (e *Engine) Total(d *deck.Deck, answers []deck.PlayerAnswer, mode string) int {
	total := 0
	for _, ans := range answers {
		q, _, ok := d.QuestionByID(ans.QuestionID)
		if !ok {
			continue
		}
		total += e.Score(q, d.StatsFor(q.ID), ans, mode)
	}
	return total
}

func (e *Engine) timeBonus(remaining, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	ratio := float64(remaining) / float64(limit)
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	return float64(e.config.MaxTimeBonus) * ratio
}

// popularity returns the fraction of previous respondents who picked cardID,
// 0 when nobody has answered yet.
func popularity(stats *deck.QuestionStats, cardID string) float64 {
	if stats == nil || stats.TotalResponses == 0 {
		return 0
	}
	return float64(stats.CardStats[cardID]) / float64(stats.TotalResponses)
}
