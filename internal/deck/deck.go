package deck

import (
	"fmt"
	"time"
)

// QuestionType discriminates how an answer to a question is captured.
const (
	TypeSingle   = "single"   // one card is the whole answer
	TypeSequence = "sequence" // the answer is an ordering of all (or some) cards
)

// ScoringMode names the rule set a player locked in when starting a game.
const (
	ModeContrarian = "contrarian"
	ModeConformist = "conformist"
	ModeTrivia     = "trivia"
	ModeDefault    = "default"
)

// Source records where a deck came from. Provenance is explicit so the
// persist-on-first-use policy never depends on pointer identity.
type Source int

const (
	SourceStored Source = iota
	SourceDefault
)

// Deck is the full question set attached to one post.
type Deck struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	CreatedBy     string          `json:"createdBy"`
	FlairText     string          `json:"flairText,omitempty"`
	Questions     []Question      `json:"questions"`
	QuestionStats []QuestionStats `json:"questionStats"`

	Source Source `json:"-"`
}

// Question is a single timed prompt with its answer cards.
type Question struct {
	ID             string `json:"id"`
	Prompt         string `json:"prompt"`
	AuthorUsername string `json:"authorUsername,omitempty"`
	QuestionType   string `json:"questionType"`
	TimeLimit      int    `json:"timeLimit"` // seconds
	Cards          []Card `json:"cards"`
}

// Card is one selectable answer option.
type Card struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionStats aggregates how all players answered one question.
// Sum of CardStats values may be less than TotalResponses: sequence answers
// tally only their first-ranked card.
type QuestionStats struct {
	QuestionID     string         `json:"questionId"`
	TotalResponses int            `json:"totalResponses"`
	CardStats      map[string]int `json:"cardStats"`
}

// PlayerAnswer records one submitted answer. CardIDs holds a single element
// for single-choice questions, the rank-ordered sequence for sequence
// questions, and is empty when the timer expired with nothing selected.
type PlayerAnswer struct {
	QuestionID    string    `json:"questionId"`
	CardIDs       []string  `json:"cardIds"`
	TimeRemaining int       `json:"timeRemaining"`
	Score         int       `json:"score"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// PlayerSession is one player's progress against one deck.
type PlayerSession struct {
	UserID               string         `json:"userId"`
	Username             string         `json:"username,omitempty"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	TotalScore           int            `json:"totalScore"`
	ScoringMode          string         `json:"scoringMode"`
	Answers              []PlayerAnswer `json:"answers,omitempty"`
	StartedAt            time.Time      `json:"startedAt"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
}

// NewSession returns the session created on a player's first request.
func NewSession(userID, username string, now time.Time) PlayerSession {
	return PlayerSession{
		UserID:      userID,
		Username:    username,
		ScoringMode: ModeDefault,
		StartedAt:   now,
	}
}

// Complete reports whether the player has answered every question of a deck
// with questionCount questions. An index beyond the deck (questions were
// deleted mid-game) also counts as complete; progress is never fabricated.
func (s PlayerSession) Complete(questionCount int) bool {
	return s.CurrentQuestionIndex >= questionCount
}

// StatsFor returns the aggregate stats for a question, or nil if none exist.
func (d *Deck) StatsFor(questionID string) *QuestionStats {
	for i := range d.QuestionStats {
		if d.QuestionStats[i].QuestionID == questionID {
			return &d.QuestionStats[i]
		}
	}
	return nil
}

// QuestionByID returns the question with the given id and its position.
func (d *Deck) QuestionByID(id string) (Question, int, bool) {
	for i, q := range d.Questions {
		if q.ID == id {
			return q, i, true
		}
	}
	return Question{}, -1, false
}

// Validate checks the deck invariants: at least one question, unique question
// ids, and per question at least one card with unique card ids and a positive
// time limit.
func (d *Deck) Validate() error {
	if len(d.Questions) == 0 {
		return fmt.Errorf("deck %s: no questions", d.ID)
	}
	seen := make(map[string]struct{}, len(d.Questions))
	for _, q := range d.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("deck %s: duplicate question id %s", d.ID, q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := q.Validate(); err != nil {
			return fmt.Errorf("deck %s: %w", d.ID, err)
		}
	}
	return nil
}

// Validate checks a single question's invariants.
func (q *Question) Validate() error {
	if q.TimeLimit <= 0 {
		return fmt.Errorf("question %s: time limit must be positive", q.ID)
	}
	if len(q.Cards) == 0 {
		return fmt.Errorf("question %s: no cards", q.ID)
	}
	if q.QuestionType != TypeSingle && q.QuestionType != TypeSequence {
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.QuestionType)
	}
	cards := make(map[string]struct{}, len(q.Cards))
	for _, c := range q.Cards {
		if _, dup := cards[c.ID]; dup {
			return fmt.Errorf("question %s: duplicate card id %s", q.ID, c.ID)
		}
		cards[c.ID] = struct{}{}
	}
	return nil
}
