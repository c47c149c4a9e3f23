package deck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := NewSession("u1", "dueler", now)

	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, "dueler", s.Username)
	assert.Equal(t, ModeDefault, s.ScoringMode)
	assert.Equal(t, 0, s.CurrentQuestionIndex)
	assert.Equal(t, now, s.StartedAt)
	assert.Nil(t, s.CompletedAt)
}

func TestSessionComplete(t *testing.T) {
	s := PlayerSession{CurrentQuestionIndex: 5}
	assert.True(t, s.Complete(5))
	assert.False(t, s.Complete(6))
	// Questions deleted under a running game push the index past the deck.
	assert.True(t, s.Complete(3))
}

func TestDefaultDeckIsValid(t *testing.T) {
	d := DefaultDeck()
	assert.NoError(t, d.Validate())
	assert.Equal(t, SourceDefault, d.Source)
	assert.NotEmpty(t, d.Questions)
}

func TestDeckValidate(t *testing.T) {
	d := Deck{ID: "d"}
	assert.Error(t, d.Validate(), "empty deck")

	q := Question{ID: "q1", QuestionType: TypeSingle, TimeLimit: 10, Cards: []Card{{ID: "a"}}}
	d.Questions = []Question{q, q}
	assert.Error(t, d.Validate(), "duplicate question id")

	d.Questions = []Question{q}
	assert.NoError(t, d.Validate())
}

func TestQuestionValidate(t *testing.T) {
	valid := Question{ID: "q1", QuestionType: TypeSequence, TimeLimit: 20, Cards: []Card{{ID: "a"}, {ID: "b"}}}
	assert.NoError(t, valid.Validate())

	broken := valid
	broken.TimeLimit = 0
	assert.Error(t, broken.Validate())

	broken = valid
	broken.Cards = nil
	assert.Error(t, broken.Validate())

	broken = valid
	broken.QuestionType = "essay"
	assert.Error(t, broken.Validate())

	broken = valid
	broken.Cards = []Card{{ID: "a"}, {ID: "a"}}
	assert.Error(t, broken.Validate())
}

func TestQuestionByID(t *testing.T) {
	d := DefaultDeck()
	q, idx, ok := d.QuestionByID("q-hotdog")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "q-hotdog", q.ID)

	_, _, ok = d.QuestionByID("nope")
	assert.False(t, ok)
}
