package capture

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/duelhub/debate-dueler/internal/deck"
)

// State is the per-question life cycle position of the machine.
type State int

const (
	AwaitingInput State = iota
	Submitting
	ResultsShown
	GameComplete
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Submitting:
		return "submitting"
	case ResultsShown:
		return "results_shown"
	case GameComplete:
		return "game_complete"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Default timings for the reveal window and the score counter animation.
const (
	DefaultRevealDuration    = 3500 * time.Millisecond
	DefaultScoreAnimDuration = 750 * time.Millisecond
)

// SubmitResult is what the scoring side returns for one accepted answer.
type SubmitResult struct {
	Score          int
	TotalScore     int
	IsGameComplete bool
}

// Submitter scores and records one answer. The machine issues at most one
// outstanding call per question.
type Submitter func(ctx context.Context, ans deck.PlayerAnswer) (SubmitResult, error)

// Options tune the machine; zero values fall back to the shipped defaults.
type Options struct {
	RevealDuration    time.Duration
	ScoreAnimDuration time.Duration
}

// Machine drives one player's run through a dealt deck: countdown, answer
// capture, result reveal, advance. It is single-goroutine by contract; a
// Runner (or a test) serializes every event call and supplies wall-clock
// timestamps explicitly.
type Machine struct {
	logger      zerolog.Logger
	deck        deck.Deck
	session     deck.PlayerSession
	submit      Submitter
	checkpoints CheckpointStore

	revealDuration    time.Duration
	scoreAnimDuration time.Duration

	state         State
	timeRemaining int
	selectedCard  string
	sequenceOrder map[string]int
	submitting    bool

	lastScore        int
	answeredQuestion *deck.Question
	answeredIndex    int
	progressOnResult float64
	revealStartedAt  time.Time
	gameComplete     bool
}

// NewMachine builds a machine over a dealt deck and the player's session.
// checkpoints may be nil; timer recovery is then disabled.
func NewMachine(d deck.Deck, session deck.PlayerSession, submit Submitter, checkpoints CheckpointStore, opts Options, logger zerolog.Logger) *Machine {
	if opts.RevealDuration <= 0 {
		opts.RevealDuration = DefaultRevealDuration
	}
	if opts.ScoreAnimDuration <= 0 {
		opts.ScoreAnimDuration = DefaultScoreAnimDuration
	}
	return &Machine{
		logger:            logger.With().Str("component", "capture").Logger(),
		deck:              d,
		session:           session,
		submit:            submit,
		checkpoints:       checkpoints,
		revealDuration:    opts.RevealDuration,
		scoreAnimDuration: opts.ScoreAnimDuration,
		sequenceOrder:     make(map[string]int),
		answeredIndex:     -1,
	}
}

// Start arms the countdown for the live question, restoring a checkpointed
// remaining time when one exists for (deck, index).
func (m *Machine) Start() {
	if m.session.Complete(len(m.deck.Questions)) {
		m.state = GameComplete
		m.gameComplete = true
		return
	}
	m.state = AwaitingInput
	m.armTimer()
}

// State returns the current life cycle state.
func (m *Machine) State() State { return m.state }

// Session returns the session as the machine currently sees it.
func (m *Machine) Session() deck.PlayerSession { return m.session }

// TimeRemaining returns the live countdown value in seconds.
func (m *Machine) TimeRemaining() int { return m.timeRemaining }

// LiveQuestion returns the question awaiting (or receiving) an answer.
func (m *Machine) LiveQuestion() (deck.Question, bool) {
	idx := m.session.CurrentQuestionIndex
	if idx < 0 || idx >= len(m.deck.Questions) {
		return deck.Question{}, false
	}
	return m.deck.Questions[idx], true
}

// DisplayedQuestion is the question the UI should render: the just-answered
// question while results are shown, the live one otherwise. The two differ
// only during the reveal window.
func (m *Machine) DisplayedQuestion() (deck.Question, bool) {
	if m.state == ResultsShown && m.answeredQuestion != nil {
		return *m.answeredQuestion, true
	}
	return m.LiveQuestion()
}

// DisplayedIndex mirrors DisplayedQuestion for the 0-based index.
func (m *Machine) DisplayedIndex() int {
	if m.state == ResultsShown {
		return m.answeredIndex
	}
	return m.session.CurrentQuestionIndex
}

// ProgressPercent is the deck progress bar value. During the reveal it is
// computed from the just-answered index so the bar does not jump ahead of the
// reveal.
func (m *Machine) ProgressPercent() float64 {
	total := len(m.deck.Questions)
	if total == 0 {
		return 0
	}
	if m.state == ResultsShown {
		return m.progressOnResult
	}
	return float64(m.session.CurrentQuestionIndex) / float64(total) * 100
}

// SelectCard handles a tap on a card. Single-choice questions submit
// immediately; sequence questions toggle membership in the ordered set.
func (m *Machine) SelectCard(ctx context.Context, cardID string, now time.Time) error {
	if m.state != AwaitingInput {
		return nil
	}
	q, ok := m.LiveQuestion()
	if !ok {
		return nil
	}
	if q.QuestionType == deck.TypeSequence {
		m.toggleSequenceCard(cardID)
		return nil
	}
	m.selectedCard = cardID
	return m.submitAnswer(ctx, q, []string{cardID}, now)
}

// SelectedCard returns the single-choice selection, empty if none.
func (m *Machine) SelectedCard() string { return m.selectedCard }

// SequenceRank returns a card's 1-based position in the proposed ordering,
// 0 if the card is not part of it.
func (m *Machine) SequenceRank(cardID string) int { return m.sequenceOrder[cardID] }

// SequenceLen returns how many cards the proposed ordering holds.
func (m *Machine) SequenceLen() int { return len(m.sequenceOrder) }

// SubmitSequence converts the order map into a rank-sorted card id slice and
// submits it. Empty and partial sequences are submitted as-is.
func (m *Machine) SubmitSequence(ctx context.Context, now time.Time) error {
	if m.state != AwaitingInput {
		return nil
	}
	q, ok := m.LiveQuestion()
	if !ok || q.QuestionType != deck.TypeSequence {
		return nil
	}
	return m.submitAnswer(ctx, q, m.orderedSequence(), now)
}

// Tick advances the countdown by one second. At zero the current answer is
// auto-submitted: the partial sequence as-is, or the empty answer sentinel
// when a single-choice question has no selection.
func (m *Machine) Tick(ctx context.Context, now time.Time) error {
	if m.state != AwaitingInput {
		return nil
	}
	if m.timeRemaining > 0 {
		m.timeRemaining--
	}
	if m.timeRemaining > 0 {
		return nil
	}
	q, ok := m.LiveQuestion()
	if !ok {
		return nil
	}
	if q.QuestionType == deck.TypeSequence {
		return m.submitAnswer(ctx, q, m.orderedSequence(), now)
	}
	var cards []string
	if m.selectedCard != "" {
		cards = []string{m.selectedCard}
	}
	return m.submitAnswer(ctx, q, cards, now)
}

// AdvanceReveal closes the reveal window once it has run its full duration.
// It returns true when the machine changed state: on to the next question's
// AwaitingInput, or halted in GameComplete.
func (m *Machine) AdvanceReveal(now time.Time) bool {
	if m.state != ResultsShown {
		return false
	}
	if now.Sub(m.revealStartedAt) < m.revealDuration {
		return false
	}
	if m.gameComplete {
		m.state = GameComplete
		return true
	}
	m.selectedCard = ""
	m.sequenceOrder = make(map[string]int)
	m.submitting = false
	m.answeredQuestion = nil
	m.state = AwaitingInput
	m.armTimer()
	return true
}

// RevealProgress reports the reveal indicator 0..100, linear over the window.
func (m *Machine) RevealProgress(now time.Time) float64 {
	if m.state != ResultsShown {
		return 0
	}
	p := float64(now.Sub(m.revealStartedAt)) / float64(m.revealDuration) * 100
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}

// DisplayedScore animates the score counter from total-delta to total over
// the animation duration, interpolated on wall-clock time so dropped frames
// never stall it.
func (m *Machine) DisplayedScore(now time.Time) int {
	total := m.session.TotalScore
	if m.state != ResultsShown && m.state != GameComplete {
		return total
	}
	elapsed := now.Sub(m.revealStartedAt)
	if elapsed >= m.scoreAnimDuration {
		return total
	}
	progress := float64(elapsed) / float64(m.scoreAnimDuration)
	if progress < 0 {
		progress = 0
	}
	return total - m.lastScore + int(math.Floor(float64(m.lastScore)*progress))
}

// LastScore returns the delta earned by the most recent answer.
func (m *Machine) LastScore() int { return m.lastScore }

// CardPercentage is the share of respondents who picked a card on the
// displayed question, rounded, 0 when nobody has responded.
func (m *Machine) CardPercentage(cardID string) int {
	q, ok := m.DisplayedQuestion()
	if !ok {
		return 0
	}
	stats := m.deck.StatsFor(q.ID)
	if stats == nil || stats.TotalResponses == 0 {
		return 0
	}
	return int(math.Round(float64(stats.CardStats[cardID]) / float64(stats.TotalResponses) * 100))
}

// Teardown checkpoints the live question's remaining time so a reload can
// restore it. Best-effort; errors are logged and dropped.
func (m *Machine) Teardown(ctx context.Context) {
	if m.state != AwaitingInput || m.checkpoints == nil {
		return
	}
	key := CheckpointKey{DeckID: m.deck.ID, QuestionIndex: m.session.CurrentQuestionIndex}
	if err := m.checkpoints.Save(ctx, key, m.timeRemaining); err != nil {
		m.logger.Warn().Err(err).Str("deck_id", key.DeckID).Int("question_index", key.QuestionIndex).Msg("timer checkpoint save failed")
	}
}

func (m *Machine) submitAnswer(ctx context.Context, q deck.Question, cards []string, now time.Time) error {
	if m.submitting {
		return nil
	}
	m.submitting = true
	m.state = Submitting

	justAnswered := m.session.CurrentQuestionIndex
	ans := deck.PlayerAnswer{
		QuestionID:    q.ID,
		CardIDs:       cards,
		TimeRemaining: m.timeRemaining,
		AnsweredAt:    now,
	}

	res, err := m.submit(ctx, ans)
	if err != nil {
		// Unsuccessful submission: no destructive state change, input
		// re-enabled.
		m.submitting = false
		m.state = AwaitingInput
		m.logger.Warn().Err(err).Str("question_id", q.ID).Msg("answer submission failed")
		return err
	}

	m.clearCheckpoint(ctx, justAnswered)

	snapshot := q
	m.answeredQuestion = &snapshot
	m.answeredIndex = justAnswered
	m.progressOnResult = float64(justAnswered+1) / float64(len(m.deck.Questions)) * 100
	m.lastScore = res.Score
	m.session.TotalScore = res.TotalScore
	m.session.CurrentQuestionIndex++
	m.session.Answers = append(m.session.Answers, deck.PlayerAnswer{
		QuestionID:    ans.QuestionID,
		CardIDs:       ans.CardIDs,
		TimeRemaining: ans.TimeRemaining,
		Score:         res.Score,
		AnsweredAt:    ans.AnsweredAt,
	})
	m.gameComplete = res.IsGameComplete || m.session.Complete(len(m.deck.Questions))
	m.revealStartedAt = now
	m.state = ResultsShown
	return nil
}

func (m *Machine) armTimer() {
	q, ok := m.LiveQuestion()
	if !ok {
		return
	}
	m.timeRemaining = q.TimeLimit
	if m.checkpoints == nil {
		return
	}
	key := CheckpointKey{DeckID: m.deck.ID, QuestionIndex: m.session.CurrentQuestionIndex}
	if remaining, ok, err := m.checkpoints.Load(context.Background(), key); err == nil && ok {
		if remaining > 0 && remaining <= q.TimeLimit {
			m.timeRemaining = remaining
		}
	}
}

func (m *Machine) clearCheckpoint(ctx context.Context, questionIndex int) {
	if m.checkpoints == nil {
		return
	}
	key := CheckpointKey{DeckID: m.deck.ID, QuestionIndex: questionIndex}
	if err := m.checkpoints.Clear(ctx, key); err != nil {
		m.logger.Warn().Err(err).Msg("timer checkpoint clear failed")
	}
}

// toggleSequenceCard adds a card at the next rank, or removes it and compacts
// the remaining ranks back to a contiguous 1..k.
func (m *Machine) toggleSequenceCard(cardID string) {
	if _, selected := m.sequenceOrder[cardID]; selected {
		delete(m.sequenceOrder, cardID)
		for i, id := range m.sortedSequenceIDs() {
			m.sequenceOrder[id] = i + 1
		}
		return
	}
	m.sequenceOrder[cardID] = len(m.sequenceOrder) + 1
}

func (m *Machine) orderedSequence() []string {
	return m.sortedSequenceIDs()
}

func (m *Machine) sortedSequenceIDs() []string {
	ids := make([]string, 0, len(m.sequenceOrder))
	for id := range m.sequenceOrder {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		return m.sequenceOrder[ids[a]] < m.sequenceOrder[ids[b]]
	})
	return ids
}
