package capture

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/duelhub/debate-dueler/internal/deck"
)

// Frame is a render snapshot taken on every poll of the running machine.
type Frame struct {
	State             State
	DisplayedQuestion deck.Question
	DisplayedIndex    int
	TimeRemaining     int
	ProgressPercent   float64
	RevealProgress    float64
	DisplayedScore    int
}

// Runner drives a Machine with real timers: a per-question countdown, a
// ~20 Hz poll that advances the reveal window and emits render frames, and
// teardown checkpointing. All machine access is serialized behind one mutex.
type Runner struct {
	mu      sync.Mutex
	machine *Machine
	logger  zerolog.Logger

	pollInterval time.Duration
	onFrame      func(Frame)

	countdown *Countdown
	stopPoll  chan struct{}
	stopped   bool
}

// NewRunner wraps a machine. onFrame may be nil.
func NewRunner(machine *Machine, onFrame func(Frame), logger zerolog.Logger) *Runner {
	return &Runner{
		machine:      machine,
		logger:       logger.With().Str("component", "capture-runner").Logger(),
		pollInterval: 50 * time.Millisecond,
		onFrame:      onFrame,
		stopPoll:     make(chan struct{}),
	}
}

// Start begins the game: arms the machine and its first countdown and kicks
// off the poll loop.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.machine.Start()
	r.rearmCountdownLocked(ctx)
	r.mu.Unlock()

	go r.poll(ctx)
}

// Stop tears the runner down: cancels timers and checkpoints the live
// question's remaining time.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	close(r.stopPoll)
	if r.countdown != nil {
		r.countdown.Stop()
		r.countdown = nil
	}
	r.machine.Teardown(ctx)
}

// SelectCard forwards a card tap to the machine.
func (r *Runner) SelectCard(ctx context.Context, cardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.machine.SelectCard(ctx, cardID, time.Now())
	r.syncCountdownLocked(ctx)
	return err
}

// SubmitSequence forwards an explicit sequence submit to the machine.
func (r *Runner) SubmitSequence(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.machine.SubmitSequence(ctx, time.Now())
	r.syncCountdownLocked(ctx)
	return err
}

// Snapshot returns the current render frame.
func (r *Runner) Snapshot() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameLocked(time.Now())
}

func (r *Runner) poll(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopPoll:
			return
		case <-ctx.Done():
			r.Stop(context.Background())
			return
		case now := <-ticker.C:
			r.mu.Lock()
			if r.machine.AdvanceReveal(now) {
				r.syncCountdownLocked(ctx)
			}
			frame := r.frameLocked(now)
			done := r.machine.State() == GameComplete
			r.mu.Unlock()

			if r.onFrame != nil {
				r.onFrame(frame)
			}
			if done {
				return
			}
		}
	}
}

func (r *Runner) handleTick(ctx context.Context, questionID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	live, ok := r.machine.LiveQuestion()
	if !ok || live.ID != questionID {
		// Stale tick from a question that already changed; the countdown is
		// stopped on transition, this is the last line of defense.
		return
	}
	if err := r.machine.Tick(ctx, now); err != nil {
		r.logger.Warn().Err(err).Str("question_id", questionID).Msg("auto-submit failed")
	}
	r.syncCountdownLocked(ctx)
}

// syncCountdownLocked keeps exactly one countdown alive, bound to the live
// question while the machine awaits input, none otherwise.
func (r *Runner) syncCountdownLocked(ctx context.Context) {
	if r.stopped {
		return
	}
	live, ok := r.machine.LiveQuestion()
	awaiting := r.machine.State() == AwaitingInput

	if r.countdown != nil {
		if awaiting && ok && r.countdown.QuestionID() == live.ID {
			return
		}
		r.countdown.Stop()
		r.countdown = nil
	}
	if awaiting && ok {
		r.rearmCountdownLocked(ctx)
	}
}

func (r *Runner) rearmCountdownLocked(ctx context.Context) {
	live, ok := r.machine.LiveQuestion()
	if !ok || r.machine.State() != AwaitingInput {
		return
	}
	r.countdown = StartCountdown(live.ID, time.Second, func(questionID string, now time.Time) {
		r.handleTick(ctx, questionID, now)
	})
}

func (r *Runner) frameLocked(now time.Time) Frame {
	q, _ := r.machine.DisplayedQuestion()
	return Frame{
		State:             r.machine.State(),
		DisplayedQuestion: q,
		DisplayedIndex:    r.machine.DisplayedIndex(),
		TimeRemaining:     r.machine.TimeRemaining(),
		ProgressPercent:   r.machine.ProgressPercent(),
		RevealProgress:    r.machine.RevealProgress(now),
		DisplayedScore:    r.machine.DisplayedScore(now),
	}
}
