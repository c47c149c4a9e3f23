package capture

import (
	"sync"
	"time"
)

// Countdown is a cancellable once-per-second tick source bound to a single
// question's identity. Stopping it is a hard invariant of question changes:
// after Stop returns no further tick is delivered, so a stale timer can never
// fire into the next question's state.
type Countdown struct {
	questionID string
	stop       chan struct{}
	once       sync.Once
}

// StartCountdown launches the tick loop. Every interval it calls tick with
// the owning question id; receivers must drop ticks whose id no longer
// matches the live question.
func StartCountdown(questionID string, interval time.Duration, tick func(questionID string, now time.Time)) *Countdown {
	c := &Countdown{
		questionID: questionID,
		stop:       make(chan struct{}),
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case now := <-ticker.C:
				select {
				case <-c.stop:
					return
				default:
				}
				tick(c.questionID, now)
			}
		}
	}()
	return c
}

// QuestionID returns the question this countdown belongs to.
func (c *Countdown) QuestionID() string { return c.questionID }

// Stop cancels the countdown. Safe to call more than once.
func (c *Countdown) Stop() {
	c.once.Do(func() { close(c.stop) })
}
