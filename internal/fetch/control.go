package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// DefaultPollInterval bounds how long a stop request can go unnoticed while
// a walk sits in the pause wait.
const DefaultPollInterval = 400 * time.Millisecond

// errStopped is returned internally when a stop request interrupts the
// pause wait. The walker translates it into a stopped result, not an error.
var errStopped = errors.New("walk stopped")

// Control carries the cooperative pause/stop signals for one walk. The
// walker checks it at the top of every loop iteration and inside the pause
// wait, so a stop lands within one poll interval even mid-pause. A Control
// must not be reused across walks; the session replaces it on each trigger.
type Control struct {
	paused  atomic.Bool
	stopped atomic.Bool
	poll    time.Duration
}

// NewControl creates a control with the given pause poll interval.
// Non-positive means DefaultPollInterval.
func NewControl(poll time.Duration) *Control {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Control{poll: poll}
}

// Pause requests a cooperative pause before the next page request.
func (c *Control) Pause() { c.paused.Store(true) }

// Resume releases a pause.
func (c *Control) Resume() { c.paused.Store(false) }

// Stop requests termination. It is terminal: there is no un-stop.
func (c *Control) Stop() { c.stopped.Store(true) }

// Paused reports whether a pause is requested.
func (c *Control) Paused() bool { return c.paused.Load() }

// Stopped reports whether a stop is requested.
func (c *Control) Stopped() bool { return c.stopped.Load() }

// wait blocks while paused, re-checking the stop flag every poll interval.
// No network is consumed while waiting.
func (c *Control) wait(ctx context.Context) error {
	for c.Paused() {
		if c.Stopped() {
			return errStopped
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.poll):
		}
	}
	if c.Stopped() {
		return errStopped
	}
	return nil
}
