// timer/timer.go
package timer

import (
	"sync"
	"time"
)

// TickFunc receives periodic countdown progress.
type TickFunc func(phase string, remainingSeconds int)

// PhaseTimer is a cancelable countdown for one phase. It emits
// progress ticks at a fixed interval and closes Expired() at the
// deadline. Stopping it early cancels the ticks without firing
// Expired, so a wait that resolved first can tear the timer down
// deterministically.
type PhaseTimer struct {
	phase    string
	deadline time.Time
	expired  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPhaseTimer starts a countdown of the given duration. A
// non-positive duration expires immediately (resume after a deadline
// that already elapsed).
func NewPhaseTimer(phase string, duration, tickInterval time.Duration, onTick TickFunc) *PhaseTimer {
	t := &PhaseTimer{
		phase:    phase,
		deadline: time.Now().Add(duration),
		expired:  make(chan struct{}),
		stop:     make(chan struct{}),
	}

	if duration <= 0 {
		close(t.expired)
		return t
	}

	go t.run(duration, tickInterval, onTick)
	return t
}

func (t *PhaseTimer) run(duration, tickInterval time.Duration, onTick TickFunc) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	expiry := time.NewTimer(duration)
	defer expiry.Stop()

	for {
		select {
		case <-ticker.C:
			if onTick != nil {
				onTick(t.phase, t.RemainingSeconds())
			}
		case <-expiry.C:
			close(t.expired)
			return
		case <-t.stop:
			return
		}
	}
}

// Expired is closed when the deadline passes. It never closes after
// Stop.
func (t *PhaseTimer) Expired() <-chan struct{} {
	return t.expired
}

// Stop cancels the countdown and its ticks. Safe to call more than
// once and after expiry.
func (t *PhaseTimer) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}

// Remaining returns the time left before the deadline, clamped to
// zero.
func (t *PhaseTimer) Remaining() time.Duration {
	remaining := time.Until(t.deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSeconds is Remaining rounded up to whole seconds, as sent
// in timer updates.
func (t *PhaseTimer) RemainingSeconds() int {
	return int((t.Remaining() + time.Second - 1) / time.Second)
}
