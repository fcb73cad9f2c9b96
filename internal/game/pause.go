package game

import (
	"sync"
	"time"
)

// PauseGate gates local input for a fixed reading pause. The pause ends
// when its timer fires or when the user dismisses it, whichever comes
// first; resumption happens exactly once no matter how the race falls.
type PauseGate struct {
	once  sync.Once
	done  chan struct{}
	timer *time.Timer
}

// NewPauseGate starts a gate that self-resolves after d.
func NewPauseGate(d time.Duration) *PauseGate {
	pg := &PauseGate{done: make(chan struct{})}
	pg.timer = time.AfterFunc(d, pg.resolve)
	return pg
}

func (pg *PauseGate) resolve() {
	pg.once.Do(func() {
		pg.timer.Stop()
		close(pg.done)
	})
}

// Dismiss ends the pause early. Safe to call concurrently with the
// timer firing, and safe to call more than once.
func (pg *PauseGate) Dismiss() {
	pg.resolve()
}

// Done is closed exactly once when the pause ends.
func (pg *PauseGate) Done() <-chan struct{} {
	return pg.done
}

// Active reports whether the pause is still holding input.
func (pg *PauseGate) Active() bool {
	select {
	case <-pg.done:
		return false
	default:
		return true
	}
}
