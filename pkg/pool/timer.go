package pool

import (
	"sync"
	"time"
)

var timerPool = sync.Pool{}

func drain(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// GetTimer returns a stopped-and-drained timer from the pool, reset to d.
func GetTimer(d time.Duration) *time.Timer {
	t, ok := timerPool.Get().(*time.Timer)
	if !ok {
		return time.NewTimer(d)
	}
	drain(t)
	t.Reset(d)
	return t
}

// ReleaseTimer stops t and puts it back. nil is ignored.
func ReleaseTimer(t *time.Timer) {
	if t == nil {
		return
	}
	drain(t)
	timerPool.Put(t)
}

// ResetAndDrainTimer restarts t with d. Any pending fire is discarded.
func ResetAndDrainTimer(t *time.Timer, d time.Duration) {
	if t == nil {
		return
	}
	drain(t)
	t.Reset(d)
}
