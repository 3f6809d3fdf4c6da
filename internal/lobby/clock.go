package lobby

import "time"

// CancelFunc stops a pending timer. It reports false when the timer already
// fired or was stopped before.
type CancelFunc func() bool

// Clock abstracts the time source so the Coordinator's deadlines can be
// driven manually under test.
type Clock interface {
	Now() time.Time
	// After runs fn on its own goroutine once d has elapsed.
	After(d time.Duration, fn func()) CancelFunc
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration, fn func()) CancelFunc {
	return time.AfterFunc(d, fn).Stop
}

func SystemClock() Clock {
	return systemClock{}
}
