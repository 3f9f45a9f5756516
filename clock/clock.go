// Package clock abstracts the wall clock so agent loops, backoffs and
// sidecar schedules can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock is the subset of the time package used by the agents.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Step is a Clock whose time only moves when After is called: every call
// advances the clock by d and fires immediately. Waited records each
// requested duration in order.
type Step struct {
	mu     sync.Mutex
	now    time.Time
	waited []time.Duration
}

// NewStep returns a Step clock starting at start.
func NewStep(start time.Time) *Step {
	return &Step{now: start}
}

func (s *Step) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Step) After(d time.Duration) <-chan time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waited = append(s.waited, d)
	if d > 0 {
		s.now = s.now.Add(d)
	}
	ch := make(chan time.Time, 1)
	ch <- s.now
	return ch
}

// Advance moves the clock forward without recording a wait.
func (s *Step) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

// Waited returns a copy of every duration passed to After.
func (s *Step) Waited() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.waited))
	copy(out, s.waited)
	return out
}
