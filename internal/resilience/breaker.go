// Package resilience provides reliability patterns for calls that leave the
// process, such as publishing to the message queue.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker is rejecting calls.
var ErrOpen = errors.New("circuit open")

// State is the breaker's current disposition toward new calls.
type State int

const (
	// Closed lets every call through.
	Closed State = iota
	// Open rejects every call until the cooldown elapses.
	Open
	// HalfOpen lets a single probe through; other callers are rejected
	// until the probe reports back.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker trips after a run of consecutive failures and recovers through a
// single successful probe once the cooldown has passed.
type Breaker struct {
	mu          sync.Mutex
	state       State
	consecutive int
	openedAt    time.Time
	probing     bool

	threshold int
	cooldown  time.Duration
	clock     func() time.Time
}

// New returns a closed breaker that opens after threshold consecutive
// failures and stays open for cooldown before probing.
func New(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{threshold: threshold, cooldown: cooldown, clock: time.Now}
}

// Do runs fn unless the breaker is rejecting calls, in which case it returns
// ErrOpen without invoking fn. fn's error is returned as-is and counts
// against the failure threshold.
func (b *Breaker) Do(fn func() error) error {
	if !b.admit() {
		return ErrOpen
	}
	err := fn()
	b.settle(err == nil)
	return err
}

// State reports the breaker's disposition, accounting for an elapsed
// cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.clock().Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.clock().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = HalfOpen
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

func (b *Breaker) settle(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		b.state = Closed
		b.consecutive = 0
		b.probing = false
		return
	}

	b.probing = false
	if b.state == HalfOpen {
		// Failed probe: back to a full cooldown.
		b.state = Open
		b.openedAt = b.clock()
		return
	}
	b.consecutive++
	if b.consecutive >= b.threshold {
		b.state = Open
		b.openedAt = b.clock()
	}
}
