// Package circuitbreaker stops calling a provider that keeps failing.
//
// Each provider/model pair has its own breaker. After a run of consecutive
// provider faults the breaker opens and refuses calls with ErrCircuitOpen
// for the open timeout, so the orchestrator moves straight to the next
// provider instead of spending its per-call timeout on a dead backend. Once
// the timeout passes a single probe is let through: success closes the
// breaker, failure reopens it.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the position of a breaker in its state machine.
type State int32

const (
	// StateClosed allows requests through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen lets one probe through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker is one provider/model circuit.
type breaker struct {
	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	threshold   int
	openTimeout time.Duration
}

// allow reports whether a call may proceed. probe is true for the single
// half-open trial call.
func (b *breaker) allow(now time.Time) (ok, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true, false
	case StateOpen:
		if now.Sub(b.openedAt) < b.openTimeout {
			return false, false
		}
		b.state = StateHalfOpen
		b.probing = true
		return true, true
	default:
		if b.probing {
			return false, false
		}
		b.probing = true
		return true, true
	}
}

// record folds a call outcome into the breaker and returns the state
// transition it caused, if any.
func (b *breaker) record(now time.Time, failed bool) (from, to State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	from = b.state
	switch b.state {
	case StateClosed:
		if !failed {
			b.failures = 0
			break
		}
		b.failures++
		if b.failures >= b.threshold {
			b.open(now)
		}
	case StateHalfOpen:
		b.probing = false
		if failed {
			b.open(now)
		} else {
			b.state = StateClosed
			b.failures = 0
		}
	}
	return from, b.state
}

// release ends a probe whose outcome says nothing about provider health,
// such as a caller cancellation.
func (b *breaker) release(probe bool) {
	if !probe {
		return
	}
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

func (b *breaker) open(now time.Time) {
	b.state = StateOpen
	b.openedAt = now
	b.failures = 0
	b.probing = false
}

func (b *breaker) current() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
