// Package breaker implements the per-provider circuit breaker of
// spec.md §4.2: a three-state machine (Closed, Open, HalfOpen) guarding
// admission into a provider's synthesis path.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/lee-jian-hui/tts-system/internal/log"
	"github.com/lee-jian-hui/tts-system/internal/metrics"
)

// State is one of the three breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Permit when admission is currently denied.
var ErrCircuitOpen = errors.New("breaker: circuit open")

// Outcome is recorded exactly once per granted lease.
type Outcome int

const (
	Success Outcome = iota
	Failure
)

// clock abstracts time.Now for deterministic tests.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option configures a Breaker at construction.
type Option func(*Breaker)

// WithClock overrides the time source; used in tests to control T
// without sleeping.
func WithClock(c clock) Option {
	return func(b *Breaker) { b.clock = c }
}

// Breaker is a single provider's circuit breaker instance.
type Breaker struct {
	mu sync.Mutex

	providerID string
	threshold  int           // N: consecutive failures to trip from Closed
	resetAfter time.Duration // T: cooldown before Open -> HalfOpen
	maxTrials  int           // H: concurrent trials allowed, and successes needed to close

	state    State
	openedAt time.Time

	consecFailures  int // Closed-state failure streak
	halfOpenInUse   int // active leases currently outstanding in HalfOpen
	halfOpenSuccess int // consecutive successes accrued in HalfOpen

	clock clock
}

// New constructs a breaker for one provider with the given
// failure_threshold, reset_timeout and half_open_max_trials.
func New(providerID string, failureThreshold int, resetTimeout time.Duration, halfOpenMaxTrials int, opts ...Option) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	if halfOpenMaxTrials <= 0 {
		halfOpenMaxTrials = 1
	}
	b := &Breaker{
		providerID: providerID,
		threshold:  failureThreshold,
		resetAfter: resetTimeout,
		maxTrials:  halfOpenMaxTrials,
		state:      StateClosed,
		clock:      realClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.SetBreakerState(providerID, b.state.String())
	return b
}

// Lease is granted by Permit and must have Record called exactly once.
type Lease struct {
	b         *Breaker
	grantedIn State
	recorded  bool
}

// Record reports the outcome of the permitted attempt. Safe to call at
// most once; subsequent calls are no-ops.
func (l *Lease) Record(outcome Outcome) {
	if l.recorded {
		return
	}
	l.recorded = true
	l.b.record(l.grantedIn, outcome)
}

// Permit asks whether a synthesis attempt may begin. It is consulted
// before synthesis starts, never mid-stream (spec.md §4.2).
func (b *Breaker) Permit() (*Lease, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return &Lease{b: b, grantedIn: StateClosed}, nil

	case StateOpen:
		if b.clock.Now().Before(b.openedAt.Add(b.resetAfter)) {
			return nil, ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		fallthrough

	case StateHalfOpen:
		if b.halfOpenInUse >= b.maxTrials {
			return nil, ErrCircuitOpen
		}
		b.halfOpenInUse++
		return &Lease{b: b, grantedIn: StateHalfOpen}, nil
	}
	return nil, ErrCircuitOpen
}

func (b *Breaker) record(grantedIn State, outcome Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch grantedIn {
	case StateClosed:
		if b.state != StateClosed {
			// A late report from a lease granted before a concurrent trip;
			// the breaker already moved on.
			return
		}
		if outcome == Success {
			b.consecFailures = 0
			return
		}
		b.consecFailures++
		if b.consecFailures >= b.threshold {
			b.transition(StateOpen)
		}

	case StateHalfOpen:
		if b.state != StateHalfOpen {
			return
		}
		b.halfOpenInUse--
		if outcome == Failure {
			b.transition(StateOpen)
			return
		}
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.maxTrials {
			b.transition(StateClosed)
		}
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	switch to {
	case StateOpen:
		b.openedAt = b.clock.Now()
		b.halfOpenInUse = 0
		b.halfOpenSuccess = 0
		metrics.RecordBreakerTrip(b.providerID)
	case StateHalfOpen:
		b.halfOpenInUse = 0
		b.halfOpenSuccess = 0
	case StateClosed:
		b.consecFailures = 0
	}
	metrics.SetBreakerState(b.providerID, to.String())
	log.WithComponent("breaker").Info().
		Str("provider_id", b.providerID).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("circuit breaker transition")
}

// State returns the current state, for diagnostics and tests.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
