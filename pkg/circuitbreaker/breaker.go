package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/tair/movie-review/pkg/logger"
)

// State represents the state of a circuit breaker
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrOpen is returned while the circuit rejects calls
var ErrOpen = errors.New("circuit breaker is open")

// Breaker opens after maxFailures consecutive failures and probes again after openTimeout
type Breaker struct {
	name            string
	maxFailures     int
	openTimeout     time.Duration
	halfOpenSuccess int
	state           State
	failures        int
	successCount    int
	lastStateChange time.Time
	now             func() time.Time
	mu              sync.Mutex
}

// New creates a closed breaker
func New(name string, maxFailures int, openTimeout time.Duration) *Breaker {
	return &Breaker{
		name:            name,
		maxFailures:     maxFailures,
		openTimeout:     openTimeout,
		halfOpenSuccess: 3,
		state:           StateClosed,
		lastStateChange: time.Now(),
		now:             time.Now,
	}
}

// Execute runs fn unless the circuit is open and records its outcome
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure()
	} else {
		b.onSuccess()
	}
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.lastStateChange) > b.openTimeout {
		b.setState(StateHalfOpen)
		b.successCount = 0
		logger.Logger.Info().Str("circuit", b.name).Msg("Circuit breaker half-open")
	}
	return b.state != StateOpen
}

func (b *Breaker) onFailure() {
	b.failures++

	switch {
	case b.state == StateHalfOpen:
		b.setState(StateOpen)
		logger.Logger.Warn().Str("circuit", b.name).Msg("Circuit breaker reopened after half-open failure")
	case b.failures >= b.maxFailures && b.state == StateClosed:
		b.setState(StateOpen)
		logger.Logger.Error().
			Str("circuit", b.name).
			Int("failures", b.failures).
			Int("threshold", b.maxFailures).
			Msg("Circuit breaker opened")
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.halfOpenSuccess {
			b.setState(StateClosed)
			b.failures = 0
			b.successCount = 0
			logger.Logger.Info().Str("circuit", b.name).Msg("Circuit breaker closed")
		}
	case StateClosed:
		b.failures = 0
	}
}

func (b *Breaker) setState(s State) {
	b.state = s
	b.lastStateChange = b.now()
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
