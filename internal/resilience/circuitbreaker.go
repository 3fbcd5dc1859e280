// Package resilience provides the retry and circuit-breaker primitives that
// wrap every call to an external AI vendor. [CircuitBreaker] is a
// sliding-window ratio breaker (closed → open → half-open); [Retrier] is a
// bounded, jittered exponential-backoff retry loop. [Policy] pairs the two
// for a single external target; [Registry] holds one [Policy] per target
// name.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker is
// open and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed is the normal operating state — all calls are forwarded.
	StateClosed State = iota
	// StateOpen rejects calls immediately until the reset timeout elapses.
	StateOpen
	// StateHalfOpen permits a limited number of probe calls.
	StateHalfOpen
)

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

// CircuitBreakerConfig tunes a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name is used in log messages.
	Name string

	// WindowSize is the number of most recent calls tracked to compute the
	// failure ratio. Default 10.
	WindowSize int

	// FailureRatio is the fraction of failures in the window, at or above
	// which the breaker opens. Default 0.5.
	FailureRatio float64

	// OpenDuration is how long the breaker stays open before probing again.
	// Default 30s.
	OpenDuration time.Duration

	// HalfOpenMax is the number of probe calls allowed while half-open.
	// Default 3.
	HalfOpenMax int
}

func (c *CircuitBreakerConfig) setDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = 10
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.5
	}
	if c.OpenDuration <= 0 {
		c.OpenDuration = 30 * time.Second
	}
	if c.HalfOpenMax <= 0 {
		c.HalfOpenMax = 3
	}
}

// CircuitBreaker implements a sliding-window ratio breaker: it opens when
// the failure ratio over the last WindowSize calls reaches FailureRatio.
// It is safe for concurrent use.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	window        []bool // true = success, oldest first
	lastTripped   time.Time
	halfOpenCalls int
	halfOpenOK    int
}

// NewCircuitBreaker creates a [CircuitBreaker]. Zero-value fields in cfg are
// replaced with defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.setDefaults()
	return &CircuitBreaker{
		cfg:    cfg,
		state:  StateClosed,
		window: make([]bool, 0, cfg.WindowSize),
	}
}

// State returns the current state, resolving an elapsed open-duration into
// half-open without mutating the breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.lastTripped) >= cb.cfg.OpenDuration {
		return StateHalfOpen
	}
	return cb.state
}

// Execute runs fn if the breaker allows it. It returns [ErrCircuitOpen]
// without calling fn when the breaker is open or the half-open probe budget
// is exhausted.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastTripped) >= cb.cfg.OpenDuration {
			cb.state = StateHalfOpen
			cb.halfOpenCalls = 0
			cb.halfOpenOK = 0
			slog.Info("circuit breaker half-open", "name", cb.cfg.Name)
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.cfg.HalfOpenMax {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	inHalfOpen := cb.state == StateHalfOpen
	if inHalfOpen {
		cb.halfOpenCalls++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if inHalfOpen {
		cb.recordHalfOpen(err == nil)
	} else {
		cb.recordClosed(err == nil)
	}
	return err
}

// recordClosed updates the sliding window and possibly trips the breaker.
// Must be called with cb.mu held.
func (cb *CircuitBreaker) recordClosed(success bool) {
	if len(cb.window) >= cb.cfg.WindowSize {
		cb.window = cb.window[1:]
	}
	cb.window = append(cb.window, success)

	if len(cb.window) < cb.cfg.WindowSize {
		return
	}
	failures := 0
	for _, ok := range cb.window {
		if !ok {
			failures++
		}
	}
	ratio := float64(failures) / float64(len(cb.window))
	if ratio >= cb.cfg.FailureRatio {
		cb.state = StateOpen
		cb.lastTripped = time.Now()
		cb.window = cb.window[:0]
		slog.Warn("circuit breaker opened", "name", cb.cfg.Name, "failure_ratio", ratio)
	}
}

// recordHalfOpen updates probe accounting. Must be called with cb.mu held.
func (cb *CircuitBreaker) recordHalfOpen(success bool) {
	if !success {
		cb.state = StateOpen
		cb.lastTripped = time.Now()
		slog.Warn("circuit breaker re-opened from half-open", "name", cb.cfg.Name)
		return
	}
	cb.halfOpenOK++
	if cb.halfOpenOK >= cb.cfg.HalfOpenMax {
		cb.state = StateClosed
		cb.window = cb.window[:0]
		cb.halfOpenCalls = 0
		cb.halfOpenOK = 0
		slog.Info("circuit breaker closed after successful probes", "name", cb.cfg.Name)
	}
}

// Reset forces the breaker back to closed, clearing all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.window = cb.window[:0]
	cb.halfOpenCalls = 0
	cb.halfOpenOK = 0
}
