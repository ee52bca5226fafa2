package mirror

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker is open and replica writes
// are being rejected outright.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig tunes when the breaker trips and recovers.
type CircuitBreakerConfig struct {
	// MaxFailures is how many consecutive failures trip the circuit (default 3).
	MaxFailures uint32

	// Timeout is how long the circuit stays open before probing again
	// (default 30s).
	Timeout time.Duration

	// HalfOpenMaxSuccesses is how many probe successes close the circuit
	// (default 2).
	HalfOpenMaxSuccesses uint32
}

var defaultBreakerConfig = CircuitBreakerConfig{
	MaxFailures:          3,
	Timeout:              30 * time.Second,
	HalfOpenMaxSuccesses: 2,
}

// CircuitBreakerMetrics holds counters about circuit breaker operations.
type CircuitBreakerMetrics struct {
	TotalRequests        uint64
	TotalSuccesses       uint64
	TotalFailures        uint64
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreaker shields replica writes behind gobreaker. Consecutive
// failures open the circuit and writes fail fast with ErrCircuitOpen until
// a timed half-open probe succeeds often enough to close it again.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	config  CircuitBreakerConfig

	mu      sync.RWMutex
	metrics CircuitBreakerMetrics
}

// NewCircuitBreaker builds a breaker with the default tuning.
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithConfig(defaultBreakerConfig)
}

// NewCircuitBreakerWithConfig builds a breaker with explicit tuning.
func NewCircuitBreakerWithConfig(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "mirror-replica",
			MaxRequests: config.HalfOpenMaxSuccesses,
			Interval:    0, // never reset counts while closed
			Timeout:     config.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= config.MaxFailures
			},
		}),
	}
}

// Execute runs fn through the breaker. An open circuit rejects with
// ErrCircuitOpen and a cancelled context rejects with its error, both
// without invoking fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		cb.record(false)
		return nil, err
	}

	result, err := cb.breaker.Execute(func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	cb.record(err == nil)

	if errors.Is(err, gobreaker.ErrOpenState) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// State reports the breaker position as "closed", "open", or "half-open".
func (cb *CircuitBreaker) State() string {
	switch cb.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.RLock()
	m := cb.metrics
	cb.mu.RUnlock()

	counts := cb.breaker.Counts()
	m.ConsecutiveSuccesses = counts.ConsecutiveSuccesses
	m.ConsecutiveFailures = counts.ConsecutiveFailures
	return m
}

func (cb *CircuitBreaker) record(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.metrics.TotalRequests++
	if ok {
		cb.metrics.TotalSuccesses++
	} else {
		cb.metrics.TotalFailures++
	}
}
