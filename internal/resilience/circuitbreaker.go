package resilience

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

var (
	ErrOpen            = gobreaker.ErrOpenState
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)

// CircuitBreaker opens after threshold consecutive failures and lets a single
// probe through once timeout has elapsed.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func NewCircuitBreaker[T any](name string, threshold uint32, timeout time.Duration) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				slog.Warn("Circuit Breaker OPENED", "breaker", name, "from", from.String())
			case gobreaker.StateClosed:
				slog.Info("Circuit Breaker RECOVERED", "breaker", name)
			}
		},
	}
	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

func (c *CircuitBreaker[T]) Execute(action func() (T, error)) (T, error) {
	return c.cb.Execute(action)
}

func (c *CircuitBreaker[T]) Open() bool {
	return c.cb.State() == gobreaker.StateOpen
}
