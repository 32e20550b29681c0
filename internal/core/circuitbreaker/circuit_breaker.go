package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"statusboard/internal/core/logger"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Settings tunes when the breaker trips and how long it stays open.
type Settings struct {
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	Interval     time.Duration
}

// DefaultSettings trips after three calls with at least 60% failures and
// probes again after 30s.
func DefaultSettings() Settings {
	return Settings{
		MinRequests:  3,
		FailureRatio: 0.6,
		OpenTimeout:  30 * time.Second,
		Interval:     60 * time.Second,
	}
}

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func New(name string, s Settings) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker(settings),
	}
}

// Execute runs fn unless the breaker is open. A half-open breaker that is
// already probing also reports ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := cb.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}

	return err
}

func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.cb.State()
}
