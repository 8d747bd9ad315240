package apiclient

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Dosada05/mob-esports/metrics"
)

// BreakerSettings tunes the circuit breaker. Zero values pick the defaults.
type BreakerSettings struct {
	// ConsecutiveFailures of 5xx or transport errors that open the circuit.
	ConsecutiveFailures uint32
	// OpenTimeout before a half-open probe is allowed.
	OpenTimeout time.Duration
	// Interval after which closed-state counts reset.
	Interval time.Duration
}

func newBreaker(s BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker[*response] {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	metrics.APICircuitState.Set(0)

	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "mob-api",
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.APICircuitState.Set(stateValue(to))
		},
		// 4xx answers mean the API is up
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
