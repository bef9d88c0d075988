package executor

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model"
)

// Un breaker per endpoint: Closed -> (n failures) -> Open -> (openFor) -> HalfOpen.
func newBreaker(endpoint string, failures int, openFor time.Duration, log *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("executor: breaker state change",
				zap.String("endpoint", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
}

// countsAsSuccess keeps client-side errors (4xx, including exhausted 429)
// from tripping the breaker. Only timeouts, transport errors and 5xx count.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var f *model.Failure
	if !errors.As(err, &f) {
		return false
	}
	switch f.Kind {
	case model.KindTimeout, model.KindNetwork:
		return false
	case model.KindServer:
		return f.HTTPStatus >= 400 && f.HTTPStatus < 500
	default:
		return true
	}
}
