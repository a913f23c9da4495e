package services

import (
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/golf-picks/internal/providers"
)

// CircuitBreakerService holds one breaker per odds source. A source whose
// breaker is open is reported as failed without being called.
type CircuitBreakerService struct {
	breakers map[string]*gobreaker.CircuitBreaker
	logger   *logrus.Logger
}

// NewCircuitBreakerService opens a source's breaker after threshold
// consecutive failures and probes it again once timeout has passed.
func NewCircuitBreakerService(threshold int, timeout time.Duration, sources []string, logger *logrus.Logger) *CircuitBreakerService {
	if threshold <= 0 {
		threshold = 1
	}
	cb := &CircuitBreakerService{
		breakers: make(map[string]*gobreaker.CircuitBreaker, len(sources)),
		logger:   logger,
	}
	for _, source := range sources {
		cb.breakers[source] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        source,
			MaxRequests: 1,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold)
			},
			IsSuccessful:  sourceHealthy,
			OnStateChange: cb.logTransition,
		})
	}
	return cb
}

// sourceHealthy treats "nothing for this tour" as a healthy answer.
func sourceHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, providers.ErrUnsupportedTour) ||
		errors.Is(err, providers.ErrNoCurrentEvent)
}

func (cb *CircuitBreakerService) logTransition(name string, from, to gobreaker.State) {
	entry := cb.logger.WithFields(logrus.Fields{
		"component": "circuit_breaker",
		"source":    name,
		"from":      from.String(),
		"to":        to.String(),
	})
	if to == gobreaker.StateOpen {
		entry.Warn("Odds source breaker opened")
		return
	}
	entry.Info("Odds source breaker state changed")
}

// Execute runs fn behind the source's breaker. Unknown sources run
// unprotected.
func (cb *CircuitBreakerService) Execute(source string, fn func() (interface{}, error)) (interface{}, error) {
	breaker, ok := cb.breakers[source]
	if !ok {
		cb.logger.WithFields(logrus.Fields{
			"component": "circuit_breaker",
			"source":    source,
		}).Debug("No breaker registered for source")
		return fn()
	}
	return breaker.Execute(fn)
}

func (cb *CircuitBreakerService) GetState(source string) gobreaker.State {
	if breaker, ok := cb.breakers[source]; ok {
		return breaker.State()
	}
	return gobreaker.StateClosed
}

// States reports every breaker for the health endpoint.
func (cb *CircuitBreakerService) States() map[string]string {
	out := make(map[string]string, len(cb.breakers))
	for name, breaker := range cb.breakers {
		out[name] = breaker.State().String()
	}
	return out
}

// Sources lists the protected sources in name order.
func (cb *CircuitBreakerService) Sources() []string {
	names := make([]string, 0, len(cb.breakers))
	for name := range cb.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
