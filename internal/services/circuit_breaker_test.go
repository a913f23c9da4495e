package services

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/golf-picks/internal/providers"
)

func TestCircuitBreakerService_Trips(t *testing.T) {
	cb := NewCircuitBreakerService(3, time.Minute, []string{"datagolf"}, testLogger())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, err := cb.Execute("datagolf", func() (interface{}, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.GetState("datagolf"))

	_, err := cb.Execute("datagolf", func() (interface{}, error) { return "never", nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreakerService_UncoveredTourIsHealthy(t *testing.T) {
	cb := NewCircuitBreakerService(1, time.Minute, []string{"the-odds-api"}, testLogger())

	for i := 0; i < 5; i++ {
		_, err := cb.Execute("the-odds-api", func() (interface{}, error) { return nil, providers.ErrUnsupportedTour })
		assert.ErrorIs(t, err, providers.ErrUnsupportedTour)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.GetState("the-odds-api"))
}

func TestCircuitBreakerService_UnknownSourceRunsUnprotected(t *testing.T) {
	cb := NewCircuitBreakerService(1, time.Minute, nil, testLogger())

	out, err := cb.Execute("unknown", func() (interface{}, error) { return 42, nil })
	assert.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, gobreaker.StateClosed, cb.GetState("unknown"))
	assert.Empty(t, cb.States())
	assert.Empty(t, cb.Sources())
}

func TestCircuitBreakerService_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreakerService(2, time.Minute, []string{"the-odds-api", "datagolf"}, testLogger())
	boom := errors.New("boom")

	_, _ = cb.Execute("datagolf", func() (interface{}, error) { return nil, boom })
	_, _ = cb.Execute("datagolf", func() (interface{}, error) { return "ok", nil })
	_, _ = cb.Execute("datagolf", func() (interface{}, error) { return nil, boom })
	assert.Equal(t, gobreaker.StateClosed, cb.GetState("datagolf"))

	_, _ = cb.Execute("datagolf", func() (interface{}, error) { return nil, boom })
	assert.Equal(t, gobreaker.StateOpen, cb.GetState("datagolf"))
	assert.Equal(t, []string{"datagolf", "the-odds-api"}, cb.Sources())
}
