package providers

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a provider fetch produced no data.
type FailureKind int

const (
	FailureTimeout FailureKind = iota + 1
	FailureHTTP
	FailureMalformed
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureHTTP:
		return "http_error"
	case FailureMalformed:
		return "malformed_payload"
	default:
		return "unknown"
	}
}

// Failure is returned by every provider call that did not yield data.
// Status is the HTTP status for FailureHTTP, or 0 when no response arrived.
type Failure struct {
	Source string
	Kind   FailureKind
	Status int
	Err    error
}

func (f *Failure) Error() string {
	if f.Kind == FailureHTTP && f.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", f.Source, f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Source, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts a *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

var (
	// ErrNoCurrentEvent means the schedule has nothing in play this week.
	ErrNoCurrentEvent = errors.New("no current event on schedule")
	// ErrUnsupportedTour means the provider does not carry the tour at all.
	ErrUnsupportedTour = errors.New("tour not covered by provider")
	// ErrNotConfigured means the provider has no API key.
	ErrNotConfigured = errors.New("provider API key not configured")
)
