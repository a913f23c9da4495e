// Package cache decides whether a previously fetched artifact may be reused.
package cache

import (
	"strings"
	"time"
)

// Budgets used by the callers in this repository. The validator itself only
// does the age arithmetic.
const (
	PlayerDataTTL = 12 * time.Hour
	WeatherTTL    = 3 * time.Hour
	LiveEventTTL  = 15 * time.Minute
)

// Record is anything that remembers when and for which event it was fetched.
type Record interface {
	Timestamp() time.Time
	Event() string
}

// Reason explains a CacheDecision.
type Reason string

const (
	ReasonFresh         Reason = "fresh"
	ReasonMissing       Reason = "missing"
	ReasonNoTimestamp   Reason = "no_timestamp"
	ReasonExpired       Reason = "expired"
	ReasonEventMismatch Reason = "event_mismatch"
)

// CacheDecision is computed on demand and never stored.
type CacheDecision struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason"`
}

// Validator checks records against an injectable clock.
type Validator struct {
	now func() time.Time
}

func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// NewValidatorWithClock is used by tests and by callers replaying history.
func NewValidatorWithClock(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate accepts a record only while its age is strictly below maxAge and,
// when currentEventName is non-empty, its event name matches ignoring case
// and surrounding whitespace.
func (v *Validator) Validate(rec Record, currentEventName string, maxAge time.Duration) CacheDecision {
	if rec == nil {
		return CacheDecision{Reason: ReasonMissing}
	}
	ts := rec.Timestamp()
	if ts.IsZero() {
		return CacheDecision{Reason: ReasonNoTimestamp}
	}
	if v.now().Sub(ts) >= maxAge {
		return CacheDecision{Reason: ReasonExpired}
	}
	if want := strings.TrimSpace(currentEventName); want != "" {
		if !strings.EqualFold(strings.TrimSpace(rec.Event()), want) {
			return CacheDecision{Reason: ReasonEventMismatch}
		}
	}
	return CacheDecision{Valid: true, Reason: ReasonFresh}
}

func (v *Validator) IsValid(rec Record, currentEventName string, maxAge time.Duration) bool {
	return v.Validate(rec, currentEventName, maxAge).Valid
}

// Entry wraps an arbitrary cached value with the metadata Validate needs.
type Entry[T any] struct {
	Value     T         `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
	EventName string    `json:"event_name,omitempty"`
}

func (e Entry[T]) Timestamp() time.Time { return e.FetchedAt }
func (e Entry[T]) Event() string        { return e.EventName }
