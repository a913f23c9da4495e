package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 4, 11, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func TestValidate_AgeBoundary(t *testing.T) {
	v := NewValidatorWithClock(fixedClock)
	maxAge := PlayerDataTTL

	tests := []struct {
		name  string
		age   time.Duration
		valid bool
	}{
		{"fresh", time.Minute, true},
		{"one nanosecond under", maxAge - time.Nanosecond, true},
		{"one second under", maxAge - time.Second, true},
		{"exactly max age", maxAge, false},
		{"past max age", maxAge + time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Entry[int]{Value: 1, FetchedAt: now.Add(-tt.age)}
			d := v.Validate(rec, "", maxAge)
			assert.Equal(t, tt.valid, d.Valid)
			if !tt.valid {
				assert.Equal(t, ReasonExpired, d.Reason)
			}
		})
	}
}

func TestValidate_MissingTimestamp(t *testing.T) {
	v := NewValidatorWithClock(fixedClock)

	d := v.Validate(Entry[string]{Value: "x", EventName: "The Masters"}, "The Masters", WeatherTTL)
	assert.False(t, d.Valid)
	assert.Equal(t, ReasonNoTimestamp, d.Reason)

	d = v.Validate(nil, "", WeatherTTL)
	assert.False(t, d.Valid)
	assert.Equal(t, ReasonMissing, d.Reason)
}

func TestValidate_EventName(t *testing.T) {
	v := NewValidatorWithClock(fixedClock)
	rec := Entry[string]{FetchedAt: now.Add(-time.Minute), EventName: " The Masters "}

	tests := []struct {
		current string
		valid   bool
	}{
		{"", true},
		{"   ", true},
		{"the masters", true},
		{"THE MASTERS  ", true},
		{"Masters", false},
		{"RBC Heritage", false},
	}

	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			d := v.Validate(rec, tt.current, LiveEventTTL)
			assert.Equal(t, tt.valid, d.Valid)
			if !tt.valid {
				assert.Equal(t, ReasonEventMismatch, d.Reason)
			}
		})
	}
}

func TestValidate_AgeCheckedBeforeEvent(t *testing.T) {
	v := NewValidatorWithClock(fixedClock)
	rec := Entry[string]{FetchedAt: now.Add(-LiveEventTTL), EventName: "Other"}

	d := v.Validate(rec, "The Masters", LiveEventTTL)
	assert.Equal(t, ReasonExpired, d.Reason)
}

func TestIsValid(t *testing.T) {
	v := NewValidatorWithClock(fixedClock)
	assert.True(t, v.IsValid(Entry[int]{FetchedAt: now}, "", time.Second))
	assert.False(t, v.IsValid(Entry[int]{FetchedAt: now}, "", 0))
	assert.True(t, NewValidator().IsValid(Entry[int]{FetchedAt: time.Now()}, "", time.Hour))
}
