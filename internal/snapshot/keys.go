package snapshot

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Tour namespaces snapshot keys by competition series.
type Tour string

const (
	TourPGA  Tour = "pga"  // primary
	TourEuro Tour = "euro" // secondary
	TourKFT  Tour = "kft"  // regional
	TourLIV  Tour = "liv"  // alternate
)

var tourAliases = map[string]Tour{
	"pga":        TourPGA,
	"primary":    TourPGA,
	"euro":       TourEuro,
	"dpwt":       TourEuro,
	"european":   TourEuro,
	"secondary":  TourEuro,
	"kft":        TourKFT,
	"kornferry":  TourKFT,
	"korn-ferry": TourKFT,
	"regional":   TourKFT,
	"liv":        TourLIV,
	"alternate":  TourLIV,
}

// ParseTour accepts a tour code or alias.
func ParseTour(s string) (Tour, error) {
	if t, ok := tourAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown tour %q", s)
}

// TourFromName maps a free-text tournament or feed name to a tour using
// keyword rules. Names matching nothing belong to the primary tour.
func TourFromName(name string) Tour {
	words := strings.Fields(nonAlnum.ReplaceAllString(strings.ToLower(name), " "))
	joined := " " + strings.Join(words, " ") + " "
	has := func(phrase string) bool { return strings.Contains(joined, " "+phrase+" ") }

	switch {
	case has("liv"):
		return TourLIV
	case has("dp world"), has("european"), has("euro"), has("dpwt"):
		return TourEuro
	case has("korn ferry"), has("kft"):
		return TourKFT
	default:
		return TourPGA
	}
}

// Kind separates the artifact namespaces sharing one store.
type Kind string

const (
	KindPredictions Kind = "predictions"
	KindOdds        Kind = "odds"
	KindMatchups    Kind = "matchups"
)

// ParseKind validates an artifact kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPredictions, KindOdds, KindMatchups:
		return k, nil
	}
	return "", fmt.Errorf("unknown snapshot kind %q", s)
}

const stampLayout = "2006-01-02-1504"

var (
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]+`)
	stampSuffix = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}-\d{4})$`)
)

// Slug lower-cases an event name and collapses every run of
// non-alphanumeric characters to a single hyphen.
func Slug(eventName string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(eventName), "-"), "-")
}

// ErrUnnamedEvent means an event name has no alphanumeric characters, so no
// key can be built for it.
var ErrUnnamedEvent = errors.New("event name has an empty slug")

// CheckEventName rejects names whose slug is empty. Keys built from such a
// name would collide with the tour list prefix.
func CheckEventName(eventName string) error {
	if Slug(eventName) == "" {
		return fmt.Errorf("%w: %q", ErrUnnamedEvent, eventName)
	}
	return nil
}

// Key is "<tour>-<slug>-<YYYY>-<MM>-<DD>-<HHMM>" with the time in UTC.
// This layout is shared with historical data and must not change.
func Key(tour Tour, eventName string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s", tour, Slug(eventName), at.UTC().Format(stampLayout))
}

// LatestKey is the "<tour>-<slug>" pointer to the newest snapshot of an event.
func LatestKey(tour Tour, eventName string) string {
	return fmt.Sprintf("%s-%s", tour, Slug(eventName))
}

// StorageKey places a snapshot key inside its artifact namespace.
func StorageKey(kind Kind, key string) string {
	return string(kind) + "/" + key
}

// TourPrefix is the list prefix covering every snapshot of a tour.
func TourPrefix(kind Kind, tour Tour) string {
	return StorageKey(kind, string(tour)+"-")
}

// EventPrefix covers every timestamped snapshot of one event.
func EventPrefix(kind Kind, tour Tour, eventName string) string {
	return StorageKey(kind, LatestKey(tour, eventName)+"-")
}

// Stamp returns the zero-padded date-time suffix of a key, or "" when the
// key carries none. Stamps order chronologically under string comparison.
func Stamp(key string) string {
	m := stampSuffix.FindStringSubmatch(key)
	if m == nil {
		return ""
	}
	if _, err := time.Parse(stampLayout, m[1]); err != nil {
		return ""
	}
	return m[1]
}

// KeyTime parses the date-time suffix of a key.
func KeyTime(key string) (time.Time, bool) {
	s := Stamp(key)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(stampLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SameEvent reports whether a namespaced, timestamped key belongs to the
// given event exactly. EventPrefix alone also matches events whose slug
// merely starts with this one ("the-masters" vs "the-masters-par-3").
func SameEvent(storageKey string, kind Kind, tour Tour, eventName string) bool {
	stamp := Stamp(storageKey)
	if stamp == "" {
		return false
	}
	return strings.TrimSuffix(storageKey, "-"+stamp) == StorageKey(kind, LatestKey(tour, eventName))
}
