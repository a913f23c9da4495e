package identity

import (
	"strings"
)

// MatchKind reports how two identities were joined.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchSurname
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSurname:
		return "surname"
	default:
		return "none"
	}
}

// MarshalText lets MatchKind render as its name in JSON payloads.
func (k MatchKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MatchKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "exact":
		*k = MatchExact
	case "surname":
		*k = MatchSurname
	default:
		*k = MatchNone
	}
	return nil
}

// SurnameFunc extracts the token used for fallback matching. An empty
// result never matches.
type SurnameFunc func(Identity) string

// SortedKeyLastToken takes the last token of the sorted key. This is the
// historical behavior: because tokens are sorted alphabetically the result
// is the alphabetically greatest token, which is frequently the given name.
func SortedKeyLastToken(id Identity) string {
	key := id.Key
	if key == "" {
		key = Normalize(id.Raw)
	}
	if i := strings.LastIndexByte(key, ' '); i >= 0 {
		return key[i+1:]
	}
	return key
}

var nameSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
}

// RawSurname reads the surname from the raw spelling: the text before a
// comma when present ("Smith, John"), otherwise the final word, skipping
// generational suffixes.
func RawSurname(id Identity) string {
	raw := bracketed.ReplaceAllString(id.Raw, " ")
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[:i]
	}
	tokens := tokenize(raw)
	for len(tokens) > 0 && nameSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// Matcher applies exact key equality first and the surname strategy second.
type Matcher struct {
	surname SurnameFunc
}

// NewMatcher returns a matcher using the given surname strategy, or
// SortedKeyLastToken when strategy is nil.
func NewMatcher(strategy SurnameFunc) *Matcher {
	if strategy == nil {
		strategy = SortedKeyLastToken
	}
	return &Matcher{surname: strategy}
}

// Surname exposes the configured strategy.
func (m *Matcher) Surname(id Identity) string {
	return m.surname(id)
}

// Match compares two identities. Callers that hold a whole dataset should
// use an Index so the surname stage only runs when no exact key exists.
func (m *Matcher) Match(a, b Identity) MatchKind {
	if a.Key != "" && a.Key == b.Key {
		return MatchExact
	}
	sa, sb := m.surname(a), m.surname(b)
	if sa != "" && sa == sb {
		return MatchSurname
	}
	return MatchNone
}
