package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurnameStrategies(t *testing.T) {
	tests := []struct {
		raw        string
		sortedLast string
		rawSurname string
	}{
		{"John Smith", "smith", "smith"},
		{"Smith, John", "smith", "smith"},
		{"J. Smith", "smith", "smith"},
		{"Matt Fitzpatrick", "matt", "fitzpatrick"},
		{"Fitzpatrick, Matthew", "matthew", "fitzpatrick"},
		{"Davis Love III", "love", "love"},
		{"Smith Jr., John", "smith", "smith"},
		{"Tom Kim (KOR)", "tom", "kim"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id := New(tt.raw)
			assert.Equal(t, tt.sortedLast, SortedKeyLastToken(id))
			assert.Equal(t, tt.rawSurname, RawSurname(id))
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(nil)

	assert.Equal(t, MatchExact, m.Match(New("Doe, John"), New("John Doe")))
	assert.Equal(t, MatchSurname, m.Match(New("J. Smith"), New("John Smith")))
	assert.Equal(t, MatchNone, m.Match(New("Jon Rahm"), New("Tony Finau")))
	assert.Equal(t, MatchNone, m.Match(New(""), New("")))
}

func TestMatcher_StrategyChangesFallback(t *testing.T) {
	a, b := New("Matt Fitzpatrick"), New("Fitzpatrick, Matthew")

	assert.Equal(t, MatchNone, NewMatcher(SortedKeyLastToken).Match(a, b))
	assert.Equal(t, MatchSurname, NewMatcher(RawSurname).Match(a, b))
}

func TestMatchKind_String(t *testing.T) {
	assert.Equal(t, "exact", MatchExact.String())
	assert.Equal(t, "surname", MatchSurname.String())
	assert.Equal(t, "none", MatchNone.String())

	text, err := MatchSurname.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "surname", string(text))
}

func TestMatchKind_TextRoundTrip(t *testing.T) {
	for _, k := range []MatchKind{MatchNone, MatchExact, MatchSurname} {
		text, err := k.MarshalText()
		require.NoError(t, err)
		var got MatchKind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
	}
}

func TestIndex_ExactBeatsSurname(t *testing.T) {
	idx := NewIndex[int](nil)
	idx.Add("Smith, Cameron", 1)
	idx.Add("Jordan Smith", 2)

	v, id, kind := idx.Lookup("Jordan Smith")
	assert.Equal(t, 2, v)
	assert.Equal(t, MatchExact, kind)
	assert.Equal(t, "Jordan Smith", id.Raw)
}

func TestIndex_SurnameFallback(t *testing.T) {
	idx := NewIndex[int](nil)
	idx.Add("Smith, Cameron", 1)
	idx.Add("Scheffler, Scottie", 2)

	v, id, kind := idx.Lookup("C. Smith")
	assert.Equal(t, 1, v)
	assert.Equal(t, MatchSurname, kind)
	assert.Equal(t, "cameron smith", id.Key)
	assert.Equal(t, 2, idx.Len())
}

func TestIndex_SharedSurnameIsRefused(t *testing.T) {
	idx := NewIndex[string](nil)
	idx.Add("Justin Thomas", "JT")
	idx.Add("Michael Thomas", "MT")

	v, id, kind := idx.Lookup("M. Thomas")
	assert.Equal(t, "", v)
	assert.Equal(t, Identity{}, id)
	assert.Equal(t, MatchNone, kind)

	// exact keys still resolve
	v, _, kind = idx.Lookup("Thomas, Michael")
	assert.Equal(t, "MT", v)
	assert.Equal(t, MatchExact, kind)
}

func TestIndex_DuplicateKeyKeepsSurname(t *testing.T) {
	idx := NewIndex[int](nil)
	idx.Add("Jon Rahm", 1)
	idx.Add("Rahm, Jon", 2)

	v, _, kind := idx.Lookup("J. Rahm")
	assert.Equal(t, 1, v)
	assert.Equal(t, MatchSurname, kind)
}

func TestIndex_NoMatch(t *testing.T) {
	idx := NewIndex[string](NewMatcher(RawSurname))
	idx.Add("Scheffler, Scottie", "dg-18417")

	v, id, kind := idx.Lookup("Xander Schauffele")
	assert.Equal(t, "", v)
	assert.Equal(t, Identity{}, id)
	assert.Equal(t, MatchNone, kind)
}
