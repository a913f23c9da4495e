package services

import (
	"github.com/stitts-dev/golf-picks/internal/identity"
	"github.com/stitts-dev/golf-picks/internal/providers"
)

// JoinedRow pairs a requested contestant with the record found for them.
// A missing record is not an error; Found is simply false.
type JoinedRow[T any] struct {
	Requested string             `json:"requested"`
	Found     bool               `json:"found"`
	MatchedAs string             `json:"matched_as,omitempty"`
	Match     identity.MatchKind `json:"match"`
	Record    *T                 `json:"record,omitempty"`
}

// JoinResult counts matched and unmatched contestants separately.
type JoinResult[T any] struct {
	Rows          []JoinedRow[T] `json:"rows"`
	NotFound      []string       `json:"not_found"`
	MatchedCount  int            `json:"matched_count"`
	SurnameCount  int            `json:"surname_count"`
	NotFoundCount int            `json:"not_found_count"`
}

// JoinByName looks up every requested name in dataset, exact key first and
// surname second across the whole dataset.
func JoinByName[T any](matcher *identity.Matcher, requested []string, dataset []T, name func(T) string) JoinResult[T] {
	idx := identity.NewIndex[int](matcher)
	for i, rec := range dataset {
		idx.Add(name(rec), i)
	}

	result := JoinResult[T]{Rows: make([]JoinedRow[T], 0, len(requested))}
	for _, req := range requested {
		pos, id, kind := idx.Lookup(req)
		row := JoinedRow[T]{Requested: req, Match: kind}
		if kind == identity.MatchNone {
			result.NotFound = append(result.NotFound, req)
			result.NotFoundCount++
			result.Rows = append(result.Rows, row)
			continue
		}
		rec := dataset[pos]
		row.Found = true
		row.MatchedAs = id.Raw
		row.Record = &rec
		result.MatchedCount++
		if kind == identity.MatchSurname {
			result.SurnameCount++
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

// StatsJoiner attaches skill ratings to reconciled contestants.
type StatsJoiner struct {
	matcher *identity.Matcher
}

func NewStatsJoiner(matcher *identity.Matcher) *StatsJoiner {
	if matcher == nil {
		matcher = identity.NewMatcher(nil)
	}
	return &StatsJoiner{matcher: matcher}
}

func (j *StatsJoiner) Join(requested []string, ratings []providers.SkillRating) JoinResult[providers.SkillRating] {
	return JoinByName(j.matcher, requested, ratings, func(r providers.SkillRating) string { return r.PlayerName })
}
