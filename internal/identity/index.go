package identity

// Index looks up records of one dataset by contestant name. Exact keys win
// over the surname fallback across the whole dataset; within a stage the
// first record added wins. A surname shared by two distinct keys never
// matches.
type Index[T any] struct {
	matcher   *Matcher
	entries   []indexEntry[T]
	byKey     map[string]int
	bySurname map[string]int
}

// ambiguous marks a surname claimed by more than one distinct key.
const ambiguous = -1

type indexEntry[T any] struct {
	id    Identity
	value T
}

// NewIndex creates an empty index. A nil matcher uses the default strategy.
func NewIndex[T any](matcher *Matcher) *Index[T] {
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	return &Index[T]{
		matcher:   matcher,
		byKey:     make(map[string]int),
		bySurname: make(map[string]int),
	}
}

// Add registers a record under its raw name and returns the identity used.
func (x *Index[T]) Add(raw string, value T) Identity {
	id := New(raw)
	x.entries = append(x.entries, indexEntry[T]{id: id, value: value})
	pos := len(x.entries) - 1
	if _, ok := x.byKey[id.Key]; !ok && id.Key != "" {
		x.byKey[id.Key] = pos
	}
	if s := x.matcher.Surname(id); s != "" {
		prev, ok := x.bySurname[s]
		switch {
		case !ok:
			x.bySurname[s] = pos
		case prev != ambiguous && x.entries[prev].id.Key != id.Key:
			x.bySurname[s] = ambiguous
		}
	}
	return id
}

// Len returns the number of records added.
func (x *Index[T]) Len() int {
	return len(x.entries)
}

// Lookup finds the record for a raw name.
func (x *Index[T]) Lookup(raw string) (T, Identity, MatchKind) {
	return x.LookupIdentity(New(raw))
}

// LookupIdentity is Lookup for an already normalized identity. The returned
// Identity is the one stored in the index.
func (x *Index[T]) LookupIdentity(id Identity) (T, Identity, MatchKind) {
	if pos, ok := x.byKey[id.Key]; ok && id.Key != "" {
		e := x.entries[pos]
		return e.value, e.id, MatchExact
	}
	if s := x.matcher.Surname(id); s != "" {
		if pos, ok := x.bySurname[s]; ok && pos != ambiguous {
			e := x.entries[pos]
			return e.value, e.id, MatchSurname
		}
	}
	var zero T
	return zero, Identity{}, MatchNone
}
