// Package snapshot persists immutable, timestamped artifacts (predictions,
// odds boards, matchup analyses) in a key/value store with list-by-prefix.
package snapshot

import (
	"context"
	"errors"
	"fmt"
)

// ErrStoreUnavailable marks storage or network failures. A plain miss is
// never reported through it.
var ErrStoreUnavailable = errors.New("snapshot store unavailable")

// Store is the durable key/value surface snapshots are written to. Writes
// overwrite with last-writer-wins; there is no merge and no compare-and-swap.
type Store interface {
	// Set creates or overwrites key.
	Set(ctx context.Context, key string, value []byte) error
	// Get returns found=false with a nil error on a normal miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// List returns every key starting with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrStoreUnavailable, op, key, err)
}

// IsUnavailable reports whether err came from an unreachable store.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
