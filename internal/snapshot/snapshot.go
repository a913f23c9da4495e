package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the envelope written for every artifact. Once stored it is
// never updated in place; a newer generation gets a newer key.
type Snapshot struct {
	ID          uuid.UUID       `json:"id"`
	Key         string          `json:"key"`
	Kind        Kind            `json:"kind"`
	Tour        Tour            `json:"tour"`
	EventName   string          `json:"event_name"`
	GeneratedAt time.Time       `json:"generated_at"`
	Payload     json.RawMessage `json:"payload"`
}

// New wraps payload in an envelope keyed by tour, event and generation time.
// An event name with an empty slug is rejected with ErrUnnamedEvent.
func New(kind Kind, tour Tour, eventName string, generatedAt time.Time, payload interface{}) (*Snapshot, error) {
	if err := CheckEventName(eventName); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return &Snapshot{
		ID:          uuid.New(),
		Key:         Key(tour, eventName, generatedAt),
		Kind:        kind,
		Tour:        tour,
		EventName:   eventName,
		GeneratedAt: generatedAt.UTC(),
		Payload:     data,
	}, nil
}

// StorageKey is the namespaced key the snapshot is written under.
func (s *Snapshot) StorageKey() string {
	return StorageKey(s.Kind, s.Key)
}

// Timestamp and Event let a snapshot be checked by the cache validator.
// A nil snapshot has no timestamp.
func (s *Snapshot) Timestamp() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.GeneratedAt
}

func (s *Snapshot) Event() string {
	if s == nil {
		return ""
	}
	return s.EventName
}

// Decode unmarshals the payload into dest.
func (s *Snapshot) Decode(dest interface{}) error {
	if len(s.Payload) == 0 {
		return fmt.Errorf("snapshot %s has no payload", s.Key)
	}
	if err := json.Unmarshal(s.Payload, dest); err != nil {
		return fmt.Errorf("failed to decode snapshot %s: %w", s.Key, err)
	}
	return nil
}

// Save writes the snapshot under its timestamped key, then refreshes the
// "<tour>-<slug>" latest pointer. A failed pointer write does not undo the
// snapshot itself.
func Save(ctx context.Context, store Store, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", s.Key, err)
	}
	if err := store.Set(ctx, s.StorageKey(), data); err != nil {
		return err
	}
	if err := store.Set(ctx, StorageKey(s.Kind, LatestKey(s.Tour, s.EventName)), data); err != nil {
		return fmt.Errorf("snapshot %s saved but latest pointer failed: %w", s.Key, err)
	}
	return nil
}

// Load reads and decodes the envelope stored at a namespaced key. A corrupt
// entry is reported as a plain error, distinct from ErrStoreUnavailable.
func Load(ctx context.Context, store Store, storageKey string) (*Snapshot, bool, error) {
	data, found, err := store.Get(ctx, storageKey)
	if err != nil || !found {
		return nil, found, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, true, fmt.Errorf("corrupt snapshot at %s: %w", storageKey, err)
	}
	return &s, true, nil
}
