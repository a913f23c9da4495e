// Package resolver finds the most relevant stored snapshot for a tour,
// optionally narrowed to one event.
package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

// Query selects snapshots of one kind under one tour. An empty EventName
// means "newest of anything".
type Query struct {
	Kind      snapshot.Kind
	Tour      snapshot.Tour
	EventName string
}

// Resolution is the snapshot chosen for a query. IsFallback is set when an
// event filter was given but nothing matched it, so the newest snapshot of
// some other event was returned instead.
type Resolution struct {
	Snapshot   *snapshot.Snapshot `json:"snapshot"`
	Key        string             `json:"key"`
	IsFallback bool               `json:"is_fallback"`
}

type Resolver struct {
	store  snapshot.Store
	logger *logrus.Logger
}

func New(store snapshot.Store, logger *logrus.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns nil when nothing is stored under the tour or the store
// cannot be reached. Callers that must tell those apart use ResolveStrict.
func (r *Resolver) Resolve(ctx context.Context, q Query) *Resolution {
	res, err := r.ResolveStrict(ctx, q)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"kind":  q.Kind,
			"tour":  q.Tour,
			"event": q.EventName,
		}).WithError(err).Warn("Snapshot store unavailable during resolution")
		return nil
	}
	return res
}

// ResolveStrict is Resolve with store failures reported as
// snapshot.ErrStoreUnavailable. A nil result with a nil error is a miss.
func (r *Resolver) ResolveStrict(ctx context.Context, q Query) (*Resolution, error) {
	prefix := snapshot.TourPrefix(q.Kind, q.Tour)
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	OrderNewestFirst(keys)

	want := normalizeEvent(q.EventName)
	var newest *Resolution
	for _, storageKey := range keys {
		snap, found, err := snapshot.Load(ctx, r.store, storageKey)
		if err != nil {
			if snapshot.IsUnavailable(err) {
				return nil, err
			}
			r.logger.WithField("key", storageKey).WithError(err).Warn("Skipping unreadable snapshot")
			continue
		}
		if !found {
			continue
		}

		res := &Resolution{
			Snapshot: snap,
			Key:      strings.TrimPrefix(storageKey, string(q.Kind)+"/"),
		}
		if want == "" {
			return res, nil
		}
		if normalizeEvent(snap.EventName) == want {
			return res, nil
		}
		if newest == nil {
			newest = res
		}
	}

	if newest == nil {
		return nil, nil
	}
	newest.IsFallback = true
	r.logger.WithFields(logrus.Fields{
		"kind":      q.Kind,
		"tour":      q.Tour,
		"requested": q.EventName,
		"returned":  newest.Snapshot.EventName,
	}).Info("No snapshot for requested event, falling back to newest")
	return newest, nil
}

// OrderNewestFirst sorts keys by their embedded date-time stamp, newest
// first. Keys without a stamp go last; equal stamps are ordered by key so
// the result is deterministic.
func OrderNewestFirst(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		si, sj := snapshot.Stamp(keys[i]), snapshot.Stamp(keys[j])
		if si != sj {
			// "" sorts below any stamp, which puts unstamped keys last
			return si > sj
		}
		return keys[i] < keys[j]
	})
}

// Event names match case-insensitively after trimming, never fuzzily.
func normalizeEvent(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
