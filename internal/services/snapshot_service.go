package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/identity"
	"github.com/stitts-dev/golf-picks/internal/odds"
	"github.com/stitts-dev/golf-picks/internal/resolver"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

// DefaultOddsRetention is how long periodic odds snapshots are kept.
const DefaultOddsRetention = 7 * 24 * time.Hour

// ErrNoSnapshot means nothing is stored for the requested tour.
var ErrNoSnapshot = errors.New("no snapshot stored")

// BoardSource produces a reconciled board for a tour.
type BoardSource interface {
	Reconcile(ctx context.Context, tour snapshot.Tour) (*Board, error)
}

// SnapshotService writes and reads the artifacts kept in the snapshot store.
type SnapshotService struct {
	store     snapshot.Store
	resolver  *resolver.Resolver
	boards    BoardSource
	retention time.Duration
	matcher   *identity.Matcher
	now       func() time.Time
	logger    *logrus.Logger
}

func NewSnapshotService(store snapshot.Store, boards BoardSource, retention time.Duration, logger *logrus.Logger) *SnapshotService {
	if retention <= 0 {
		retention = DefaultOddsRetention
	}
	return &SnapshotService{
		store:     store,
		resolver:  resolver.New(store, logger),
		boards:    boards,
		retention: retention,
		matcher:   identity.NewMatcher(nil),
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock is used by tests.
func (s *SnapshotService) SetClock(now func() time.Time) {
	s.now = now
}

// Resolver exposes the resolver bound to this service's store.
func (s *SnapshotService) Resolver() *resolver.Resolver {
	return s.resolver
}

// SaveOdds reconciles the tour's board, stores it as a timestamped odds
// snapshot and deletes odds snapshots for the tour older than the retention.
func (s *SnapshotService) SaveOdds(ctx context.Context, tour snapshot.Tour) (*snapshot.Snapshot, *Board, error) {
	board, err := s.boards.Reconcile(ctx, tour)
	if err != nil {
		return nil, nil, err
	}

	snap, err := s.save(ctx, snapshot.KindOdds, tour, board.Event, board)
	if err != nil {
		return nil, board, err
	}

	if pruned, err := s.PruneOdds(ctx, tour); err != nil {
		s.logger.WithError(err).WithField("tour", tour).Warn("Failed to prune old odds snapshots")
	} else if pruned > 0 {
		s.logger.WithFields(logrus.Fields{"tour": tour, "deleted": pruned}).Info("Pruned old odds snapshots")
	}
	return snap, board, nil
}

// PruneOdds deletes timestamped odds snapshots of the tour older than the
// retention window. Latest pointers are never deleted.
func (s *SnapshotService) PruneOdds(ctx context.Context, tour snapshot.Tour) (int, error) {
	keys, err := s.store.List(ctx, snapshot.TourPrefix(snapshot.KindOdds, tour))
	if err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().Add(-s.retention)
	deleted := 0
	for _, key := range keys {
		ts, ok := snapshot.KeyTime(key)
		if !ok || !ts.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// SavePredictions stores generated picks for an event.
func (s *SnapshotService) SavePredictions(ctx context.Context, tour snapshot.Tour, eventName string, payload interface{}) (*snapshot.Snapshot, error) {
	return s.save(ctx, snapshot.KindPredictions, tour, eventName, payload)
}

// SaveMatchups stores a head-to-head analysis for an event.
func (s *SnapshotService) SaveMatchups(ctx context.Context, tour snapshot.Tour, eventName string, payload interface{}) (*snapshot.Snapshot, error) {
	return s.save(ctx, snapshot.KindMatchups, tour, eventName, payload)
}

func (s *SnapshotService) save(ctx context.Context, kind snapshot.Kind, tour snapshot.Tour, eventName string, payload interface{}) (*snapshot.Snapshot, error) {
	snap, err := snapshot.New(kind, tour, eventName, s.now(), payload)
	if err != nil {
		return nil, err
	}
	if err := snapshot.Save(ctx, s.store, snap); err != nil {
		return nil, fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	s.logger.WithFields(logrus.Fields{
		"kind":  kind,
		"tour":  tour,
		"event": eventName,
		"key":   snap.Key,
	}).Info("Snapshot saved")
	return snap, nil
}

// Latest resolves the newest snapshot of a kind, preferring eventName when
// given. An unreachable store is reported as ErrStoreUnavailable.
func (s *SnapshotService) Latest(ctx context.Context, kind snapshot.Kind, tour snapshot.Tour, eventName string) (*resolver.Resolution, error) {
	res, err := s.resolver.ResolveStrict(ctx, resolver.Query{Kind: kind, Tour: tour, EventName: eventName})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNoSnapshot
	}
	return res, nil
}

// PriceMove compares a contestant's consensus now against the first board
// stored for the event.
type PriceMove struct {
	Contestant      string  `json:"contestant"`
	BaselinePrice   int     `json:"baseline_price"`
	CurrentPrice    int     `json:"current_price"`
	BaselineDisplay string  `json:"baseline_display"`
	CurrentDisplay  string  `json:"current_display"`
	ProbChange      float64 `json:"implied_probability_change"`
	Direction       string  `json:"direction"`
}

// MovementReport is the result of Movement.
type MovementReport struct {
	Tour            snapshot.Tour `json:"tour"`
	Event           string        `json:"event"`
	BaselineKey     string        `json:"baseline_key"`
	BaselineAt      time.Time     `json:"baseline_at"`
	BaselineCreated bool          `json:"baseline_created"`
	Estimated       bool          `json:"estimated"`
	Moves           []PriceMove   `json:"moves"`
	NewContestants  []string      `json:"new_contestants,omitempty"`
}

const (
	DirectionShortened = "shortened"
	DirectionDrifted   = "drifted"
	DirectionUnchanged = "unchanged"
)

// Movement compares the current board with the first odds snapshot stored
// for the same event. The first-seen baseline is the only reference, so a
// store that cannot be read is an error here rather than a cache miss. When
// no baseline exists yet the current board is stored as the baseline.
func (s *SnapshotService) Movement(ctx context.Context, tour snapshot.Tour) (*MovementReport, error) {
	current, err := s.boards.Reconcile(ctx, tour)
	if err != nil {
		return nil, err
	}

	report := &MovementReport{Tour: tour, Event: current.Event, Estimated: current.Estimated}

	baseline, baselineKey, err := s.firstSeen(ctx, tour, current.Event)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		snap, err := s.save(ctx, snapshot.KindOdds, tour, current.Event, current)
		if err != nil {
			return nil, err
		}
		report.BaselineKey = snap.Key
		report.BaselineAt = snap.GeneratedAt
		report.BaselineCreated = true
		return report, nil
	}

	report.BaselineKey = baselineKey
	report.BaselineAt = baseline.GeneratedAt

	idx := identity.NewIndex[ContestantPrice](s.matcher)
	for _, p := range baseline.Prices {
		idx.Add(p.Contestant, p)
	}
	for _, cur := range current.Prices {
		base, _, kind := idx.Lookup(cur.Contestant)
		if kind == identity.MatchNone {
			report.NewContestants = append(report.NewContestants, cur.Contestant)
			continue
		}
		report.Moves = append(report.Moves, priceMove(cur.Contestant, base.AveragePrice, cur.AveragePrice))
	}
	return report, nil
}

// firstSeen loads the oldest readable odds snapshot of the event.
func (s *SnapshotService) firstSeen(ctx context.Context, tour snapshot.Tour, eventName string) (*Board, string, error) {
	keys, err := s.store.List(ctx, snapshot.EventPrefix(snapshot.KindOdds, tour, eventName))
	if err != nil {
		return nil, "", err
	}

	var own []string
	for _, k := range keys {
		if snapshot.SameEvent(k, snapshot.KindOdds, tour, eventName) {
			own = append(own, k)
		}
	}
	sort.Strings(own)

	for _, k := range own {
		snap, found, err := snapshot.Load(ctx, s.store, k)
		if err != nil {
			if snapshot.IsUnavailable(err) {
				return nil, "", err
			}
			s.logger.WithField("key", k).WithError(err).Warn("Skipping unreadable baseline snapshot")
			continue
		}
		if !found {
			continue
		}
		var board Board
		if err := snap.Decode(&board); err != nil {
			s.logger.WithField("key", k).WithError(err).Warn("Skipping undecodable baseline snapshot")
			continue
		}
		return &board, snap.Key, nil
	}
	return nil, "", nil
}

func priceMove(name string, baseline, current int) PriceMove {
	m := PriceMove{
		Contestant:      name,
		BaselinePrice:   baseline,
		CurrentPrice:    current,
		BaselineDisplay: odds.FormatAmerican(baseline),
		CurrentDisplay:  odds.FormatAmerican(current),
		Direction:       DirectionUnchanged,
	}
	pb, errB := odds.AmericanToImpliedProbability(baseline)
	pc, errC := odds.AmericanToImpliedProbability(current)
	if errB != nil || errC != nil {
		return m
	}
	m.ProbChange = pc - pb
	switch {
	case current == baseline:
	case pc > pb:
		m.Direction = DirectionShortened
	case pc < pb:
		m.Direction = DirectionDrifted
	}
	return m
}
