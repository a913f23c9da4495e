package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

// OddsSnapshotter stores the current odds board of a tour.
type OddsSnapshotter interface {
	SaveOdds(ctx context.Context, tour snapshot.Tour) (*snapshot.Snapshot, *Board, error)
}

// SnapshotScheduler periodically snapshots odds for the configured tours so
// movement has a baseline even when nobody asks for it.
type SnapshotScheduler struct {
	snapshots OddsSnapshotter
	tours     []snapshot.Tour
	timeout   time.Duration
	logger    *logrus.Logger
	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool

	// cron jobs take statsMu only; Stop holds mu while it waits for them
	statsMu  sync.Mutex
	lastRun  time.Time
	lastKeys map[snapshot.Tour]string
}

func NewSnapshotScheduler(snapshots OddsSnapshotter, tours []snapshot.Tour, timeout time.Duration, logger *logrus.Logger) *SnapshotScheduler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &SnapshotScheduler{
		snapshots: snapshots,
		tours:     tours,
		timeout:   timeout,
		logger:    logger,
		cron:      cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger))),
		lastKeys:  make(map[snapshot.Tour]string),
	}
}

// Start schedules RunOnce with a standard five-field cron spec or a
// descriptor such as "@every 6h".
func (s *SnapshotScheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("snapshot scheduler is already running")
	}

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule odds snapshots: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	s.logger.WithFields(logrus.Fields{
		"schedule": spec,
		"tours":    s.tours,
	}).Info("Snapshot scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Snapshot scheduler stopped")
}

// RunOnce snapshots every configured tour. A tour without an event this
// week is skipped quietly; it returns the number of snapshots stored.
func (s *SnapshotScheduler) RunOnce(ctx context.Context) int {
	stored := 0
	for _, tour := range s.tours {
		log := s.logger.WithFields(logrus.Fields{"component": "snapshot_scheduler", "tour": tour})

		snap, _, err := s.snapshots.SaveOdds(ctx, tour)
		switch {
		case errors.Is(err, ErrNoEventData):
			log.Debug("No event data, skipping odds snapshot")
			continue
		case err != nil:
			log.WithError(err).Error("Scheduled odds snapshot failed")
			continue
		}

		stored++
		s.statsMu.Lock()
		s.lastKeys[tour] = snap.Key
		s.statsMu.Unlock()
		log.WithField("key", snap.Key).Info("Scheduled odds snapshot stored")
	}

	s.statsMu.Lock()
	s.lastRun = time.Now()
	s.statsMu.Unlock()
	return stored
}

// Status reports the schedule for the health endpoint.
func (s *SnapshotScheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	lastKeys := make(map[string]string, len(s.lastKeys))
	for tour, key := range s.lastKeys {
		lastKeys[string(tour)] = key
	}

	return map[string]interface{}{
		"is_running": s.isRunning,
		"last_run":   s.lastRun,
		"last_keys":  lastKeys,
		"next_runs":  nextRuns,
		"tours":      s.tours,
	}
}
