package application

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// Scheduler drives the refresh loop: every interval it fetches all
// sources in parallel under one deadline, merges, and publishes. Cycles
// are serialized; a snapshot built in cycle N can never replace one from
// a later cycle. A failed cycle leaves the published snapshot and its
// LastUpdated untouched; past maxFailures consecutive failures the
// degraded flag goes up until the next success.
type Scheduler struct {
	sources     func() []domain.FeedSource
	merger      *Merger
	store       *SnapshotStore
	cache       domain.SnapshotCache // optional mirror
	batcher     *Batcher             // optional history
	logger      *zap.Logger
	interval    time.Duration
	timeout     time.Duration
	maxFailures int

	failures int
	lastData map[domain.SourceID]*domain.SourceData
}

func NewScheduler(
	sources func() []domain.FeedSource,
	merger *Merger,
	store *SnapshotStore,
	cache domain.SnapshotCache,
	batcher *Batcher,
	interval, timeout time.Duration,
	maxFailures int,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		sources:     sources,
		merger:      merger,
		store:       store,
		cache:       cache,
		batcher:     batcher,
		logger:      logger,
		interval:    interval,
		timeout:     timeout,
		maxFailures: maxFailures,
		lastData:    make(map[domain.SourceID]*domain.SourceData),
	}
}

// Run refreshes once immediately, then on every tick until ctx ends.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("fetch_timeout", s.timeout),
		zap.Int("max_failures", s.maxFailures))

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Warn("initial refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Warn("refresh cycle failed, serving previous snapshot",
					zap.Error(err),
					zap.Int("consecutive_failures", s.failures))
				continue
			}
			s.logger.Info("refresh cycle completed", zap.Duration("duration", time.Since(start)))

		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		}
	}
}

// RunOnce executes a single refresh cycle.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sources := s.sources()
	fan := NewFanIn(len(sources))
	for _, src := range sources {
		src := src
		previous := s.lastData[src.Source()]
		fan.Go(func() domain.FetchResult {
			start := time.Now()
			data, err := src.Fetch(fetchCtx, previous)
			return domain.FetchResult{
				Source:  src.Source(),
				Data:    data,
				Err:     err,
				Elapsed: time.Since(start),
			}
		})
	}
	results := fan.Collect()

	prev := s.store.Current()
	snapshot, err := s.merger.Merge(prev, results)
	if err != nil {
		s.failures++
		if s.failures >= s.maxFailures && !s.store.Degraded() {
			s.store.SetDegraded(true)
			s.logger.Error("refresh failures exceeded cap, flagging degraded service",
				zap.Int("consecutive_failures", s.failures))
		}
		return err
	}

	for src, res := range results {
		if res.Err == nil && res.Data != nil {
			s.lastData[src] = res.Data
		}
	}

	wasDegraded := s.store.Degraded()
	s.store.Publish(snapshot)
	if s.failures > 0 || wasDegraded {
		s.logger.Info("refresh recovered", zap.Int("failed_cycles", s.failures))
	}
	s.failures = 0
	s.store.SetDegraded(false)

	s.mirror(ctx, snapshot)
	s.archive(snapshot, wasDegraded)
	return nil
}

// mirror copies the published snapshot into Redis, best effort.
func (s *Scheduler) mirror(ctx context.Context, snapshot *domain.DashboardSnapshot) {
	if s.cache == nil {
		return
	}
	mirrorCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.cache.StoreSnapshot(mirrorCtx, snapshot); err != nil {
		s.logger.Warn("failed to mirror snapshot to cache", zap.Error(err))
		return
	}
	for _, q := range snapshot.Prices {
		if err := s.cache.SetLatestQuote(mirrorCtx, q); err != nil {
			s.logger.Warn("failed to mirror quote", zap.String("symbol", q.Symbol), zap.Error(err))
			return
		}
	}
}

// archive records the snapshot with the degraded state it was built
// under, captured before the successful cycle cleared the flag.
func (s *Scheduler) archive(snapshot *domain.DashboardSnapshot, degraded bool) {
	if s.batcher == nil {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("failed to encode snapshot for history", zap.Error(err))
		return
	}
	s.batcher.AddSnapshot(domain.SnapshotRecord{
		TakenAt:  snapshot.LastUpdated,
		Payload:  payload,
		Degraded: degraded,
	})
}
