package application

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ghltech15/fault-watch-sub001/internal/adapters"
	"github.com/ghltech15/fault-watch-sub001/internal/config"
	"github.com/ghltech15/fault-watch-sub001/internal/domain"
	"github.com/ghltech15/fault-watch-sub001/internal/metrics"
	"github.com/ghltech15/fault-watch-sub001/internal/refdata"
)

// Service wires the store, scheduler, feeds, archive, and HTTP server
// into one process and owns their lifecycle.
type Service struct {
	cfg    *config.Config
	ref    *refdata.Set
	logger *zap.Logger

	store     *SnapshotStore
	scheduler *Scheduler
	batcher   *Batcher
	cache     domain.SnapshotCache
	archive   domain.ArchiveRepository
	server    *HTTPServer

	live      []domain.FeedSource
	synthetic []domain.FeedSource
	mode      domain.DataMode
	mu        sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(cfg *config.Config, ref *refdata.Set, cache domain.SnapshotCache, archive domain.ArchiveRepository, logger *zap.Logger) *Service {
	svc := &Service{
		cfg:       cfg,
		ref:       ref,
		logger:    logger,
		store:     NewSnapshotStore(),
		cache:     cache,
		archive:   archive,
		synthetic: adapters.NewSyntheticSet(cfg.Feeds.Symbols, cfg.Feeds.SpotSymbol),
		mode:      domain.DataMode(cfg.App.Mode),
	}
	svc.live = svc.buildLiveFeeds()

	if archive != nil {
		svc.batcher = NewBatcher(archive, logger)
	}

	merger := NewMerger(ref, cfg.Feeds.SpotSymbol, logger)
	svc.scheduler = NewScheduler(
		svc.currentSources,
		merger,
		svc.store,
		cache,
		svc.batcher,
		cfg.Scheduler.Interval,
		cfg.Scheduler.FetchTimeout,
		cfg.Scheduler.MaxFailures,
		logger,
	)

	svc.server = NewHTTPServer(cfg.App.Port, svc, logger)
	return svc
}

func (s *Service) buildLiveFeeds() []domain.FeedSource {
	feeds := s.cfg.Feeds
	client := &http.Client{Timeout: s.cfg.Scheduler.FetchTimeout}

	var sources []domain.FeedSource
	if feeds.QuoteURL != "" {
		sources = append(sources, adapters.NewQuoteFeed(feeds.QuoteURL, feeds.QuoteAPIKey, feeds.Symbols, feeds.SpotSymbol, client))
	}
	if feeds.ComexURL != "" {
		sources = append(sources, adapters.NewComexFeed(feeds.ComexURL, client))
	}
	if feeds.RepoURL != "" {
		sources = append(sources, adapters.NewRepoFacilityFeed(feeds.RepoURL, client))
	}
	if feeds.FilingsURL != "" {
		sources = append(sources, adapters.NewFilingsFeed(feeds.FilingsURL, feeds.FilingsQuery, client))
	}
	if feeds.NewsURL != "" {
		sources = append(sources, adapters.NewNewsFeed(feeds.NewsURL, feeds.NewsQuery, client))
	}
	return sources
}

func (s *Service) currentSources() []domain.FeedSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mode == domain.LiveMode {
		return s.live
	}
	return s.synthetic
}

// Start warm-starts from the cache mirror when possible, then launches
// the batcher, the scheduler, and the HTTP server.
func (s *Service) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.logger.Info("starting fault-watch",
		zap.String("mode", string(s.Mode())),
		zap.Int("live_feeds", len(s.live)),
		zap.String("bank_file_version", s.ref.Banks.Version),
		zap.Int("port", s.cfg.App.Port))

	s.warmStart(ctx)

	if s.batcher != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.batcher.Start(ctx)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scheduler.Run(ctx)
	}()

	return s.server.Start()
}

func (s *Service) warmStart(ctx context.Context) {
	if s.cache == nil {
		return
	}
	loadCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	snapshot, err := s.cache.LoadSnapshot(loadCtx)
	if err != nil {
		s.logger.Info("no cached snapshot for warm start", zap.Error(err))
		return
	}
	s.store.Publish(snapshot)
	s.logger.Info("warm-started from cached snapshot",
		zap.Time("last_updated", snapshot.LastUpdated))
}

// RefreshOnce runs a single fetch-merge-publish cycle and returns the
// resulting snapshot. Used by the one-shot CLI.
func (s *Service) RefreshOnce(ctx context.Context) (*domain.DashboardSnapshot, error) {
	if err := s.scheduler.RunOnce(ctx); err != nil {
		return nil, err
	}
	return s.store.Current(), nil
}

// SwitchMode changes the feed set used from the next cycle on. The
// current snapshot stays published throughout.
func (s *Service) SwitchMode(mode domain.DataMode) error {
	if mode != domain.LiveMode && mode != domain.SyntheticMode {
		return fmt.Errorf("unknown mode %q", mode)
	}
	if mode == domain.LiveMode && len(s.live) == 0 {
		return fmt.Errorf("no live feeds configured")
	}

	s.mu.Lock()
	old := s.mode
	s.mode = mode
	s.mu.Unlock()

	if old != mode {
		s.logger.Info("data mode switched", zap.String("from", string(old)), zap.String("to", string(mode)))
	}
	return nil
}

func (s *Service) Mode() domain.DataMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// CurrentSnapshot returns the latest snapshot (nil before the first
// successful cycle) and the degraded-service flag.
func (s *Service) CurrentSnapshot() (*domain.DashboardSnapshot, bool) {
	return s.store.Current(), s.store.Degraded()
}

// BankFile exposes the versioned reference-data header so exposure
// responses carry their provenance.
func (s *Service) BankFile() refdata.BankFile {
	return s.ref.Banks
}

// Scenarios evaluates the seeded banks at each hypothetical price.
func (s *Service) Scenarios(prices []float64) []metrics.ScenarioRow {
	return metrics.Scenarios(s.ref.Banks.Positions, s.ref.Cascade, prices)
}

func (s *Service) RecordVisit(v domain.VisitRecord) {
	if s.batcher != nil {
		s.batcher.AddVisit(v)
	}
}

func (s *Service) Health() *domain.HealthStatus {
	connections := make(map[string]string)

	s.mu.RLock()
	mode := s.mode
	s.mu.RUnlock()

	if mode == domain.SyntheticMode {
		connections["synthetic_generator"] = "active"
	} else {
		connections["live_feeds"] = fmt.Sprintf("%d configured", len(s.live))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			connections["redis"] = "disconnected"
		} else {
			connections["redis"] = "connected"
		}
	}
	if s.archive != nil {
		if err := s.archive.Ping(ctx); err != nil {
			connections["postgres"] = "disconnected"
		} else {
			connections["postgres"] = "connected"
		}
	}

	snapshot := s.store.Current()
	degraded := s.store.Degraded()

	status := "healthy"
	if snapshot == nil {
		status = "starting"
	}
	if degraded {
		status = "degraded"
	}
	for _, conn := range connections {
		if conn == "disconnected" {
			status = "degraded"
		}
	}

	health := &domain.HealthStatus{
		Status:      status,
		Mode:        mode,
		Degraded:    degraded,
		Connections: connections,
		Timestamp:   time.Now().UTC(),
	}
	if snapshot != nil {
		t := snapshot.LastUpdated
		health.LastUpdated = &t
	}
	return health
}

// Shutdown stops the HTTP server, cancels the scheduler and batcher, and
// waits for them to drain.
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error shutting down HTTP server", zap.Error(err))
	}

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all goroutines stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("shutdown timeout exceeded")
		return ctx.Err()
	}
}
