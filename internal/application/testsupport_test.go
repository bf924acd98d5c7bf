package application

import (
	"context"
	"sync"
	"time"

	"github.com/ghltech15/fault-watch-sub001/internal/config"
	"github.com/ghltech15/fault-watch-sub001/internal/domain"
	"github.com/ghltech15/fault-watch-sub001/internal/refdata"
)

// stubFeed returns a canned result, or an error, for one source.
type stubFeed struct {
	source domain.SourceID
	data   *domain.SourceData
	err    error
	mu     sync.Mutex
	calls  int
}

func (s *stubFeed) Source() domain.SourceID { return s.source }

func (s *stubFeed) Fetch(_ context.Context, _ *domain.SourceData) (*domain.SourceData, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

// memArchive is an in-memory ArchiveRepository.
type memArchive struct {
	mu     sync.Mutex
	visits []domain.VisitRecord
	snaps  []domain.SnapshotRecord
	fail   bool
}

func (m *memArchive) InsertVisits(_ context.Context, visits []domain.VisitRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return context.DeadlineExceeded
	}
	m.visits = append(m.visits, visits...)
	return nil
}

func (m *memArchive) InsertSnapshots(_ context.Context, records []domain.SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return context.DeadlineExceeded
	}
	m.snaps = append(m.snaps, records...)
	return nil
}

func (m *memArchive) ListSnapshots(_ context.Context, limit int) ([]domain.SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.snaps) {
		limit = len(m.snaps)
	}
	return m.snaps[:limit], nil
}

func (m *memArchive) Ping(context.Context) error { return nil }

func (m *memArchive) visitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visits)
}

func (m *memArchive) snapCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snaps)
}

func (m *memArchive) snapRecords() []domain.SnapshotRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SnapshotRecord(nil), m.snaps...)
}

func testRefdata() *refdata.Set {
	return &refdata.Set{
		Banks: refdata.BankFile{
			Version: "test-1",
			AsOf:    time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC),
			Positions: []domain.BankPosition{
				{BankID: "firstmetro", Name: "First Metropolitan Trust", Ticker: "FMT",
					ShortOunces: 4e9, Tier1Capital: 80e9, EntryPrice: 50, Equity: 210e9},
				{BankID: "custodial", Name: "Custodial Partners", Ticker: "CSP",
					Tier1Capital: 30e9, Equity: 75e9},
			},
		},
		Countdowns: []domain.Countdown{
			{ID: "opex", Label: "Options expiry", Target: time.Date(2026, 9, 25, 20, 0, 0, 0, time.UTC)},
		},
		Cascade: []domain.CascadeThreshold{
			{Price: 0, Stage: 1, Label: "Baseline"},
			{Price: 55, Stage: 2, Label: "Margin calls"},
			{Price: 70, Stage: 3, Label: "First insolvency"},
			{Price: 85, Stage: 4, Label: "Contagion"},
			{Price: 100, Stage: 5, Label: "Systemic"},
		},
		Weights: refdata.DefaultWeights,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Port: 8080, Env: "local", Mode: "synthetic"},
		Scheduler: config.SchedulerConfig{
			Interval:     time.Minute,
			FetchTimeout: 5 * time.Second,
			MaxFailures:  2,
		},
		Feeds: config.FeedsConfig{
			Symbols:    []string{"SLV", "FMT", "CSP"},
			SpotSymbol: "XAGUSD",
		},
	}
}

const testSpot = "XAGUSD"

func okResults(spotPrice float64) map[domain.SourceID]domain.FetchResult {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	week := 20.0
	coverage := 0.12
	delta := 60e9
	velocity := 80.0

	return map[domain.SourceID]domain.FetchResult{
		domain.SourceQuotes: {Source: domain.SourceQuotes, Data: &domain.SourceData{
			AsOf: now,
			Quotes: []domain.PriceQuote{
				{Symbol: testSpot, Price: spotPrice, WeekChangePct: &week, AsOf: now},
				{Symbol: "FMT", Price: 22.4, WeekChangePct: ptrF(-8), AsOf: now},
			},
		}},
		domain.SourceComex: {Source: domain.SourceComex, Data: &domain.SourceData{
			AsOf: now,
			Comex: &domain.ComexInventory{
				RegisteredOunces: 12e6, EligibleOunces: 88e6, TotalOunces: 100e6,
				CoverageRatio: &coverage, AsOf: now,
			},
		}},
		domain.SourceRepo: {Source: domain.SourceRepo, Data: &domain.SourceData{
			AsOf: now,
			Repo: &domain.RepoFacility{BalanceUSD: 260e9, DeltaUSD: &delta, AsOf: now},
		}},
		domain.SourceFilings: {Source: domain.SourceFilings, Data: &domain.SourceData{
			AsOf:    now,
			Filings: &domain.FilingActivity{Count30d: 9, LatestForm: "8-K", AsOf: now},
		}},
		domain.SourceNews: {Source: domain.SourceNews, Data: &domain.SourceData{
			AsOf: now,
			News: &domain.NewsPulse{Mentions24h: 150, VelocityPct: &velocity, AsOf: now},
		}},
	}
}

func ptrF(v float64) *float64 { return &v }
