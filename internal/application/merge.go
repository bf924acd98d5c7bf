package application

import (
	"time"

	"go.uber.org/zap"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
	"github.com/ghltech15/fault-watch-sub001/internal/metrics"
	"github.com/ghltech15/fault-watch-sub001/internal/refdata"
)

// Merger folds per-source fetch results into the next snapshot. A failed
// source never aborts the merge: its section is carried forward from the
// previous snapshot tagged stale, so the snapshot shape is stable no
// matter which feeds are down. Derived sections (banks, contagion,
// dominoes, alerts) are recomputed from whatever the merged inputs hold.
type Merger struct {
	ref         *refdata.Set
	spotSymbol  string
	bankTickers []string
	alerts      *AlertEngine
	logger      *zap.Logger
}

func NewMerger(ref *refdata.Set, spotSymbol string, logger *zap.Logger) *Merger {
	tickers := make([]string, 0, len(ref.Banks.Positions))
	for _, b := range ref.Banks.Positions {
		if b.Ticker != "" {
			tickers = append(tickers, b.Ticker)
		}
	}
	return &Merger{
		ref:         ref,
		spotSymbol:  spotSymbol,
		bankTickers: tickers,
		alerts:      NewAlertEngine(),
		logger:      logger,
	}
}

// Merge builds the next snapshot from results and the previous snapshot.
// It fails only when no source produced data and nothing can be carried
// forward; that is the all-sources-failed cycle the scheduler counts.
func (m *Merger) Merge(prev *domain.DashboardSnapshot, results map[domain.SourceID]domain.FetchResult) (*domain.DashboardSnapshot, error) {
	now := time.Now().UTC()
	snap := &domain.DashboardSnapshot{
		Countdowns:  m.ref.Countdowns,
		Sections:    make(map[domain.SourceID]domain.SectionMeta, len(domain.AllSources)),
		LastUpdated: now,
	}

	fresh := 0
	for _, src := range domain.AllSources {
		res, ok := results[src]
		if ok && res.Err == nil && res.Data != nil {
			m.applySection(snap, src, res.Data)
			snap.Sections[src] = domain.SectionMeta{Stale: false, AsOf: res.Data.AsOf}
			fresh++
			continue
		}

		if ok && res.Err != nil {
			m.logger.Warn("feed failed, carrying section forward",
				zap.String("source", string(src)),
				zap.Bool("schema_error", domain.IsSchemaError(res.Err)),
				zap.Duration("elapsed", res.Elapsed),
				zap.Error(res.Err))
		}

		if prev != nil {
			if meta, had := prev.Sections[src]; had {
				m.carrySection(snap, prev, src)
				snap.Sections[src] = domain.SectionMeta{Stale: true, AsOf: meta.AsOf}
				continue
			}
		}
		// Nothing to carry: the section is present but empty.
		snap.Sections[src] = domain.SectionMeta{Stale: true}
	}

	if fresh == 0 {
		return nil, domain.ErrAllSourcesFailed
	}

	m.derive(snap)
	return snap, nil
}

func (m *Merger) applySection(snap *domain.DashboardSnapshot, src domain.SourceID, data *domain.SourceData) {
	switch src {
	case domain.SourceQuotes:
		prices := make(map[string]domain.PriceQuote, len(data.Quotes))
		for _, q := range data.Quotes {
			prices[q.Symbol] = q
		}
		snap.Prices = prices
	case domain.SourceComex:
		snap.Comex = data.Comex
	case domain.SourceRepo:
		snap.Repo = data.Repo
	case domain.SourceFilings:
		snap.Filings = data.Filings
	case domain.SourceNews:
		snap.News = data.News
	}
}

// carrySection copies the previous snapshot's section by reference;
// snapshots are immutable once published, so sharing is safe.
func (m *Merger) carrySection(snap, prev *domain.DashboardSnapshot, src domain.SourceID) {
	switch src {
	case domain.SourceQuotes:
		snap.Prices = prev.Prices
	case domain.SourceComex:
		snap.Comex = prev.Comex
	case domain.SourceRepo:
		snap.Repo = prev.Repo
	case domain.SourceFilings:
		snap.Filings = prev.Filings
	case domain.SourceNews:
		snap.News = prev.News
	}
}

func (m *Merger) derive(snap *domain.DashboardSnapshot) {
	var spot *float64
	if q := snap.SilverQuote(m.spotSymbol); q != nil {
		spot = &q.Price
	}

	snap.Banks = metrics.Exposures(m.ref.Banks.Positions, spot)
	snap.Dominoes = metrics.Dominoes(spot, m.ref.Cascade)

	contagion := metrics.Contagion(
		metrics.CreditStressScore(snap.Repo),
		metrics.LiquidityScore(snap.Prices, m.bankTickers),
		metrics.DelinquencyScore(snap.Filings),
		metrics.ComexStressScore(snap.Comex),
		m.ref.Weights,
	)
	snap.Contagion = &contagion

	snap.Alerts = m.alerts.Evaluate(snap, m.spotSymbol)
}
