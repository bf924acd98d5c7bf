package adapters

import (
	"context"
	"math/rand"
	"time"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// SyntheticFeed generates plausible data for one source so the daemon
// can run without network access. Each cycle walks the previous values
// by a small random step. The scheduler serializes cycles, so the
// internal state needs no locking.
type SyntheticFeed struct {
	source  domain.SourceID
	symbols []string
	prices  map[string]float64
	repoUSD float64
	regOz   float64
	eligOz  float64
	filings int
	rng     *rand.Rand
}

// NewSyntheticSet builds one synthetic feed per source.
func NewSyntheticSet(symbols []string, spotSymbol string) []domain.FeedSource {
	seeds := map[string]float64{spotSymbol: 48.0}
	for _, s := range symbols {
		if _, ok := seeds[s]; !ok {
			seeds[s] = 20 + rand.Float64()*80
		}
	}

	feeds := make([]domain.FeedSource, 0, len(domain.AllSources))
	for _, src := range domain.AllSources {
		feeds = append(feeds, &SyntheticFeed{
			source:  src,
			symbols: append([]string{spotSymbol}, symbols...),
			prices:  seeds,
			repoUSD: 180e9,
			regOz:   28e6,
			eligOz:  260e6,
			filings: 6,
			rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		})
	}
	return feeds
}

func (s *SyntheticFeed) Source() domain.SourceID { return s.source }

func (s *SyntheticFeed) Fetch(_ context.Context, _ *domain.SourceData) (*domain.SourceData, error) {
	now := time.Now().UTC()
	data := &domain.SourceData{AsOf: now}

	switch s.source {
	case domain.SourceQuotes:
		seen := make(map[string]bool, len(s.symbols))
		for _, sym := range s.symbols {
			if seen[sym] {
				continue
			}
			seen[sym] = true
			prev := s.prices[sym]
			next := prev * (1 + (s.rng.Float64()-0.5)*0.02)
			s.prices[sym] = next

			change := (next - prev) / prev * 100
			week := change * 3
			data.Quotes = append(data.Quotes, domain.PriceQuote{
				Symbol:        sym,
				Price:         next,
				PrevClose:     &prev,
				ChangePct:     &change,
				WeekChangePct: &week,
				AsOf:          now,
			})
		}
	case domain.SourceComex:
		s.regOz *= 1 + (s.rng.Float64()-0.55)*0.01 // slow registered bleed
		total := s.regOz + s.eligOz
		coverage := s.regOz / total
		data.Comex = &domain.ComexInventory{
			RegisteredOunces: s.regOz,
			EligibleOunces:   s.eligOz,
			TotalOunces:      total,
			CoverageRatio:    &coverage,
			AsOf:             now,
		}
	case domain.SourceRepo:
		prev := s.repoUSD
		s.repoUSD *= 1 + (s.rng.Float64()-0.45)*0.05
		delta := s.repoUSD - prev
		data.Repo = &domain.RepoFacility{
			BalanceUSD: s.repoUSD,
			DeltaUSD:   &delta,
			AsOf:       now,
		}
	case domain.SourceFilings:
		if s.rng.Float64() < 0.2 {
			s.filings++
		}
		data.Filings = &domain.FilingActivity{
			Count30d:         s.filings,
			LatestForm:       "8-K",
			LatestFilingDate: now.Format("2006-01-02"),
			AsOf:             now,
		}
	case domain.SourceNews:
		count := 120 + s.rng.Intn(80)
		velocity := (s.rng.Float64() - 0.4) * 60
		data.News = &domain.NewsPulse{
			Mentions24h: count,
			VelocityPct: &velocity,
			TopHeadline: "Silver squeeze chatter continues",
			AsOf:        now,
		}
	}

	return data, nil
}
