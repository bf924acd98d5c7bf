package metrics

import (
	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// Linear full-scale constants for the 0-100 sub-scores. Display-grade
// heuristics, not risk models.
const (
	repoFullScaleUSD     = 500e9 // repo balance at which credit stress pegs at 100
	liquidityFullScale   = 10.0  // avg weekly drawdown (pct) pegging liquidity stress
	filingsFullScale     = 20.0  // 30d filing count pegging the delinquency proxy
	comexComfortCoverage = 0.35  // registered share of total considered comfortable
)

// CreditStressScore maps the repo-facility balance onto 0-100.
func CreditStressScore(repo *domain.RepoFacility) *float64 {
	if repo == nil {
		return nil
	}
	v := clamp(repo.BalanceUSD / repoFullScaleUSD * 100)
	return &v
}

// LiquidityScore scores the average weekly drawdown across the tracked
// bank tickers. Only quotes that carry a weekly change participate; with
// none, the score is nil.
func LiquidityScore(quotes map[string]domain.PriceQuote, bankTickers []string) *float64 {
	var sum float64
	var n int
	for _, t := range bankTickers {
		q, ok := quotes[t]
		if !ok || q.WeekChangePct == nil {
			continue
		}
		sum += *q.WeekChangePct
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	v := clamp(-avg / liquidityFullScale * 100) // declines stress, gains floor at 0
	return &v
}

// DelinquencyScore proxies counterparty distress with recent filing-search
// activity.
func DelinquencyScore(filings *domain.FilingActivity) *float64 {
	if filings == nil {
		return nil
	}
	v := clamp(float64(filings.Count30d) / filingsFullScale * 100)
	return &v
}

// ComexStressScore scores how far the registered share of total inventory
// sits below the comfort level.
func ComexStressScore(inv *domain.ComexInventory) *float64 {
	if inv == nil || inv.TotalOunces <= 0 {
		return nil
	}
	share := inv.RegisteredOunces / inv.TotalOunces
	v := clamp((1 - share/comexComfortCoverage) * 100)
	return &v
}
