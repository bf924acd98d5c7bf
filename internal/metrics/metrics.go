// Package metrics holds the derived-metric calculators. Every function
// is total: invalid or missing inputs yield nil fields, never errors or
// panics, so one bad input cannot sink a refresh cycle.
package metrics

import (
	"math"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
	"github.com/ghltech15/fault-watch-sub001/internal/refdata"
)

// InsolvencyPrice is the silver price at which mark-to-market loss equals
// tier-1 capital. Nil for banks with no short exposure.
func InsolvencyPrice(b domain.BankPosition) *float64 {
	if b.ShortOunces <= 0 {
		return nil
	}
	v := b.EntryPrice + b.Tier1Capital/b.ShortOunces
	return &v
}

// LossAtPrice is the mark-to-market loss of a short position at price.
// Zero below the entry price; a short cannot lose money on the way down.
func LossAtPrice(b domain.BankPosition, price float64) float64 {
	return math.Max(0, price-b.EntryPrice) * b.ShortOunces
}

// LossToCapitalRatio relates the current loss to tier-1 capital. Nil for
// banks with no exposure or no stated capital.
func LossToCapitalRatio(b domain.BankPosition, price float64) *float64 {
	if b.ShortOunces <= 0 || b.Tier1Capital <= 0 {
		return nil
	}
	v := LossAtPrice(b, price) / b.Tier1Capital
	return &v
}

// Exposure computes the full derived view of one bank at the current
// silver price. A nil price short-circuits every price-dependent field.
func Exposure(b domain.BankPosition, price *float64) domain.DerivedBankExposure {
	exp := domain.DerivedBankExposure{
		BankID: b.BankID,
		Name:   b.Name,
		Ticker: b.Ticker,
	}
	exp.InsolvencyPrice = InsolvencyPrice(b)
	if price == nil || b.ShortOunces <= 0 {
		return exp
	}
	loss := LossAtPrice(b, *price)
	exp.LossAtPrice = &loss
	exp.LossToCapitalRatio = LossToCapitalRatio(b, *price)
	exp.Insolvent = exp.LossToCapitalRatio != nil && *exp.LossToCapitalRatio > 1
	return exp
}

// Exposures maps Exposure over the seeded positions, preserving order.
func Exposures(banks []domain.BankPosition, price *float64) []domain.DerivedBankExposure {
	out := make([]domain.DerivedBankExposure, 0, len(banks))
	for _, b := range banks {
		out = append(out, Exposure(b, price))
	}
	return out
}

// ContagionLevel buckets a 0-100 score into its display label.
func ContagionLevel(score float64) string {
	switch {
	case score < 25:
		return "low"
	case score < 50:
		return "medium"
	case score < 75:
		return "high"
	default:
		return "critical"
	}
}

// Contagion folds the nullable sub-scores into a weighted score. Missing
// sub-scores are excluded and the remaining weights renormalized; if every
// sub-score is missing the aggregate score is nil and the level "unknown".
func Contagion(credit, liquidity, delinquencies, comex *float64, w refdata.ContagionWeights) domain.ContagionSnapshot {
	snap := domain.ContagionSnapshot{
		CreditStress:  credit,
		Liquidity:     liquidity,
		Delinquencies: delinquencies,
		ComexStatus:   comex,
		Level:         "unknown",
	}

	var sum, weightSum float64
	add := func(v *float64, weight float64) {
		if v == nil {
			return
		}
		sum += clamp(*v) * weight
		weightSum += weight
	}
	add(credit, w.CreditStress)
	add(liquidity, w.Liquidity)
	add(delinquencies, w.Delinquencies)
	add(comex, w.ComexStatus)

	if weightSum == 0 {
		return snap
	}
	score := sum / weightSum
	snap.Score = &score
	snap.Level = ContagionLevel(score)
	return snap
}

// CascadeStage selects the highest stage whose threshold does not exceed
// price. Before the first threshold the stage is 0. The table is assumed
// sorted ascending, which the refdata loader enforces.
func CascadeStage(price float64, table []domain.CascadeThreshold) int {
	stage := 0
	for _, t := range table {
		if price < t.Price {
			break
		}
		stage = t.Stage
	}
	return stage
}

// Dominoes renders the cascade table against the current price. A nil
// price leaves every row untriggered.
func Dominoes(price *float64, table []domain.CascadeThreshold) []domain.DominoStatus {
	out := make([]domain.DominoStatus, 0, len(table))
	for _, t := range table {
		out = append(out, domain.DominoStatus{
			Stage:          t.Stage,
			Label:          t.Label,
			ThresholdPrice: t.Price,
			Triggered:      price != nil && *price >= t.Price,
		})
	}
	return out
}

// ScenarioRow is one row of the hypothetical-price table.
type ScenarioRow struct {
	Price        float64                      `json:"price"`
	CascadeStage int                          `json:"cascade_stage"`
	TotalLoss    float64                      `json:"total_loss"`
	Insolvencies int                          `json:"insolvencies"`
	Banks        []domain.DerivedBankExposure `json:"banks"`
}

// Scenarios evaluates every bank at each hypothetical price.
func Scenarios(banks []domain.BankPosition, table []domain.CascadeThreshold, prices []float64) []ScenarioRow {
	rows := make([]ScenarioRow, 0, len(prices))
	for _, p := range prices {
		price := p
		row := ScenarioRow{
			Price:        p,
			CascadeStage: CascadeStage(p, table),
			Banks:        Exposures(banks, &price),
		}
		for _, e := range row.Banks {
			if e.LossAtPrice != nil {
				row.TotalLoss += *e.LossAtPrice
			}
			if e.Insolvent {
				row.Insolvencies++
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
