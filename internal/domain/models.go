package domain

import (
	"time"
)

// SourceID identifies one upstream feed.
type SourceID string

const (
	SourceQuotes  SourceID = "quotes"
	SourceComex   SourceID = "comex"
	SourceRepo    SourceID = "repo"
	SourceFilings SourceID = "filings"
	SourceNews    SourceID = "news"
)

// AllSources lists every section a snapshot carries, in merge order.
var AllSources = []SourceID{SourceQuotes, SourceComex, SourceRepo, SourceFilings, SourceNews}

// PriceQuote is one normalized equity/ETF/spot quote. Immutable once
// produced; the next poll supersedes it rather than mutating it.
type PriceQuote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PrevClose     *float64  `json:"prev_close,omitempty"`
	ChangePct     *float64  `json:"change_pct,omitempty"`
	WeekChangePct *float64  `json:"week_change_pct,omitempty"`
	AsOf          time.Time `json:"as_of"`
}

// ComexInventory is the normalized warehouse-stock section.
type ComexInventory struct {
	RegisteredOunces float64   `json:"registered_oz"`
	EligibleOunces   float64   `json:"eligible_oz"`
	TotalOunces      float64   `json:"total_oz"`
	CoverageRatio    *float64  `json:"coverage_ratio,omitempty"`
	AsOf             time.Time `json:"as_of"`
}

// RepoFacility is the normalized Fed repo-facility section.
type RepoFacility struct {
	BalanceUSD float64   `json:"balance_usd"`
	DeltaUSD   *float64  `json:"delta_usd,omitempty"`
	AsOf       time.Time `json:"as_of"`
}

// FilingActivity summarizes recent filing-search hits.
type FilingActivity struct {
	Count30d         int       `json:"count_30d"`
	LatestForm       string    `json:"latest_form,omitempty"`
	LatestFilingDate string    `json:"latest_filing_date,omitempty"`
	AsOf             time.Time `json:"as_of"`
}

// NewsPulse summarizes news/social mention volume.
type NewsPulse struct {
	Mentions24h int       `json:"mentions_24h"`
	VelocityPct *float64  `json:"velocity_pct,omitempty"`
	TopHeadline string    `json:"top_headline,omitempty"`
	AsOf        time.Time `json:"as_of"`
}

// SourceData is the union of section payloads a feed can produce. Each
// adapter fills exactly the fields for its own source.
type SourceData struct {
	Quotes  []PriceQuote
	Comex   *ComexInventory
	Repo    *RepoFacility
	Filings *FilingActivity
	News    *NewsPulse
	AsOf    time.Time
}

// FetchResult is one adapter's outcome for a refresh cycle.
type FetchResult struct {
	Source  SourceID
	Data    *SourceData
	Err     error
	Elapsed time.Duration
}

// BankPosition is hand-entered reference data describing an alleged
// short position. Seeded at startup from a versioned file, never fetched.
type BankPosition struct {
	BankID       string  `json:"bank_id" yaml:"bank_id"`
	Name         string  `json:"name" yaml:"name"`
	Ticker       string  `json:"ticker" yaml:"ticker"`
	ShortOunces  float64 `json:"short_oz" yaml:"short_oz"`
	Tier1Capital float64 `json:"tier1_capital" yaml:"tier1_capital"`
	EntryPrice   float64 `json:"entry_price" yaml:"entry_price"`
	Equity       float64 `json:"equity" yaml:"equity"`
}

// DerivedBankExposure is recomputed from a BankPosition and the current
// silver quote each cycle. Nil numeric fields mean "not computable this
// cycle" (missing price or zero exposure), distinct from zero.
type DerivedBankExposure struct {
	BankID             string   `json:"bank_id"`
	Name               string   `json:"name"`
	Ticker             string   `json:"ticker"`
	LossAtPrice        *float64 `json:"loss_at_price,omitempty"`
	InsolvencyPrice    *float64 `json:"insolvency_price,omitempty"`
	LossToCapitalRatio *float64 `json:"loss_to_capital_ratio,omitempty"`
	Insolvent          bool     `json:"insolvent"`
}

// ContagionSnapshot aggregates the stress sub-indicators. Sub-scores are
// independently nullable because each tracks a different upstream feed.
type ContagionSnapshot struct {
	CreditStress  *float64 `json:"credit_stress,omitempty"`
	Liquidity     *float64 `json:"liquidity,omitempty"`
	Delinquencies *float64 `json:"delinquencies,omitempty"`
	ComexStatus   *float64 `json:"comex_status,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	Level         string   `json:"level"`
}

// AlertLevel classifies an alert.
type AlertLevel string

const (
	AlertCritical AlertLevel = "critical"
	AlertWarning  AlertLevel = "warning"
	AlertInfo     AlertLevel = "info"
)

// Alert is an ephemeral threshold-rule hit, recomputed each cycle.
type Alert struct {
	ID                 string     `json:"id"`
	Level              AlertLevel `json:"level"`
	Title              string     `json:"title"`
	Detail             string     `json:"detail"`
	VerificationStatus string     `json:"verification_status"`
	SourceCount        int        `json:"source_count"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Countdown is seeded display data; remaining time is computed by
// consumers from Target.
type Countdown struct {
	ID     string    `json:"id" yaml:"id"`
	Label  string    `json:"label" yaml:"label"`
	Target time.Time `json:"target" yaml:"target"`
	Detail string    `json:"detail,omitempty" yaml:"detail"`
}

// CascadeThreshold maps a price floor to a cascade stage. The table is
// ordered by ascending price.
type CascadeThreshold struct {
	Price float64 `json:"price" yaml:"price"`
	Stage int     `json:"stage" yaml:"stage"`
	Label string  `json:"label" yaml:"label"`
}

// DominoStatus is one cascade-table row rendered against the current price.
type DominoStatus struct {
	Stage          int     `json:"stage"`
	Label          string  `json:"label"`
	ThresholdPrice float64 `json:"threshold_price"`
	Triggered      bool    `json:"triggered"`
}

// SectionMeta marks a snapshot section as fresh or carried forward.
type SectionMeta struct {
	Stale bool      `json:"stale"`
	AsOf  time.Time `json:"as_of"`
}

// DashboardSnapshot is the root aggregate served to readers. Built once
// per refresh cycle and treated as immutable afterwards; the store swaps
// whole snapshots, never mutates one in place.
type DashboardSnapshot struct {
	Prices      map[string]PriceQuote    `json:"prices"`
	Comex       *ComexInventory          `json:"comex,omitempty"`
	Repo        *RepoFacility            `json:"repo,omitempty"`
	Filings     *FilingActivity          `json:"filings,omitempty"`
	News        *NewsPulse               `json:"news,omitempty"`
	Banks       []DerivedBankExposure    `json:"banks"`
	Contagion   *ContagionSnapshot       `json:"contagion,omitempty"`
	Alerts      []Alert                  `json:"alerts"`
	Countdowns  []Countdown              `json:"countdowns"`
	Dominoes    []DominoStatus           `json:"dominoes"`
	Sections    map[SourceID]SectionMeta `json:"sections"`
	LastUpdated time.Time                `json:"last_updated"`
}

// SilverQuote returns the tracked spot quote, or nil when the quotes
// section never delivered it.
func (s *DashboardSnapshot) SilverQuote(symbol string) *PriceQuote {
	if s == nil || s.Prices == nil {
		return nil
	}
	if q, ok := s.Prices[symbol]; ok {
		return &q
	}
	return nil
}

// DataMode selects where feed data comes from.
type DataMode string

const (
	LiveMode      DataMode = "live"
	SyntheticMode DataMode = "synthetic"
)

// HealthStatus reports process and dependency health.
type HealthStatus struct {
	Status      string            `json:"status"`
	Mode        DataMode          `json:"mode"`
	Degraded    bool              `json:"degraded"`
	Connections map[string]string `json:"connections"`
	LastUpdated *time.Time        `json:"last_updated,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// VisitRecord is the append-only visit-log row. A write-only side effect;
// nothing on the read path depends on it.
type VisitRecord struct {
	ID         string
	Method     string
	Path       string
	RemoteAddr string
	At         time.Time
}

// SnapshotRecord is one archived refresh outcome.
type SnapshotRecord struct {
	TakenAt  time.Time
	Payload  []byte
	Degraded bool
}
