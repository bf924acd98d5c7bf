package application

import (
	"fmt"
	"hash/fnv"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// Alert thresholds. Narrative knobs, not risk limits.
const (
	lossRatioWarn     = 0.5
	comexCoverageCrit = 0.10
	repoJumpInfoUSD   = 50e9
	newsVelocityInfo  = 50.0
	silverWeekWarnPct = 15.0
)

const (
	verificationUnverified   = "unverified-claims"
	verificationSingleSource = "single-source"
	verificationCorroborated = "corroborated"
)

// alertID is a stable function of the rule hit, so an alert that keeps
// firing keeps its identity across cycles.
func alertID(level domain.AlertLevel, title string) string {
	h := fnv.New64a()
	h.Write([]byte(level))
	h.Write([]byte{0})
	h.Write([]byte(title))
	return fmt.Sprintf("%016x", h.Sum64())
}

// AlertEngine evaluates the fixed threshold rules against a merged
// snapshot. Alerts are ephemeral: rebuilt every cycle, never stored.
type AlertEngine struct{}

func NewAlertEngine() *AlertEngine {
	return &AlertEngine{}
}

func (e *AlertEngine) Evaluate(snap *domain.DashboardSnapshot, spotSymbol string) []domain.Alert {
	now := snap.LastUpdated
	alerts := []domain.Alert{}

	liveSources := 0
	for _, meta := range snap.Sections {
		if !meta.Stale {
			liveSources++
		}
	}
	feedStatus := verificationSingleSource
	if liveSources >= 2 {
		feedStatus = verificationCorroborated
	}

	add := func(level domain.AlertLevel, title, detail, status string, sources int) {
		alerts = append(alerts, domain.Alert{
			ID:                 alertID(level, title),
			Level:              level,
			Title:              title,
			Detail:             detail,
			VerificationStatus: status,
			SourceCount:        sources,
			CreatedAt:          now,
		})
	}

	// Bank exposure rules lean on the hand-entered position claims, so
	// they are never marked better than unverified.
	for _, b := range snap.Banks {
		if b.LossToCapitalRatio == nil {
			continue
		}
		ratio := *b.LossToCapitalRatio
		switch {
		case b.Insolvent:
			add(domain.AlertCritical,
				fmt.Sprintf("%s past insolvency threshold", b.Name),
				fmt.Sprintf("Alleged short position loss is %.1fx tier-1 capital at the current silver price.", ratio),
				verificationUnverified, 1)
		case ratio > lossRatioWarn:
			add(domain.AlertWarning,
				fmt.Sprintf("%s capital erosion", b.Name),
				fmt.Sprintf("Alleged position loss has reached %.0f%% of tier-1 capital.", ratio*100),
				verificationUnverified, 1)
		}
	}

	if c := snap.Contagion; c != nil && c.Score != nil {
		switch c.Level {
		case "critical":
			add(domain.AlertCritical, "Contagion score critical",
				fmt.Sprintf("Weighted stress score at %.0f of 100.", *c.Score),
				feedStatus, liveSources)
		case "high":
			add(domain.AlertWarning, "Contagion score elevated",
				fmt.Sprintf("Weighted stress score at %.0f of 100.", *c.Score),
				feedStatus, liveSources)
		}
	}

	if inv := snap.Comex; inv != nil && inv.CoverageRatio != nil && *inv.CoverageRatio < comexCoverageCrit {
		add(domain.AlertCritical, "Registered inventory thin",
			fmt.Sprintf("Registered silver is %.1f%% of total warehouse stock.", *inv.CoverageRatio*100),
			verificationSingleSource, 1)
	}

	if repo := snap.Repo; repo != nil && repo.DeltaUSD != nil && *repo.DeltaUSD > repoJumpInfoUSD {
		add(domain.AlertInfo, "Repo facility usage jumped",
			fmt.Sprintf("Facility balance rose $%.0fB since the prior operation.", *repo.DeltaUSD/1e9),
			verificationSingleSource, 1)
	}

	if news := snap.News; news != nil && news.VelocityPct != nil && *news.VelocityPct > newsVelocityInfo {
		add(domain.AlertInfo, "Mention velocity spike",
			fmt.Sprintf("Tracked-topic mentions up %.0f%% over the prior day.", *news.VelocityPct),
			verificationSingleSource, 1)
	}

	if q := snap.SilverQuote(spotSymbol); q != nil && q.WeekChangePct != nil && *q.WeekChangePct > silverWeekWarnPct {
		add(domain.AlertWarning,
			fmt.Sprintf("Silver up %.0f%% on the week", *q.WeekChangePct),
			fmt.Sprintf("Spot moved from the week-ago close to %.2f.", q.Price),
			feedStatus, liveSources)
	}

	return alerts
}
