package adapters

import (
	"context"
	"net/http"
	"time"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// ComexFeed normalizes the warehouse-stocks report. The provider reports
// in troy ounces already; tons-reporting mirrors are converted upstream
// of this URL.
type ComexFeed struct {
	httpFeed
	url string
}

type comexResponse struct {
	ReportDate   string  `json:"report_date"`
	RegisteredOz float64 `json:"registered_oz"`
	EligibleOz   float64 `json:"eligible_oz"`
}

func NewComexFeed(url string, client *http.Client) *ComexFeed {
	return &ComexFeed{httpFeed: newHTTPFeed(domain.SourceComex, client), url: url}
}

func (c *ComexFeed) Source() domain.SourceID { return domain.SourceComex }

func (c *ComexFeed) Fetch(ctx context.Context, _ *domain.SourceData) (*domain.SourceData, error) {
	var resp comexResponse
	if err := c.getJSON(ctx, c.url, &resp); err != nil {
		return nil, err
	}
	if resp.RegisteredOz < 0 || resp.EligibleOz < 0 {
		return nil, c.schemaErr("negative inventory figures")
	}
	total := resp.RegisteredOz + resp.EligibleOz
	if total == 0 {
		return nil, c.schemaErr("empty inventory report")
	}

	inv := &domain.ComexInventory{
		RegisteredOunces: resp.RegisteredOz,
		EligibleOunces:   resp.EligibleOz,
		TotalOunces:      total,
		AsOf:             time.Now().UTC(),
	}
	coverage := resp.RegisteredOz / total
	inv.CoverageRatio = &coverage

	if t, err := time.Parse("2006-01-02", resp.ReportDate); err == nil {
		inv.AsOf = t
	}
	return &domain.SourceData{Comex: inv, AsOf: time.Now().UTC()}, nil
}
