package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// FilingsFeed summarizes full-text filing-search hits for the tracked
// query over the trailing 30 days.
type FilingsFeed struct {
	httpFeed
	baseURL string
	query   string
}

type filingsResponse struct {
	Total   int      `json:"total"`
	Filings []filing `json:"filings"`
}

type filing struct {
	Form    string `json:"form"`
	FiledAt string `json:"filed_at"`
}

func NewFilingsFeed(baseURL, query string, client *http.Client) *FilingsFeed {
	return &FilingsFeed{
		httpFeed: newHTTPFeed(domain.SourceFilings, client),
		baseURL:  baseURL,
		query:    query,
	}
}

func (f *FilingsFeed) Source() domain.SourceID { return domain.SourceFilings }

func (f *FilingsFeed) Fetch(ctx context.Context, _ *domain.SourceData) (*domain.SourceData, error) {
	u := fmt.Sprintf("%s/search?q=%s&range=30d", f.baseURL, url.QueryEscape(f.query))

	var resp filingsResponse
	if err := f.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Total < 0 {
		return nil, f.schemaErr("negative hit count")
	}

	act := &domain.FilingActivity{
		Count30d: resp.Total,
		AsOf:     time.Now().UTC(),
	}
	if len(resp.Filings) > 0 {
		act.LatestForm = resp.Filings[0].Form
		act.LatestFilingDate = resp.Filings[0].FiledAt
	}
	return &domain.SourceData{Filings: act, AsOf: time.Now().UTC()}, nil
}
