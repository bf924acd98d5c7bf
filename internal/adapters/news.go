package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// NewsFeed normalizes news/social mention counts for the tracked query.
type NewsFeed struct {
	httpFeed
	baseURL string
	query   string
}

type newsResponse struct {
	Count24h    int           `json:"count_24h"`
	Previous24h *int          `json:"previous_24h"`
	Articles    []newsArticle `json:"articles"`
}

type newsArticle struct {
	Title string `json:"title"`
}

func NewNewsFeed(baseURL, query string, client *http.Client) *NewsFeed {
	return &NewsFeed{
		httpFeed: newHTTPFeed(domain.SourceNews, client),
		baseURL:  baseURL,
		query:    query,
	}
}

func (n *NewsFeed) Source() domain.SourceID { return domain.SourceNews }

func (n *NewsFeed) Fetch(ctx context.Context, _ *domain.SourceData) (*domain.SourceData, error) {
	u := fmt.Sprintf("%s/mentions?q=%s", n.baseURL, url.QueryEscape(n.query))

	var resp newsResponse
	if err := n.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Count24h < 0 {
		return nil, n.schemaErr("negative mention count")
	}

	pulse := &domain.NewsPulse{
		Mentions24h: resp.Count24h,
		AsOf:        time.Now().UTC(),
	}
	if resp.Previous24h != nil && *resp.Previous24h > 0 {
		v := float64(resp.Count24h-*resp.Previous24h) / float64(*resp.Previous24h) * 100
		pulse.VelocityPct = &v
	}
	if len(resp.Articles) > 0 {
		pulse.TopHeadline = resp.Articles[0].Title
	}
	return &domain.SourceData{News: pulse, AsOf: time.Now().UTC()}, nil
}
