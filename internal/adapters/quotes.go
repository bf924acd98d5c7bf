package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// QuoteFeed polls the quote provider for every tracked symbol plus the
// spot symbol. Symbols fail independently; the fetch as a whole fails
// only when no symbol yields a usable quote.
type QuoteFeed struct {
	httpFeed
	baseURL    string
	apiKey     string
	symbols    []string
	spotSymbol string
}

// quoteResponse is the provider-owned wire shape.
type quoteResponse struct {
	Symbol       string   `json:"symbol"`
	Price        float64  `json:"price"`
	PrevClose    *float64 `json:"prev_close"`
	WeekAgoClose *float64 `json:"week_ago_close"`
	Timestamp    int64    `json:"ts"`
}

func NewQuoteFeed(baseURL, apiKey string, symbols []string, spotSymbol string, client *http.Client) *QuoteFeed {
	all := make([]string, 0, len(symbols)+1)
	all = append(all, spotSymbol)
	for _, s := range symbols {
		if s != spotSymbol {
			all = append(all, s)
		}
	}
	return &QuoteFeed{
		httpFeed:   newHTTPFeed(domain.SourceQuotes, client),
		baseURL:    baseURL,
		apiKey:     apiKey,
		symbols:    all,
		spotSymbol: spotSymbol,
	}
}

func (q *QuoteFeed) Source() domain.SourceID { return domain.SourceQuotes }

func (q *QuoteFeed) Fetch(ctx context.Context, _ *domain.SourceData) (*domain.SourceData, error) {
	quotes := make([]domain.PriceQuote, 0, len(q.symbols))
	var lastErr error

	for _, symbol := range q.symbols {
		quote, err := q.fetchOne(ctx, symbol)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break // deadline gone, the rest would fail the same way
			}
			continue
		}
		quotes = append(quotes, *quote)
	}

	if len(quotes) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, q.schemaErr("provider returned no quotes")
	}
	return &domain.SourceData{Quotes: quotes, AsOf: time.Now().UTC()}, nil
}

func (q *QuoteFeed) fetchOne(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		q.baseURL, url.QueryEscape(symbol), url.QueryEscape(q.apiKey))

	var resp quoteResponse
	if err := q.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Price <= 0 {
		return nil, q.schemaErr("symbol %s: non-positive price %v", symbol, resp.Price)
	}

	quote := domain.PriceQuote{
		Symbol:    symbol,
		Price:     resp.Price,
		PrevClose: resp.PrevClose,
		AsOf:      time.Unix(resp.Timestamp, 0).UTC(),
	}
	if resp.Timestamp == 0 {
		quote.AsOf = time.Now().UTC()
	}
	if resp.PrevClose != nil && *resp.PrevClose > 0 {
		pct := (resp.Price - *resp.PrevClose) / *resp.PrevClose * 100
		quote.ChangePct = &pct
	}
	if resp.WeekAgoClose != nil && *resp.WeekAgoClose > 0 {
		pct := (resp.Price - *resp.WeekAgoClose) / *resp.WeekAgoClose * 100
		quote.WeekChangePct = &pct
	}
	return &quote, nil
}
