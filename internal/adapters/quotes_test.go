package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

func TestQuoteFeed_NormalizesQuotes(t *testing.T) {
	payloads := map[string]quoteResponse{
		"XAGUSD": {Symbol: "XAGUSD", Price: 48.5, PrevClose: fptr(47.0), WeekAgoClose: fptr(44.0), Timestamp: 1756728000},
		"FMT":    {Symbol: "FMT", Price: 22.4, Timestamp: 1756728000},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(payloads[r.URL.Query().Get("symbol")])
	}))
	defer srv.Close()

	feed := NewQuoteFeed(srv.URL, "test-key", []string{"FMT"}, "XAGUSD", srv.Client())
	data, err := feed.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.Quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(data.Quotes))
	}

	// Spot symbol is always fetched first.
	spot := data.Quotes[0]
	if spot.Symbol != "XAGUSD" {
		t.Fatalf("first quote %q, want spot", spot.Symbol)
	}
	if spot.ChangePct == nil || !closeTo(*spot.ChangePct, (48.5-47.0)/47.0*100) {
		t.Errorf("change_pct = %v", spot.ChangePct)
	}
	if spot.WeekChangePct == nil || !closeTo(*spot.WeekChangePct, (48.5-44.0)/44.0*100) {
		t.Errorf("week_change_pct = %v", spot.WeekChangePct)
	}
	if spot.AsOf.Unix() != 1756728000 {
		t.Errorf("as_of = %v", spot.AsOf)
	}

	// No prior closes on FMT: derived percentages stay nil.
	if data.Quotes[1].ChangePct != nil || data.Quotes[1].WeekChangePct != nil {
		t.Error("percentages must be nil without reference closes")
	}
}

func TestQuoteFeed_PartialSymbolFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "FMT" {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(quoteResponse{Symbol: "XAGUSD", Price: 48.5})
	}))
	defer srv.Close()

	feed := NewQuoteFeed(srv.URL, "k", []string{"FMT"}, "XAGUSD", srv.Client())
	data, err := feed.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatalf("one bad symbol must not fail the fetch: %v", err)
	}
	if len(data.Quotes) != 1 || data.Quotes[0].Symbol != "XAGUSD" {
		t.Fatalf("quotes = %+v", data.Quotes)
	}
}

func TestQuoteFeed_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	feed := NewQuoteFeed(srv.URL, "k", nil, "XAGUSD", srv.Client())
	_, err := feed.Fetch(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsTransportError(err) {
		t.Fatalf("expected transport error, got %T: %v", err, err)
	}
	var te *domain.TransportError
	errors.As(err, &te)
	if te.Status != http.StatusServiceUnavailable {
		t.Errorf("status %d", te.Status)
	}
	if te.Source != domain.SourceQuotes {
		t.Errorf("source %q", te.Source)
	}
}

func TestQuoteFeed_SchemaError(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"symbol": "XAGUSD", "price": `))
		},
		"non-positive price": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(quoteResponse{Symbol: "XAGUSD", Price: 0})
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			feed := NewQuoteFeed(srv.URL, "k", nil, "XAGUSD", srv.Client())
			_, err := feed.Fetch(context.Background(), nil)
			if !domain.IsSchemaError(err) {
				t.Fatalf("expected schema error, got %T: %v", err, err)
			}
			var se *domain.SchemaError
			errors.As(err, &se)
			if se.Source != domain.SourceQuotes {
				t.Errorf("source %q", se.Source)
			}
		})
	}
}

func fptr(v float64) *float64 { return &v }

func closeTo(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
