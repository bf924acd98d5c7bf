package adapters

import (
	"context"
	"testing"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

func TestSyntheticSet_CoversAllSources(t *testing.T) {
	feeds := NewSyntheticSet([]string{"SLV", "FMT"}, "XAGUSD")
	if len(feeds) != len(domain.AllSources) {
		t.Fatalf("got %d feeds, want %d", len(feeds), len(domain.AllSources))
	}

	seen := make(map[domain.SourceID]bool)
	for _, feed := range feeds {
		seen[feed.Source()] = true

		data, err := feed.Fetch(context.Background(), nil)
		if err != nil {
			t.Fatalf("%s: %v", feed.Source(), err)
		}
		switch feed.Source() {
		case domain.SourceQuotes:
			if len(data.Quotes) != 3 {
				t.Errorf("got %d quotes, want spot plus 2 symbols", len(data.Quotes))
			}
		case domain.SourceComex:
			if data.Comex == nil || data.Comex.CoverageRatio == nil {
				t.Error("comex section incomplete")
			}
		case domain.SourceRepo:
			if data.Repo == nil || data.Repo.BalanceUSD <= 0 {
				t.Error("repo section incomplete")
			}
		case domain.SourceFilings:
			if data.Filings == nil || data.Filings.Count30d <= 0 {
				t.Error("filings section incomplete")
			}
		case domain.SourceNews:
			if data.News == nil || data.News.Mentions24h <= 0 {
				t.Error("news section incomplete")
			}
		}
	}
	for _, src := range domain.AllSources {
		if !seen[src] {
			t.Errorf("no synthetic feed for %s", src)
		}
	}
}

func TestSyntheticQuotes_WalkFromSeed(t *testing.T) {
	feeds := NewSyntheticSet(nil, "XAGUSD")

	var quotes *SyntheticFeed
	for _, f := range feeds {
		if f.Source() == domain.SourceQuotes {
			quotes = f.(*SyntheticFeed)
		}
	}

	data, err := quotes.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	spot := data.Quotes[0]
	if spot.Symbol != "XAGUSD" {
		t.Fatalf("spot symbol = %q", spot.Symbol)
	}
	// One step of a ±1% walk from the 48.0 seed.
	if spot.Price < 47 || spot.Price > 49 {
		t.Errorf("first spot price %v outside the seeded walk range", spot.Price)
	}
	if spot.PrevClose == nil || *spot.PrevClose != 48.0 {
		t.Errorf("prev_close = %v, want the seed", spot.PrevClose)
	}

	// Successive fetches keep walking, never repeat the struct wholesale.
	next, err := quotes.Fetch(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if next.Quotes[0].PrevClose == nil || *next.Quotes[0].PrevClose != spot.Price {
		t.Errorf("second cycle must walk from the first: prev=%v, want %v",
			next.Quotes[0].PrevClose, spot.Price)
	}
}
