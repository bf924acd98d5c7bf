package application

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

func TestSwitchMode_NextCycleUsesNewFeeds(t *testing.T) {
	svc := newTestService(t)

	// Stand-in live feeds, distinguishable from the synthetic walk by
	// an implausible spot price.
	liveResults := okResults(75)
	live := make([]domain.FeedSource, 0, len(domain.AllSources))
	for _, src := range domain.AllSources {
		live = append(live, &stubFeed{source: src, data: liveResults[src].Data})
	}
	svc.live = live

	ctx := context.Background()
	snap, err := svc.RefreshOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	spot := snap.SilverQuote(testSpot)
	if spot == nil {
		t.Fatal("synthetic cycle produced no spot quote")
	}
	if spot.Price < 45 || spot.Price > 51 {
		t.Fatalf("synthetic spot %v outside the seeded walk range", spot.Price)
	}

	if err := svc.SwitchMode(domain.LiveMode); err != nil {
		t.Fatal(err)
	}

	// The very next cycle fetches from the live set.
	snap, err = svc.RefreshOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	spot = snap.SilverQuote(testSpot)
	if spot == nil || spot.Price != 75 {
		t.Fatalf("cycle after switching to live served %+v, want the live feed's 75", spot)
	}
	for _, src := range domain.AllSources {
		if snap.Sections[src].Stale {
			t.Errorf("section %s stale after the switch; live feed not used", src)
		}
	}

	// And switching back swaps the set again.
	if err := svc.SwitchMode(domain.SyntheticMode); err != nil {
		t.Fatal(err)
	}
	snap, err = svc.RefreshOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if spot = snap.SilverQuote(testSpot); spot == nil || spot.Price == 75 {
		t.Fatalf("cycle after switching back still served the live price, got %+v", spot)
	}
}

func TestShutdown_DrainsWorkersAfterListenError(t *testing.T) {
	// Occupy the port so the HTTP listener fails while the scheduler
	// goroutine is already running.
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := testConfig()
	cfg.App.Port = ln.Addr().(*net.TCPAddr).Port
	svc := NewService(cfg, testRefdata(), nil, nil, zap.NewNop())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start() }()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected a listen error on an occupied port")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not fail on an occupied port")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown after a failed start must still drain workers: %v", err)
	}
}
