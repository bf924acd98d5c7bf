package application

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

func newTestMerger() *Merger {
	return NewMerger(testRefdata(), testSpot, zap.NewNop())
}

func TestMerge_AllSuccess(t *testing.T) {
	m := newTestMerger()
	snap, err := m.Merge(nil, okResults(92))
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	for _, src := range domain.AllSources {
		meta, ok := snap.Sections[src]
		if !ok {
			t.Fatalf("section %s missing from snapshot", src)
		}
		if meta.Stale {
			t.Errorf("section %s marked stale on a fresh merge", src)
		}
	}

	if snap.SilverQuote(testSpot) == nil {
		t.Fatal("spot quote missing")
	}
	if len(snap.Banks) != 2 {
		t.Fatalf("got %d bank exposures, want 2", len(snap.Banks))
	}
	fm := snap.Banks[0]
	if fm.LossToCapitalRatio == nil || *fm.LossToCapitalRatio != 2.1 {
		t.Errorf("FMT ratio = %v, want 2.1", fm.LossToCapitalRatio)
	}
	if !fm.Insolvent {
		t.Error("FMT must be flagged insolvent at 92")
	}
	if snap.Contagion == nil || snap.Contagion.Score == nil {
		t.Fatal("contagion not derived")
	}
	if len(snap.Dominoes) != 5 {
		t.Errorf("got %d dominoes, want 5", len(snap.Dominoes))
	}
	if len(snap.Countdowns) != 1 {
		t.Errorf("countdowns not carried from reference data")
	}
	if snap.LastUpdated.IsZero() {
		t.Error("LastUpdated not set")
	}
}

func TestMerge_Idempotent(t *testing.T) {
	m := newTestMerger()
	results := okResults(92)

	a, err := m.Merge(nil, results)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Merge(a, results)
	if err != nil {
		t.Fatal(err)
	}

	// Identical except LastUpdated and the alert timestamps derived from
	// it. Alert IDs are a function of the rule hit and must not change.
	a.LastUpdated, b.LastUpdated = time.Time{}, time.Time{}
	for i := range a.Alerts {
		a.Alerts[i].CreatedAt = time.Time{}
	}
	for i := range b.Alerts {
		b.Alerts[i].CreatedAt = time.Time{}
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("merging the same results twice produced different snapshots")
	}
}

func TestMerge_SingleFailureKeepsShape(t *testing.T) {
	m := newTestMerger()
	results := okResults(92)
	results[domain.SourceComex] = domain.FetchResult{
		Source: domain.SourceComex,
		Err:    &domain.TransportError{Source: domain.SourceComex, Status: 503},
	}

	snap, err := m.Merge(nil, results)
	if err != nil {
		t.Fatalf("one failed source must not fail the merge: %v", err)
	}

	if snap.Comex != nil {
		t.Error("failed section with no previous data must be nil")
	}
	meta, ok := snap.Sections[domain.SourceComex]
	if !ok {
		t.Fatal("failed section must still be present in section metadata")
	}
	if !meta.Stale {
		t.Error("failed section must be marked stale")
	}
	for _, src := range []domain.SourceID{domain.SourceQuotes, domain.SourceRepo, domain.SourceFilings, domain.SourceNews} {
		if snap.Sections[src].Stale {
			t.Errorf("section %s wrongly stale", src)
		}
	}
	if snap.Contagion.ComexStatus != nil {
		t.Error("comex sub-score must be nil when its feed failed")
	}
	if snap.Contagion.Score == nil {
		t.Error("contagion score must still aggregate the remaining sub-scores")
	}
}

func TestMerge_CarriesForwardPreviousSection(t *testing.T) {
	m := newTestMerger()

	first, err := m.Merge(nil, okResults(92))
	if err != nil {
		t.Fatal(err)
	}
	prevComexAsOf := first.Sections[domain.SourceComex].AsOf

	results := okResults(95)
	results[domain.SourceComex] = domain.FetchResult{
		Source: domain.SourceComex,
		Err:    &domain.SchemaError{Source: domain.SourceComex, Reason: "bad payload"},
	}

	second, err := m.Merge(first, results)
	if err != nil {
		t.Fatal(err)
	}

	if second.Comex == nil {
		t.Fatal("previous comex section must be carried forward")
	}
	if second.Comex != first.Comex {
		t.Error("carried section should share the previous immutable value")
	}
	meta := second.Sections[domain.SourceComex]
	if !meta.Stale {
		t.Error("carried section must be marked stale")
	}
	if !meta.AsOf.Equal(prevComexAsOf) {
		t.Errorf("carried section AsOf = %v, want original %v", meta.AsOf, prevComexAsOf)
	}
	// Derived figures still use the carried data.
	if second.Contagion.ComexStatus == nil {
		t.Error("comex sub-score must be derived from the carried section")
	}
}

func TestMerge_AllFailed(t *testing.T) {
	m := newTestMerger()
	results := make(map[domain.SourceID]domain.FetchResult, len(domain.AllSources))
	for _, src := range domain.AllSources {
		results[src] = domain.FetchResult{
			Source: src,
			Err:    &domain.TransportError{Source: src, Err: errors.New("timeout")},
		}
	}

	if _, err := m.Merge(nil, results); !errors.Is(err, domain.ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
	// Even with a previous snapshot to carry, a cycle with zero fresh
	// sources counts as failed.
	prev, _ := m.Merge(nil, okResults(92))
	if _, err := m.Merge(prev, results); !errors.Is(err, domain.ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed with previous snapshot, got %v", err)
	}
}

func TestMerge_AlertsFire(t *testing.T) {
	m := newTestMerger()
	snap, err := m.Merge(nil, okResults(92))
	if err != nil {
		t.Fatal(err)
	}

	titles := make(map[string]domain.AlertLevel, len(snap.Alerts))
	for _, a := range snap.Alerts {
		if a.ID == "" {
			t.Error("alert without an ID")
		}
		if !a.CreatedAt.Equal(snap.LastUpdated) {
			t.Errorf("alert %q timestamped %v, want the snapshot's %v", a.Title, a.CreatedAt, snap.LastUpdated)
		}
		titles[a.Title] = a.Level
	}

	if lvl, ok := titles["First Metropolitan Trust past insolvency threshold"]; !ok || lvl != domain.AlertCritical {
		t.Errorf("missing critical insolvency alert, got %v", titles)
	}
	if _, ok := titles["Repo facility usage jumped"]; !ok {
		t.Error("missing repo jump alert")
	}
	if _, ok := titles["Mention velocity spike"]; !ok {
		t.Error("missing news velocity alert")
	}
	if _, ok := titles["Silver up 20% on the week"]; !ok {
		t.Error("missing weekly silver move alert")
	}
}
