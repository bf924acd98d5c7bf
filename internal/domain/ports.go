package domain

import (
	"context"
)

// FeedSource is the boundary for one upstream feed. Implementations
// validate the provider payload and return a typed error instead of
// letting malformed shapes leak inward. The previous cycle's data is
// passed in so adapters can compute deltas.
type FeedSource interface {
	Source() SourceID
	Fetch(ctx context.Context, previous *SourceData) (*SourceData, error)
}

// SnapshotCache mirrors the current snapshot outside the process so a
// restarted instance can warm-start. The serving path never reads it.
type SnapshotCache interface {
	StoreSnapshot(ctx context.Context, snapshot *DashboardSnapshot) error
	LoadSnapshot(ctx context.Context) (*DashboardSnapshot, error)
	SetLatestQuote(ctx context.Context, quote PriceQuote) error
	GetLatestQuote(ctx context.Context, symbol string) (*PriceQuote, error)
	Ping(ctx context.Context) error
}

// ArchiveRepository holds the append-only tables: visit log and snapshot
// history. Write-mostly; ListSnapshots exists for the one-shot CLI.
type ArchiveRepository interface {
	InsertVisits(ctx context.Context, visits []VisitRecord) error
	InsertSnapshots(ctx context.Context, records []SnapshotRecord) error
	ListSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error)
	Ping(ctx context.Context) error
}

// SnapshotReader is what HTTP handlers see: the current snapshot plus
// the degraded-service flag. Reads never block on a refresh in flight.
type SnapshotReader interface {
	Current() *DashboardSnapshot
	Degraded() bool
}
