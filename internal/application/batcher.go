package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// Batcher absorbs visit-log and snapshot-history writes so the request
// path and the scheduler never wait on Postgres. Flushes on size, on a
// period, and on shutdown. Drops records when the buffers are full
// rather than applying backpressure; the archive is best-effort.
type Batcher struct {
	archive     domain.ArchiveRepository
	visitCh     chan domain.VisitRecord
	snapCh      chan domain.SnapshotRecord
	batchSize   int
	flushPeriod time.Duration
	logger      *zap.Logger
}

func NewBatcher(archive domain.ArchiveRepository, logger *zap.Logger) *Batcher {
	return &Batcher{
		archive:     archive,
		visitCh:     make(chan domain.VisitRecord, 1000),
		snapCh:      make(chan domain.SnapshotRecord, 100),
		batchSize:   100,
		flushPeriod: 10 * time.Second,
		logger:      logger,
	}
}

func (b *Batcher) AddVisit(v domain.VisitRecord) {
	select {
	case b.visitCh <- v:
	default:
		b.logger.Warn("visit buffer full, dropping record", zap.String("path", v.Path))
	}
}

func (b *Batcher) AddSnapshot(rec domain.SnapshotRecord) {
	select {
	case b.snapCh <- rec:
	default:
		b.logger.Warn("snapshot-history buffer full, dropping record")
	}
}

func (b *Batcher) Start(ctx context.Context) {
	visits := make([]domain.VisitRecord, 0, b.batchSize)
	snaps := make([]domain.SnapshotRecord, 0, b.batchSize)

	ticker := time.NewTicker(b.flushPeriod)
	defer ticker.Stop()

	b.logger.Info("archive batcher started",
		zap.Int("batch_size", b.batchSize),
		zap.Duration("flush_period", b.flushPeriod))

	for {
		select {
		case v := <-b.visitCh:
			visits = append(visits, v)
			if len(visits) >= b.batchSize {
				b.flushVisits(ctx, visits)
				visits = visits[:0]
			}

		case rec := <-b.snapCh:
			snaps = append(snaps, rec)
			if len(snaps) >= b.batchSize {
				b.flushSnapshots(ctx, snaps)
				snaps = snaps[:0]
			}

		case <-ticker.C:
			if len(visits) > 0 {
				b.flushVisits(ctx, visits)
				visits = visits[:0]
			}
			if len(snaps) > 0 {
				b.flushSnapshots(ctx, snaps)
				snaps = snaps[:0]
			}

		case <-ctx.Done():
			// Drain whatever is buffered before exiting. Uses a fresh
			// context because ctx is already cancelled.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			for draining := true; draining; {
				select {
				case v := <-b.visitCh:
					visits = append(visits, v)
				case rec := <-b.snapCh:
					snaps = append(snaps, rec)
				default:
					draining = false
				}
			}
			if len(visits) > 0 {
				b.flushVisits(flushCtx, visits)
			}
			if len(snaps) > 0 {
				b.flushSnapshots(flushCtx, snaps)
			}
			cancel()
			b.logger.Info("archive batcher stopped")
			return
		}
	}
}

func (b *Batcher) flushVisits(ctx context.Context, batch []domain.VisitRecord) {
	start := time.Now()
	if err := b.archive.InsertVisits(ctx, batch); err != nil {
		b.logger.Error("failed to flush visit batch", zap.Int("count", len(batch)), zap.Error(err))
		return
	}
	b.logger.Debug("visit batch flushed",
		zap.Int("count", len(batch)),
		zap.Duration("duration", time.Since(start)))
}

func (b *Batcher) flushSnapshots(ctx context.Context, batch []domain.SnapshotRecord) {
	start := time.Now()
	if err := b.archive.InsertSnapshots(ctx, batch); err != nil {
		b.logger.Error("failed to flush snapshot batch", zap.Int("count", len(batch)), zap.Error(err))
		return
	}
	b.logger.Debug("snapshot batch flushed",
		zap.Int("count", len(batch)),
		zap.Duration("duration", time.Since(start)))
}
