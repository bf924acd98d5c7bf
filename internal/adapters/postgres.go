package adapters

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/ghltech15/fault-watch-sub001/internal/config"
	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// PostgresAdapter holds the two append-only tables: the visit log and
// the snapshot history. Neither sits on the read path; an unreachable
// database costs history, not service.
type PostgresAdapter struct {
	db *sql.DB
}

func NewPostgresAdapter(cfg config.DatabaseConfig) (*PostgresAdapter, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	adapter := &PostgresAdapter{db: db}
	if err := adapter.createTables(); err != nil {
		return nil, err
	}
	return adapter, nil
}

func (p *PostgresAdapter) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS visit_log (
			id UUID PRIMARY KEY,
			method VARCHAR(10) NOT NULL,
			path TEXT NOT NULL,
			remote_addr TEXT NOT NULL,
			visited_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_history (
			id SERIAL PRIMARY KEY,
			taken_at TIMESTAMPTZ NOT NULL,
			degraded BOOLEAN NOT NULL,
			payload JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_history_taken_at
			ON snapshot_history (taken_at DESC)`,
	}
	for _, q := range queries {
		if _, err := p.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresAdapter) InsertVisits(ctx context.Context, visits []domain.VisitRecord) error {
	query := `
	INSERT INTO visit_log (id, method, path, remote_addr, visited_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO NOTHING`

	for _, v := range visits {
		if _, err := p.db.ExecContext(ctx, query, v.ID, v.Method, v.Path, v.RemoteAddr, v.At); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresAdapter) InsertSnapshots(ctx context.Context, records []domain.SnapshotRecord) error {
	query := `
	INSERT INTO snapshot_history (taken_at, degraded, payload)
	VALUES ($1, $2, $3)`

	for _, rec := range records {
		if _, err := p.db.ExecContext(ctx, query, rec.TakenAt, rec.Degraded, rec.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresAdapter) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotRecord, error) {
	query := `
	SELECT taken_at, degraded, payload
	FROM snapshot_history
	ORDER BY taken_at DESC
	LIMIT $1`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SnapshotRecord
	for rows.Next() {
		var rec domain.SnapshotRecord
		if err := rows.Scan(&rec.TakenAt, &rec.Degraded, &rec.Payload); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *PostgresAdapter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.db.PingContext(ctx)
}

func (p *PostgresAdapter) Close() error {
	return p.db.Close()
}
