package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daskhq/dask/internal/domain"
	"github.com/daskhq/dask/internal/domain/oplog"
)

const pgUniqueViolation = "23505"

// Journal implements journal.Store on a ledger_ops table. The sequence
// number is the primary key, so a duplicate append fails at the database
// even if two processes ever share one journal.
type Journal struct {
	pool *pgxpool.Pool
}

// NewJournal creates a Journal backed by the given connection pool.
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

// Append persists one committed operation record.
func (j *Journal) Append(ctx context.Context, rec *oplog.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	_, err = j.pool.Exec(ctx, `
		INSERT INTO ledger_ops (seq, op, record, created_at)
		VALUES ($1, $2, $3, $4)`,
		rec.Seq, string(rec.Op), payload, rec.At,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("append seq %d: %w", rec.Seq, domain.ErrConflict)
		}
		return fmt.Errorf("append seq %d: %w", rec.Seq, err)
	}
	return nil
}

// Load returns the full journal in sequence order.
func (j *Journal) Load(ctx context.Context) ([]oplog.Record, error) {
	rows, err := j.pool.Query(ctx,
		`SELECT record FROM ledger_ops ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	defer rows.Close()

	var recs []oplog.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec oplog.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
