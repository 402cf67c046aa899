package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daskhq/dask/internal/domain"
	"github.com/daskhq/dask/internal/domain/identity"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateIdentity(ctx context.Context, id *identity.Identity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (address, key_prefix, key_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		string(id.Address), id.KeyPrefix, id.KeyHash, id.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("create identity %s: %w", id.Address, domain.ErrConflict)
		}
		return fmt.Errorf("create identity %s: %w", id.Address, err)
	}
	return nil
}

func (s *Store) GetIdentityByKeyPrefix(ctx context.Context, prefix string) (*identity.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, key_prefix, key_hash, created_at
		FROM identities WHERE key_prefix = $1`, prefix)
	return scanIdentity(row, "get identity by prefix")
}

func (s *Store) GetIdentity(ctx context.Context, addr identity.Address) (*identity.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, key_prefix, key_hash, created_at
		FROM identities WHERE address = $1`, string(addr))
	return scanIdentity(row, fmt.Sprintf("get identity %s", addr))
}

func (s *Store) ListIdentities(ctx context.Context) ([]identity.Identity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, key_prefix, key_hash, created_at
		FROM identities ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var ids []identity.Identity
	for rows.Next() {
		id, err := scanIdentity(rows, "scan identity")
		if err != nil {
			return nil, err
		}
		ids = append(ids, *id)
	}
	return ids, rows.Err()
}

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

func scanIdentity(row scannable, op string) (*identity.Identity, error) {
	var id identity.Identity
	var addr string
	err := row.Scan(&addr, &id.KeyPrefix, &id.KeyHash, &id.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	id.Address = identity.Address(addr)
	return &id, nil
}
