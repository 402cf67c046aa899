// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/daskhq/dask/internal/domain/identity"
)

// Store is the port interface for identity persistence.
type Store interface {
	// CreateIdentity inserts a new identity. Returns domain.ErrConflict if
	// the address is already registered.
	CreateIdentity(ctx context.Context, id *identity.Identity) error

	// GetIdentityByKeyPrefix looks an identity up by its API key prefix.
	// Returns domain.ErrNotFound when no identity matches.
	GetIdentityByKeyPrefix(ctx context.Context, prefix string) (*identity.Identity, error)

	// GetIdentity looks an identity up by address.
	GetIdentity(ctx context.Context, addr identity.Address) (*identity.Identity, error)

	// ListIdentities returns all registered identities.
	ListIdentities(ctx context.Context) ([]identity.Identity, error)
}
