package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/daskhq/dask/internal/domain"
	"github.com/daskhq/dask/internal/domain/identity"
	"github.com/daskhq/dask/internal/port/database"
)

const (
	keyTag       = "dask_"
	keyRandBytes = 24
	// keyPrefixLen covers the tag plus the first random characters, enough
	// to look a key up without storing the key itself.
	keyPrefixLen = 12
)

// ErrInvalidKey is returned when an API key does not match any identity.
var ErrInvalidKey = errors.New("invalid api key")

// Keyring issues and verifies API keys for ledger identities. Keys are
// stored bcrypt-hashed; only the lookup prefix is kept in the clear.
type Keyring struct {
	store database.Store
}

// NewKeyring creates a Keyring over the given identity store.
func NewKeyring(store database.Store) *Keyring {
	return &Keyring{store: store}
}

// Register creates an identity for the address and returns the raw API key.
// The key is shown exactly once; only its hash survives.
func (k *Keyring) Register(ctx context.Context, addr identity.Address) (*identity.Identity, string, error) {
	if addr.IsZero() {
		return nil, "", errors.New("address can't be zero")
	}
	if _, err := k.store.GetIdentity(ctx, addr); err == nil {
		return nil, "", domain.ErrConflict
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("lookup identity: %w", err)
	}

	raw := make([]byte, keyRandBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generate key: %w", err)
	}
	key := keyTag + hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash key: %w", err)
	}

	id := &identity.Identity{
		Address:   addr,
		KeyPrefix: key[:keyPrefixLen],
		KeyHash:   string(hash),
		CreatedAt: time.Now().UTC(),
	}
	if err := k.store.CreateIdentity(ctx, id); err != nil {
		return nil, "", fmt.Errorf("create identity: %w", err)
	}
	return id, key, nil
}

// Authenticate resolves an API key to its address. Returns ErrInvalidKey
// for any key that does not verify, without distinguishing why.
func (k *Keyring) Authenticate(ctx context.Context, key string) (identity.Address, error) {
	if !strings.HasPrefix(key, keyTag) || len(key) < keyPrefixLen {
		return "", ErrInvalidKey
	}

	id, err := k.store.GetIdentityByKeyPrefix(ctx, key[:keyPrefixLen])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidKey
		}
		return "", fmt.Errorf("lookup identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(id.KeyHash), []byte(key)); err != nil {
		return "", ErrInvalidKey
	}
	return id.Address, nil
}

// List returns all registered identities.
func (k *Keyring) List(ctx context.Context) ([]identity.Identity, error) {
	return k.store.ListIdentities(ctx)
}
