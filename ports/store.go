package ports

import (
	"context"

	"github.com/osool-hq/bawaba/core"
)

// TokenStore persists the session credential pair. Every Set and Clear
// is visible to all requests issued after it returns.
type TokenStore interface {
	// Set persists the pair. A pair with an empty refresh token is a
	// partial update: the stored refresh token is kept, since a plain
	// refresh does not always rotate it.
	Set(ctx context.Context, pair core.TokenPair) error

	// Pair returns the stored pair, or core.ErrNoSession when absent.
	Pair(ctx context.Context) (core.TokenPair, error)

	// Clear removes both tokens atomically. Clearing an empty store is
	// not an error.
	Clear(ctx context.Context) error
}

// IsAuthenticated reports whether an access token is stored. This is a
// weak signal only: it does not validate expiry or signature, the
// refreshing transport is the actual enforcement point.
func IsAuthenticated(ctx context.Context, store TokenStore) bool {
	pair, err := store.Pair(ctx)
	return err == nil && pair.AccessToken != ""
}
