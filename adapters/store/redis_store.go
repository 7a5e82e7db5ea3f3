package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/osool-hq/bawaba/core"
	"github.com/osool-hq/bawaba/ports"
)

// RedisStore is a Redis implementation of the TokenStore interface.
// Tokens live under fixed keys so the session survives process restarts
// within the same installation.
type RedisStore struct {
	client     *redis.Client
	accessKey  string
	refreshKey string
}

// NewRedisStore creates a new Redis token store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:     client,
		accessKey:  "bawaba:session:access_token",
		refreshKey: "bawaba:session:refresh_token",
	}
}

// Set persists the credential pair in a single transactional pipeline
// so that both keys become visible in the same tick.
func (s *RedisStore) Set(ctx context.Context, pair core.TokenPair) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.accessKey, pair.AccessToken, 0)
	if pair.RefreshToken != "" {
		pipe.Set(ctx, s.refreshKey, pair.RefreshToken, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}
	return nil
}

// Pair returns the stored credential pair
func (s *RedisStore) Pair(ctx context.Context) (core.TokenPair, error) {
	values, err := s.client.MGet(ctx, s.accessKey, s.refreshKey).Result()
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to read tokens: %w", err)
	}

	pair := core.TokenPair{}
	if access, ok := values[0].(string); ok {
		pair.AccessToken = access
	}
	if refresh, ok := values[1].(string); ok {
		pair.RefreshToken = refresh
	}

	if pair.AccessToken == "" && pair.RefreshToken == "" {
		return core.TokenPair{}, core.ErrNoSession
	}
	return pair, nil
}

// Clear removes both tokens with a single DEL
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey, s.refreshKey).Err(); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

var _ ports.TokenStore = (*RedisStore)(nil)
