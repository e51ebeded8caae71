// Package ratelimitstore is the shared key-value store backing §4.3's
// sliding-window counters. It is the one piece of mutable state shared
// across calls (spec §5); every other component receives its inputs by
// value.
package ratelimitstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
)

// Store is the minimal surface the rate-limit validator needs: read a
// cell, write it back with a TTL. The read-modify-write across these two
// calls is intentionally not atomic (spec §4.3, §9c) — callers must not
// assume strict correctness under races.
type Store interface {
	Get(ctx context.Context, key string) (*guardrail.RateLimitCell, error)
	Set(ctx context.Context, key string, cell guardrail.RateLimitCell, ttl time.Duration) error
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis client. A nil client is never
// passed in production; config.FeaturesConfig.RateLimitStoreEnabled gates
// whether the caller constructs one at all.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (*guardrail.RateLimitCell, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cell guardrail.RateLimitCell
	if err := json.Unmarshal(raw, &cell); err != nil {
		return nil, err
	}
	return &cell, nil
}

func (s *redisStore) Set(ctx context.Context, key string, cell guardrail.RateLimitCell, ttl time.Duration) error {
	raw, err := json.Marshal(cell)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}
