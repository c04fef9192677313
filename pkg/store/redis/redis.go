package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/store/consts"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements knowledge.Store using Redis.
type RedisStore struct {
	client *redis.Client
	key    string
}

// New creates a new RedisStore. An empty key selects consts.DefaultRedisKey.
func New(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = consts.DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Save saves the snapshot as a single JSON value.
func (s *RedisStore) Save(ctx context.Context, snap *knowledge.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, s.key, b, 0).Err()
}

// Load loads the snapshot from Redis.
func (s *RedisStore) Load(ctx context.Context) (*knowledge.Snapshot, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, knowledge.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap knowledge.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
