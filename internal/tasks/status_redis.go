package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "jobingest:task:"
	DefaultTaskTTL = 24 * time.Hour
)

// RedisStatusStore shares task status between processes, e.g. a CLI polling a
// task started by the server.
type RedisStatusStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatusStore(rdb *redis.Client, ttl time.Duration) *RedisStatusStore {
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	return &RedisStatusStore{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *RedisStatusStore) Put(ctx context.Context, info TaskInfo) error {
	b, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", info.ID, err)
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+info.ID, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store task %s: %w", info.ID, err)
	}
	return nil
}

func (s *RedisStatusStore) Get(ctx context.Context, id string) (TaskInfo, error) {
	b, err := s.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return TaskInfo{}, ErrTaskNotFound
	}
	if err != nil {
		return TaskInfo{}, fmt.Errorf("load task %s: %w", id, err)
	}
	var info TaskInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return TaskInfo{}, fmt.Errorf("decode task %s: %w", id, err)
	}
	return info, nil
}
