package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps persisted client state in Redis, one string per
// (client, key) pair.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redisURL. A zero ttl keeps state forever.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "console:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(clientID, key string) string {
	return s.prefix + clientID + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(clientID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get client state %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value and refreshes the key's expiry.
func (s *RedisStore) Set(ctx context.Context, clientID, key, value string) error {
	if err := s.client.Set(ctx, s.key(clientID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("set client state %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, clientID, key string) error {
	if err := s.client.Del(ctx, s.key(clientID, key)).Err(); err != nil {
		return fmt.Errorf("delete client state %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
