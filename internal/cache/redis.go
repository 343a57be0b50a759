package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soaringjerry/hireflow/internal/services"
)

const keyPrefix = "hireflow:draft:"

// RedisDraftStore keeps builder and session drafts in Redis. Every write
// refreshes the key's TTL; a zero TTL keeps drafts forever.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ services.DraftStore = (*RedisDraftStore)(nil)

func NewRedisDraftStore(addr, password string, db int, ttl time.Duration) (*RedisDraftStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisDraftStore{client: client, ttl: ttl}, nil
}

func (s *RedisDraftStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Get returns nil, nil for a missing key.
func (s *RedisDraftStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *RedisDraftStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, keyPrefix+key, value, s.ttl).Err()
}

func (s *RedisDraftStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
