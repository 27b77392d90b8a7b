package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "showroom:session:"

// RedisBackend はセッションごとのハッシュに保存するBackend。
// 書き込みのたびにTTLを延長する。
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend はRedisBackendを生成する。ttlが0以下の場合は有効期限を設定しない。
func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

// For はセッションIDに対応するStorageを返す。
func (b *RedisBackend) For(sessionID string) Storage {
	return &redisStorage{backend: b, key: redisKeyPrefix + sessionID}
}

type redisStorage struct {
	backend *RedisBackend
	key     string
}

func (s *redisStorage) Get(ctx context.Context, field string) (string, error) {
	v, err := s.backend.client.HGet(ctx, s.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get client state: %w", err)
	}
	return v, nil
}

func (s *redisStorage) Set(ctx context.Context, field, value string) error {
	if err := s.backend.client.HSet(ctx, s.key, field, value).Err(); err != nil {
		return fmt.Errorf("failed to set client state: %w", err)
	}
	if s.backend.ttl > 0 {
		if err := s.backend.client.Expire(ctx, s.key, s.backend.ttl).Err(); err != nil {
			return fmt.Errorf("failed to extend client state ttl: %w", err)
		}
	}
	return nil
}

func (s *redisStorage) Delete(ctx context.Context, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.backend.client.HDel(ctx, s.key, fields...).Err(); err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Backend = (*RedisBackend)(nil)
