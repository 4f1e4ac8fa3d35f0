package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pavelanni/examreport/internal/model"
)

const redisKeyPrefix = "examreport:dataset:"

// RedisStore keeps dataset documents in Redis, one key per user.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis server at url. A zero ttl keeps keys forever.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(userID string) string { return redisKeyPrefix + userID }

// Load returns the user's dataset, or nil if the key is missing.
func (s *RedisStore) Load(ctx context.Context, userID string) (model.TestDataset, error) {
	body, err := s.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", UserID: userID, Err: err}
	}
	return decode(userID, body), nil
}

// Save replaces the user's dataset.
func (s *RedisStore) Save(ctx context.Context, userID string, ds model.TestDataset) error {
	body, err := encode(ds)
	if err != nil {
		return &PersistenceError{Op: "save", UserID: userID, Err: err}
	}
	if err := s.client.Set(ctx, redisKey(userID), body, s.ttl).Err(); err != nil {
		return &PersistenceError{Op: "save", UserID: userID, Err: err}
	}
	return nil
}

// Delete removes the user's dataset.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return &PersistenceError{Op: "delete", UserID: userID, Err: err}
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
