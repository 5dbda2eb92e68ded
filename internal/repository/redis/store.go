// Package redis contains a Redis implementation of repository.KV, used when
// several hosts share one session.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/and161185/enlite/internal/config"
	"github.com/and161185/enlite/internal/repository"
)

// Store keeps every key under a fixed prefix.
type Store struct {
	db     *goredis.Client
	prefix string
}

var _ repository.KV = (*Store)(nil)

// New connects and pings the server.
func New(ctx context.Context, cfg config.Redis) (*Store, error) {
	const op = "redis.New"
	db := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.User,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{db: db, prefix: cfg.Prefix}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) key(k string) string { return s.prefix + k }

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "redis.Get"
	v, err := s.db.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return v, true, nil
}

// Set stores value under key without expiration.
func (s *Store) Set(ctx context.Context, key, value string) error {
	const op = "redis.Set"
	if err := s.db.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	const op = "redis.Remove"
	if err := s.db.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Clear deletes every key under the prefix. Keys outside it are untouched.
func (s *Store) Clear(ctx context.Context) error {
	const op = "redis.Clear"
	iter := s.db.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.db.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
