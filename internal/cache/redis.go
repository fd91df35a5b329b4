package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// NewRedis returns a connected Redis client or an error when the server cannot be pinged.
func NewRedis(cfg internal.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// HitRecorder counts cache lookups.
type HitRecorder interface {
	RecordCacheOperation(hit bool)
}

// Store is a JSON cache over Redis. A Store without a client misses every read and drops every write.
type Store struct {
	client   redis.UniversalClient
	recorder HitRecorder
}

func NewStore(client redis.UniversalClient, recorder HitRecorder) *Store {
	return &Store{client: client, recorder: recorder}
}

func (s *Store) GetJSON(ctx context.Context, key string, dst interface{}) error {
	if s.client == nil {
		return ErrCacheMiss
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.record(false)
			return ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	s.record(true)
	return nil
}

func (s *Store) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePattern removes every key matching a glob pattern using SCAN, never KEYS.
func (s *Store) DeletePattern(ctx context.Context, pattern string) error {
	if s.client == nil {
		return nil
	}

	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis delete %s: %w", pattern, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", pattern, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) record(hit bool) {
	if s.recorder != nil {
		s.recorder.RecordCacheOperation(hit)
	}
}
