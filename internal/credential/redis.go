package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edgard/nanorelay/internal/config"
)

const (
	redisNamespace = "nanorelay"
	redisIndexKey  = redisNamespace + ":bots"
)

// RedisStore keeps each registration as a JSON value under
// nanorelay:bot:<token> and indexes tokens in the nanorelay:bots set.
type RedisStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// OpenRedis connects to the Redis server named in cfg and verifies it
// responds to PING.
func OpenRedis(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisStore(ctx, rdb, logger)
}

// NewRedisStore wraps an existing client.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	log := logger.With("component", "redis_store")
	log.Info("Redis store connected")
	return &RedisStore{client: client, logger: log}, nil
}

func botKey(token string) string {
	return redisNamespace + ":bot:" + token
}

func (s *RedisStore) Save(ctx context.Context, reg *Registration) error {
	if err := validate(reg); err != nil {
		return err
	}
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to encode registration: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, botKey(reg.Token), data, 0)
		pipe.SAdd(ctx, redisIndexKey, reg.Token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save registration: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Registration, error) {
	data, err := s.client.Get(ctx, botKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	var reg Registration
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to decode registration: %w", err)
	}
	return &reg, nil
}

// Touch is a read-modify-write; a concurrent Save for the same token may be
// overwritten with its previous contents plus the new timestamp.
func (s *RedisStore) Touch(ctx context.Context, token string, at time.Time) error {
	reg, err := s.Get(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	reg.LastSeenAt = at
	return s.Save(ctx, reg)
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, botKey(token))
		pipe.SRem(ctx, redisIndexKey, token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, redisIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) DeleteInactive(ctx context.Context, cutoff time.Time) (int, error) {
	tokens, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list registrations: %w", err)
	}

	removed := 0
	for _, token := range tokens {
		reg, err := s.Get(ctx, token)
		if errors.Is(err, ErrNotFound) {
			// Index entry without a value.
			if err := s.client.SRem(ctx, redisIndexKey, token).Err(); err != nil {
				return removed, fmt.Errorf("failed to prune index: %w", err)
			}
			continue
		}
		if err != nil {
			return removed, err
		}
		if !reg.LastSeenAt.Before(cutoff) {
			continue
		}
		if err := s.Delete(ctx, token); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Maintain is a no-op; Redis manages its own persistence.
func (s *RedisStore) Maintain(context.Context) error { return nil }

func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}
