package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/caremon/internal/logging"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

// RedisSlot keeps slot values in Redis strings named <prefix><key>.
type RedisSlot struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisSlot wraps an existing client. The caller keeps ownership of the
// client only until Close is called on the slot.
func NewRedisSlot(client *redis.Client, prefix string, logger *zap.Logger) *RedisSlot {
	return &RedisSlot{client: client, prefix: prefix, logger: logging.OrNop(logger)}
}

// DialRedis connects to cfg.Addr and pings it before returning.
func DialRedis(ctx context.Context, cfg types.RedisConfig, logger *zap.Logger) (*RedisSlot, error) {
	if cfg.Addr == "" {
		return nil, types.ErrRedisAddrEmpty
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	slot := NewRedisSlot(client, cfg.Prefix, logger)
	slot.logger.Debug("redis fallback slot connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)
	return slot, nil
}

func (s *RedisSlot) key(k string) string { return s.prefix + k }

func (s *RedisSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *RedisSlot) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisSlot) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisSlot) Close() error { return s.client.Close() }
