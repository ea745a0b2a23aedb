package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/config"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// RedisCache wraps the Redis client
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client, for tests
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// yieldCacheTTL bounds staleness of the hot yield cache. Yield accrues in
// daily periods, so minutes of staleness never change the displayed amount.
const yieldCacheTTL = 5 * time.Minute

func yieldKey(tokenID *big.Int) string {
	return "yield:claimable:" + tokenID.String()
}

// SetClaimableYield caches a computed yield result
func (r *RedisCache) SetClaimableYield(ctx context.Context, result *models.YieldResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, yieldKey(result.PropertyID), payload, yieldCacheTTL).Err()
}

// GetClaimableYield reads a cached yield result, nil on a miss
func (r *RedisCache) GetClaimableYield(ctx context.Context, tokenID *big.Int) (*models.YieldResult, error) {
	payload, err := r.client.Get(ctx, yieldKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var result models.YieldResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InvalidateClaimableYield drops the cached yield for a token, used when a
// claim event lands
func (r *RedisCache) InvalidateClaimableYield(ctx context.Context, tokenID *big.Int) error {
	return r.client.Del(ctx, yieldKey(tokenID)).Err()
}
