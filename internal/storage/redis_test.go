package storage

import (
	"math/big"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

func newMiniredisCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheFromClient(client)
}

func TestClaimableYieldCacheRoundTrip(t *testing.T) {
	cache := newMiniredisCache(t)
	ctx := testContext(t)

	amount, _ := new(big.Int).SetString("13698630136986301", 10)
	result := &models.YieldResult{
		PropertyID:  big.NewInt(7),
		AmountWei:   amount,
		ComputedVia: models.YieldLocalFallback,
	}

	require.NoError(t, cache.SetClaimableYield(ctx, result))

	got, err := cache.GetClaimableYield(ctx, big.NewInt(7))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "13698630136986301", got.AmountWei.String())
	assert.Equal(t, models.YieldLocalFallback, got.ComputedVia)
	assert.False(t, got.Rejected)
}

func TestClaimableYieldCacheMiss(t *testing.T) {
	cache := newMiniredisCache(t)
	ctx := testContext(t)

	got, err := cache.GetClaimableYield(ctx, big.NewInt(999))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidateClaimableYield(t *testing.T) {
	cache := newMiniredisCache(t)
	ctx := testContext(t)

	result := &models.YieldResult{
		PropertyID:  big.NewInt(7),
		AmountWei:   big.NewInt(100),
		ComputedVia: models.YieldOnChain,
	}
	require.NoError(t, cache.SetClaimableYield(ctx, result))
	require.NoError(t, cache.InvalidateClaimableYield(ctx, big.NewInt(7)))

	got, err := cache.GetClaimableYield(ctx, big.NewInt(7))
	require.NoError(t, err)
	assert.Nil(t, got)
}
