package service

import (
	"context"
	"math/big"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// YieldCache is the hot cache in front of the yield engine
type YieldCache interface {
	GetClaimableYield(ctx context.Context, tokenID *big.Int) (*models.YieldResult, error)
	SetClaimableYield(ctx context.Context, result *models.YieldResult) error
}

// CachedYieldEngine serves claimable-yield queries from Redis when a fresh
// entry exists, falling through to the engine otherwise. Cache failures are
// never fatal; the engine answer always wins.
type CachedYieldEngine struct {
	engine *YieldEngine
	cache  YieldCache
	logger *logging.Logger
}

func NewCachedYieldEngine(engine *YieldEngine, cache YieldCache, logger *logging.Logger) *CachedYieldEngine {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &CachedYieldEngine{engine: engine, cache: cache, logger: logger}
}

// ClaimableYield returns the cached result on a hit, otherwise computes it and
// caches the outcome. Rejected results are never cached; the next query should
// retry the chain.
func (c *CachedYieldEngine) ClaimableYield(ctx context.Context, tokenID *big.Int) (*models.YieldResult, error) {
	if c.cache != nil {
		cached, err := c.cache.GetClaimableYield(ctx, tokenID)
		if err != nil {
			c.logger.WithError(err).WithField("tokenId", tokenID.String()).Warn("Yield cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	result, err := c.engine.ClaimableYield(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && !result.Rejected {
		if err := c.cache.SetClaimableYield(ctx, result); err != nil {
			c.logger.WithError(err).WithField("tokenId", tokenID.String()).Warn("Yield cache write failed")
		}
	}
	return result, nil
}
