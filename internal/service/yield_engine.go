package service

import (
	"context"
	stderrors "errors"
	"math/big"
	"time"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

const (
	daysPerYear       = 365
	bpsDenominator    = 10000
	maxAccrualSeconds = int64(daysPerYear * 86400)
)

// YieldChainReader is the slice of the contract facade the yield engine needs
type YieldChainReader interface {
	CalculateYield(ctx context.Context, tokenID *big.Int) (*big.Int, error)
	OwnerOf(ctx context.Context, tokenID *big.Int) (string, error)
	GetRWAAsset(ctx context.Context, contract string, tokenID *big.Int) (*models.RWAAsset, error)
	BlockTimestamp(ctx context.Context) (int64, error)
}

// PropertyReader looks up cached property records for the local fallback path
type PropertyReader interface {
	GetByTokenID(ctx context.Context, tokenID *big.Int) (*models.PropertySnapshot, error)
}

// YieldEngine answers "how much yield is claimable for this property" with a
// two-path state machine: ask the distributor contract first, fall back to a
// deterministic local computation over the cached property record when the
// contract call reverts or times out. Every amount on either path passes the
// corruption guard before it is returned.
type YieldEngine struct {
	chain          YieldChainReader
	properties     PropertyReader
	guard          *CorruptionGuard
	updateInterval int64
	logger         *logging.Logger
	now            func() time.Time
}

// NewYieldEngine creates a yield engine. updateInterval is the contract's
// minimum accrual window in seconds.
func NewYieldEngine(chain YieldChainReader, properties PropertyReader, guard *CorruptionGuard, updateInterval int64, logger *logging.Logger) *YieldEngine {
	if updateInterval <= 0 {
		updateInterval = 86400
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &YieldEngine{
		chain:          chain,
		properties:     properties,
		guard:          guard,
		updateInterval: updateInterval,
		logger:         logger,
		now:            time.Now,
	}
}

// ClaimableYield resolves the claimable amount for one property. The result
// is terminal in a single call: either the on-chain number (guard-accepted),
// the local fallback number (guard-accepted), or zero.
func (e *YieldEngine) ClaimableYield(ctx context.Context, tokenID *big.Int) (*models.YieldResult, error) {
	amount, err := e.chain.CalculateYield(ctx, tokenID)
	if err == nil {
		if e.guard.Validate(ctx, "calculateYield:"+tokenID.String(), amount) {
			return &models.YieldResult{
				PropertyID:  new(big.Int).Set(tokenID),
				AmountWei:   amount,
				ComputedVia: models.YieldOnChain,
			}, nil
		}
		// Rejected on-chain value is discarded; the fallback recomputes from
		// the cached record instead of propagating it
		e.logger.WithField("tokenId", tokenID.String()).Warn("On-chain yield rejected by guard, using local fallback")
	} else {
		if !errors.IsRevert(err) && !stderrors.Is(err, context.DeadlineExceeded) {
			e.logger.WithError(err).WithField("tokenId", tokenID.String()).Warn("On-chain yield unavailable, using local fallback")
		}
	}

	// A reverting ownership lookup means the current contract has no record
	// of this token. Cached rows for migrated-away tokens must never accrue.
	if _, ownerErr := e.chain.OwnerOf(ctx, tokenID); ownerErr != nil && errors.IsRevert(ownerErr) {
		return &models.YieldResult{
			PropertyID:  new(big.Int).Set(tokenID),
			AmountWei:   big.NewInt(0),
			ComputedVia: models.YieldLocalFallback,
		}, nil
	}

	snapshot, err := e.properties.GetByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	nowUnix := e.blockTime(ctx)
	fallback := e.localYield(ctx, snapshot, nowUnix)

	result := &models.YieldResult{
		PropertyID:  new(big.Int).Set(tokenID),
		AmountWei:   fallback,
		ComputedVia: models.YieldLocalFallback,
	}
	if !e.guard.Validate(ctx, "localYield:"+tokenID.String(), fallback) {
		result.AmountWei = big.NewInt(0)
		result.Rejected = true
	}
	return result, nil
}

// blockTime prefers the chain head timestamp so live and fallback
// computations share a clock; wall clock is close enough when the head is
// unreachable
func (e *YieldEngine) blockTime(ctx context.Context) int64 {
	if ts, err := e.chain.BlockTimestamp(ctx); err == nil && ts > 0 {
		return ts
	}
	return e.now().UTC().Unix()
}

// localYield resolves the effective value/rate pair (RWA link wins when the
// linked asset is active with positive figures) and runs the accrual formula
func (e *YieldEngine) localYield(ctx context.Context, snapshot *models.PropertySnapshot, nowUnix int64) *big.Int {
	value := snapshot.Value
	rateBps := snapshot.YieldRateBasisPoints

	if snapshot.RWALink != nil {
		asset, err := e.chain.GetRWAAsset(ctx, snapshot.RWALink.Contract, snapshot.RWALink.TokenID)
		if err != nil {
			e.logger.WithError(err).WithField("tokenId", snapshot.TokenID.String()).Debug("RWA lookup failed, using property's own value and rate")
		} else if asset.Active && asset.Value != nil && asset.Value.Sign() > 0 && asset.YieldRateBasisPoints > 0 {
			value = asset.Value
			rateBps = asset.YieldRateBasisPoints
		}
	}

	return AccruedYield(value, rateBps, snapshot.CreatedAt, snapshot.LastYieldUpdate, nowUnix, e.updateInterval)
}

// AccruedYield is the local mirror of the distributor contract's accrual
// formula. Pure integer arithmetic throughout; any drift from the contract's
// own math makes the fallback path lie about claimable amounts.
func AccruedYield(value *big.Int, rateBps int64, createdAt, lastYieldUpdate, nowUnix, updateInterval int64) *big.Int {
	if value == nil || value.Sign() <= 0 || rateBps <= 0 {
		return big.NewInt(0)
	}

	dailyYield := new(big.Int).Mul(value, big.NewInt(rateBps))
	dailyYield.Div(dailyYield, big.NewInt(daysPerYear*bpsDenominator))

	start := createdAt
	if lastYieldUpdate > 0 {
		start = lastYieldUpdate
	}

	elapsed := nowUnix - start
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > maxAccrualSeconds {
		elapsed = maxAccrualSeconds
	}
	if elapsed < updateInterval {
		// Below the contract's minimum accrual window nothing is claimable,
		// matching on-chain claim eligibility exactly
		return big.NewInt(0)
	}

	periods := elapsed / updateInterval
	if periods > daysPerYear {
		periods = daysPerYear
	}
	return dailyYield.Mul(dailyYield, big.NewInt(periods))
}
