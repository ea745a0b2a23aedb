package service

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// AggregationChainReader is the slice of the contract facade the leaderboard
// recompute needs
type AggregationChainReader interface {
	GetOwnerProperties(ctx context.Context, owner string) ([]*big.Int, error)
	GetProperty(ctx context.Context, tokenID *big.Int) (*models.PropertySnapshot, error)
	SystemAddresses() map[string]bool
}

// LeaderboardStore persists per-address rollups
type LeaderboardStore interface {
	Upsert(ctx context.Context, row *models.LeaderboardRow) error
	Get(ctx context.Context, user string) (*models.LeaderboardRow, error)
	RecordYieldClaim(ctx context.Context, claim *models.YieldClaim) error
	Top(ctx context.Context, limit int) ([]*models.LeaderboardRow, error)
	RecomputeRanks(ctx context.Context) error
}

// GuildStore resolves guild membership and persists guild rollups
type GuildStore interface {
	Members(ctx context.Context, guildID string) ([]string, error)
	UpsertStats(ctx context.Context, stats *models.GuildStats) error
}

// LeaderboardService recomputes per-address portfolio rollups from chain
// state. Cached rows are a performance cache only; any of them can be
// rebuilt from scratch by RecomputeUser.
type LeaderboardService struct {
	chain  AggregationChainReader
	store  LeaderboardStore
	guilds GuildStore
	guard  *CorruptionGuard
	logger *logging.Logger
}

// NewLeaderboardService creates a leaderboard service. The guild store may be
// nil when guilds are not enabled.
func NewLeaderboardService(chain AggregationChainReader, store LeaderboardStore, guilds GuildStore, guard *CorruptionGuard, logger *logging.Logger) *LeaderboardService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &LeaderboardService{
		chain:  chain,
		store:  store,
		guilds: guilds,
		guard:  guard,
		logger: logger,
	}
}

// RecomputeUser rebuilds one address's rollup from current chain state and
// persists it. System contract addresses are never ranked: tokens they hold
// are escrowed listings, not player property.
//
// A transport failure mid-walk aborts the recompute without touching the
// cached row; a partially summed portfolio is worse than a stale one.
func (s *LeaderboardService) RecomputeUser(ctx context.Context, user string) (*models.LeaderboardRow, error) {
	user = strings.ToLower(user)
	if s.chain.SystemAddresses()[user] {
		s.logger.WithField("address", user).Debug("Skipping leaderboard recompute for system address")
		return nil, nil
	}

	tokens, err := s.chain.GetOwnerProperties(ctx, user)
	if err != nil {
		return nil, err
	}

	totalValue := big.NewInt(0)
	owned := 0
	for _, tokenID := range tokens {
		snapshot, err := s.chain.GetProperty(ctx, tokenID)
		if err != nil {
			if errors.IsRevert(err) {
				// Enumerated by the owner index but gone from the registry,
				// typically a token from before a contract migration
				s.logger.WithField("tokenId", tokenID.String()).Debug("Skipping unreadable property during recompute")
				continue
			}
			return nil, err
		}
		owned++
		if s.guard.Validate(ctx, "portfolioValue:"+tokenID.String(), snapshot.Value) {
			totalValue.Add(totalValue, snapshot.Value)
		}
	}

	// Each token passed the guard individually, but the aggregate is what
	// players see: a portfolio of plausible values summing past the ceiling
	// must not reach the leaderboard either.
	if !s.guard.Validate(ctx, "portfolioTotal:"+user, totalValue) {
		return nil, errors.NewCorruptionError("recomputeUser", totalValue.String(), "portfolio total rejected by corruption guard")
	}

	yieldEarned := big.NewInt(0)
	if existing, err := s.store.Get(ctx, user); err == nil && existing != nil && existing.TotalYieldEarned != nil {
		yieldEarned = existing.TotalYieldEarned
	}

	row := &models.LeaderboardRow{
		UserAddress:         user,
		TotalPortfolioValue: totalValue,
		TotalYieldEarned:    yieldEarned,
		PropertiesOwned:     owned,
		UpdatedAt:           time.Now().UTC(),
	}
	if err := s.store.Upsert(ctx, row); err != nil {
		return nil, err
	}
	if err := s.store.RecomputeRanks(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to recompute leaderboard ranks")
	}
	return row, nil
}

// RecordYieldClaim adds a claimed amount to the claimant's lifetime total.
// The store keys claims by log position, so the same on-chain claim seen by
// the live subscription and again by a catch-up scan is counted once.
// Claimed amounts come from chain events, but the guard still runs: a
// corrupted event amount must not poison the rollup.
func (s *LeaderboardService) RecordYieldClaim(ctx context.Context, claim *models.YieldClaim) error {
	claim.Claimant = strings.ToLower(claim.Claimant)
	if !s.guard.Validate(ctx, "yieldClaim:"+claim.Claimant, claim.AmountWei) {
		raw := "<nil>"
		if claim.AmountWei != nil {
			raw = claim.AmountWei.String()
		}
		return errors.NewCorruptionError("recordYieldClaim", raw, "claim amount rejected by corruption guard")
	}
	return s.store.RecordYieldClaim(ctx, claim)
}

// Top returns the current top rows by portfolio value
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]*models.LeaderboardRow, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.Top(ctx, limit)
}

// RecomputeGuild rebuilds one guild's rollup from its members' cached rows
func (s *LeaderboardService) RecomputeGuild(ctx context.Context, guildID string) (*models.GuildStats, error) {
	if s.guilds == nil {
		return nil, nil
	}
	members, err := s.guilds.Members(ctx, guildID)
	if err != nil {
		return nil, err
	}

	stats := &models.GuildStats{
		GuildID:             guildID,
		TotalPortfolioValue: big.NewInt(0),
		TotalYieldEarned:    big.NewInt(0),
		UpdatedAt:           time.Now().UTC(),
	}
	for _, member := range members {
		row, err := s.store.Get(ctx, strings.ToLower(member))
		if err != nil || row == nil {
			continue
		}
		stats.MemberCount++
		if row.TotalPortfolioValue != nil {
			stats.TotalPortfolioValue.Add(stats.TotalPortfolioValue, row.TotalPortfolioValue)
		}
		if row.TotalYieldEarned != nil {
			stats.TotalYieldEarned.Add(stats.TotalYieldEarned, row.TotalYieldEarned)
		}
	}

	if err := s.guilds.UpsertStats(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
