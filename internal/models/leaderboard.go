package models

import (
	"math/big"
	"time"
)

// LeaderboardRow is a derived rollup, fully recomputable from chain state.
// The cached copy is a performance optimization, never ground truth for a
// ranking players will see.
type LeaderboardRow struct {
	// UserAddress is a lowercase-normalized hex address
	UserAddress         string    `json:"userAddress" db:"user_address"`
	TotalPortfolioValue *big.Int  `json:"totalPortfolioValue" db:"total_portfolio_value"`
	TotalYieldEarned    *big.Int  `json:"totalYieldEarned" db:"total_yield_earned"`
	PropertiesOwned     int       `json:"propertiesOwned" db:"properties_owned"`
	Rank                int       `json:"rank" db:"rank"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

// GuildStats is a derived guild rollup over member leaderboard rows
type GuildStats struct {
	GuildID             string    `json:"guildId" db:"guild_id"`
	MemberCount         int       `json:"memberCount" db:"member_count"`
	TotalPortfolioValue *big.Int  `json:"totalPortfolioValue" db:"total_portfolio_value"`
	TotalYieldEarned    *big.Int  `json:"totalYieldEarned" db:"total_yield_earned"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}
