package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	apperrors "github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// LeaderboardRepository persists per-address portfolio rollups
type LeaderboardRepository struct {
	db *PostgresDB
}

// NewLeaderboardRepository creates a new leaderboard repository
func NewLeaderboardRepository(db *PostgresDB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// Upsert writes one rollup row, preserving the stored yield total when the
// incoming row has none
func (r *LeaderboardRepository) Upsert(ctx context.Context, row *models.LeaderboardRow) error {
	row.UserAddress = strings.ToLower(row.UserAddress)
	row.UpdatedAt = time.Now().UTC()

	yieldEarned := "0"
	if row.TotalYieldEarned != nil {
		yieldEarned = row.TotalYieldEarned.String()
	}

	query := `
		INSERT INTO leaderboard (user_address, total_portfolio_value, total_yield_earned, properties_owned, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_address) DO UPDATE SET
			total_portfolio_value = EXCLUDED.total_portfolio_value,
			total_yield_earned = EXCLUDED.total_yield_earned,
			properties_owned = EXCLUDED.properties_owned,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		row.UserAddress,
		row.TotalPortfolioValue.String(),
		yieldEarned,
		row.PropertiesOwned,
		row.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("upsertLeaderboardRow", err)
	}
	return nil
}

// Get retrieves one rollup row, nil when the address has none
func (r *LeaderboardRepository) Get(ctx context.Context, user string) (*models.LeaderboardRow, error) {
	query := `
		SELECT user_address, total_portfolio_value::text, total_yield_earned::text, properties_owned, rank, updated_at
		FROM leaderboard
		WHERE user_address = $1
	`
	row, err := scanLeaderboardRow(r.db.Pool().QueryRow(ctx, query, strings.ToLower(user)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// RecordYieldClaim adds a claimed amount to the claimant's lifetime total,
// creating the row when absent. The claim row and the total move in one
// statement: when the (tx_hash, log_index) pair was already recorded the CTE
// returns no rows and the total is untouched, so replayed deliveries of the
// same on-chain claim are counted exactly once.
func (r *LeaderboardRepository) RecordYieldClaim(ctx context.Context, claim *models.YieldClaim) error {
	query := `
		WITH claim AS (
			INSERT INTO yield_claims (tx_hash, log_index, token_id, claimant, amount, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (tx_hash, log_index) DO NOTHING
			RETURNING claimant, amount
		)
		INSERT INTO leaderboard (user_address, total_portfolio_value, total_yield_earned, properties_owned, updated_at)
		SELECT claimant, 0, amount, 0, $6 FROM claim
		ON CONFLICT (user_address) DO UPDATE SET
			total_yield_earned = leaderboard.total_yield_earned + EXCLUDED.total_yield_earned,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Pool().Exec(ctx, query,
		strings.ToLower(claim.TxHash),
		int64(claim.LogIndex),
		claim.TokenID.String(),
		strings.ToLower(claim.Claimant),
		claim.AmountWei.String(),
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.NewDatabaseError("recordYieldClaim", err)
	}
	return nil
}

// Top retrieves the highest-ranked rows by portfolio value
func (r *LeaderboardRepository) Top(ctx context.Context, limit int) ([]*models.LeaderboardRow, error) {
	query := `
		SELECT user_address, total_portfolio_value::text, total_yield_earned::text, properties_owned, rank, updated_at
		FROM leaderboard
		ORDER BY total_portfolio_value DESC
		LIMIT $1
	`
	rows, err := r.db.Pool().Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("leaderboardTop", err)
	}
	defer rows.Close()

	var out []*models.LeaderboardRow
	for rows.Next() {
		row, err := scanLeaderboardRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RecomputeRanks reassigns dense ranks across the whole table
func (r *LeaderboardRepository) RecomputeRanks(ctx context.Context) error {
	query := `
		UPDATE leaderboard SET rank = ranked.new_rank
		FROM (
			SELECT user_address, DENSE_RANK() OVER (ORDER BY total_portfolio_value DESC) AS new_rank
			FROM leaderboard
		) ranked
		WHERE leaderboard.user_address = ranked.user_address
	`
	if _, err := r.db.Pool().Exec(ctx, query); err != nil {
		return apperrors.NewDatabaseError("recomputeRanks", err)
	}
	return nil
}

func scanLeaderboardRow(row rowScanner) (*models.LeaderboardRow, error) {
	var out models.LeaderboardRow
	var portfolioValue, yieldEarned string

	err := row.Scan(
		&out.UserAddress,
		&portfolioValue,
		&yieldEarned,
		&out.PropertiesOwned,
		&out.Rank,
		&out.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseError("scanLeaderboardRow", err)
	}

	if out.TotalPortfolioValue, err = contracts.NormalizeNumeric(portfolioValue); err != nil {
		return nil, err
	}
	if out.TotalYieldEarned, err = contracts.NormalizeNumeric(yieldEarned); err != nil {
		return nil, err
	}
	return &out, nil
}
