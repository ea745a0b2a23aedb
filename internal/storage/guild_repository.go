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

// GuildRepository persists guild membership and derived guild rollups
type GuildRepository struct {
	db *PostgresDB
}

// NewGuildRepository creates a new guild repository
func NewGuildRepository(db *PostgresDB) *GuildRepository {
	return &GuildRepository{db: db}
}

// AddMember inserts a membership row, idempotently
func (r *GuildRepository) AddMember(ctx context.Context, guildID, member string) error {
	query := `
		INSERT INTO guild_members (guild_id, member_address, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, member_address) DO NOTHING
	`
	if _, err := r.db.Pool().Exec(ctx, query, guildID, strings.ToLower(member), time.Now().UTC()); err != nil {
		return apperrors.NewDatabaseError("addGuildMember", err)
	}
	return nil
}

// RemoveMember deletes a membership row
func (r *GuildRepository) RemoveMember(ctx context.Context, guildID, member string) error {
	query := `DELETE FROM guild_members WHERE guild_id = $1 AND member_address = $2`
	if _, err := r.db.Pool().Exec(ctx, query, guildID, strings.ToLower(member)); err != nil {
		return apperrors.NewDatabaseError("removeGuildMember", err)
	}
	return nil
}

// Members retrieves the member addresses of a guild
func (r *GuildRepository) Members(ctx context.Context, guildID string) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT member_address FROM guild_members WHERE guild_id = $1 ORDER BY member_address`, guildID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("guildMembers", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, apperrors.NewDatabaseError("guildMembers", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// UpsertStats writes one guild rollup row
func (r *GuildRepository) UpsertStats(ctx context.Context, stats *models.GuildStats) error {
	stats.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO guild_stats (guild_id, member_count, total_portfolio_value, total_yield_earned, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id) DO UPDATE SET
			member_count = EXCLUDED.member_count,
			total_portfolio_value = EXCLUDED.total_portfolio_value,
			total_yield_earned = EXCLUDED.total_yield_earned,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Pool().Exec(ctx, query,
		stats.GuildID,
		stats.MemberCount,
		stats.TotalPortfolioValue.String(),
		stats.TotalYieldEarned.String(),
		stats.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("upsertGuildStats", err)
	}
	return nil
}

// GetStats retrieves one guild rollup, nil when the guild has none
func (r *GuildRepository) GetStats(ctx context.Context, guildID string) (*models.GuildStats, error) {
	query := `
		SELECT guild_id, member_count, total_portfolio_value::text, total_yield_earned::text, updated_at
		FROM guild_stats
		WHERE guild_id = $1
	`
	var stats models.GuildStats
	var portfolioValue, yieldEarned string

	err := r.db.Pool().QueryRow(ctx, query, guildID).Scan(
		&stats.GuildID,
		&stats.MemberCount,
		&portfolioValue,
		&yieldEarned,
		&stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("getGuildStats", err)
	}

	if stats.TotalPortfolioValue, err = contracts.NormalizeNumeric(portfolioValue); err != nil {
		return nil, err
	}
	if stats.TotalYieldEarned, err = contracts.NormalizeNumeric(yieldEarned); err != nil {
		return nil, err
	}
	return &stats, nil
}
