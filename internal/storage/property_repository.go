package storage

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	apperrors "github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// PropertyRepository persists property snapshots keyed by token id
type PropertyRepository struct {
	db *PostgresDB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *PostgresDB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Upsert writes a snapshot, replacing any previous row for the token.
// Applying the same event twice converges to the same row.
func (r *PropertyRepository) Upsert(ctx context.Context, snapshot *models.PropertySnapshot) error {
	snapshot.Owner = strings.ToLower(snapshot.Owner)
	snapshot.UpdatedAt = time.Now().UTC()

	var rwaContract *string
	var rwaTokenID *string
	if snapshot.RWALink != nil {
		contract := strings.ToLower(snapshot.RWALink.Contract)
		tokenID := snapshot.RWALink.TokenID.String()
		rwaContract = &contract
		rwaTokenID = &tokenID
	}

	query := `
		INSERT INTO properties (token_id, owner, property_type, value, yield_rate_bps, rwa_contract, rwa_token_id, created_at, last_yield_update, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token_id) DO UPDATE SET
			owner = EXCLUDED.owner,
			property_type = EXCLUDED.property_type,
			value = EXCLUDED.value,
			yield_rate_bps = EXCLUDED.yield_rate_bps,
			rwa_contract = EXCLUDED.rwa_contract,
			rwa_token_id = EXCLUDED.rwa_token_id,
			last_yield_update = EXCLUDED.last_yield_update,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		snapshot.TokenID.String(),
		snapshot.Owner,
		snapshot.PropertyType,
		snapshot.Value.String(),
		snapshot.YieldRateBasisPoints,
		rwaContract,
		rwaTokenID,
		snapshot.CreatedAt,
		snapshot.LastYieldUpdate,
		snapshot.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("upsertProperty", err)
	}
	return nil
}

// UpdateOwner changes only the owner of a token, creating no row if the token
// is unknown
func (r *PropertyRepository) UpdateOwner(ctx context.Context, tokenID *big.Int, owner string) error {
	query := `UPDATE properties SET owner = $2, updated_at = $3 WHERE token_id = $1`
	_, err := r.db.Pool().Exec(ctx, query, tokenID.String(), strings.ToLower(owner), time.Now().UTC())
	if err != nil {
		return apperrors.NewDatabaseError("updatePropertyOwner", err)
	}
	return nil
}

// GetByTokenID retrieves one snapshot. Returns a database error wrapping
// pgx.ErrNoRows when the token is not cached.
func (r *PropertyRepository) GetByTokenID(ctx context.Context, tokenID *big.Int) (*models.PropertySnapshot, error) {
	query := `
		SELECT token_id::text, owner, property_type, value::text, yield_rate_bps, rwa_contract, rwa_token_id::text, created_at, last_yield_update, updated_at
		FROM properties
		WHERE token_id = $1
	`
	return r.scanOne(r.db.Pool().QueryRow(ctx, query, tokenID.String()))
}

// ListByOwner retrieves every cached snapshot for an owner
func (r *PropertyRepository) ListByOwner(ctx context.Context, owner string) ([]*models.PropertySnapshot, error) {
	query := `
		SELECT token_id::text, owner, property_type, value::text, yield_rate_bps, rwa_contract, rwa_token_id::text, created_at, last_yield_update, updated_at
		FROM properties
		WHERE owner = $1
		ORDER BY token_id
	`
	rows, err := r.db.Pool().Query(ctx, query, strings.ToLower(owner))
	if err != nil {
		return nil, apperrors.NewDatabaseError("listPropertiesByOwner", err)
	}
	defer rows.Close()

	var snapshots []*models.PropertySnapshot
	for rows.Next() {
		snapshot, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// DistinctOwners returns every address currently holding at least one cached
// property, for full leaderboard rebuilds
func (r *PropertyRepository) DistinctOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT DISTINCT owner FROM properties ORDER BY owner`)
	if err != nil {
		return nil, apperrors.NewDatabaseError("distinctOwners", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, apperrors.NewDatabaseError("distinctOwners", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PropertyRepository) scanOne(row rowScanner) (*models.PropertySnapshot, error) {
	var snapshot models.PropertySnapshot
	var tokenID, value string
	var rwaContract, rwaTokenID *string

	err := row.Scan(
		&tokenID,
		&snapshot.Owner,
		&snapshot.PropertyType,
		&value,
		&snapshot.YieldRateBasisPoints,
		&rwaContract,
		&rwaTokenID,
		&snapshot.CreatedAt,
		&snapshot.LastYieldUpdate,
		&snapshot.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewDatabaseError("getProperty", fmt.Errorf("property not cached: %w", err))
		}
		return nil, apperrors.NewDatabaseError("getProperty", err)
	}

	// Stored numerics round-trip through the same normalization as chain
	// reads, so a corrupted stored representation surfaces as a decoding
	// error instead of a silent zero
	if snapshot.TokenID, err = contracts.NormalizeNumeric(tokenID); err != nil {
		return nil, err
	}
	if snapshot.Value, err = contracts.NormalizeNumeric(value); err != nil {
		return nil, err
	}
	if rwaContract != nil && rwaTokenID != nil {
		linkToken, err := contracts.NormalizeNumeric(*rwaTokenID)
		if err != nil {
			return nil, err
		}
		snapshot.RWALink = &models.RWALink{Contract: *rwaContract, TokenID: linkToken}
	}
	return &snapshot, nil
}
