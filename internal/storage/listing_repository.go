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

// ListingRepository persists marketplace listings keyed by listing id
type ListingRepository struct {
	db *PostgresDB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *PostgresDB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Upsert writes a listing row, replacing any previous state for the id
func (r *ListingRepository) Upsert(ctx context.Context, listing *models.Listing) error {
	listing.Seller = strings.ToLower(listing.Seller)
	listing.Buyer = strings.ToLower(listing.Buyer)
	listing.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO listings (listing_id, token_id, seller, price, active, buyer, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (listing_id) DO UPDATE SET
			token_id = EXCLUDED.token_id,
			seller = EXCLUDED.seller,
			price = EXCLUDED.price,
			active = EXCLUDED.active,
			buyer = EXCLUDED.buyer,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		listing.ListingID.String(),
		listing.TokenID.String(),
		listing.Seller,
		listing.Price.String(),
		listing.Active,
		listing.Buyer,
		listing.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("upsertListing", err)
	}
	return nil
}

// GetByListingID retrieves one listing
func (r *ListingRepository) GetByListingID(ctx context.Context, listingID *big.Int) (*models.Listing, error) {
	query := `
		SELECT listing_id::text, token_id::text, seller, price::text, active, buyer, updated_at
		FROM listings
		WHERE listing_id = $1
	`
	return scanListing(r.db.Pool().QueryRow(ctx, query, listingID.String()))
}

// ActiveListings retrieves all currently active listings
func (r *ListingRepository) ActiveListings(ctx context.Context) ([]*models.Listing, error) {
	query := `
		SELECT listing_id::text, token_id::text, seller, price::text, active, buyer, updated_at
		FROM listings
		WHERE active
		ORDER BY listing_id
	`
	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewDatabaseError("activeListings", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var listing models.Listing
	var listingID, tokenID, price string

	err := row.Scan(
		&listingID,
		&tokenID,
		&listing.Seller,
		&price,
		&listing.Active,
		&listing.Buyer,
		&listing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewDatabaseError("getListing", fmt.Errorf("listing not cached: %w", err))
		}
		return nil, apperrors.NewDatabaseError("getListing", err)
	}

	if listing.ListingID, err = contracts.NormalizeNumeric(listingID); err != nil {
		return nil, err
	}
	if listing.TokenID, err = contracts.NormalizeNumeric(tokenID); err != nil {
		return nil, err
	}
	if listing.Price, err = contracts.NormalizeNumeric(price); err != nil {
		return nil, err
	}
	return &listing, nil
}
