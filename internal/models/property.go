package models

import (
	"math/big"
	"time"
)

// RWALink is an optional association to a real-world-asset record whose
// value/yield supersede the property's own for accounting
type RWALink struct {
	Contract string   `json:"contract" db:"rwa_contract"`
	TokenID  *big.Int `json:"tokenId" db:"rwa_token_id"`
}

// PropertySnapshot is the chain-truth projection of a property. The cache row
// is a denormalized, possibly-stale copy keyed by token id; the chain is the
// source of truth and any field can be recomputed from it at any time.
type PropertySnapshot struct {
	TokenID *big.Int `json:"tokenId" db:"token_id"`
	// Owner is a lowercase-normalized hex address
	Owner        string `json:"owner" db:"owner"`
	PropertyType string `json:"propertyType" db:"property_type"`
	// Value is in the smallest unit (wei)
	Value *big.Int `json:"value" db:"value"`
	// YieldRateBasisPoints is normalized to [100, 10000] on every chain read
	YieldRateBasisPoints int64    `json:"yieldRateBasisPoints" db:"yield_rate_bps"`
	RWALink              *RWALink `json:"rwaLink,omitempty"`
	CreatedAt            int64    `json:"createdAt" db:"created_at"`
	// LastYieldUpdate is 0 when yield has never been distributed
	LastYieldUpdate int64     `json:"lastYieldUpdate" db:"last_yield_update"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// RWAAsset is the referenced real-world-asset record as read from the chain
type RWAAsset struct {
	Contract             string   `json:"contract"`
	TokenID              *big.Int `json:"tokenId"`
	Value                *big.Int `json:"value"`
	YieldRateBasisPoints int64    `json:"yieldRateBasisPoints"`
	Active               bool     `json:"active"`
}
