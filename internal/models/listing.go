package models

import (
	"math/big"
	"time"
)

// Listing is a marketplace listing row keyed by on-chain listing id
type Listing struct {
	ListingID *big.Int `json:"listingId" db:"listing_id"`
	TokenID   *big.Int `json:"tokenId" db:"token_id"`
	// Seller is a lowercase-normalized hex address
	Seller string   `json:"seller" db:"seller"`
	Price  *big.Int `json:"price" db:"price"`
	Active bool     `json:"active" db:"active"`
	// Buyer is set when the listing was sold, empty otherwise
	Buyer     string    `json:"buyer,omitempty" db:"buyer"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// QuestCompletion is a quest completion row keyed by (player, quest id)
type QuestCompletion struct {
	Player      string    `json:"player" db:"player"`
	QuestID     *big.Int  `json:"questId" db:"quest_id"`
	CompletedAt int64     `json:"completedAt" db:"completed_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
