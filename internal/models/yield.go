package models

import "math/big"

// YieldSource identifies which path produced a yield amount
type YieldSource string

const (
	// YieldOnChain means the yield distributor contract computed the amount
	YieldOnChain YieldSource = "ON_CHAIN"
	// YieldLocalFallback means the deterministic local formula computed it
	YieldLocalFallback YieldSource = "LOCAL_FALLBACK"
)

// YieldClaim is one on-chain claim identified by its log position. The
// (TxHash, LogIndex) pair is the identity: the same claim delivered by both
// the live subscription and a catch-up scan collapses to one record.
type YieldClaim struct {
	TxHash    string   `json:"txHash" db:"tx_hash"`
	LogIndex  uint     `json:"logIndex" db:"log_index"`
	TokenID   *big.Int `json:"tokenId" db:"token_id"`
	Claimant  string   `json:"claimant" db:"claimant"`
	AmountWei *big.Int `json:"amountWei" db:"amount"`
}

// YieldResult is the ephemeral outcome of one yield query. It is never
// persisted as authoritative; only a claimed amount (after an on-chain claim
// transaction) lands in the cache.
type YieldResult struct {
	PropertyID  *big.Int    `json:"propertyId"`
	AmountWei   *big.Int    `json:"amountWei"`
	ComputedVia YieldSource `json:"computedVia"`
	Rejected    bool        `json:"rejected"`
}
