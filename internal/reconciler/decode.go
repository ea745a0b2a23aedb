package reconciler

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
)

// Decoded event payloads. Raw log words are decoded positionally; the ABI
// layout of each event is fixed by the deployed contracts.

type PropertyCreatedEvent struct {
	TokenID      *big.Int
	Owner        string
	PropertyType int64
	Value        *big.Int
	YieldRateRaw *big.Int
}

type TransferEvent struct {
	From    string
	To      string
	TokenID *big.Int
}

type ListingEvent struct {
	ListingID *big.Int
	TokenID   *big.Int
	Seller    string
	Price     *big.Int
}

type SaleEvent struct {
	ListingID *big.Int
	TokenID   *big.Int
	Seller    string
	Buyer     string
	Price     *big.Int
}

type YieldClaimedEvent struct {
	TokenID  *big.Int
	Claimant string
	Amount   *big.Int
}

type QuestCompletedEvent struct {
	Player      string
	QuestID     *big.Int
	CompletedAt int64
}

func topicUint(log *ethtypes.Log, i int) (*big.Int, error) {
	if i >= len(log.Topics) {
		return nil, fmt.Errorf("missing topic %d", i)
	}
	return new(big.Int).SetBytes(log.Topics[i].Bytes()), nil
}

func topicAddress(log *ethtypes.Log, i int) (string, error) {
	if i >= len(log.Topics) {
		return "", fmt.Errorf("missing topic %d", i)
	}
	return strings.ToLower(common.BytesToAddress(log.Topics[i].Bytes()).Hex()), nil
}

func dataUint(log *ethtypes.Log, i int) (*big.Int, error) {
	start := i * 32
	if len(log.Data) < start+32 {
		return nil, fmt.Errorf("log data too short for word %d", i)
	}
	return new(big.Int).SetBytes(log.Data[start : start+32]), nil
}

func dataAddress(log *ethtypes.Log, i int) (string, error) {
	word, err := dataUint(log, i)
	if err != nil {
		return "", err
	}
	return strings.ToLower(common.BigToAddress(word).Hex()), nil
}

// DecodePropertyCreated decodes PropertyCreated(tokenId idx, owner idx,
// propertyType, value, yieldRate)
func DecodePropertyCreated(log *ethtypes.Log) (*PropertyCreatedEvent, error) {
	tokenID, err := topicUint(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyCreated", log.Topics, err)
	}
	owner, err := topicAddress(log, 2)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyCreated", log.Topics, err)
	}
	propertyType, err := dataUint(log, 0)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyCreated", log.Data, err)
	}
	value, err := dataUint(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyCreated", log.Data, err)
	}
	rate, err := dataUint(log, 2)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyCreated", log.Data, err)
	}
	return &PropertyCreatedEvent{
		TokenID:      tokenID,
		Owner:        owner,
		PropertyType: propertyType.Int64(),
		Value:        value,
		YieldRateRaw: rate,
	}, nil
}

// DecodeTransfer decodes the ERC721 Transfer(from idx, to idx, tokenId idx)
func DecodeTransfer(log *ethtypes.Log) (*TransferEvent, error) {
	if len(log.Topics) != 4 {
		// Three topics is the ERC20 shape sharing the same signature hash
		return nil, errors.NewDecodingError("Transfer", log.Topics, fmt.Errorf("expected 4 topics, got %d", len(log.Topics)))
	}
	from, err := topicAddress(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("Transfer", log.Topics, err)
	}
	to, err := topicAddress(log, 2)
	if err != nil {
		return nil, errors.NewDecodingError("Transfer", log.Topics, err)
	}
	tokenID, err := topicUint(log, 3)
	if err != nil {
		return nil, errors.NewDecodingError("Transfer", log.Topics, err)
	}
	return &TransferEvent{From: from, To: to, TokenID: tokenID}, nil
}

// DecodePropertyListed decodes PropertyListed(listingId idx, tokenId idx,
// seller, price)
func DecodePropertyListed(log *ethtypes.Log) (*ListingEvent, error) {
	listingID, err := topicUint(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyListed", log.Topics, err)
	}
	tokenID, err := topicUint(log, 2)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyListed", log.Topics, err)
	}
	seller, err := dataAddress(log, 0)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyListed", log.Data, err)
	}
	price, err := dataUint(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("PropertyListed", log.Data, err)
	}
	return &ListingEvent{ListingID: listingID, TokenID: tokenID, Seller: seller, Price: price}, nil
}

// DecodePropertySold decodes PropertySold(listingId idx, tokenId idx, seller,
// buyer, price)
func DecodePropertySold(log *ethtypes.Log) (*SaleEvent, error) {
	listingID, err := topicUint(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("PropertySold", log.Topics, err)
	}
	tokenID, err := topicUint(log, 2)
	if err != nil {
		return nil, errors.NewDecodingError("PropertySold", log.Topics, err)
	}
	seller, err := dataAddress(log, 0)
	if err != nil {
		return nil, errors.NewDecodingError("PropertySold", log.Data, err)
	}
	buyer, err := dataAddress(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("PropertySold", log.Data, err)
	}
	price, err := dataUint(log, 2)
	if err != nil {
		return nil, errors.NewDecodingError("PropertySold", log.Data, err)
	}
	return &SaleEvent{ListingID: listingID, TokenID: tokenID, Seller: seller, Buyer: buyer, Price: price}, nil
}

// DecodeYieldClaimed decodes YieldClaimed(tokenId idx, claimant idx, amount)
func DecodeYieldClaimed(log *ethtypes.Log) (*YieldClaimedEvent, error) {
	tokenID, err := topicUint(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("YieldClaimed", log.Topics, err)
	}
	claimant, err := topicAddress(log, 2)
	if err != nil {
		return nil, errors.NewDecodingError("YieldClaimed", log.Topics, err)
	}
	amount, err := dataUint(log, 0)
	if err != nil {
		return nil, errors.NewDecodingError("YieldClaimed", log.Data, err)
	}
	return &YieldClaimedEvent{TokenID: tokenID, Claimant: claimant, Amount: amount}, nil
}

// DecodeQuestCompleted decodes QuestCompleted(player idx, questId idx,
// timestamp)
func DecodeQuestCompleted(log *ethtypes.Log) (*QuestCompletedEvent, error) {
	player, err := topicAddress(log, 1)
	if err != nil {
		return nil, errors.NewDecodingError("QuestCompleted", log.Topics, err)
	}
	questID, err := topicUint(log, 2)
	if err != nil {
		return nil, errors.NewDecodingError("QuestCompleted", log.Topics, err)
	}
	completedAt, err := dataUint(log, 0)
	if err != nil {
		return nil, errors.NewDecodingError("QuestCompleted", log.Data, err)
	}
	return &QuestCompletedEvent{Player: player, QuestID: questID, CompletedAt: completedAt.Int64()}, nil
}

// WatchedTopics is the topic0 filter for both the live subscription and the
// catch-up scan
func WatchedTopics() []common.Hash {
	return []common.Hash{
		contracts.TopicPropertyCreated,
		contracts.TopicTransfer,
		contracts.TopicPropertyListed,
		contracts.TopicPropertySold,
		contracts.TopicYieldClaimed,
		contracts.TopicQuestCompleted,
	}
}
