package reconciler

import (
	"context"
	"math/big"
	"strings"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// PropertyStore persists property snapshots keyed by token id
type PropertyStore interface {
	Upsert(ctx context.Context, snapshot *models.PropertySnapshot) error
	UpdateOwner(ctx context.Context, tokenID *big.Int, owner string) error
}

// ListingStore persists marketplace listings keyed by listing id
type ListingStore interface {
	Upsert(ctx context.Context, listing *models.Listing) error
}

// QuestStore persists quest completions keyed by (player, quest)
type QuestStore interface {
	Upsert(ctx context.Context, completion *models.QuestCompletion) error
}

// EventHistory appends decoded chain events to the analytical store
type EventHistory interface {
	Append(ctx context.Context, record *models.ChainEventRecord) error
}

// EventPublisher fans decoded events out to game services. Fire-and-forget;
// a publish failure never fails the handler.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.DomainEvent)
}

// RollupUpdater is the slice of the leaderboard service event handlers touch
type RollupUpdater interface {
	RecordYieldClaim(ctx context.Context, claim *models.YieldClaim) error
	RecomputeUser(ctx context.Context, user string) (*models.LeaderboardRow, error)
}

// YieldInvalidator drops stale cached yield amounts after a claim
type YieldInvalidator interface {
	InvalidateClaimableYield(ctx context.Context, tokenID *big.Int) error
}

// Handlers applies decoded contract events to the cache. Every handler is an
// idempotent upsert keyed by the on-chain id, so an event seen by both the
// live subscription and a later catch-up scan converges to the same row.
type Handlers struct {
	properties  PropertyStore
	listings    ListingStore
	quests      QuestStore
	history     EventHistory
	publisher   EventPublisher
	leaderboard RollupUpdater
	yieldCache  YieldInvalidator
	logger      *logging.Logger
}

// NewHandlers creates the event handler set. History, publisher and
// leaderboard may be nil when the corresponding sink is not wired.
func NewHandlers(properties PropertyStore, listings ListingStore, quests QuestStore, history EventHistory, publisher EventPublisher, leaderboard RollupUpdater, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		properties:  properties,
		listings:    listings,
		quests:      quests,
		history:     history,
		publisher:   publisher,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

// WithYieldCache wires the cache invalidated when a claim event lands
func (h *Handlers) WithYieldCache(cache YieldInvalidator) *Handlers {
	h.yieldCache = cache
	return h
}

// HandleLog dispatches one raw log to its handler. source is "live" or
// "scan". A returned error means the cache write failed and the surrounding
// scan must not advance its cursor past this log.
func (h *Handlers) HandleLog(ctx context.Context, log *ethtypes.Log, source string) error {
	if len(log.Topics) == 0 {
		return nil
	}

	switch log.Topics[0] {
	case contracts.TopicPropertyCreated:
		return h.handlePropertyCreated(ctx, log, source)
	case contracts.TopicTransfer:
		return h.handleTransfer(ctx, log, source)
	case contracts.TopicPropertyListed:
		return h.handlePropertyListed(ctx, log, source)
	case contracts.TopicPropertySold:
		return h.handlePropertySold(ctx, log, source)
	case contracts.TopicYieldClaimed:
		return h.handleYieldClaimed(ctx, log, source)
	case contracts.TopicQuestCompleted:
		return h.handleQuestCompleted(ctx, log, source)
	default:
		h.logger.WithField("topic", log.Topics[0].Hex()).Debug("Ignoring unwatched event topic")
		return nil
	}
}

func (h *Handlers) handlePropertyCreated(ctx context.Context, log *ethtypes.Log, source string) error {
	event, err := DecodePropertyCreated(log)
	if err != nil {
		h.logger.WithError(err).Warn("Dropping undecodable PropertyCreated log")
		return nil
	}

	now := time.Now().UTC()
	snapshot := &models.PropertySnapshot{
		TokenID:              event.TokenID,
		Owner:                event.Owner,
		PropertyType:         contracts.PropertyTypeName(event.PropertyType),
		Value:                event.Value,
		YieldRateBasisPoints: contracts.NormalizeYieldRate(event.YieldRateRaw, h.logger),
		CreatedAt:            now.Unix(),
		UpdatedAt:            now,
	}
	if err := h.properties.Upsert(ctx, snapshot); err != nil {
		return err
	}

	h.appendHistory(ctx, log, "PropertyCreated", event.TokenID.String(), event.Owner, event.Value.String(), source)
	h.publish(ctx, models.EventPropertyCreated, map[string]interface{}{
		"tokenId": event.TokenID.String(),
		"owner":   event.Owner,
		"value":   event.Value.String(),
	})
	h.recompute(ctx, event.Owner)
	return nil
}

func (h *Handlers) handleTransfer(ctx context.Context, log *ethtypes.Log, source string) error {
	event, err := DecodeTransfer(log)
	if err != nil {
		// ERC20 Transfer shares this topic hash; three-topic logs are routine
		h.logger.WithError(err).Debug("Dropping non-ERC721 Transfer log")
		return nil
	}
	// Mints are covered by PropertyCreated
	if event.From == zeroAddress {
		return nil
	}

	if err := h.properties.UpdateOwner(ctx, event.TokenID, event.To); err != nil {
		return err
	}

	h.appendHistory(ctx, log, "Transfer", event.TokenID.String(), event.To, "", source)
	h.publish(ctx, models.EventPropertyTransferred, map[string]interface{}{
		"tokenId": event.TokenID.String(),
		"from":    event.From,
		"to":      event.To,
	})
	h.recompute(ctx, event.From)
	h.recompute(ctx, event.To)
	return nil
}

func (h *Handlers) handlePropertyListed(ctx context.Context, log *ethtypes.Log, source string) error {
	event, err := DecodePropertyListed(log)
	if err != nil {
		h.logger.WithError(err).Warn("Dropping undecodable PropertyListed log")
		return nil
	}

	listing := &models.Listing{
		ListingID: event.ListingID,
		TokenID:   event.TokenID,
		Seller:    event.Seller,
		Price:     event.Price,
		Active:    true,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.listings.Upsert(ctx, listing); err != nil {
		return err
	}

	h.appendHistory(ctx, log, "PropertyListed", event.TokenID.String(), event.Seller, event.Price.String(), source)
	h.publish(ctx, models.EventListingChanged, map[string]interface{}{
		"listingId": event.ListingID.String(),
		"tokenId":   event.TokenID.String(),
		"seller":    event.Seller,
		"price":     event.Price.String(),
		"active":    true,
	})
	return nil
}

func (h *Handlers) handlePropertySold(ctx context.Context, log *ethtypes.Log, source string) error {
	event, err := DecodePropertySold(log)
	if err != nil {
		h.logger.WithError(err).Warn("Dropping undecodable PropertySold log")
		return nil
	}

	listing := &models.Listing{
		ListingID: event.ListingID,
		TokenID:   event.TokenID,
		Seller:    event.Seller,
		Price:     event.Price,
		Active:    false,
		Buyer:     event.Buyer,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.listings.Upsert(ctx, listing); err != nil {
		return err
	}
	if err := h.properties.UpdateOwner(ctx, event.TokenID, event.Buyer); err != nil {
		return err
	}

	h.appendHistory(ctx, log, "PropertySold", event.TokenID.String(), event.Buyer, event.Price.String(), source)
	h.publish(ctx, models.EventListingChanged, map[string]interface{}{
		"listingId": event.ListingID.String(),
		"tokenId":   event.TokenID.String(),
		"seller":    event.Seller,
		"buyer":     event.Buyer,
		"price":     event.Price.String(),
		"active":    false,
	})
	h.recompute(ctx, event.Seller)
	h.recompute(ctx, event.Buyer)
	return nil
}

func (h *Handlers) handleYieldClaimed(ctx context.Context, log *ethtypes.Log, source string) error {
	event, err := DecodeYieldClaimed(log)
	if err != nil {
		h.logger.WithError(err).Warn("Dropping undecodable YieldClaimed log")
		return nil
	}

	if h.leaderboard != nil {
		// Keyed by log position so the scan replaying a live-delivered claim
		// cannot double-count it. A guard rejection here is an anomaly in the
		// event itself, not a cache failure; the scan keeps going
		claim := &models.YieldClaim{
			TxHash:    strings.ToLower(log.TxHash.Hex()),
			LogIndex:  log.Index,
			TokenID:   event.TokenID,
			Claimant:  event.Claimant,
			AmountWei: event.Amount,
		}
		if err := h.leaderboard.RecordYieldClaim(ctx, claim); err != nil {
			h.logger.WithError(err).WithField("tokenId", event.TokenID.String()).Warn("Yield claim not recorded")
		}
	}

	if h.yieldCache != nil {
		// The claim resets the accrual window on chain; the cached amount is stale
		if err := h.yieldCache.InvalidateClaimableYield(ctx, event.TokenID); err != nil {
			h.logger.WithError(err).WithField("tokenId", event.TokenID.String()).Warn("Yield cache invalidation failed")
		}
	}

	h.appendHistory(ctx, log, "YieldClaimed", event.TokenID.String(), event.Claimant, event.Amount.String(), source)
	h.publish(ctx, models.EventYieldClaimed, map[string]interface{}{
		"tokenId":  event.TokenID.String(),
		"claimant": event.Claimant,
		"amount":   event.Amount.String(),
	})
	return nil
}

func (h *Handlers) handleQuestCompleted(ctx context.Context, log *ethtypes.Log, source string) error {
	event, err := DecodeQuestCompleted(log)
	if err != nil {
		h.logger.WithError(err).Warn("Dropping undecodable QuestCompleted log")
		return nil
	}

	completion := &models.QuestCompletion{
		Player:      event.Player,
		QuestID:     event.QuestID,
		CompletedAt: event.CompletedAt,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := h.quests.Upsert(ctx, completion); err != nil {
		return err
	}

	h.appendHistory(ctx, log, "QuestCompleted", event.QuestID.String(), event.Player, "", source)
	h.publish(ctx, models.EventQuestCompleted, map[string]interface{}{
		"player":      event.Player,
		"questId":     event.QuestID.String(),
		"completedAt": event.CompletedAt,
	})
	return nil
}

func (h *Handlers) appendHistory(ctx context.Context, log *ethtypes.Log, name, tokenID, subject, amount, source string) {
	if h.history == nil {
		return
	}
	record := &models.ChainEventRecord{
		EventName:   name,
		Contract:    strings.ToLower(log.Address.Hex()),
		TxHash:      strings.ToLower(log.TxHash.Hex()),
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
		TokenID:     tokenID,
		Subject:     subject,
		Amount:      amount,
		ObservedAt:  time.Now().UTC(),
		Source:      source,
	}
	if err := h.history.Append(ctx, record); err != nil {
		h.logger.WithError(err).Warn("Failed to append event history")
	}
}

func (h *Handlers) publish(ctx context.Context, eventType models.DomainEventType, payload map[string]interface{}) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(ctx, models.NewDomainEvent(eventType, payload))
}

func (h *Handlers) recompute(ctx context.Context, address string) {
	if h.leaderboard == nil || address == zeroAddress {
		return
	}
	if _, err := h.leaderboard.RecomputeUser(ctx, address); err != nil {
		h.logger.WithError(err).WithField("address", address).Warn("Leaderboard recompute failed after event")
	}
}
