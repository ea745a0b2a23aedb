package models

import (
	"time"

	"github.com/google/uuid"
)

// DomainEventType enumerates the outbound notification types
type DomainEventType string

const (
	EventPropertyCreated     DomainEventType = "property.created"
	EventPropertyTransferred DomainEventType = "property.transferred"
	EventListingChanged      DomainEventType = "listing.changed"
	EventYieldClaimed        DomainEventType = "yield.claimed"
	EventQuestCompleted      DomainEventType = "quest.completed"
)

// DomainEvent is the envelope published to the outbound pub/sub transport.
// Delivery is fire-and-forget: a publish failure never rolls back the cache
// write that triggered it.
type DomainEvent struct {
	ID        string                 `json:"id"`
	Type      DomainEventType        `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	EmittedAt time.Time              `json:"emittedAt"`
}

// NewDomainEvent creates an event envelope with a fresh id
func NewDomainEvent(eventType DomainEventType, payload map[string]interface{}) *DomainEvent {
	return &DomainEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}
}

// ChainEventRecord is one decoded contract event appended to the analytical
// event history store
type ChainEventRecord struct {
	EventName   string    `json:"eventName"`
	Contract    string    `json:"contract"`
	TxHash      string    `json:"txHash"`
	BlockNumber uint64    `json:"blockNumber"`
	LogIndex    uint      `json:"logIndex"`
	TokenID     string    `json:"tokenId"`
	Subject     string    `json:"subject"`
	Amount      string    `json:"amount"`
	ObservedAt  time.Time `json:"observedAt"`
	// Source is "live" or "scan" depending on which reconciliation path saw it
	Source string `json:"source"`
}

// AnomalyRecord is a corruption-guard rejection or borderline acceptance,
// kept for diagnosis
type AnomalyRecord struct {
	ID         string    `json:"id"`
	Context    string    `json:"context"`
	RawValue   string    `json:"rawValue"`
	Reason     string    `json:"reason"`
	Rejected   bool      `json:"rejected"`
	ObservedAt time.Time `json:"observedAt"`
}
