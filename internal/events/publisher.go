// Package events publishes reconciliation outcomes to game services over
// Redis pub/sub.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/logging"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// channelPrefix namespaces the outbound channels, one per event type
const channelPrefix = "tycoon:events:"

// Publisher fans domain events out over Redis pub/sub. Delivery is
// fire-and-forget: subscribers that need a complete view read the cache, the
// stream only wakes them up.
type Publisher struct {
	client *redis.Client
	logger *logging.Logger
}

// NewPublisher creates an event publisher
func NewPublisher(client *redis.Client, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Publisher{client: client, logger: logger}
}

// Channel returns the pub/sub channel for an event type
func Channel(eventType models.DomainEventType) string {
	return channelPrefix + string(eventType)
}

// Publish sends one event. Failures are logged and dropped; a publish error
// never rolls back the cache write that produced the event.
func (p *Publisher) Publish(ctx context.Context, event *models.DomainEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("type", string(event.Type)).Warn("Failed to encode domain event")
		return
	}

	if err := p.client.Publish(ctx, Channel(event.Type), payload).Err(); err != nil {
		p.logger.WithError(err).WithField("type", string(event.Type)).Warn("Failed to publish domain event")
		return
	}

	p.logger.WithFields(map[string]interface{}{
		"type": string(event.Type),
		"id":   event.ID,
	}).Debug("Published domain event")
}
