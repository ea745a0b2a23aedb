package storage

import (
	"context"

	apperrors "github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// EventHistoryRepository appends decoded chain events to ClickHouse. The
// table is keyed by (tx_hash, log_index) with a replacing merge, so an event
// observed both live and by a scan collapses to one row.
type EventHistoryRepository struct {
	db *ClickHouseDB
}

// NewEventHistoryRepository creates a new event history repository
func NewEventHistoryRepository(db *ClickHouseDB) *EventHistoryRepository {
	return &EventHistoryRepository{db: db}
}

const insertChainEvent = `
	INSERT INTO chain_events (event_name, contract, tx_hash, block_number, log_index, token_id, subject, amount, observed_at, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Append writes one event row using an async insert; reconciliation
// throughput must not wait on analytical storage
func (r *EventHistoryRepository) Append(ctx context.Context, record *models.ChainEventRecord) error {
	err := r.db.Conn().AsyncInsert(ctx, insertChainEvent, false,
		record.EventName,
		record.Contract,
		record.TxHash,
		record.BlockNumber,
		uint32(record.LogIndex), // #nosec G115 - log index fits in 32 bits
		record.TokenID,
		record.Subject,
		record.Amount,
		record.ObservedAt,
		record.Source,
	)
	if err != nil {
		return apperrors.NewDatabaseError("appendChainEvent", err)
	}
	return nil
}

// BatchInsert inserts many event rows in one batch, used by backfills
func (r *EventHistoryRepository) BatchInsert(ctx context.Context, records []*models.ChainEventRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `INSERT INTO chain_events`)
	if err != nil {
		return apperrors.NewDatabaseError("prepareEventBatch", err)
	}
	for _, record := range records {
		err := batch.Append(
			record.EventName,
			record.Contract,
			record.TxHash,
			record.BlockNumber,
			uint32(record.LogIndex), // #nosec G115 - log index fits in 32 bits
			record.TokenID,
			record.Subject,
			record.Amount,
			record.ObservedAt,
			record.Source,
		)
		if err != nil {
			return apperrors.NewDatabaseError("appendEventBatch", err)
		}
	}
	if err := batch.Send(); err != nil {
		return apperrors.NewDatabaseError("sendEventBatch", err)
	}
	return nil
}
