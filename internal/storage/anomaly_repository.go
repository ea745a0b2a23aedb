package storage

import (
	"context"

	apperrors "github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// AnomalyRepository persists corruption guard findings to ClickHouse
type AnomalyRepository struct {
	db *ClickHouseDB
}

// NewAnomalyRepository creates a new anomaly repository
func NewAnomalyRepository(db *ClickHouseDB) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

const insertAnomaly = `
	INSERT INTO anomalies (id, context, raw_value, reason, rejected, observed_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// RecordAnomaly writes one guard finding using an async insert
func (r *AnomalyRepository) RecordAnomaly(ctx context.Context, record *models.AnomalyRecord) error {
	rejected := uint8(0)
	if record.Rejected {
		rejected = 1
	}
	err := r.db.Conn().AsyncInsert(ctx, insertAnomaly, false,
		record.ID,
		record.Context,
		record.RawValue,
		record.Reason,
		rejected,
		record.ObservedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("recordAnomaly", err)
	}
	return nil
}
