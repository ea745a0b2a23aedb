package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
)

// CursorRepository persists named reconciliation cursors. A cursor records
// the last block whose events were fully applied; it never moves backwards.
type CursorRepository struct {
	db *PostgresDB
}

// NewCursorRepository creates a new cursor repository
func NewCursorRepository(db *PostgresDB) *CursorRepository {
	return &CursorRepository{db: db}
}

// Load reads a cursor. found is false when the cursor has never been saved.
func (r *CursorRepository) Load(ctx context.Context, name string) (uint64, bool, error) {
	var block uint64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT last_block FROM reconciler_progress WHERE name = $1`, name,
	).Scan(&block)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, apperrors.NewDatabaseError("loadCursor", err)
	}
	return block, true, nil
}

// Save advances a cursor. The GREATEST guard makes a stale writer harmless.
func (r *CursorRepository) Save(ctx context.Context, name string, block uint64) error {
	query := `
		INSERT INTO reconciler_progress (name, last_block, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			last_block = GREATEST(reconciler_progress.last_block, EXCLUDED.last_block),
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Pool().Exec(ctx, query, name, block, time.Now().UTC()); err != nil {
		return apperrors.NewDatabaseError("saveCursor", err)
	}
	return nil
}
