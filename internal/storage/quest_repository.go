package storage

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/contracts"
	apperrors "github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/errors"
	"github.com/HACK3R-CRYPTO/property-tycoon-mantle-sub000/internal/models"
)

// QuestRepository persists quest completions keyed by (player, quest id)
type QuestRepository struct {
	db *PostgresDB
}

// NewQuestRepository creates a new quest repository
func NewQuestRepository(db *PostgresDB) *QuestRepository {
	return &QuestRepository{db: db}
}

// Upsert records a completion. Re-applying the same event keeps the original
// completion timestamp.
func (r *QuestRepository) Upsert(ctx context.Context, completion *models.QuestCompletion) error {
	completion.Player = strings.ToLower(completion.Player)
	completion.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO quest_completions (player, quest_id, completed_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player, quest_id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		completion.Player,
		completion.QuestID.String(),
		completion.CompletedAt,
		completion.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("upsertQuestCompletion", err)
	}
	return nil
}

// HasCompleted reports whether a player has a cached completion for a quest
func (r *QuestRepository) HasCompleted(ctx context.Context, player string, questID *big.Int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM quest_completions WHERE player = $1 AND quest_id = $2)`

	var done bool
	err := r.db.Pool().QueryRow(ctx, query, strings.ToLower(player), questID.String()).Scan(&done)
	if err != nil {
		return false, apperrors.NewDatabaseError("hasCompletedQuest", err)
	}
	return done, nil
}

// CompletionsByPlayer retrieves every cached completion for a player
func (r *QuestRepository) CompletionsByPlayer(ctx context.Context, player string) ([]*models.QuestCompletion, error) {
	query := `
		SELECT player, quest_id::text, completed_at, updated_at
		FROM quest_completions
		WHERE player = $1
		ORDER BY completed_at
	`
	rows, err := r.db.Pool().Query(ctx, query, strings.ToLower(player))
	if err != nil {
		return nil, apperrors.NewDatabaseError("questCompletionsByPlayer", err)
	}
	defer rows.Close()

	var completions []*models.QuestCompletion
	for rows.Next() {
		var completion models.QuestCompletion
		var questID string
		if err := rows.Scan(&completion.Player, &questID, &completion.CompletedAt, &completion.UpdatedAt); err != nil {
			return nil, apperrors.NewDatabaseError("questCompletionsByPlayer", err)
		}
		id, err := contracts.NormalizeNumeric(questID)
		if err != nil {
			return nil, err
		}
		completion.QuestID = id
		completions = append(completions, &completion)
	}
	return completions, rows.Err()
}
