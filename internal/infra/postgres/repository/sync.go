package repository

import (
	"context"
	"fmt"

	"github.com/botaqiy/botaqiy/internal/infra/postgres"
)

// SyncRepository remembers which queued client mutations were applied.
type SyncRepository struct {
	db postgres.DBTX
}

func NewSyncRepository(db postgres.DBTX) *SyncRepository {
	return &SyncRepository{db: db}
}

// MarkApplied records itemID and reports false if it was already recorded.
// Run it in the same transaction as the mutation it guards.
func (r *SyncRepository) MarkApplied(ctx context.Context, itemID, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO sync_applied_items (id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, itemID, userID)
	if err != nil {
		return false, fmt.Errorf("mark sync item applied: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
