package repository

import (
	"context"
	"fmt"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
)

// RewardRepository stores the purchase audit log.
type RewardRepository struct {
	db postgres.DBTX
}

func NewRewardRepository(db postgres.DBTX) *RewardRepository {
	return &RewardRepository{db: db}
}

// Create appends a purchase record.
func (r *RewardRepository) Create(ctx context.Context, p *entities.RewardPurchase) error {
	query := `
		INSERT INTO user_rewards (id, user_id, reward_id, reward_name, reward_type, cost_paid, purchased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query, p.ID, p.UserID, p.RewardID, p.RewardName, p.RewardType, p.CostPaid, p.PurchasedAt)
	if err != nil {
		return fmt.Errorf("create reward purchase: %w", err)
	}

	return nil
}

// ListByUser returns the purchases of a user, newest first.
func (r *RewardRepository) ListByUser(ctx context.Context, userID string) ([]*entities.RewardPurchase, error) {
	query := `
		SELECT id, user_id, reward_id, reward_name, reward_type, cost_paid, purchased_at
		FROM user_rewards
		WHERE user_id = $1
		ORDER BY purchased_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list reward purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]*entities.RewardPurchase, 0)
	for rows.Next() {
		var p entities.RewardPurchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.RewardID, &p.RewardName, &p.RewardType, &p.CostPaid, &p.PurchasedAt); err != nil {
			return nil, fmt.Errorf("scan reward purchase: %w", err)
		}
		purchases = append(purchases, &p)
	}

	return purchases, rows.Err()
}
