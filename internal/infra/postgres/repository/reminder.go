package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
)

// ReminderRepository finds users to remind about their streak.
type ReminderRepository struct {
	db postgres.DBTX
}

func NewReminderRepository(db postgres.DBTX) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// GetStreaksAtRiskBatch returns users with a running streak whose last
// activity was the day before today and who linked a Telegram chat.
func (r *ReminderRepository) GetStreaksAtRiskBatch(ctx context.Context, today time.Time, limit, offset int) ([]*entities.StreakReminder, error) {
	query := `
		SELECT up.user_id, p.username, p.telegram_chat_id, up.streak_days, up.coins
		FROM user_progress up
		INNER JOIN profiles p ON p.id = up.user_id
		WHERE up.streak_days > 0
		  AND up.last_activity_date = $1::date - 1
		  AND p.telegram_chat_id IS NOT NULL
		ORDER BY up.user_id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, entities.TruncateDay(today), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get streaks at risk: %w", err)
	}
	defer rows.Close()

	reminders := make([]*entities.StreakReminder, 0, limit)
	for rows.Next() {
		var rem entities.StreakReminder
		if err := rows.Scan(&rem.UserID, &rem.Username, &rem.ChatID, &rem.StreakDays, &rem.Coins); err != nil {
			return nil, fmt.Errorf("scan streak reminder: %w", err)
		}
		reminders = append(reminders, &rem)
	}

	return reminders, rows.Err()
}
