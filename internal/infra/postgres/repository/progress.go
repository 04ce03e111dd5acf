package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
)

var ErrProgressNotFound = errors.New("progress not found")

const progressColumns = `user_id, coins, level, streak_days, last_activity_date`

// ProgressRepository provides access to user progress data in the database.
type ProgressRepository struct {
	db postgres.DBTX
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(db postgres.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func scanProgress(row pgx.Row) (*entities.UserProgress, error) {
	var p entities.UserProgress
	if err := row.Scan(&p.UserID, &p.Coins, &p.Level, &p.StreakDays, &p.LastActivityDate); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get retrieves the progress of a user.
func (r *ProgressRepository) Get(ctx context.Context, userID string) (*entities.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1`

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	return p, nil
}

// GetOrCreate returns the progress of a user, inserting the default row
// first if there is none. Inside a transaction the row stays locked until
// commit.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID string) (*entities.UserProgress, error) {
	query := `
		INSERT INTO user_progress (user_id, coins, level, streak_days)
		VALUES ($1, 0, 1, 0)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + progressColumns

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get or create progress: %w", err)
	}

	return p, nil
}

// GetCoins returns the current balance of a user.
func (r *ProgressRepository) GetCoins(ctx context.Context, userID string) (int, error) {
	var coins int
	err := r.db.QueryRow(ctx, `SELECT coins FROM user_progress WHERE user_id = $1`, userID).Scan(&coins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProgressNotFound
		}
		return 0, fmt.Errorf("get coins: %w", err)
	}

	return coins, nil
}

// AddCoins changes the balance by delta in a single conditional update.
// It fails with entities.ErrInsufficientCoins when the balance would go
// negative and with ErrProgressNotFound when the user has no progress row.
func (r *ProgressRepository) AddCoins(ctx context.Context, userID string, delta int) (*entities.UserProgress, error) {
	query := `
		UPDATE user_progress
		SET coins = coins + $2, updated_at = NOW()
		WHERE user_id = $1 AND coins + $2 >= 0
		RETURNING ` + progressColumns

	p, err := scanProgress(r.db.QueryRow(ctx, query, userID, delta))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("add coins: %w", err)
	}

	if _, err := r.GetCoins(ctx, userID); err != nil {
		return nil, err
	}
	return nil, entities.ErrInsufficientCoins
}

// DeductCoins subtracts cost only if the balance covers it and returns the
// new balance. A missing row and a short balance both report
// entities.ErrInsufficientCoins; callers read the balance to tell them apart.
func (r *ProgressRepository) DeductCoins(ctx context.Context, userID string, cost int) (int, error) {
	query := `
		UPDATE user_progress
		SET coins = coins - $2, updated_at = NOW()
		WHERE user_id = $1 AND coins >= $2
		RETURNING coins
	`

	var coins int
	if err := r.db.QueryRow(ctx, query, userID, cost).Scan(&coins); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, entities.ErrInsufficientCoins
		}
		return 0, fmt.Errorf("deduct coins: %w", err)
	}

	return coins, nil
}

// Update overwrites the counters of an existing progress row.
func (r *ProgressRepository) Update(ctx context.Context, p *entities.UserProgress) error {
	query := `
		UPDATE user_progress
		SET coins = $2, level = $3, streak_days = $4, last_activity_date = $5, updated_at = $6
		WHERE user_id = $1
	`

	tag, err := r.db.Exec(ctx, query, p.UserID, p.Coins, p.Level, p.StreakDays, p.LastActivityDate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProgressNotFound
	}

	return nil
}
