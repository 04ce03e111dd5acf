package repository

import (
	"context"
	"fmt"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
)

// ScoreRepository records finished scenario tests.
type ScoreRepository struct {
	db postgres.DBTX
}

func NewScoreRepository(db postgres.DBTX) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Create inserts an attempt into user_scores.
func (r *ScoreRepository) Create(ctx context.Context, a *entities.ScenarioAttempt) error {
	query := `
		INSERT INTO user_scores (
			id, user_id, session_id, scenario_id, difficulty, score,
			total_questions, correct_answers, created_at
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.SessionID,
		a.ScenarioID,
		string(a.Difficulty),
		a.Score,
		a.TotalQuestions,
		a.CorrectAnswers,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create score: %w", err)
	}

	return nil
}
