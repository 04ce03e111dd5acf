package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
)

// ScoreRequest reports a finished scenario test.
type ScoreRequest struct {
	ScenarioID     string              `json:"scenarioId" validate:"required"`
	Difficulty     entities.Difficulty `json:"difficulty"`
	CorrectAnswers int                 `json:"correctAnswers" validate:"gte=0"`
	TotalQuestions int                 `json:"totalQuestions"`
	UserID         string              `json:"userId" validate:"required"`
	SessionID      string              `json:"sessionId,omitempty"`
}

// ScoreResult is the reward granted for a test and the resulting balance.
type ScoreResult struct {
	Points     int     `json:"points"`
	NewCoins   int     `json:"newCoins"`
	NewLevel   int     `json:"newLevel"`
	Accuracy   float64 `json:"accuracy"`
	StreakDays int     `json:"streakDays"`
}

// ScoreService awards coins for finished scenario tests.
type ScoreService struct {
	tr        Transactor
	validator *RequestValidator
	logger    *zap.Logger
	now       func() time.Time
}

func NewScoreService(tr Transactor, validator *RequestValidator, logger *zap.Logger) *ScoreService {
	return &ScoreService{
		tr:        tr,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Record stores the attempt and credits its points in one transaction.
func (s *ScoreService) Record(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.TotalQuestions <= 0 {
		return nil, entities.ErrInvalidQuestionCount
	}

	var result *ScoreResult
	err := s.tr.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		result, err = s.recordTx(ctx, tx, uuid.NewString(), req, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("score recorded",
		zap.String("user_id", req.UserID),
		zap.String("scenario_id", req.ScenarioID),
		zap.Int("points", result.Points),
		zap.Int("new_coins", result.NewCoins),
	)

	return result, nil
}

// recordTx writes the attempt and updates coins, level and streak using tx.
func (s *ScoreService) recordTx(ctx context.Context, tx pgx.Tx, attemptID string, req ScoreRequest, at time.Time) (*ScoreResult, error) {
	score, err := entities.CalculateScore(req.Difficulty, req.CorrectAnswers, req.TotalQuestions)
	if err != nil {
		return nil, err
	}

	scores := repository.NewScoreRepository(tx)
	progressRepo := repository.NewProgressRepository(tx)

	attempt := &entities.ScenarioAttempt{
		ID:             attemptID,
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		ScenarioID:     req.ScenarioID,
		Difficulty:     req.Difficulty,
		Score:          score.Points,
		TotalQuestions: req.TotalQuestions,
		CorrectAnswers: req.CorrectAnswers,
		CreatedAt:      at.UTC(),
	}
	if err := scores.Create(ctx, attempt); err != nil {
		return nil, err
	}

	p, err := progressRepo.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	p.Coins += score.Points
	p.Level = entities.LevelForCoins(p.Coins)
	p.RecordActivity(at)

	if err := progressRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("apply score: %w", err)
	}

	return &ScoreResult{
		Points:     score.Points,
		NewCoins:   p.Coins,
		NewLevel:   p.Level,
		Accuracy:   score.Accuracy,
		StreakDays: p.StreakDays,
	}, nil
}
