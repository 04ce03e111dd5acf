package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

// PurchaseRequest is a request to buy a reward with coins.
type PurchaseRequest struct {
	UserID     string `json:"userId" validate:"required"`
	RewardID   string `json:"rewardId" validate:"required"`
	RewardName string `json:"rewardName" validate:"required"`
	RewardType string `json:"rewardType" validate:"required"`
	Cost       int    `json:"cost" validate:"gte=0"`
}

// PurchaseResult is the outcome of a purchase attempt. When Success is false
// the balance did not cover the cost and nothing changed.
type PurchaseResult struct {
	Success      bool
	NewCoins     int
	Message      string
	CurrentCoins int
	Required     int
}

// PurchaseService sells rewards for coins.
type PurchaseService struct {
	progress  PurchaseProgressRepository
	purchases PurchaseRepository
	catalog   RewardCatalog
	validator *RequestValidator
	logger    *zap.Logger
	now       func() time.Time
}

func NewPurchaseService(
	progress PurchaseProgressRepository,
	purchases PurchaseRepository,
	catalog RewardCatalog,
	validator *RequestValidator,
	logger *zap.Logger,
) *PurchaseService {
	return &PurchaseService{
		progress:  progress,
		purchases: purchases,
		catalog:   catalog,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Purchase deducts the cost in one conditional update. Recording the purchase
// afterwards is best-effort: a failed insert is logged and the deduction stands.
func (s *PurchaseService) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("processing purchase",
		zap.String("user_id", req.UserID),
		zap.String("reward_id", req.RewardID),
		zap.Int("cost", req.Cost),
	)

	newCoins, err := s.progress.DeductCoins(ctx, req.UserID, req.Cost)
	if err != nil {
		if !errors.Is(err, entities.ErrInsufficientCoins) {
			return nil, fmt.Errorf("deduct coins: %w", err)
		}

		current, err := s.progress.GetCoins(ctx, req.UserID)
		if err != nil {
			return nil, err
		}

		return &PurchaseResult{
			Success:      false,
			CurrentCoins: current,
			Required:     req.Cost,
		}, nil
	}

	purchase := &entities.RewardPurchase{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		RewardID:    req.RewardID,
		RewardName:  req.RewardName,
		RewardType:  req.RewardType,
		CostPaid:    req.Cost,
		PurchasedAt: s.now().UTC(),
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		s.logger.Warn("could not record purchase",
			zap.String("user_id", req.UserID),
			zap.String("reward_id", req.RewardID),
			zap.Error(err),
		)
	}

	s.logger.Info("purchase successful", zap.String("user_id", req.UserID), zap.Int("new_coins", newCoins))

	return &PurchaseResult{
		Success:  true,
		NewCoins: newCoins,
		Message:  fmt.Sprintf("Successfully purchased %s", req.RewardName),
	}, nil
}

// Rewards lists the shop catalog.
func (s *PurchaseService) Rewards() []entities.Reward {
	return s.catalog.GetAll()
}

// History lists the rewards a user bought, newest first.
func (s *PurchaseService) History(ctx context.Context, userID string) ([]*entities.RewardPurchase, error) {
	return s.purchases.ListByUser(ctx, userID)
}
