package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
	"github.com/botaqiy/botaqiy/internal/storage"
)

var (
	ErrInvalidSyncItem     = errors.New("invalid sync item")
	ErrUnsupportedSyncItem = errors.New("unsupported sync item")
)

// SyncResult tells the device what became of a replayed item.
type SyncResult struct {
	ID        string `json:"id"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// syncPayload is the part every queued payload carries.
type syncPayload struct {
	UserID string `json:"user_id"`
}

type sessionRef struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// applyFunc performs one item inside tx. A non-empty reason means the item
// was consumed without effect.
type applyFunc func(ctx context.Context, tx pgx.Tx) (reason string, err error)

// SyncService replays queued device mutations against the database. Each
// item id is applied at most once.
type SyncService struct {
	tr     Transactor
	scores *ScoreService
	logger *zap.Logger
}

func NewSyncService(tr Transactor, scores *ScoreService, logger *zap.Logger) *SyncService {
	return &SyncService{
		tr:     tr,
		scores: scores,
		logger: logger,
	}
}

// Apply replays item. Items rejected for business reasons, such as a coin
// change the balance no longer covers, are acknowledged with Applied false
// so they do not block the rest of the queue.
func (s *SyncService) Apply(ctx context.Context, item entities.SyncQueueItem) (*SyncResult, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSyncItem, err)
	}

	var owner syncPayload
	if err := decodePayload(item.Payload, &owner); err != nil {
		return nil, err
	}
	if owner.UserID == "" {
		return nil, fmt.Errorf("%w: %s has no user_id", ErrInvalidSyncItem, item.ID)
	}

	apply, err := s.handler(item)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{ID: item.ID}
	err = s.tr.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		fresh, err := repository.NewSyncRepository(tx).MarkApplied(ctx, item.ID, owner.UserID)
		if err != nil {
			return err
		}
		if !fresh {
			result.Duplicate = true
			return nil
		}

		reason, err := apply(ctx, tx)
		if err != nil {
			return err
		}
		result.Reason = reason
		result.Applied = reason == ""
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply sync item %s: %w", item.ID, err)
	}

	switch {
	case result.Duplicate:
		s.logger.Debug("sync item already applied", zap.String("id", item.ID))
	case !result.Applied:
		s.logger.Warn("sync item skipped",
			zap.String("id", item.ID),
			zap.String("user_id", owner.UserID),
			zap.String("reason", result.Reason),
		)
	default:
		s.logger.Info("sync item applied",
			zap.String("id", item.ID),
			zap.String("action", string(item.Action)),
			zap.String("collection", item.Collection),
		)
	}

	return result, nil
}

// Replay applies item and satisfies the device sync queue's replayer.
func (s *SyncService) Replay(ctx context.Context, item entities.SyncQueueItem) error {
	_, err := s.Apply(ctx, item)
	return err
}

func (s *SyncService) handler(item entities.SyncQueueItem) (applyFunc, error) {
	switch {
	case item.Collection == storage.UserProgress && item.Action == entities.SyncActionUpdate:
		var delta entities.CoinsDelta
		if err := decodePayload(item.Payload, &delta); err != nil {
			return nil, err
		}
		return func(ctx context.Context, tx pgx.Tx) (string, error) {
			return applyCoinsDelta(ctx, tx, delta)
		}, nil

	case item.Collection == storage.FlashcardSessions && item.Action == entities.SyncActionCreate:
		var session entities.FlashcardSession
		if err := decodePayload(item.Payload, &session); err != nil {
			return nil, err
		}
		if session.ID == "" {
			return nil, fmt.Errorf("%w: session without id", ErrInvalidSyncItem)
		}
		if session.FlashcardCount == 0 {
			session.FlashcardCount = len(session.Flashcards)
		}
		if session.CreatedAt.IsZero() {
			session.CreatedAt = time.UnixMilli(item.Timestamp).UTC()
		}
		return func(ctx context.Context, tx pgx.Tx) (string, error) {
			return "", repository.NewSessionRepository(tx).Create(ctx, &session)
		}, nil

	case item.Collection == storage.FlashcardSessions && item.Action == entities.SyncActionDelete:
		var ref sessionRef
		if err := decodePayload(item.Payload, &ref); err != nil {
			return nil, err
		}
		if ref.ID == "" {
			return nil, fmt.Errorf("%w: session without id", ErrInvalidSyncItem)
		}
		return func(ctx context.Context, tx pgx.Tx) (string, error) {
			return "", repository.NewSessionRepository(tx).Delete(ctx, ref.ID, ref.UserID)
		}, nil

	case item.Collection == storage.Scenarios && item.Action == entities.SyncActionCreate:
		var attempt entities.ScenarioAttempt
		if err := decodePayload(item.Payload, &attempt); err != nil {
			return nil, err
		}
		if attempt.ScenarioID == "" || attempt.TotalQuestions <= 0 {
			return nil, fmt.Errorf("%w: incomplete scenario attempt", ErrInvalidSyncItem)
		}
		if attempt.ID == "" {
			attempt.ID = item.ID
		}
		at := attempt.CreatedAt
		if at.IsZero() {
			at = time.UnixMilli(item.Timestamp)
		}
		req := ScoreRequest{
			ScenarioID:     attempt.ScenarioID,
			Difficulty:     attempt.Difficulty,
			CorrectAnswers: attempt.CorrectAnswers,
			TotalQuestions: attempt.TotalQuestions,
			UserID:         attempt.UserID,
			SessionID:      attempt.SessionID,
		}
		return func(ctx context.Context, tx pgx.Tx) (string, error) {
			_, err := s.scores.recordTx(ctx, tx, attempt.ID, req, at)
			return "", err
		}, nil
	}

	return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedSyncItem, item.Action, item.Collection)
}

func applyCoinsDelta(ctx context.Context, tx pgx.Tx, delta entities.CoinsDelta) (string, error) {
	progress := repository.NewProgressRepository(tx)

	if _, err := progress.GetOrCreate(ctx, delta.UserID); err != nil {
		return "", err
	}

	_, err := progress.AddCoins(ctx, delta.UserID, delta.CoinsDelta)
	if errors.Is(err, entities.ErrInsufficientCoins) {
		return "insufficient coins", nil
	}
	return "", err
}

func decodePayload(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidSyncItem)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSyncItem, err)
	}
	return nil
}
