package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/storage"
)

// ProgressService is the device-side view of one user's coins, level and
// streak. It reads the remote database when online and falls back to the
// local store otherwise. Failures are logged and leave the in-memory state
// untouched.
type ProgressService struct {
	remote RemoteProgressRepository
	local  LocalStore
	queue  SyncEnqueuer
	online OnlineChecker
	logger *zap.Logger

	mu       sync.Mutex
	progress entities.UserProgress
}

func NewProgressService(
	remote RemoteProgressRepository,
	local LocalStore,
	queue SyncEnqueuer,
	online OnlineChecker,
	logger *zap.Logger,
) *ProgressService {
	return &ProgressService{
		remote:   remote,
		local:    local,
		queue:    queue,
		online:   online,
		logger:   logger,
		progress: *entities.NewUserProgress(""),
	}
}

// Progress returns a snapshot of the in-memory progress.
func (s *ProgressService) Progress() entities.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *ProgressService) set(p entities.UserProgress) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

// Load refreshes the in-memory progress for userID. An empty userID reads the
// record cached for signed-out use.
func (s *ProgressService) Load(ctx context.Context, userID string) {
	if userID == "" {
		s.loadCached(ctx, storage.CurrentProgressKey)
		return
	}

	if !s.online.IsOnline() {
		s.loadCached(ctx, userID)
		return
	}

	p, err := s.remote.GetOrCreate(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load progress", zap.String("user_id", userID), zap.Error(err))
		return
	}

	p.UserID = userID
	s.set(*p)
	s.cache(ctx, *p)
}

// Refresh reloads the progress of userID.
func (s *ProgressService) Refresh(ctx context.Context, userID string) {
	s.Load(ctx, userID)
}

func (s *ProgressService) loadCached(ctx context.Context, key string) {
	var p entities.UserProgress
	found, err := s.local.Get(ctx, storage.UserProgress, key, &p)
	if err != nil {
		s.logger.Warn("local progress unavailable", zap.String("key", key), zap.Error(err))
		return
	}
	if found {
		s.set(p)
	}
}

func (s *ProgressService) cache(ctx context.Context, p entities.UserProgress) {
	if err := s.local.Put(ctx, storage.UserProgress, p); err != nil {
		s.logger.Warn("failed to cache progress", zap.String("user_id", p.UserID), zap.Error(err))
	}
}

// AdjustCoins changes the balance by amount. It returns false without any
// change when there is no user or the balance would become negative.
//
// Online the remote row is updated first. Offline the change is applied
// locally and queued for replay.
func (s *ProgressService) AdjustCoins(ctx context.Context, userID string, amount int) bool {
	if userID == "" {
		return false
	}

	current, ok := s.progressFor(ctx, userID)
	if !ok {
		return false
	}
	if _, err := current.ApplyCoins(amount); err != nil {
		return false
	}

	if s.online.IsOnline() {
		updated, err := s.remote.AddCoins(ctx, userID, amount)
		if err != nil {
			if !errors.Is(err, entities.ErrInsufficientCoins) {
				s.logger.Error("failed to update coins", zap.String("user_id", userID), zap.Error(err))
			}
			return false
		}

		updated.UserID = userID
		s.set(*updated)
		s.cache(ctx, *updated)
		return true
	}

	s.mu.Lock()
	if s.progress.UserID != userID {
		s.progress = current
	}
	newCoins, err := s.progress.ApplyCoins(amount)
	if err != nil {
		s.mu.Unlock()
		return false
	}
	s.progress.Coins = newCoins
	next := s.progress
	s.mu.Unlock()

	s.cache(ctx, next)

	delta := entities.CoinsDelta{UserID: userID, CoinsDelta: amount}
	if _, err := s.queue.Enqueue(ctx, entities.SyncActionUpdate, storage.UserProgress, delta); err != nil {
		s.logger.Error("failed to queue coin change", zap.String("user_id", userID), zap.Int("amount", amount), zap.Error(err))
	}

	return true
}

// progressFor returns the progress of userID, switching the in-memory record
// to that user when another one is loaded. Offline, a user with nothing cached
// starts from the default record.
func (s *ProgressService) progressFor(ctx context.Context, userID string) (entities.UserProgress, bool) {
	if p := s.Progress(); p.UserID == userID {
		return p, true
	}

	if s.online.IsOnline() {
		p, err := s.remote.GetOrCreate(ctx, userID)
		if err != nil {
			s.logger.Error("failed to load progress", zap.String("user_id", userID), zap.Error(err))
			return entities.UserProgress{}, false
		}
		p.UserID = userID
		s.set(*p)
		s.cache(ctx, *p)
		return *p, true
	}

	var p entities.UserProgress
	found, err := s.local.Get(ctx, storage.UserProgress, userID, &p)
	if err != nil {
		s.logger.Warn("local progress unavailable", zap.String("user_id", userID), zap.Error(err))
		return entities.UserProgress{}, false
	}
	if !found {
		p = *entities.NewUserProgress(userID)
	}
	s.set(p)
	return p, true
}

// AddCoins credits amount coins.
func (s *ProgressService) AddCoins(ctx context.Context, userID string, amount int) bool {
	return s.AdjustCoins(ctx, userID, amount)
}

// DeductCoins debits amount coins.
func (s *ProgressService) DeductCoins(ctx context.Context, userID string, amount int) bool {
	return s.AdjustCoins(ctx, userID, -amount)
}
