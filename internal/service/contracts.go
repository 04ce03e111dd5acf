package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/storage"
)

// Transactor runs fn inside a database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// RemoteProgressRepository is the remote progress table as seen by a device.
type RemoteProgressRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*entities.UserProgress, error)
	AddCoins(ctx context.Context, userID string, delta int) (*entities.UserProgress, error)
}

// LocalStore is the device-side cache.
type LocalStore interface {
	Put(ctx context.Context, collection string, record any) error
	Get(ctx context.Context, collection, key string, dest any) (bool, error)
}

// SyncEnqueuer records offline mutations for later replay.
type SyncEnqueuer interface {
	Enqueue(ctx context.Context, action entities.SyncAction, collection string, payload any) (entities.SyncQueueItem, error)
}

// OnlineChecker reports the current connectivity state.
type OnlineChecker interface {
	IsOnline() bool
}

// PurchaseProgressRepository is what the purchase flow needs from user_progress.
type PurchaseProgressRepository interface {
	DeductCoins(ctx context.Context, userID string, cost int) (int, error)
	GetCoins(ctx context.Context, userID string) (int, error)
}

// PurchaseRepository stores the purchase audit log.
type PurchaseRepository interface {
	Create(ctx context.Context, p *entities.RewardPurchase) error
	ListByUser(ctx context.Context, userID string) ([]*entities.RewardPurchase, error)
}

// RewardCatalog looks up shop items.
type RewardCatalog interface {
	GetAll() []entities.Reward
	GetByID(id string) (entities.Reward, bool)
}

// SessionRepository stores flashcard sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *entities.FlashcardSession) error
	GetByID(ctx context.Context, id string) (*entities.FlashcardSession, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.FlashcardSession, error)
}

// ProfileRepository stores user profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Profile, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*entities.Profile, error)
	Save(ctx context.Context, p *entities.Profile) (bool, error)
}

// Generator produces flashcards and scenarios with a language model.
type Generator interface {
	GenerateFlashcards(ctx context.Context, text string, count int, temperature float64) ([]entities.Flashcard, error)
	GenerateScenario(ctx context.Context, cards []entities.Flashcard, difficulty entities.Difficulty, temperature float64) (*entities.GeneratedScenario, error)
}

// GenerationCache remembers generation results.
type GenerationCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// StreakReminderRepository finds users whose streak ends unless they practice today.
type StreakReminderRepository interface {
	GetStreaksAtRiskBatch(ctx context.Context, today time.Time, limit, offset int) ([]*entities.StreakReminder, error)
}

// ReminderNotifier sends reminder notifications to users.
type ReminderNotifier interface {
	SendStreakReminder(chatID int64, reminder entities.StreakReminder) (messageID int, err error)
	DeleteMessage(chatID int64, messageID int) error
}

// ReminderLog remembers the last reminder message sent to each user.
type ReminderLog interface {
	Get(userID string) (storage.ReminderMessage, bool)
	UpsertAndGetPrev(userID string, msg storage.ReminderMessage) (prev storage.ReminderMessage, hadPrev bool)
}

// ProgressReader reads the progress row of a user, creating the default one.
type ProgressReader interface {
	GetOrCreate(ctx context.Context, userID string) (*entities.UserProgress, error)
}
