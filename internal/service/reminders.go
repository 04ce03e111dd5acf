package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/storage"
)

const (
	reminderBatchSize     = 100
	reminderMaxConcurrent = 10
)

var ErrNotifierNotSet = errors.New("notifier not initialized")

// ReminderService nudges users whose streak ends unless they practice today.
type ReminderService struct {
	reminderRepo StreakReminderRepository
	sent         ReminderLog
	notifier     ReminderNotifier
	logger       *zap.Logger
	now          func() time.Time
}

// NewReminderService creates a new reminder service.
func NewReminderService(reminderRepo StreakReminderRepository, sent ReminderLog, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		reminderRepo: reminderRepo,
		sent:         sent,
		logger:       logger,
		now:          time.Now,
	}
}

// SetNotifier sets the notifier (called after the bot is created).
func (s *ReminderService) SetNotifier(notifier ReminderNotifier) {
	s.notifier = notifier
}

// Start runs the reminder job on schedule until ctx is done.
func (s *ReminderService) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(schedule, func() {
		s.logger.Info("cron triggered: sending streak reminders")
		if _, err := s.SendStreakReminders(ctx); err != nil {
			s.logger.Error("failed to send streak reminders", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("add reminder job %q: %w", schedule, err)
	}

	c.Start()
	s.logger.Info("reminder service started", zap.String("schedule", schedule))

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("reminder service stopped")

	return nil
}

// SendStreakReminders walks every at-risk user in batches and returns how
// many reminders were sent.
func (s *ReminderService) SendStreakReminders(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, ErrNotifierNotSet
	}

	now := s.now().UTC()
	offset := 0
	totalSent := 0

	for {
		reminders, err := s.reminderRepo.GetStreaksAtRiskBatch(ctx, now, reminderBatchSize, offset)
		if err != nil {
			return totalSent, fmt.Errorf("get streaks at risk batch: %w", err)
		}

		if len(reminders) == 0 {
			break
		}

		totalSent += s.processBatch(ctx, reminders, now)

		if len(reminders) < reminderBatchSize {
			break
		}

		offset += reminderBatchSize
	}

	s.logger.Info("streak reminders processed", zap.Int("total_sent", totalSent))

	return totalSent, nil
}

func (s *ReminderService) processBatch(ctx context.Context, reminders []*entities.StreakReminder, now time.Time) int {
	sem := make(chan struct{}, reminderMaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	sent := 0

	for _, rem := range reminders {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ok, err := s.processReminder(rem, now)
			if err != nil {
				s.logger.Error("failed to send streak reminder",
					zap.String("user_id", rem.UserID),
					zap.Error(err))
				return
			}
			if ok {
				mu.Lock()
				sent++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return sent
}

// processReminder sends one reminder unless the user already got one today.
// The previous reminder message is removed from the chat.
func (s *ReminderService) processReminder(rem *entities.StreakReminder, now time.Time) (bool, error) {
	if last, ok := s.sent.Get(rem.UserID); ok && last.SentOn(now) {
		s.logger.Debug("streak reminder already sent today", zap.String("user_id", rem.UserID))
		return false, nil
	}

	messageID, err := s.notifier.SendStreakReminder(rem.ChatID, *rem)
	if err != nil {
		return false, fmt.Errorf("send notification: %w", err)
	}

	prev, hadPrev := s.sent.UpsertAndGetPrev(rem.UserID, storage.ReminderMessage{
		ChatID:    rem.ChatID,
		MessageID: messageID,
		SentAt:    now,
	})
	if hadPrev && prev.MessageID != 0 {
		if err := s.notifier.DeleteMessage(prev.ChatID, prev.MessageID); err != nil {
			s.logger.Debug("failed to delete previous reminder",
				zap.String("user_id", rem.UserID),
				zap.Error(err))
		}
	}

	s.logger.Info("streak reminder sent",
		zap.String("user_id", rem.UserID),
		zap.Int("streak_days", rem.StreakDays),
	)

	return true, nil
}
