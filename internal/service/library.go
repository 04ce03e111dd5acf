package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
)

const defaultSessionLimit = 20

// SaveSessionRequest stores the cards generated from one pasted text.
type SaveSessionRequest struct {
	UserID       string               `json:"userId" validate:"required"`
	Title        string               `json:"title"`
	OriginalText string               `json:"originalText" validate:"required"`
	Flashcards   []entities.Flashcard `json:"flashcards" validate:"required,min=1,dive"`
}

// ProfileRequest updates the public profile of a user.
type ProfileRequest struct {
	Username       string `json:"username" validate:"max=50"`
	Description    string `json:"description" validate:"max=500"`
	Country        string `json:"country" validate:"max=100"`
	AvatarURL      string `json:"avatar_url" validate:"omitempty,url"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
}

// LibraryService serves flashcard sessions, profiles and progress of a user.
type LibraryService struct {
	sessions  SessionRepository
	profiles  ProfileRepository
	progress  ProgressReader
	validator *RequestValidator
	logger    *zap.Logger
	now       func() time.Time
}

func NewLibraryService(
	sessions SessionRepository,
	profiles ProfileRepository,
	progress ProgressReader,
	validator *RequestValidator,
	logger *zap.Logger,
) *LibraryService {
	return &LibraryService{
		sessions:  sessions,
		profiles:  profiles,
		progress:  progress,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// SaveSession assigns an id and timestamp to a new session and stores it.
func (s *LibraryService) SaveSession(ctx context.Context, req SaveSessionRequest) (*entities.FlashcardSession, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	title := req.Title
	if title == "" {
		title = "Session " + now.Format("2006-01-02")
	}

	session := &entities.FlashcardSession{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		Title:          title,
		OriginalText:   req.OriginalText,
		FlashcardCount: len(req.Flashcards),
		Flashcards:     req.Flashcards,
		CreatedAt:      now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("flashcard session saved",
		zap.String("session_id", session.ID),
		zap.String("user_id", session.UserID),
		zap.Int("flashcards", session.FlashcardCount),
	)

	return session, nil
}

func (s *LibraryService) Session(ctx context.Context, id string) (*entities.FlashcardSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// Sessions lists the newest sessions of a user. A non-positive limit means the default.
func (s *LibraryService) Sessions(ctx context.Context, userID string, limit int) ([]*entities.FlashcardSession, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultSessionLimit
	}
	return s.sessions.ListByUser(ctx, userID, limit)
}

func (s *LibraryService) Profile(ctx context.Context, userID string) (*entities.Profile, error) {
	return s.profiles.GetByID(ctx, userID)
}

// SaveProfile creates or replaces the profile of userID and reports whether it was new.
func (s *LibraryService) SaveProfile(ctx context.Context, userID string, req ProfileRequest) (*entities.Profile, bool, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, false, err
	}

	p := &entities.Profile{
		ID:             userID,
		Username:       req.Username,
		Description:    req.Description,
		Country:        req.Country,
		AvatarURL:      req.AvatarURL,
		TelegramChatID: req.TelegramChatID,
	}

	created, err := s.profiles.Save(ctx, p)
	if err != nil {
		return nil, false, err
	}

	return p, created, nil
}

// LinkTelegramChat attaches chatID to the profile of userID, creating an
// empty profile if needed. A chat belongs to one profile at a time.
func (s *LibraryService) LinkTelegramChat(ctx context.Context, userID string, chatID int64) error {
	holder, err := s.profiles.GetByTelegramChatID(ctx, chatID)
	switch {
	case err == nil && holder.ID != userID:
		holder.TelegramChatID = nil
		if _, err := s.profiles.Save(ctx, holder); err != nil {
			return fmt.Errorf("unlink previous profile: %w", err)
		}
	case err != nil && !errors.Is(err, repository.ErrProfileNotFound):
		return err
	}

	p, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		p, err = &entities.Profile{ID: userID}, nil
	}
	if err != nil {
		return err
	}

	p.TelegramChatID = &chatID
	if _, err := s.profiles.Save(ctx, p); err != nil {
		return err
	}

	s.logger.Info("telegram chat linked", zap.String("user_id", userID), zap.Int64("chat_id", chatID))
	return nil
}

// UnlinkTelegramChat detaches chatID from its profile. Unknown chats are ignored.
func (s *LibraryService) UnlinkTelegramChat(ctx context.Context, chatID int64) error {
	p, err := s.profiles.GetByTelegramChatID(ctx, chatID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	p.TelegramChatID = nil
	_, err = s.profiles.Save(ctx, p)
	return err
}

// ProgressByChat returns the progress of the user linked to chatID.
func (s *LibraryService) ProgressByChat(ctx context.Context, chatID int64) (*entities.Profile, *entities.UserProgress, error) {
	p, err := s.profiles.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}

	progress, err := s.progress.GetOrCreate(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}

	return p, progress, nil
}

// Progress returns the progress of a user, starting a default record on first access.
func (s *LibraryService) Progress(ctx context.Context, userID string) (*entities.UserProgress, error) {
	return s.progress.GetOrCreate(ctx, userID)
}
