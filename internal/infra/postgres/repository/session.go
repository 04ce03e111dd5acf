package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
)

var ErrSessionNotFound = errors.New("flashcard session not found")

// SessionRepository stores flashcard sessions.
type SessionRepository struct {
	db postgres.DBTX
}

func NewSessionRepository(db postgres.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session. Inserting an id that already exists is a no-op.
func (r *SessionRepository) Create(ctx context.Context, s *entities.FlashcardSession) error {
	cards, err := json.Marshal(s.Flashcards)
	if err != nil {
		return fmt.Errorf("encode flashcards: %w", err)
	}

	query := `
		INSERT INTO flashcard_sessions (id, user_id, title, original_text, flashcard_count, flashcards, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.db.Exec(ctx, query, s.ID, s.UserID, s.Title, s.OriginalText, s.FlashcardCount, cards, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create flashcard session: %w", err)
	}

	return nil
}

// GetByID retrieves a session with its cards.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.FlashcardSession, error) {
	query := `
		SELECT id, user_id, title, original_text, flashcard_count, flashcards, created_at
		FROM flashcard_sessions
		WHERE id = $1
	`

	s, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get flashcard session: %w", err)
	}

	return s, nil
}

// ListByUser returns the most recent sessions of a user, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.FlashcardSession, error) {
	query := `
		SELECT id, user_id, title, original_text, flashcard_count, flashcards, created_at
		FROM flashcard_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list flashcard sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*entities.FlashcardSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flashcard session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// Delete removes a session owned by userID. Deleting a missing session is a no-op.
func (r *SessionRepository) Delete(ctx context.Context, id, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM flashcard_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete flashcard session: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (*entities.FlashcardSession, error) {
	var s entities.FlashcardSession
	var cards []byte

	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.OriginalText, &s.FlashcardCount, &cards, &s.CreatedAt); err != nil {
		return nil, err
	}

	if len(cards) > 0 {
		if err := json.Unmarshal(cards, &s.Flashcards); err != nil {
			return nil, fmt.Errorf("decode flashcards: %w", err)
		}
	}

	return &s, nil
}
