package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository provides access to user profiles.
type ProfileRepository struct {
	db postgres.DBTX
}

func NewProfileRepository(db postgres.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves a profile.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByTelegramChatID retrieves the profile linked to a Telegram chat.
func (r *ProfileRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*entities.Profile, error) {
	return r.getBy(ctx, "telegram_chat_id = $1", chatID)
}

func (r *ProfileRepository) getBy(ctx context.Context, cond string, arg any) (*entities.Profile, error) {
	query := `
		SELECT id, username, description, country, avatar_url, telegram_chat_id
		FROM profiles
		WHERE ` + cond

	var p entities.Profile
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.Username,
		&p.Description,
		&p.Country,
		&p.AvatarURL,
		&p.TelegramChatID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &p, nil
}

// Save inserts or updates a profile and reports whether it was created.
func (r *ProfileRepository) Save(ctx context.Context, p *entities.Profile) (bool, error) {
	query := `
		INSERT INTO profiles (id, username, description, country, avatar_url, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			description = EXCLUDED.description,
			country = EXCLUDED.country,
			avatar_url = EXCLUDED.avatar_url,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			updated_at = NOW()
		RETURNING (xmax = 0) AS created
	`

	var created bool
	err := r.db.QueryRow(ctx, query, p.ID, p.Username, p.Description, p.Country, p.AvatarURL, p.TelegramChatID).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("save profile: %w", err)
	}

	return created, nil
}
