package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
)

func (h *Handler) handleStart(args string) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		userID := strings.TrimSpace(args)
		if userID == "" {
			h.send(newHTMLMessage(chatID, msgMissingUserID))
			return nil
		}

		if err := h.accounts.LinkTelegramChat(ctx, userID, chatID); err != nil {
			return err
		}

		h.send(newHTMLMessage(chatID, msgWelcome))
		return nil
	}
}

func (h *Handler) handleProgress() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		profile, progress, err := h.accounts.ProgressByChat(ctx, chatID)
		if errors.Is(err, repository.ErrProfileNotFound) {
			h.send(newHTMLMessage(chatID, msgNotLinked))
			return nil
		}
		if err != nil {
			return err
		}

		h.send(newHTMLMessage(chatID, formatProgress(profile, progress)))
		return nil
	}
}

func (h *Handler) handleStop() HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		if err := h.accounts.UnlinkTelegramChat(ctx, chatID); err != nil {
			return err
		}

		h.send(newHTMLMessage(chatID, msgUnlinked))
		return nil
	}
}
