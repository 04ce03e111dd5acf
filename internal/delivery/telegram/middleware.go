package telegram

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// HandlerFunc handles one bot command for a chat.
type HandlerFunc func(ctx context.Context, chatID int64) error

// withErrorHandling logs a failed command and tells the chat something went
// wrong. Nothing is sent when the handler stopped because ctx was canceled.
func (h *Handler) withErrorHandling(command string, fn HandlerFunc) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		err := fn(ctx, chatID)
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) {
			h.logger.Debug("command canceled", zap.String("command", command), zap.Int64("chat_id", chatID))
			return nil
		}

		h.logger.Error("command failed",
			zap.String("command", command),
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		h.sendError(chatID, msgInternalError)
		return nil
	}
}
