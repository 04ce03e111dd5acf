package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

// Bot is the part of the Telegram Bot API the handler uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

// AccountService links chats to users and reads their progress.
type AccountService interface {
	LinkTelegramChat(ctx context.Context, userID string, chatID int64) error
	UnlinkTelegramChat(ctx context.Context, chatID int64) error
	ProgressByChat(ctx context.Context, chatID int64) (*entities.Profile, *entities.UserProgress, error)
}

type Handler struct {
	bot      Bot
	logger   *zap.Logger
	accounts AccountService
}

func NewHandler(bot Bot, logger *zap.Logger, accounts AccountService) *Handler {
	return &Handler{
		bot:      bot,
		logger:   logger,
		accounts: accounts,
	}
}

// Commands is the command menu registered with Telegram.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Link this chat to your account"},
		{Command: "progress", Description: "Show coins, level and streak"},
		{Command: "stop", Description: "Stop streak reminders"},
		{Command: "help", Description: "Help"},
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		h.logger.Debug("update without message")
		return
	}

	h.logger.Debug("update received",
		zap.Int64("chat_id", update.Message.Chat.ID),
		zap.String("text", update.Message.Text),
	)

	chatID := update.Message.Chat.ID

	if !update.Message.IsCommand() {
		h.send(newHTMLMessage(chatID, msgHelp))
		return
	}

	switch update.Message.Command() {
	case "start":
		_ = h.withErrorHandling("start", h.handleStart(update.Message.CommandArguments()))(ctx, chatID)

	case "progress":
		_ = h.withErrorHandling("progress", h.handleProgress())(ctx, chatID)

	case "stop":
		_ = h.withErrorHandling("stop", h.handleStop())(ctx, chatID)

	case "help":
		h.send(newHTMLMessage(chatID, msgHelp))

	default:
		h.send(newHTMLMessage(chatID, msgUnknownCommand))
	}
}

func (h *Handler) sendError(chatID int64, err string) {
	h.send(newHTMLMessage(chatID, err))
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
	}
}
