package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
)

type fakeBot struct {
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	sendErr  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.sendErr != nil {
		return tgbotapi.Message{}, b.sendErr
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, msg)
	}
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.updates
}

// MockAccountService is a mock implementation of AccountService.
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) LinkTelegramChat(ctx context.Context, userID string, chatID int64) error {
	return m.Called(ctx, userID, chatID).Error(0)
}

func (m *MockAccountService) UnlinkTelegramChat(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

func (m *MockAccountService) ProgressByChat(ctx context.Context, chatID int64) (*entities.Profile, *entities.UserProgress, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*entities.Profile), args.Get(1).(*entities.UserProgress), args.Error(2)
}

func command(chatID int64, text, cmd string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}},
	}}
}

func TestHandler_StartLinksChat(t *testing.T) {
	bot := &fakeBot{}
	accounts := new(MockAccountService)
	h := NewHandler(bot, zap.NewNop(), accounts)

	accounts.On("LinkTelegramChat", mock.Anything, "u-1", int64(9)).Return(nil)

	h.handleUpdate(context.Background(), command(9, "/start u-1", "start"))
	h.handleUpdate(context.Background(), command(9, "/start", "start"))

	require.Len(t, bot.sent, 2)
	assert.Equal(t, msgWelcome, bot.sent[0].Text)
	assert.Equal(t, msgMissingUserID, bot.sent[1].Text)
	accounts.AssertExpectations(t)
}

func TestHandler_Progress(t *testing.T) {
	bot := &fakeBot{}
	accounts := new(MockAccountService)
	h := NewHandler(bot, zap.NewNop(), accounts)

	accounts.On("ProgressByChat", mock.Anything, int64(9)).Return(
		&entities.Profile{ID: "u-1", Username: "<layla>"},
		&entities.UserProgress{UserID: "u-1", Coins: 250, Level: 3, StreakDays: 4},
		nil,
	).Once()
	accounts.On("ProgressByChat", mock.Anything, int64(10)).Return(nil, nil, repository.ErrProfileNotFound).Once()
	accounts.On("ProgressByChat", mock.Anything, int64(11)).Return(nil, nil, errors.New("connection refused")).Once()

	h.handleUpdate(context.Background(), command(9, "/progress", "progress"))
	h.handleUpdate(context.Background(), command(10, "/progress", "progress"))
	h.handleUpdate(context.Background(), command(11, "/progress", "progress"))

	require.Len(t, bot.sent, 3)
	assert.Contains(t, bot.sent[0].Text, "&lt;layla&gt;")
	assert.Contains(t, bot.sent[0].Text, "<b>Coins:</b> 250")
	assert.Contains(t, bot.sent[0].Text, "(50 / 100 to next)")
	assert.Equal(t, msgNotLinked, bot.sent[1].Text)
	assert.Equal(t, msgInternalError, bot.sent[2].Text)
}

func TestHandler_StopAndUnknown(t *testing.T) {
	bot := &fakeBot{}
	accounts := new(MockAccountService)
	h := NewHandler(bot, zap.NewNop(), accounts)

	accounts.On("UnlinkTelegramChat", mock.Anything, int64(9)).Return(nil)

	h.handleUpdate(context.Background(), command(9, "/stop", "stop"))
	h.handleUpdate(context.Background(), command(9, "/quiz", "quiz"))
	h.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 9}}})
	h.handleUpdate(context.Background(), tgbotapi.Update{})

	require.Len(t, bot.sent, 3)
	assert.Equal(t, msgUnlinked, bot.sent[0].Text)
	assert.Equal(t, msgUnknownCommand, bot.sent[1].Text)
	assert.Equal(t, msgHelp, bot.sent[2].Text)
}

func TestHandler_RunStopsWhenUpdatesClose(t *testing.T) {
	bot := &fakeBot{updates: make(chan tgbotapi.Update, 1)}
	h := NewHandler(bot, zap.NewNop(), new(MockAccountService))

	bot.updates <- tgbotapi.Update{}
	close(bot.updates)

	assert.NoError(t, h.Run(context.Background()))
}

func TestNotifier(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)

	id, err := n.SendStreakReminder(42, entities.StreakReminder{Username: "omar", StreakDays: 6, Coins: 120})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, tgbotapi.ModeHTML, bot.sent[0].ParseMode)
	assert.Contains(t, bot.sent[0].Text, "6-day streak")

	require.NoError(t, n.DeleteMessage(42, id))
	assert.Len(t, bot.requests, 1)

	bot.sendErr = errors.New("Forbidden: bot was blocked by the user")
	_, err = n.SendStreakReminder(42, entities.StreakReminder{})
	assert.Error(t, err)
}

func TestWithErrorHandling(t *testing.T) {
	bot := &fakeBot{}
	h := NewHandler(bot, zap.NewNop(), new(MockAccountService))

	ok := h.withErrorHandling("progress", func(context.Context, int64) error { return nil })
	canceled := h.withErrorHandling("progress", func(context.Context, int64) error {
		return fmt.Errorf("load progress: %w", context.Canceled)
	})
	failed := h.withErrorHandling("progress", func(context.Context, int64) error {
		return errors.New("connection refused")
	})

	require.NoError(t, ok(context.Background(), 5))
	require.NoError(t, canceled(context.Background(), 5))
	assert.Empty(t, bot.sent)

	require.NoError(t, failed(context.Background(), 5))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(5), bot.sent[0].ChatID)
	assert.Equal(t, msgInternalError, bot.sent[0].Text)
}
