package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

// Notifier delivers streak reminders.
type Notifier struct {
	bot Bot
}

func NewNotifier(bot Bot) *Notifier {
	return &Notifier{bot: bot}
}

// SendStreakReminder sends the reminder and returns the id of the message.
func (n *Notifier) SendStreakReminder(chatID int64, reminder entities.StreakReminder) (int, error) {
	msg := newHTMLMessage(chatID, formatStreakReminder(reminder))

	sent, err := n.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send streak reminder: %w", err)
	}

	return sent.MessageID, nil
}

// DeleteMessage removes an earlier message from the chat.
func (n *Notifier) DeleteMessage(chatID int64, messageID int) error {
	if _, err := n.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
