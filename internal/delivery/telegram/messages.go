// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

const (
	msgWelcome        = "<b>بطاقي</b> is linked to this chat. You will get a reminder when your streak is about to end.\n\nUse /progress to see your coins, level and streak."
	msgHelp           = "Open the app and tap <b>Link Telegram</b>, or send <code>/start &lt;your user id&gt;</code>.\n\n/progress — coins, level and streak\n/stop — stop reminders"
	msgMissingUserID  = "Send <code>/start &lt;your user id&gt;</code> to link this chat."
	msgNotLinked      = "This chat is not linked to an account yet. Use /start first."
	msgUnlinked       = "Reminders stopped. Use /start to link this chat again."
	msgInternalError  = "Something went wrong. Please try again later."
	msgUnknownCommand = "Unknown command.\n\n/start — link this chat\n/progress — show progress\n/stop — stop reminders"
)

func displayName(username string) string {
	if username == "" {
		return "there"
	}
	return html.EscapeString(username)
}

func formatProgress(p *entities.Profile, progress *entities.UserProgress) string {
	inLevel := progress.Coins % entities.CoinsPerLevel

	return fmt.Sprintf(
		"<b>📊 Progress of %s</b>\n\n"+
			"%s\n\n"+
			"🪙 <b>Coins:</b> %d\n"+
			"⭐ <b>Level:</b> %d (%d / %d to next)\n"+
			"🔥 <b>Streak:</b> %d day(s)\n",
		displayName(p.Username),
		buildProgressBar(inLevel, entities.CoinsPerLevel, 20),
		progress.Coins,
		progress.Level,
		inLevel,
		entities.CoinsPerLevel,
		progress.StreakDays,
	)
}

func formatStreakReminder(r entities.StreakReminder) string {
	return fmt.Sprintf(
		"🔥 Hi %s, your <b>%d-day streak</b> ends tonight.\n\n"+
			"Finish one scenario today to keep it going. You have <b>%d</b> coins.",
		displayName(r.Username),
		r.StreakDays,
		r.Coins,
	)
}

// buildProgressBar creates ASCII progress bar.
func buildProgressBar(current, total, length int) string {
	if total == 0 {
		return strings.Repeat("░", length)
	}

	filled := int(float64(current) / float64(total) * float64(length))
	if filled > length {
		filled = length
	}

	empty := length - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return fmt.Sprintf("[%s]", bar)
}
