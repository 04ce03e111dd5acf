package entities

// Profile is the public profile of a user.
type Profile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Description    string `json:"description"`
	Country        string `json:"country"`
	AvatarURL      string `json:"avatar_url"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
}

// StreakReminder is the data needed to nudge a user whose streak is at risk.
type StreakReminder struct {
	UserID     string
	Username   string
	ChatID     int64
	StreakDays int
	Coins      int
}
