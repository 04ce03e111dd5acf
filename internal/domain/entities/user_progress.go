package entities

import (
	"errors"
	"time"
)

// ErrInsufficientCoins is returned when a change would drive the balance below zero.
var ErrInsufficientCoins = errors.New("insufficient coins")

// CoinsPerLevel is the number of coins needed to advance one level.
const CoinsPerLevel = 100

// UserProgress stores the reward state of a single user.
type UserProgress struct {
	UserID           string     `json:"user_id"`
	Coins            int        `json:"coins"`       // never negative
	Level            int        `json:"level"`       // starts at 1
	StreakDays       int        `json:"streak_days"` // consecutive days with activity
	LastActivityDate *time.Time `json:"last_activity_date"`
}

// NewUserProgress creates the default progress record for a user.
func NewUserProgress(userID string) *UserProgress {
	return &UserProgress{
		UserID:     userID,
		Coins:      0,
		Level:      1,
		StreakDays: 0,
	}
}

// LevelForCoins maps a coin balance to a level: floor(coins/100)+1.
func LevelForCoins(coins int) int {
	if coins < 0 {
		coins = 0
	}
	return coins/CoinsPerLevel + 1
}

// ApplyCoins returns the balance after adding amount, or ErrInsufficientCoins
// when the result would be negative. The receiver is not modified.
func (p *UserProgress) ApplyCoins(amount int) (int, error) {
	newCoins := p.Coins + amount
	if newCoins < 0 {
		return p.Coins, ErrInsufficientCoins
	}
	return newCoins, nil
}

// RecordActivity updates the streak for activity on the given day (UTC).
//
// Activity on the same day as the last one leaves the streak unchanged,
// activity on the following day extends it, anything else restarts it at 1.
func (p *UserProgress) RecordActivity(now time.Time) {
	today := TruncateDay(now)

	switch {
	case p.LastActivityDate == nil:
		p.StreakDays = 1
	case TruncateDay(*p.LastActivityDate).Equal(today):
		if p.StreakDays == 0 {
			p.StreakDays = 1
		}
	case TruncateDay(*p.LastActivityDate).Equal(today.AddDate(0, 0, -1)):
		p.StreakDays++
	default:
		p.StreakDays = 1
	}

	p.LastActivityDate = &today
}

// StreakAtRisk reports whether the streak will be lost if the user does
// nothing today.
func (p *UserProgress) StreakAtRisk(now time.Time) bool {
	if p.StreakDays == 0 || p.LastActivityDate == nil {
		return false
	}
	yesterday := TruncateDay(now).AddDate(0, 0, -1)
	return TruncateDay(*p.LastActivityDate).Equal(yesterday)
}

// TruncateDay returns midnight UTC of the day t falls on.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
