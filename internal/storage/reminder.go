package storage

import (
	"sync"
	"time"
)

// ReminderMessage is a streak reminder delivered to a chat.
type ReminderMessage struct {
	ChatID    int64
	MessageID int
	SentAt    time.Time
}

// SentOn reports whether the message was sent on the UTC day of t.
func (m ReminderMessage) SentOn(t time.Time) bool {
	y1, m1, d1 := m.SentAt.UTC().Date()
	y2, m2, d2 := t.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ReminderStorage keeps the last reminder per user in memory.
type ReminderStorage struct {
	mu       sync.RWMutex
	messages map[string]ReminderMessage
}

func NewReminderStorage() *ReminderStorage {
	return &ReminderStorage{
		messages: make(map[string]ReminderMessage),
	}
}

func (s *ReminderStorage) Get(userID string) (ReminderMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[userID]
	return msg, ok
}

func (s *ReminderStorage) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, userID)
}

// UpsertAndGetPrev stores msg and returns the message it replaced.
func (s *ReminderStorage) UpsertAndGetPrev(userID string, msg ReminderMessage) (prev ReminderMessage, hadPrev bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev = s.messages[userID]
	s.messages[userID] = msg

	return prev, hadPrev
}
