package entities

import "time"

// Flashcard is a single question/answer card produced from user text.
type Flashcard struct {
	Front      string     `json:"front"`
	Back       string     `json:"back"`
	Difficulty Difficulty `json:"difficulty"`
}

// FlashcardSession groups the cards generated from one pasted text.
type FlashcardSession struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Title          string      `json:"title"`
	OriginalText   string      `json:"original_text"`
	FlashcardCount int         `json:"flashcard_count"`
	Flashcards     []Flashcard `json:"flashcards"`
	CreatedAt      time.Time   `json:"created_at"`
}

// GeneratedQuestion is a question of a generated scenario.
type GeneratedQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// GeneratedScenario is a free-form scenario produced from a set of flashcards.
type GeneratedScenario struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Questions   []GeneratedQuestion `json:"questions"`
}
