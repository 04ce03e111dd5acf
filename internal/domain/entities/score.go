package entities

import (
	"errors"
	"time"
)

var ErrInvalidQuestionCount = errors.New("total questions must be positive")

// BasePoints returns the points awarded for finishing a scenario of the given
// difficulty. Unknown difficulties score as easy.
func BasePoints(d Difficulty) int {
	switch d {
	case DifficultyMedium:
		return 20
	case DifficultyHard:
		return 30
	default:
		return 10
	}
}

// Score is the outcome of a finished scenario test.
type Score struct {
	BasePoints    int
	AccuracyBonus int
	Points        int     // BasePoints + AccuracyBonus
	Accuracy      float64 // percentage, 0-100
}

// CalculateScore computes points for correct answers out of total.
// The accuracy bonus is floor(correct/total*base).
func CalculateScore(d Difficulty, correct, total int) (Score, error) {
	if total <= 0 {
		return Score{}, ErrInvalidQuestionCount
	}
	if correct < 0 {
		correct = 0
	}
	if correct > total {
		correct = total
	}

	base := BasePoints(d)
	bonus := correct * base / total

	return Score{
		BasePoints:    base,
		AccuracyBonus: bonus,
		Points:        base + bonus,
		Accuracy:      float64(correct) / float64(total) * 100,
	}, nil
}

// ScenarioAttempt is a recorded result of a scenario test (remote table user_scores).
type ScenarioAttempt struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	SessionID      string     `json:"session_id,omitempty"` // flashcard session the scenario was generated from
	ScenarioID     string     `json:"scenario_id"`
	Difficulty     Difficulty `json:"difficulty"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"total_questions"`
	CorrectAnswers int        `json:"correct_answers"`
	CreatedAt      time.Time  `json:"created_at"`
}
