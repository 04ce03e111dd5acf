package entities

import "fmt"

// Difficulty is the difficulty tier of a scenario.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// OptionsPerQuestion is the fixed number of answer options.
const OptionsPerQuestion = 4

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Scenario is a themed set of multiple-choice questions at a fixed difficulty.
type Scenario struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	TitleAr       string     `json:"title_ar"`
	Description   string     `json:"description"`
	DescriptionAr string     `json:"description_ar"`
	Difficulty    Difficulty `json:"difficulty"`
	Icon          string     `json:"icon"`
	Points        int        `json:"points"`
	Questions     []Question `json:"questions"`
}

// Question is a single multiple-choice question with exactly one correct option.
type Question struct {
	Question      string   `json:"question"`
	QuestionAr    string   `json:"question_ar"`
	Options       []string `json:"options"`
	OptionsAr     []string `json:"options_ar"`
	CorrectAnswer int      `json:"correct_answer"`
}

// IsCorrect reports whether the chosen option index is the correct one.
func (q Question) IsCorrect(choice int) bool {
	return choice == q.CorrectAnswer
}

// Validate checks the structural invariants of a scenario.
func (s *Scenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scenario without id")
	}
	if !s.Difficulty.Valid() {
		return fmt.Errorf("scenario %s: unknown difficulty %q", s.ID, s.Difficulty)
	}
	if len(s.Questions) == 0 {
		return fmt.Errorf("scenario %s: no questions", s.ID)
	}
	for i, q := range s.Questions {
		if len(q.Options) != OptionsPerQuestion {
			return fmt.Errorf("scenario %s question %d: %d options", s.ID, i, len(q.Options))
		}
		if len(q.OptionsAr) != 0 && len(q.OptionsAr) != OptionsPerQuestion {
			return fmt.Errorf("scenario %s question %d: %d arabic options", s.ID, i, len(q.OptionsAr))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionsPerQuestion {
			return fmt.Errorf("scenario %s question %d: correct answer %d out of range", s.ID, i, q.CorrectAnswer)
		}
	}
	return nil
}
