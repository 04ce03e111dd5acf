package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

// ScenarioQuestions is the number of questions requested per generated scenario.
const ScenarioQuestions = 5

var (
	jsonArray  = regexp.MustCompile(`\[[\s\S]*\]`)
	jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)
)

// GenerateFlashcards asks the model for count Arabic flashcards about text.
func (c *Client) GenerateFlashcards(ctx context.Context, text string, count int, temperature float64) ([]entities.Flashcard, error) {
	system := fmt.Sprintf(
		"You are an expert at creating educational flashcards in Arabic. Generate %d flashcards from the provided text. "+
			"Each flashcard should have a question (front) and answer (back) in Arabic. "+
			"Focus on key concepts, vocabulary, and important information. "+
			`Return ONLY a JSON array of flashcards with this exact structure: [{"front": "question in Arabic", "back": "answer in Arabic", "difficulty": "easy|medium|hard"}]`,
		count,
	)

	content, err := c.Complete(ctx, system, text, temperature)
	if err != nil {
		return nil, err
	}

	match := jsonArray.FindString(content)
	if match == "" {
		return nil, ErrInvalidResponse
	}

	var cards []entities.Flashcard
	if err := json.Unmarshal([]byte(match), &cards); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return cards, nil
}

// GenerateScenario asks the model for a free-form scenario built around the
// fronts of the given cards.
func (c *Client) GenerateScenario(ctx context.Context, cards []entities.Flashcard, difficulty entities.Difficulty, temperature float64) (*entities.GeneratedScenario, error) {
	fronts := make([]string, 0, len(cards))
	for _, card := range cards {
		fronts = append(fronts, card.Front)
	}

	system := fmt.Sprintf(
		"You are an expert at creating realistic learning scenarios in Arabic. Based on the concepts: %s, "+
			"create a %s difficulty scenario where these concepts would naturally appear. "+
			"The scenario should be a real-world situation (conversation, exam, work situation, etc.). "+
			`Return ONLY a JSON object with this exact structure: {"title": "scenario title in Arabic", "description": "detailed scenario description in Arabic", "questions": [{"question": "question in Arabic", "options": ["option1", "option2", "option3", "option4"], "correctAnswer": 0}]}. `+
			"Create %d questions.",
		strings.Join(fronts, ", "), difficulty, ScenarioQuestions,
	)

	content, err := c.Complete(ctx, system, fmt.Sprintf("Generate a %s scenario", difficulty), temperature)
	if err != nil {
		return nil, err
	}

	match := jsonObject.FindString(content)
	if match == "" {
		return nil, ErrInvalidResponse
	}

	var scenario entities.GeneratedScenario
	if err := json.Unmarshal([]byte(match), &scenario); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return &scenario, nil
}
