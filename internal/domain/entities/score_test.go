package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateScore(t *testing.T) {
	t.Run("medium three of five", func(t *testing.T) {
		s, err := CalculateScore(DifficultyMedium, 3, 5)
		require.NoError(t, err)
		assert.Equal(t, 20, s.BasePoints)
		assert.Equal(t, 12, s.AccuracyBonus)
		assert.Equal(t, 32, s.Points)
		assert.InDelta(t, 60.0, s.Accuracy, 0.0001)
	})

	t.Run("hard perfect", func(t *testing.T) {
		s, err := CalculateScore(DifficultyHard, 4, 4)
		require.NoError(t, err)
		assert.Equal(t, 60, s.Points)
	})

	t.Run("unknown difficulty scores as easy", func(t *testing.T) {
		s, err := CalculateScore(Difficulty("legendary"), 0, 3)
		require.NoError(t, err)
		assert.Equal(t, 10, s.Points)
	})

	t.Run("zero questions", func(t *testing.T) {
		_, err := CalculateScore(DifficultyEasy, 0, 0)
		require.ErrorIs(t, err, ErrInvalidQuestionCount)
	})
}

func TestScenario_Validate(t *testing.T) {
	valid := Scenario{
		ID:         "easy-x",
		Difficulty: DifficultyEasy,
		Questions: []Question{
			{Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 3},
		},
	}
	require.NoError(t, valid.Validate())

	badIndex := valid
	badIndex.Questions = []Question{{Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 4}}
	assert.Error(t, badIndex.Validate())

	badOptions := valid
	badOptions.Questions = []Question{{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 0}}
	assert.Error(t, badOptions.Validate())

	badDifficulty := valid
	badDifficulty.Difficulty = "extreme"
	assert.Error(t, badDifficulty.Validate())
}
