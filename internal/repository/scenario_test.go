package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

func TestScenarioRepository_GetByID(t *testing.T) {
	repo, err := NewScenarioRepository()
	require.NoError(t, err)

	s, ok := repo.GetByID("easy-1")
	require.True(t, ok)
	assert.Equal(t, "At the Coffee Shop", s.Title)
	assert.Equal(t, entities.DifficultyEasy, s.Difficulty)
	require.Len(t, s.Questions, 3)
	for _, q := range s.Questions {
		assert.Len(t, q.Options, 4)
		assert.GreaterOrEqual(t, q.CorrectAnswer, 0)
		assert.LessOrEqual(t, q.CorrectAnswer, 3)
	}

	_, ok = repo.GetByID("nope")
	assert.False(t, ok)
}

func TestScenarioRepository_GetByDifficulty(t *testing.T) {
	repo, err := NewScenarioRepository()
	require.NoError(t, err)

	assert.Len(t, repo.GetAll(), 12)

	points := map[entities.Difficulty]int{
		entities.DifficultyEasy:   10,
		entities.DifficultyMedium: 20,
		entities.DifficultyHard:   30,
	}
	for d, p := range points {
		list := repo.GetByDifficulty(d)
		require.Len(t, list, 4, "difficulty %s", d)
		for _, s := range list {
			assert.Equal(t, p, s.Points)
		}
	}

	assert.Empty(t, repo.GetByDifficulty("extreme"))
}

func TestScenarioRepository_ReadOnly(t *testing.T) {
	repo, err := NewScenarioRepository()
	require.NoError(t, err)

	s, _ := repo.GetByID("medium-2")
	s.Questions[0].Options[0] = "changed"
	s.Title = "changed"

	again, _ := repo.GetByID("medium-2")
	assert.NotEqual(t, "changed", again.Title)
	assert.NotEqual(t, "changed", again.Questions[0].Options[0])
}

func TestNewScenarioRepository_RejectsInvalidData(t *testing.T) {
	_, err := newScenarioRepository([]byte(`{"scenarios":[{"id":"x","difficulty":"easy","questions":[{"question":"q","options":["a","b","c","d"],"correct_answer":7}]}]}`))
	assert.Error(t, err)

	_, err = newScenarioRepository([]byte(`not json`))
	assert.Error(t, err)
}

func TestRewardRepository(t *testing.T) {
	repo, err := NewRewardRepository()
	require.NoError(t, err)

	assert.Len(t, repo.GetAll(), 4)

	rw, ok := repo.GetByID("hint-pack")
	require.True(t, ok)
	assert.Equal(t, 150, rw.Cost)
	assert.Equal(t, "hint", rw.Type)

	_, ok = repo.GetByID("missing")
	assert.False(t, ok)
}
