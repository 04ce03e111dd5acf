package repository

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

//go:embed data/scenarios.json
var scenariosJSON []byte

// ScenarioRepository serves the built-in rule-based scenarios.
// The data is compiled into the binary and never changes at runtime.
type ScenarioRepository struct {
	scenarios []entities.Scenario
	byID      map[string]int
}

// NewScenarioRepository loads and validates the built-in scenarios.
func NewScenarioRepository() (*ScenarioRepository, error) {
	return newScenarioRepository(scenariosJSON)
}

func newScenarioRepository(data []byte) (*ScenarioRepository, error) {
	var wrapper struct {
		Scenarios []entities.Scenario `json:"scenarios"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenarios JSON: %w", err)
	}

	r := &ScenarioRepository{
		scenarios: wrapper.Scenarios,
		byID:      make(map[string]int, len(wrapper.Scenarios)),
	}
	for i := range r.scenarios {
		s := &r.scenarios[i]
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario id %s", s.ID)
		}
		r.byID[s.ID] = i
	}

	return r, nil
}

// GetAll returns every scenario in catalog order.
func (r *ScenarioRepository) GetAll() []entities.Scenario {
	out := make([]entities.Scenario, 0, len(r.scenarios))
	for _, s := range r.scenarios {
		out = append(out, cloneScenario(s))
	}
	return out
}

// GetByDifficulty returns the scenarios of one tier. Unknown tiers yield an empty list.
func (r *ScenarioRepository) GetByDifficulty(d entities.Difficulty) []entities.Scenario {
	out := make([]entities.Scenario, 0, 4)
	for _, s := range r.scenarios {
		if s.Difficulty == d {
			out = append(out, cloneScenario(s))
		}
	}
	return out
}

// GetByID looks a scenario up by id.
func (r *ScenarioRepository) GetByID(id string) (entities.Scenario, bool) {
	i, ok := r.byID[id]
	if !ok {
		return entities.Scenario{}, false
	}
	return cloneScenario(r.scenarios[i]), true
}

// cloneScenario copies the slices so callers cannot mutate the catalog.
func cloneScenario(s entities.Scenario) entities.Scenario {
	qs := make([]entities.Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		q.OptionsAr = append([]string(nil), q.OptionsAr...)
		qs[i] = q
	}
	s.Questions = qs
	return s
}
