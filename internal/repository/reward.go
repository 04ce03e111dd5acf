package repository

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
)

//go:embed data/rewards.json
var rewardsJSON []byte

// RewardRepository serves the coin shop catalog.
type RewardRepository struct {
	rewards []entities.Reward
}

// NewRewardRepository loads the built-in reward catalog.
func NewRewardRepository() (*RewardRepository, error) {
	var wrapper struct {
		Rewards []entities.Reward `json:"rewards"`
	}
	if err := json.Unmarshal(rewardsJSON, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rewards JSON: %w", err)
	}
	for _, rw := range wrapper.Rewards {
		if rw.ID == "" || rw.Cost < 0 {
			return nil, fmt.Errorf("invalid reward %q", rw.ID)
		}
	}
	return &RewardRepository{rewards: wrapper.Rewards}, nil
}

// GetAll returns the catalog.
func (r *RewardRepository) GetAll() []entities.Reward {
	return append([]entities.Reward(nil), r.rewards...)
}

// GetByID looks a reward up by id.
func (r *RewardRepository) GetByID(id string) (entities.Reward, bool) {
	for _, rw := range r.rewards {
		if rw.ID == id {
			return rw, true
		}
	}
	return entities.Reward{}, false
}
