package entities

import "time"

// Reward is an item of the coin shop.
type Reward struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	NameAr        string `json:"name_ar"`
	Cost          int    `json:"cost"`
	Type          string `json:"type"`
	Description   string `json:"description"`
	DescriptionAr string `json:"description_ar"`
}

// RewardPurchase is the audit record of a completed purchase (remote table user_rewards).
type RewardPurchase struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RewardID    string    `json:"reward_id"`
	RewardName  string    `json:"reward_name"`
	RewardType  string    `json:"reward_type"`
	CostPaid    int       `json:"cost_paid"`
	PurchasedAt time.Time `json:"purchased_at"`
}
