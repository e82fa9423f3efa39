// Package events defines the event payloads published through the outbox.
package events

import "time"

// Event types.
const (
	TypeWalletCredited = "wallet.credited"
	TypeRewardRedeemed = "reward.redeemed"
	TypeWalkCompleted  = "walk.completed"
)

// Topics.
const (
	TopicWallet = "sabzgam.wallet"
	TopicWalks  = "sabzgam.walks"
)

// WalletCredited is emitted when walking coins are converted into wallet credit.
type WalletCredited struct {
	EntryID    string    `json:"entry_id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	AmountRial int64     `json:"amount_rial"`
	Balance    int64     `json:"balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RewardRedeemed is emitted when a reward is bought with wallet credit.
type RewardRedeemed struct {
	RedemptionID string    `json:"redemption_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	RewardID     int       `json:"reward_id"`
	CostRial     int64     `json:"cost_rial"`
	Balance      int64     `json:"balance"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// WalkCompleted is emitted when a walking session is torn down with progress.
type WalkCompleted struct {
	HistoryID     string    `json:"history_id"`
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	Steps         int       `json:"steps"`
	DistanceKm    float64   `json:"distance_km"`
	CO2SavedGrams float64   `json:"co2_saved_grams"`
	Coins         int       `json:"coins"`
	OccurredAt    time.Time `json:"occurred_at"`
}
