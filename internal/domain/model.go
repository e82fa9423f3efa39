package domain

import "time"

// Reward categories used for catalog filtering.
const (
	CategoryAll           = "all"
	CategoryFood          = "food"
	CategoryRetail        = "retail"
	CategoryTransport     = "transport"
	CategoryEntertainment = "entertainment"
)

// RialPerCoin converts walking coins into wallet credit.
const RialPerCoin = 10000

// Reward is a partner offer that can be bought with wallet credit.
type Reward struct {
	ID          int
	Title       string
	Description string
	Vendor      string
	Category    string
	Cost        int64 // rial
	Discount    string
	Icon        string
	Featured    bool
}

// Badge is an achievement with a completion percentage.
type Badge struct {
	ID          string
	Title       string
	Description string
	Icon        string
	Progress    int
}

// Unlocked reports whether the badge is complete.
func (b Badge) Unlocked() bool {
	return b.Progress == 100
}

// BadgeSummary aggregates badge progress.
type BadgeSummary struct {
	Total    int
	Unlocked int
	Percent  int
}

// Challenge is a time-boxed goal paying a coin reward.
type Challenge struct {
	ID          string
	Title       string
	Description string
	Icon        string
	Progress    int
	RewardCoins int
	EndDate     string
}

// RewardRial converts the coin reward into wallet credit.
func (c Challenge) RewardRial() int64 {
	return int64(c.RewardCoins) * RialPerCoin
}

// Route is a popular walking route shown on the explore screen.
type Route struct {
	Name       string
	Distance   string
	Time       string
	Popularity int
	Coins      int
}

// Event is a community walking event.
type Event struct {
	Title        string
	Date         string
	Location     string
	Participants int
	Coins        int
}

// HistoryItem summarises one completed walk.
type HistoryItem struct {
	ID            string
	TenantID      string
	UserID        string
	SessionID     string
	Date          time.Time
	Steps         int
	DistanceKm    float64
	Coins         int
	CO2SavedGrams float64
}

// Redemption is a reward purchased by a user.
type Redemption struct {
	ID         string
	TenantID   string
	UserID     string
	RewardID   int
	Title      string
	Vendor     string
	Discount   string
	Code       string
	Cost       int64
	RedeemedAt time.Time
	ExpiresAt  time.Time
	Used       bool
}

// LedgerKind classifies wallet movements.
type LedgerKind string

const (
	LedgerCredit LedgerKind = "credit"
	LedgerDebit  LedgerKind = "debit"
)

// LedgerEntry records one wallet movement.
type LedgerEntry struct {
	ID          string
	TenantID    string
	UserID      string
	Kind        LedgerKind
	Amount      int64 // rial, always positive
	Reference   string
	Description string
	CreatedAt   time.Time
}

// ProfileStats totals a user's walking history.
type ProfileStats struct {
	TotalSteps      int
	TotalDistanceKm float64
	TotalCoins      int
	CO2SavedGrams   float64
}

// Profile bundles everything the profile screen displays.
type Profile struct {
	Balance     int64
	Stats       ProfileStats
	History     []HistoryItem
	Redemptions []Redemption
}
