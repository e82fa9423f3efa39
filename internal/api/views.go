package api

import (
	"math"
	"time"

	"example.com/sabzgam/internal/accrual"
	"example.com/sabzgam/internal/domain"
)

// SessionView is the wire form of a walking session snapshot.
type SessionView struct {
	SessionID       string  `json:"session_id"`
	State           string  `json:"state"`
	IsRunning       bool    `json:"is_running"`
	StepCount       int     `json:"step_count"`
	CoinBalance     int     `json:"coin_balance"`
	CoinsEarned     int     `json:"coins_earned"`
	DistanceKm      float64 `json:"distance_km"`
	CO2SavedGrams   float64 `json:"co2_saved_grams"`
	ProgressPercent int     `json:"progress_percent"`
	DailyGoal       int     `json:"daily_goal"`
}

// CloseSessionResponse carries the final snapshot and the recorded walk, if any.
type CloseSessionResponse struct {
	Session SessionView  `json:"session"`
	Walk    *HistoryView `json:"walk"`
}

// HistoryView is one completed walk.
type HistoryView struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Date          time.Time `json:"date"`
	Steps         int       `json:"steps"`
	DistanceKm    float64   `json:"distance_km"`
	Coins         int       `json:"coins"`
	CO2SavedGrams float64   `json:"co2_saved_grams"`
}

// RewardView is a catalog reward.
type RewardView struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Vendor      string `json:"vendor"`
	Category    string `json:"category"`
	Cost        int64  `json:"cost"`
	Discount    string `json:"discount"`
	Icon        string `json:"icon"`
}

// RewardListResponse is returned by GET /v1/rewards.
type RewardListResponse struct {
	Rewards  []RewardView `json:"rewards"`
	Featured []RewardView `json:"featured"`
}

// RedemptionView is an issued voucher.
type RedemptionView struct {
	ID         string    `json:"id"`
	RewardID   int       `json:"reward_id"`
	Title      string    `json:"title"`
	Vendor     string    `json:"vendor"`
	Discount   string    `json:"discount"`
	Code       string    `json:"code"`
	Cost       int64     `json:"cost"`
	RedeemedAt time.Time `json:"redeemed_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Used       bool      `json:"used"`
}

// RedeemResponse is returned by POST /v1/rewards/{id}/redeem.
type RedeemResponse struct {
	Redemption RedemptionView `json:"redemption"`
	Balance    int64          `json:"balance"`
}

// InsufficientBalanceResponse extends the error body with the amounts involved.
type InsufficientBalanceResponse struct {
	Type      string `json:"type"`
	Detail    string `json:"detail"`
	Balance   int64  `json:"balance"`
	Cost      int64  `json:"cost"`
	Shortfall int64  `json:"shortfall"`
}

// WalletResponse is returned by GET /v1/wallet. Balances are in rial.
type WalletResponse struct {
	Balance     int64 `json:"balance"`
	RialPerCoin int64 `json:"rial_per_coin"`
}

// ProfileStatsView totals the returned history.
type ProfileStatsView struct {
	TotalSteps      int     `json:"total_steps"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	TotalCoins      int     `json:"total_coins"`
	CO2SavedGrams   float64 `json:"co2_saved_grams"`
}

// ProfileResponse is returned by GET /v1/profile.
type ProfileResponse struct {
	Balance     int64            `json:"balance"`
	Stats       ProfileStatsView `json:"stats"`
	History     []HistoryView    `json:"history"`
	Redemptions []RedemptionView `json:"redemptions"`
}

// BadgeView is an achievement badge.
type BadgeView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Progress    int    `json:"progress"`
	Unlocked    bool   `json:"unlocked"`
}

// ChallengeView is an active challenge.
type ChallengeView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Progress    int    `json:"progress"`
	RewardCoins int    `json:"reward_coins"`
	RewardRial  int64  `json:"reward_rial"`
	EndDate     string `json:"end_date"`
}

// AchievementsResponse is returned by GET /v1/achievements.
type AchievementsResponse struct {
	Badges     []BadgeView     `json:"badges"`
	Summary    BadgeSummary    `json:"summary"`
	Challenges []ChallengeView `json:"challenges"`
}

// BadgeSummary counts unlocked badges.
type BadgeSummary struct {
	Total    int `json:"total"`
	Unlocked int `json:"unlocked"`
	Percent  int `json:"percent"`
}

// RouteView is a popular walking route.
type RouteView struct {
	Name       string `json:"name"`
	Distance   string `json:"distance"`
	Time       string `json:"time"`
	Popularity int    `json:"popularity"`
	Coins      int    `json:"coins"`
}

// EventView is a community walking event.
type EventView struct {
	Title        string `json:"title"`
	Date         string `json:"date"`
	Location     string `json:"location"`
	Participants int    `json:"participants"`
	Coins        int    `json:"coins"`
}

// ExploreResponse is returned by GET /v1/explore.
type ExploreResponse struct {
	Routes []RouteView `json:"routes"`
	Events []EventView `json:"events"`
}

// roundTo rounds v to the given number of decimals for display.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

func toSessionView(s accrual.Snapshot) SessionView {
	return SessionView{
		SessionID:       s.SessionID,
		State:           string(s.State()),
		IsRunning:       s.IsRunning,
		StepCount:       s.StepCount,
		CoinBalance:     s.CoinBalance,
		CoinsEarned:     s.CoinsEarned,
		DistanceKm:      roundTo(s.DistanceKm, 2),
		CO2SavedGrams:   roundTo(s.CO2SavedGrams, 0),
		ProgressPercent: s.ProgressPercent,
		DailyGoal:       s.DailyGoal,
	}
}

func toHistoryView(h domain.HistoryItem) HistoryView {
	return HistoryView{
		ID:            h.ID,
		SessionID:     h.SessionID,
		Date:          h.Date,
		Steps:         h.Steps,
		DistanceKm:    roundTo(h.DistanceKm, 2),
		Coins:         h.Coins,
		CO2SavedGrams: roundTo(h.CO2SavedGrams, 0),
	}
}

func toRewardViews(rewards []domain.Reward) []RewardView {
	out := make([]RewardView, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, RewardView{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Vendor:      r.Vendor,
			Category:    r.Category,
			Cost:        r.Cost,
			Discount:    r.Discount,
			Icon:        r.Icon,
		})
	}
	return out
}

func toRedemptionView(r domain.Redemption) RedemptionView {
	return RedemptionView{
		ID:         r.ID,
		RewardID:   r.RewardID,
		Title:      r.Title,
		Vendor:     r.Vendor,
		Discount:   r.Discount,
		Code:       r.Code,
		Cost:       r.Cost,
		RedeemedAt: r.RedeemedAt,
		ExpiresAt:  r.ExpiresAt,
		Used:       r.Used,
	}
}

func toProfileResponse(p domain.Profile) ProfileResponse {
	resp := ProfileResponse{
		Balance: p.Balance,
		Stats: ProfileStatsView{
			TotalSteps:      p.Stats.TotalSteps,
			TotalDistanceKm: roundTo(p.Stats.TotalDistanceKm, 2),
			TotalCoins:      p.Stats.TotalCoins,
			CO2SavedGrams:   roundTo(p.Stats.CO2SavedGrams, 0),
		},
		History:     make([]HistoryView, 0, len(p.History)),
		Redemptions: make([]RedemptionView, 0, len(p.Redemptions)),
	}
	for _, h := range p.History {
		resp.History = append(resp.History, toHistoryView(h))
	}
	for _, r := range p.Redemptions {
		resp.Redemptions = append(resp.Redemptions, toRedemptionView(r))
	}
	return resp
}

func toAchievementsResponse(a domain.Achievements) AchievementsResponse {
	resp := AchievementsResponse{
		Badges: make([]BadgeView, 0, len(a.Badges)),
		Summary: BadgeSummary{
			Total:    a.Summary.Total,
			Unlocked: a.Summary.Unlocked,
			Percent:  a.Summary.Percent,
		},
		Challenges: make([]ChallengeView, 0, len(a.Challenges)),
	}
	for _, b := range a.Badges {
		resp.Badges = append(resp.Badges, BadgeView{
			ID:          b.ID,
			Title:       b.Title,
			Description: b.Description,
			Icon:        b.Icon,
			Progress:    b.Progress,
			Unlocked:    b.Unlocked(),
		})
	}
	for _, c := range a.Challenges {
		resp.Challenges = append(resp.Challenges, ChallengeView{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Icon:        c.Icon,
			Progress:    c.Progress,
			RewardCoins: c.RewardCoins,
			RewardRial:  c.RewardRial(),
			EndDate:     c.EndDate,
		})
	}
	return resp
}

func toExploreResponse(e domain.Explore) ExploreResponse {
	resp := ExploreResponse{
		Routes: make([]RouteView, 0, len(e.Routes)),
		Events: make([]EventView, 0, len(e.Events)),
	}
	for _, r := range e.Routes {
		resp.Routes = append(resp.Routes, RouteView(r))
	}
	for _, ev := range e.Events {
		resp.Events = append(resp.Events, EventView(ev))
	}
	return resp
}
