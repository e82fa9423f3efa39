// Package domain defines the wallet, reward and achievement logic of the service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/sabzgam/internal/accrual"
	"example.com/sabzgam/internal/observability"
)

var (
	// ErrRewardNotFound is returned when the requested reward is not in the catalog.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrRedemptionNotFound is returned when a redemption cannot be located.
	ErrRedemptionNotFound = errors.New("redemption not found")
	// ErrRedemptionUsed is returned when a redemption code was already consumed.
	ErrRedemptionUsed = errors.New("redemption already used")
	// ErrUnknownCategory is returned for catalog filters outside the known categories.
	ErrUnknownCategory = errors.New("unknown reward category")
)

// InsufficientBalanceError reports that the wallet cannot cover a purchase.
type InsufficientBalanceError struct {
	Balance int64
	Cost    int64
}

// Shortfall is the additional credit needed for the purchase.
func (e *InsufficientBalanceError) Shortfall() int64 {
	return e.Cost - e.Balance
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %d more rial", e.Shortfall())
}

// Catalog exposes the static, read-only content of the app.
type Catalog interface {
	Rewards() []Reward
	Badges() []Badge
	Challenges() []Challenge
	Routes() []Route
	Events() []Event
}

// WalletRepository captures persistence operations for wallets and their history.
type WalletRepository interface {
	Balance(ctx context.Context, tenantID, userID string) (int64, error)
	Credit(ctx context.Context, entry LedgerEntry) (int64, error)
	// Redeem debits the wallet and stores the redemption atomically. It returns
	// *InsufficientBalanceError without side effects when the balance is too low.
	Redeem(ctx context.Context, entry LedgerEntry, redemption Redemption) (int64, error)
	AppendHistory(ctx context.Context, item HistoryItem) error
	ListHistory(ctx context.Context, tenantID, userID string, limit int) ([]HistoryItem, error)
	ListRedemptions(ctx context.Context, tenantID, userID string) ([]Redemption, error)
	MarkRedemptionUsed(ctx context.Context, tenantID, userID, redemptionID string) (*Redemption, error)
}

// ServiceOption configures optional behaviour for the Service.
type ServiceOption func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithCodeGenerator overrides how redemption codes are produced.
func WithCodeGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		s.newCode = fn
	}
}

// Service orchestrates wallet, reward and achievement workflows.
type Service struct {
	repo          WalletRepository
	catalog       Catalog
	now           func() time.Time
	newCode       func() string
	redemptionTTL time.Duration
}

// NewService constructs a Service.
func NewService(repo WalletRepository, catalog Catalog, opts ...ServiceOption) *Service {
	s := &Service{
		repo:          repo,
		catalog:       catalog,
		now:           func() time.Time { return time.Now().UTC() },
		newCode:       NewRedemptionCode,
		redemptionTTL: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedemptionCode returns a voucher code such as WC-45FG9H2J.
func NewRedemptionCode() string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, 8)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return "WC-" + string(b)
}

// Balance returns the wallet balance in rial.
func (s *Service) Balance(ctx context.Context, tenantID, userID string) (int64, error) {
	return s.repo.Balance(ctx, tenantID, userID)
}

// CreditCoins converts coins awarded during a walk into wallet credit.
func (s *Service) CreditCoins(ctx context.Context, tenantID, userID, sessionID string, coins int) (int64, error) {
	if coins <= 0 {
		return s.repo.Balance(ctx, tenantID, userID)
	}
	entry := LedgerEntry{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		UserID:      userID,
		Kind:        LedgerCredit,
		Amount:      int64(coins) * RialPerCoin,
		Reference:   sessionID,
		Description: fmt.Sprintf("walking reward: %d coin(s)", coins),
		CreatedAt:   s.now(),
	}
	balance, err := s.repo.Credit(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("crediting wallet: %w", err)
	}
	observability.RecordLedgerWrite(entry.CreatedAt)
	return balance, nil
}

// RecordWalk appends a finished walk to the user's history. Walks without steps are skipped.
func (s *Service) RecordWalk(ctx context.Context, tenantID, userID string, snap accrual.Snapshot) (*HistoryItem, error) {
	if snap.StepCount <= 0 {
		return nil, nil
	}
	item := HistoryItem{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		UserID:        userID,
		SessionID:     snap.SessionID,
		Date:          s.now(),
		Steps:         snap.StepCount,
		DistanceKm:    snap.DistanceKm,
		Coins:         snap.CoinsEarned,
		CO2SavedGrams: snap.CO2SavedGrams,
	}
	if err := s.repo.AppendHistory(ctx, item); err != nil {
		return nil, fmt.Errorf("recording walk: %w", err)
	}
	return &item, nil
}

// RecordClosedWalks records the walks of sessions torn down together, such as at
// shutdown. Every walk is attempted; failures are joined into the returned error.
func (s *Service) RecordClosedWalks(ctx context.Context, closed []accrual.Closed) (int, error) {
	var (
		recorded int
		errs     []error
	)
	for _, c := range closed {
		item, err := s.RecordWalk(ctx, c.Owner.TenantID, c.Owner.UserID, c.Snapshot)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", c.Snapshot.SessionID, err))
			continue
		}
		if item != nil {
			recorded++
		}
	}
	return recorded, errors.Join(errs...)
}

// RewardListing splits the catalog into the filtered list and featured offers.
type RewardListing struct {
	Rewards  []Reward
	Featured []Reward
}

// ValidCategory reports whether category is a known catalog filter. Empty means all.
func ValidCategory(category string) bool {
	switch category {
	case "", CategoryAll, CategoryFood, CategoryRetail, CategoryTransport, CategoryEntertainment:
		return true
	}
	return false
}

// ListRewards filters the catalog by a case-insensitive search over title,
// vendor and category, then by category. Featured rewards are not filtered.
func (s *Service) ListRewards(query, category string) (RewardListing, error) {
	if !ValidCategory(category) {
		return RewardListing{}, ErrUnknownCategory
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	listing := RewardListing{Rewards: []Reward{}, Featured: []Reward{}}
	for _, r := range s.catalog.Rewards() {
		if r.Featured {
			listing.Featured = append(listing.Featured, r)
			continue
		}
		if needle != "" && !matchesQuery(r, needle) {
			continue
		}
		if category != "" && category != CategoryAll && r.Category != category {
			continue
		}
		listing.Rewards = append(listing.Rewards, r)
	}
	return listing, nil
}

func matchesQuery(r Reward, needle string) bool {
	return strings.Contains(strings.ToLower(r.Title), needle) ||
		strings.Contains(strings.ToLower(r.Vendor), needle) ||
		strings.Contains(strings.ToLower(r.Category), needle)
}

func (s *Service) findReward(id int) (Reward, bool) {
	for _, r := range s.catalog.Rewards() {
		if r.ID == id {
			return r, true
		}
	}
	return Reward{}, false
}

// Redeem buys a reward with wallet credit and issues a voucher code.
func (s *Service) Redeem(ctx context.Context, tenantID, userID string, rewardID int) (*Redemption, int64, error) {
	reward, ok := s.findReward(rewardID)
	if !ok {
		observability.RecordRedemption("not_found")
		return nil, 0, ErrRewardNotFound
	}

	now := s.now()
	redemption := Redemption{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		UserID:     userID,
		RewardID:   reward.ID,
		Title:      reward.Title,
		Vendor:     reward.Vendor,
		Discount:   reward.Discount,
		Code:       s.newCode(),
		Cost:       reward.Cost,
		RedeemedAt: now,
		ExpiresAt:  now.Add(s.redemptionTTL),
	}
	entry := LedgerEntry{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		UserID:      userID,
		Kind:        LedgerDebit,
		Amount:      reward.Cost,
		Reference:   redemption.ID,
		Description: "redeemed " + reward.Title,
		CreatedAt:   now,
	}

	balance, err := s.repo.Redeem(ctx, entry, redemption)
	if err != nil {
		var insufficient *InsufficientBalanceError
		if errors.As(err, &insufficient) {
			observability.RecordRedemption("insufficient")
			return nil, insufficient.Balance, err
		}
		observability.RecordRedemption("error")
		return nil, 0, fmt.Errorf("redeeming reward %d: %w", rewardID, err)
	}

	observability.RecordRedemption("redeemed")
	observability.RecordLedgerWrite(now)
	return &redemption, balance, nil
}

// UseRedemption marks a voucher as consumed.
func (s *Service) UseRedemption(ctx context.Context, tenantID, userID, redemptionID string) (*Redemption, error) {
	return s.repo.MarkRedemptionUsed(ctx, tenantID, userID, redemptionID)
}

// Achievements bundles badges and challenges.
type Achievements struct {
	Badges     []Badge
	Summary    BadgeSummary
	Challenges []Challenge
}

// Achievements returns badge progress and active challenges.
func (s *Service) Achievements() Achievements {
	badges := s.catalog.Badges()
	return Achievements{
		Badges:     badges,
		Summary:    SummarizeBadges(badges),
		Challenges: s.catalog.Challenges(),
	}
}

// SummarizeBadges counts unlocked badges and the floored completion percentage.
func SummarizeBadges(badges []Badge) BadgeSummary {
	summary := BadgeSummary{Total: len(badges)}
	for _, b := range badges {
		if b.Unlocked() {
			summary.Unlocked++
		}
	}
	if summary.Total > 0 {
		summary.Percent = summary.Unlocked * 100 / summary.Total
	}
	return summary
}

// Explore bundles routes and events.
type Explore struct {
	Routes []Route
	Events []Event
}

// Explore returns popular routes and upcoming events.
func (s *Service) Explore() Explore {
	return Explore{Routes: s.catalog.Routes(), Events: s.catalog.Events()}
}

// Profile assembles the profile screen for a user.
func (s *Service) Profile(ctx context.Context, tenantID, userID string, historyLimit int) (*Profile, error) {
	balance, err := s.repo.Balance(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading balance: %w", err)
	}
	history, err := s.repo.ListHistory(ctx, tenantID, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	redemptions, err := s.repo.ListRedemptions(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("loading redemptions: %w", err)
	}

	return &Profile{
		Balance:     balance,
		Stats:       SummarizeHistory(history),
		History:     history,
		Redemptions: redemptions,
	}, nil
}

// SummarizeHistory totals the walks in history.
func SummarizeHistory(history []HistoryItem) ProfileStats {
	var stats ProfileStats
	for _, h := range history {
		stats.TotalSteps += h.Steps
		stats.TotalCoins += h.Coins
	}
	stats.TotalDistanceKm = accrual.DistanceKm(stats.TotalSteps)
	stats.CO2SavedGrams = accrual.CO2SavedGrams(stats.TotalSteps)
	return stats
}
