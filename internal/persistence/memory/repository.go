// Package memory provides an in-process wallet store for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"example.com/sabzgam/internal/domain"
)

type walletKey struct {
	tenantID string
	userID   string
}

type wallet struct {
	balance     int64
	ledger      []domain.LedgerEntry
	history     []domain.HistoryItem
	redemptions []domain.Redemption
}

// Repository stores wallets in memory. Wallets are created lazily with the initial grant.
type Repository struct {
	mu           sync.RWMutex
	initialGrant int64
	wallets      map[walletKey]*wallet
}

// NewRepository constructs a Repository granting initialGrant rial to new wallets.
func NewRepository(initialGrant int64) *Repository {
	return &Repository{
		initialGrant: initialGrant,
		wallets:      make(map[walletKey]*wallet),
	}
}

func (r *Repository) walletLocked(tenantID, userID string) *wallet {
	key := walletKey{tenantID: tenantID, userID: userID}
	w, ok := r.wallets[key]
	if !ok {
		w = &wallet{balance: r.initialGrant}
		r.wallets[key] = w
	}
	return w
}

// Balance implements domain.WalletRepository.
func (r *Repository) Balance(ctx context.Context, tenantID, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.wallets[walletKey{tenantID: tenantID, userID: userID}]
	if !ok {
		return r.initialGrant, nil
	}
	return w.balance, nil
}

// Credit implements domain.WalletRepository.
func (r *Repository) Credit(ctx context.Context, entry domain.LedgerEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.walletLocked(entry.TenantID, entry.UserID)
	w.balance += entry.Amount
	w.ledger = append(w.ledger, entry)
	return w.balance, nil
}

// Redeem implements domain.WalletRepository.
func (r *Repository) Redeem(ctx context.Context, entry domain.LedgerEntry, redemption domain.Redemption) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.walletLocked(entry.TenantID, entry.UserID)
	if w.balance < entry.Amount {
		return w.balance, &domain.InsufficientBalanceError{Balance: w.balance, Cost: entry.Amount}
	}
	w.balance -= entry.Amount
	w.ledger = append(w.ledger, entry)
	w.redemptions = append(w.redemptions, redemption)
	return w.balance, nil
}

// AppendHistory implements domain.WalletRepository.
func (r *Repository) AppendHistory(ctx context.Context, item domain.HistoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.walletLocked(item.TenantID, item.UserID)
	w.history = append(w.history, item)
	return nil
}

// ListHistory returns the newest walks first.
func (r *Repository) ListHistory(ctx context.Context, tenantID, userID string, limit int) ([]domain.HistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.HistoryItem{}
	w, ok := r.wallets[walletKey{tenantID: tenantID, userID: userID}]
	if !ok {
		return out, nil
	}
	out = append(out, w.history...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListRedemptions returns the newest redemptions first.
func (r *Repository) ListRedemptions(ctx context.Context, tenantID, userID string) ([]domain.Redemption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Redemption{}
	w, ok := r.wallets[walletKey{tenantID: tenantID, userID: userID}]
	if !ok {
		return out, nil
	}
	out = append(out, w.redemptions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RedeemedAt.After(out[j].RedeemedAt) })
	return out, nil
}

// MarkRedemptionUsed implements domain.WalletRepository.
func (r *Repository) MarkRedemptionUsed(ctx context.Context, tenantID, userID, redemptionID string) (*domain.Redemption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wallets[walletKey{tenantID: tenantID, userID: userID}]
	if !ok {
		return nil, domain.ErrRedemptionNotFound
	}
	for i := range w.redemptions {
		if w.redemptions[i].ID != redemptionID {
			continue
		}
		if w.redemptions[i].Used {
			return nil, domain.ErrRedemptionUsed
		}
		w.redemptions[i].Used = true
		out := w.redemptions[i]
		return &out, nil
	}
	return nil, domain.ErrRedemptionNotFound
}

// Ledger returns a copy of the ledger entries for a wallet.
func (r *Repository) Ledger(tenantID, userID string) []domain.LedgerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.wallets[walletKey{tenantID: tenantID, userID: userID}]
	if !ok {
		return nil
	}
	return append([]domain.LedgerEntry(nil), w.ledger...)
}
