package domain

import (
	"context"
	"log"
	"time"

	"example.com/sabzgam/internal/accrual"
)

// creditTimeout bounds the wallet write made from a session's tick goroutine.
const creditTimeout = 5 * time.Second

// SessionObserver returns an observer that credits the owner's wallet whenever
// a tick awards coins. Failures are logged; the session keeps walking.
func (s *Service) SessionObserver(logger *log.Logger) accrual.OwnerObserver {
	return func(owner accrual.Owner, snap accrual.Snapshot) {
		if snap.CoinsAwarded <= 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), creditTimeout)
		defer cancel()

		if _, err := s.CreditCoins(ctx, owner.TenantID, owner.UserID, snap.SessionID, snap.CoinsAwarded); err != nil && logger != nil {
			logger.Printf("credit %d coin(s) for session %s: %v", snap.CoinsAwarded, snap.SessionID, err)
		}
	}
}
