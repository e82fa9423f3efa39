package consumer

import (
	"context"
	"strconv"

	"example.com/sabzgam/internal/events"
)

// ActivityTotals folds wallet and walk events into service-wide counters:
// rial earned and spent, rewards redeemed, steps walked and CO2 saved.
type ActivityTotals struct{}

// EventTypes lists the events ActivityTotals understands.
func (ActivityTotals) EventTypes() []string {
	return []string{events.TypeWalletCredited, events.TypeRewardRedeemed, events.TypeWalkCompleted}
}

// Handle adds rec to the running totals.
func (ActivityTotals) Handle(_ context.Context, rec Record) error {
	switch ev := rec.Event.(type) {
	case events.WalletCredited:
		rialCredited.Add(float64(ev.AmountRial))
	case events.RewardRedeemed:
		rialSpent.Add(float64(ev.CostRial))
		rewardsRedeemed.WithLabelValues(strconv.Itoa(ev.RewardID)).Inc()
	case events.WalkCompleted:
		walksCompleted.Inc()
		stepsWalked.Add(float64(ev.Steps))
		co2Saved.Add(ev.CO2SavedGrams)
	}
	return nil
}
