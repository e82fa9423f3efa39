package accrual

import (
	"math/rand/v2"
	"time"
)

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every period.
type TickerFunc func(period time.Duration) Ticker

// Rand draws the per-tick step increment.
type Rand interface {
	IntN(n int) int
}

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// NewWallTicker is the production TickerFunc backed by time.Ticker.
func NewWallTicker(period time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(period)}
}

// NewRand returns a randomly seeded source suitable for live sessions.
func NewRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
