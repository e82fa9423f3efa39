// Package accrual simulates walking sessions that accumulate steps and coins on a fixed tick.
package accrual

import (
	"errors"
	"time"
)

// Config holds the tunables of the walking simulation.
type Config struct {
	TickInterval      time.Duration
	MinIncrement      int // Smallest step increment drawn per tick (inclusive).
	MaxIncrement      int // Largest step increment drawn per tick (inclusive).
	StepsPerThreshold int
	CoinsPerThreshold int
	DailyGoal         int
	InitialCoins      int
}

// DefaultConfig returns the production walking parameters: 10 to 29 steps per
// one-second tick and one coin per 1000 steps.
func DefaultConfig() Config {
	return Config{
		TickInterval:      time.Second,
		MinIncrement:      10,
		MaxIncrement:      29,
		StepsPerThreshold: 1000,
		CoinsPerThreshold: 1,
		DailyGoal:         10000,
		InitialCoins:      125,
	}
}

// Validate ensures the configuration can drive a session.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be > 0")
	}
	if c.MinIncrement < 0 {
		return errors.New("min increment must be >= 0")
	}
	if c.MaxIncrement < c.MinIncrement {
		return errors.New("max increment must be >= min increment")
	}
	if c.StepsPerThreshold <= 0 {
		return errors.New("steps per threshold must be > 0")
	}
	if c.CoinsPerThreshold < 0 {
		return errors.New("coins per threshold must be >= 0")
	}
	if c.DailyGoal <= 0 {
		return errors.New("daily goal must be > 0")
	}
	if c.InitialCoins < 0 {
		return errors.New("initial coins must be >= 0")
	}
	return nil
}
