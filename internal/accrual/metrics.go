package accrual

import "math"

const (
	strideMillimetres = 800
	co2GramsPerKm     = 271
)

// DistanceKm converts a step count into kilometres using a 0.8 m stride.
func DistanceKm(steps int) float64 {
	return float64(steps*strideMillimetres) / 1e6
}

// CO2SavedGrams estimates the CO2 not emitted by a car over the walked distance.
func CO2SavedGrams(steps int) float64 {
	return float64(steps*strideMillimetres*co2GramsPerKm) / 1e6
}

// ProgressPercent reports progress towards the daily goal, capped at 100.
func ProgressPercent(steps, dailyGoal int) int {
	if dailyGoal <= 0 {
		return 100
	}
	pct := int(math.Round(float64(steps) * 100 / float64(dailyGoal)))
	if pct > 100 {
		return 100
	}
	return pct
}

// ThresholdsCrossed counts the multiples of size passed when moving from prev to next.
func ThresholdsCrossed(prev, next, size int) int {
	if size <= 0 || next <= prev {
		return 0
	}
	return next/size - prev/size
}
