package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	MinRunoffCoefficient = 0.5
	MaxRunoffCoefficient = 0.95

	// AgeDecayRate is the fractional coefficient loss per year of roof age.
	AgeDecayRate = 0.0002
	// CoefficientNoiseStdDev is the spread of the Gaussian noise added to
	// every sampled coefficient.
	CoefficientNoiseStdDev = 0.015

	BaseFirstFlushLoss = 0.02
	FirstFlushPerYear  = 0.001
	MaxFirstFlushLoss  = 0.10

	MinInefficiency = 0.97
	MaxInefficiency = 0.99

	MinRoofAge     = 1
	MaxRoofAge     = 50
	MinRoofAreaSqM = 40
	MaxRoofAreaSqM = 600
)

// AgeAdjustedCoefficient applies linear age decay to a baseline coefficient.
func AgeAdjustedCoefficient(base float64, age int) float64 {
	return base * (1 - AgeDecayRate*float64(age))
}

// RunoffCoefficient combines the baseline coefficient, roof age, region
// modifier and a pre-drawn noise term into the final coefficient, clamped to
// [0.5, 0.95] and rounded to four decimal places.
func RunoffCoefficient(base float64, age int, region Region, noise float64) float64 {
	c := AgeAdjustedCoefficient(base, age) + region.Modifier() + noise
	c = math.Max(MinRunoffCoefficient, math.Min(MaxRunoffCoefficient, c))
	return Round4(c)
}

// Round4 rounds half away from zero at the fourth decimal place.
func Round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}

// FirstFlushLoss is the fraction of runoff diverted to flush contaminants off
// the roof. It grows with roof age and is capped at 10%.
func FirstFlushLoss(age int) float64 {
	return math.Min(BaseFirstFlushLoss+FirstFlushPerYear*float64(age), MaxFirstFlushLoss)
}

// PotentialWater is the theoretical annual volume in litres before any loss.
func PotentialWater(areaSqM, rainfallMM int, coefficient float64) float64 {
	return float64(areaSqM) * float64(rainfallMM) * coefficient
}

// AfterFirstFlush removes the age-dependent first-flush fraction.
func AfterFirstFlush(potential float64, age int) float64 {
	return potential * (1 - FirstFlushLoss(age))
}

// HarvestableWater applies first-flush and system losses to a potential
// volume and truncates to whole litres. Negative inputs yield zero.
func HarvestableWater(potential float64, age int, inefficiency float64) int64 {
	v := AfterFirstFlush(potential, age) * inefficiency
	if v <= 0 {
		return 0
	}
	return int64(v)
}
