// Package domain models rooftop rainwater harvesting for the synthetic
// training datasets.
//
// # Reference Data
//
// Three fixed tables drive every generated sample:
//
//	Roof types:  ten roofing materials, each with a baseline runoff
//	             coefficient between 0.70 (concrete, lime-finished) and
//	             0.90 (galvanized iron, metal).
//	Regions:     Urban (-0.03) and Rural (-0.05). The modifier models grime,
//	             dust and organic matter washing off the roof.
//	Locations:   24 Indian cities and districts, 12 urban and 12 rural. Each
//	             maps to exactly one region, a state and an annual rainfall
//	             figure in millimetres.
//
// The tables are immutable. Accessors return copies in the order the tables
// are declared so that a seeded sampler draws the same rows on every run.
//
// # Runoff Coefficient
//
//	coefficient = clamp(base * (1 - 0.0002*age) + region + noise, 0.5, 0.95)
//
// rounded to four decimal places. Noise is Gaussian with standard deviation
// 0.015 and is supplied by the caller; see [RunoffCoefficient].
//
// # Harvestable Water
//
// One millimetre of rain on one square metre of roof is one litre, so
//
//	potential   = area_m2 * rainfall_mm * coefficient        (litres)
//	first_flush = min(0.02 + 0.001*age, 0.10)
//	harvestable = trunc(potential * (1 - first_flush) * inefficiency)
//
// where inefficiency is a system loss factor in [0.97, 0.99]. Every factor is
// in [0, 1] so harvestable water is never negative.
package domain
