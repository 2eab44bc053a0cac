// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package pricing

import "math"

// metersPerKm converts the service distance (meters) into the rate unit (km).
const metersPerKm = 0.001

// Bounds of the float64 values that convert to int64 exactly; 2^63 itself does not.
const (
	maxPrice = 1 << 63
	minPrice = -1 << 63
)

// Formula is the human readable form of ComputePrice shown next to the breakdown.
const Formula = "Price = Base + Demand + (Rate * Distance) * (1 + Congestion)"

// ComputePrice derives the total price from the five pricing components:
//
//	round(base + demand + (rate * distance * 0.001) * (1 + congestion))
//
// Rounding is half away from zero. Results that are not finite yield 0 and results
// beyond the int64 range saturate at math.MaxInt64 or math.MinInt64.
func ComputePrice(base, demand, rate, distance, congestion float64) int64 {
	price := math.Round(base + demand + (rate*distance*metersPerKm)*(1+congestion))

	switch {
	case math.IsNaN(price) || math.IsInf(price, 0):
		return 0
	case price >= maxPrice:
		return math.MaxInt64
	case price < minPrice:
		return math.MinInt64
	}

	return int64(price)
}
