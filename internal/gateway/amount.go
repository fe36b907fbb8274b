package gateway

import (
	"math"
	"strconv"
)

// ToMinorUnits converts a major-unit amount to the gateway's minor currency
// unit. Rounding happens here, before transmission, so fractional-cent drift
// from float arithmetic never reaches the provider.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// FormatAmount renders an amount with exactly two decimals, as the instant-EFT
// hash contract requires.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(math.Round(amount*100)/100, 'f', 2, 64)
}
