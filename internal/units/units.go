// Package units converts between the RF quantities the toolset reports:
// logarithmic power in dBm, linear power in milliwatts, and frequencies
// across the supported bands.
package units

import (
	"fmt"
	"math"
)

// DBmToMilliwatts converts logarithmic power to linear milliwatts.
func DBmToMilliwatts(dbm float64) float64 {
	return math.Pow(10, dbm/10)
}

// MilliwattsToDBm converts linear power to dBm. Power at or below zero
// has no logarithmic form and maps to negative infinity.
func MilliwattsToDBm(mw float64) float64 {
	if mw <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(mw)
}

// FormatFrequency renders hz in the customary unit for its magnitude,
// "868.300 MHz" or "125.0 kHz".
func FormatFrequency(hz uint32) string {
	switch {
	case hz >= 1_000_000_000:
		return fmt.Sprintf("%.3f GHz", float64(hz)/1e9)
	case hz >= 1_000_000:
		return fmt.Sprintf("%.3f MHz", float64(hz)/1e6)
	case hz >= 1_000:
		return fmt.Sprintf("%.1f kHz", float64(hz)/1e3)
	default:
		return fmt.Sprintf("%d Hz", hz)
	}
}

// FormatPower renders a transmit power in both forms, "+14 dBm (25.1 mW)".
func FormatPower(dbm int8) string {
	return fmt.Sprintf("%+d dBm (%.1f mW)", dbm, DBmToMilliwatts(float64(dbm)))
}
