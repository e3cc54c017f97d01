package domain

import (
	"fmt"
	"strings"
)

// Display formatting for the Spanish-language client: comma as the decimal
// separator, unit suffix attached.

// FormatMeters renders a water level as "1,45 m".
func FormatMeters(v float64) string {
	return commaDecimal(fmt.Sprintf("%.2f m", v))
}

// FormatDelta renders a signed height change as "+0,03 m" or "-0,05 m".
// An exact zero renders "±0,00 m".
func FormatDelta(v float64) string {
	if v == 0 {
		return "±0,00 m"
	}
	return commaDecimal(fmt.Sprintf("%+.2f m", v))
}

// FormatKmh renders a wind speed as "18,5 km/h".
func FormatKmh(v float64) string {
	return commaDecimal(fmt.Sprintf("%.1f km/h", v))
}

func commaDecimal(s string) string {
	return strings.Replace(s, ".", ",", 1)
}
