package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMeters(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{"two decimals padded", 1.4, "1,40 m"},
		{"typical level", 2.1, "2,10 m"},
		{"negative during bajante", -0.12, "-0,12 m"},
		{"zero", 0, "0,00 m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMeters(tt.value))
		})
	}
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "+0,03 m", FormatDelta(0.03))
	assert.Equal(t, "-0,05 m", FormatDelta(-0.05))
	assert.Equal(t, "±0,00 m", FormatDelta(0))
}

func TestFormatKmh(t *testing.T) {
	assert.Equal(t, "22,2 km/h", FormatKmh(22.2))
	assert.Equal(t, "0,0 km/h", FormatKmh(0))
}

func TestTrendStateLabel(t *testing.T) {
	assert.Equal(t, "Subiendo", TrendRising.Label())
	assert.Equal(t, "Bajando", TrendFalling.Label())
	assert.Equal(t, "Estable", TrendStable.Label())
	assert.Equal(t, "Sin datos", TrendError.Label())
}
