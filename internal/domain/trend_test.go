package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func samplesFrom(values ...float64) []HeightSample {
	samples := make([]HeightSample, len(values))
	for i, v := range values {
		samples[i] = HeightSample{Value: v}
	}
	return samples
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name              string
		values            []float64
		expectedState     TrendState
		expectedDelta     float64
		expectedFormatted string
	}{
		{"no samples", nil, TrendStable, 0, "±0,00 m"},
		{"single sample", []float64{1.50}, TrendStable, 0, "±0,00 m"},
		{"rising", []float64{1.00, 1.10}, TrendRising, 0.10, "+0,10 m"},
		{"falling", []float64{1.20, 1.10}, TrendFalling, -0.10, "-0,10 m"},
		{"within band is stable", []float64{1.00, 1.01}, TrendStable, 0.01, "±0,00 m"},
		{"band edge is stable", []float64{1.00, 1.02}, TrendStable, 0.02, "±0,00 m"},
		{"just past band rises", []float64{1.00, 1.03}, TrendRising, 0.03, "+0,03 m"},
		{"duplicates skipped", []float64{1.00, 1.00, 1.00, 1.03}, TrendRising, 0.03, "+0,03 m"},
		{"all identical", []float64{1.00, 1.00, 1.00, 1.00}, TrendStable, 0, "±0,00 m"},
		{"scan reaches past duplicates", []float64{1.10, 1.03, 1.03}, TrendFalling, -0.07, "-0,07 m"},
		{"noise floor ignores micro jitter", []float64{1.0005, 1.00, 1.0005}, TrendStable, 0, "±0,00 m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeTrend(samplesFrom(tt.values...))

			assert.Equal(t, tt.expectedState, result.State)
			assert.InDelta(t, tt.expectedDelta, result.Delta, 1e-9)
			assert.Equal(t, tt.expectedFormatted, result.DeltaFormatted)
		})
	}
}
