package domain

import "math"

const (
	// trendNoiseFloor is the minimum difference treated as a real change when
	// scanning for a comparison sample. Station readings repeat to the
	// millimeter for hours and would otherwise pin the delta at zero.
	trendNoiseFloor = 0.001

	// trendBand is the half-width of the stable classification: deltas within
	// ±0.02 m are ordinary slosh, not a trend.
	trendBand = 0.02
)

// ComputeTrend classifies the short-term movement of an ordered
// oldest-to-newest height sequence. The comparison value is found by
// scanning backward from the second-most-recent sample for the first one
// meaningfully different from the current reading; consecutive
// near-duplicates would otherwise flicker the trend on every fetch. With no
// meaningfully different sample the oldest value stands in. Fewer than two
// samples is not enough signal and reads as stable.
func ComputeTrend(samples []HeightSample) TrendResult {
	if len(samples) < 2 {
		return TrendResult{State: TrendStable, DeltaFormatted: FormatDelta(0)}
	}

	current := samples[len(samples)-1].Value
	previous := samples[0].Value
	for i := len(samples) - 2; i >= 0; i-- {
		if math.Abs(samples[i].Value-current) > trendNoiseFloor {
			previous = samples[i].Value
			break
		}
	}

	delta := math.Round((current-previous)*100) / 100
	state := TrendStable
	switch {
	case delta > trendBand:
		state = TrendRising
	case delta < -trendBand:
		state = TrendFalling
	}

	result := TrendResult{State: state, Delta: delta}
	if state == TrendStable {
		result.DeltaFormatted = FormatDelta(0)
	} else {
		result.DeltaFormatted = FormatDelta(delta)
	}
	return result
}
