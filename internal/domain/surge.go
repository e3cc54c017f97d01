package domain

import (
	"math"
	"strings"
	"time"
)

const (
	// surgeActivationMeters is the Pilote Norden level that opens an event.
	surgeActivationMeters = 2.0

	// surgeReleaseMeters is the level the water must drop under before an
	// event can close. The 0.20 m gap below activation absorbs readings that
	// oscillate around 2.00 m.
	surgeReleaseMeters = 1.8

	// surgeDwell is the minimum time since the last peak detection before
	// deactivation is allowed, regardless of the current level.
	surgeDwell = 4 * time.Hour
)

const (
	// Observed lag and amplification between Pilote Norden and Tigre.
	tigreHeightOffsetMeters = 0.35
	tigreTimeOffset         = 3*time.Hour + 30*time.Minute
)

// TrackSurge advances the event with a new Pilote Norden reading: a level at
// or above the activation threshold opens an inactive event, and while
// active any level above the current peak raises it. The peak only moves up;
// lower readings never shrink it. Returns the advanced event and the
// transition that occurred, SurgeNone when nothing changed.
func TrackSurge(event SurgeEvent, height float64, observedAt string) (SurgeEvent, SurgeTransition) {
	now := clock.Now().Unix()
	if !event.Active {
		if height < surgeActivationMeters {
			return event, SurgeNone
		}
		event.Active = true
		event.PeakHeightMeters = height
		event.PeakObservedAt = observedAt
		event.PeakDetectedAtUnix = now
		event.StartedAtUnix = now
		return event, SurgeActivated
	}
	if height > event.PeakHeightMeters {
		event.PeakHeightMeters = height
		event.PeakObservedAt = observedAt
		event.PeakDetectedAtUnix = now
		return event, SurgePeakUpdated
	}
	return event, SurgeNone
}

// RetireSurge deactivates an active event once the current level has dropped
// under the release threshold and the dwell window since the last peak
// detection has passed. Peak fields are left in place as the record of the
// event. Both conditions failing leaves the event untouched.
func RetireSurge(event SurgeEvent, currentHeight float64) (SurgeEvent, SurgeTransition) {
	if !event.Active || currentHeight >= surgeReleaseMeters {
		return event, SurgeNone
	}
	if clock.Now().Sub(time.Unix(event.PeakDetectedAtUnix, 0)) < surgeDwell {
		return event, SurgeNone
	}
	event.Active = false
	return event, SurgeDeactivated
}

// peakTimeLayouts are the time-of-day shapes the height feeds have used for
// the peak observation time, tried in order before any date-bearing
// interpretation. The 24h forms must come first: a 12h layout would happily
// misread "14:00".
var peakTimeLayouts = []string{
	"15:04",
	"15:04:05",
	"15.04",
	"3:04 PM",
	"3:04PM",
}

// peakDateTimeLayouts cover the occasions the feed carried a full date.
var peakDateTimeLayouts = []string{
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// PredictTigre derives the Tigre estimate from an event peak: the fixed
// height and time offsets applied to the peak reading. When the peak time
// defies every known format the estimate degrades to an approximate string
// rather than dropping the prediction.
func PredictTigre(event SurgeEvent) TigrePrediction {
	return TigrePrediction{
		HeightMeters: math.Round((event.PeakHeightMeters+tigreHeightOffsetMeters)*100) / 100,
		TimeEstimate: offsetPeakTime(event.PeakObservedAt),
	}
}

func offsetPeakTime(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	for _, layout := range peakTimeLayouts {
		value := trimmed
		if strings.Contains(layout, "PM") {
			value = strings.ToUpper(value)
		}
		if t, err := time.Parse(layout, value); err == nil {
			return t.Add(tigreTimeOffset).Format("15:04")
		}
	}
	for _, layout := range peakDateTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Add(tigreTimeOffset).Format("02/01/2006 15:04")
		}
	}
	return "~" + trimmed + " + 3.5h"
}
