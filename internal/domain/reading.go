package domain

// HeightSample is one water-level observation in a station's bounded history.
// ObservedAt keeps the upstream timestamp text verbatim because the feeds
// change its shape without notice; RecordedAt is our own ingest stamp.
type HeightSample struct {
	Value      float64 `json:"valor"`          // meters above the local datum
	ObservedAt string  `json:"hora,omitempty"` // upstream local-time string
	RecordedAt int64   `json:"registrado"`     // unix seconds at ingest
}

// NewHeightSample stamps a parsed reading with the ingest time.
func NewHeightSample(value float64, observedAt string) HeightSample {
	return HeightSample{
		Value:      value,
		ObservedAt: observedAt,
		RecordedAt: clock.Now().Unix(),
	}
}

// HeightReport is the San Fernando reading extracted from the INA height
// bulletin: the level plus the bulletin's own observation-time text.
type HeightReport struct {
	HeightMeters float64
	ObservedAt   string
}

// TideReading is the latest Pilote Norden water level from the SHN telemetry
// table. Pointer fields are nil when the source row lacked a usable cell; the
// formatted field then carries the "-" placeholder so clients can render it
// directly.
type TideReading struct {
	Timestamp       *string  `json:"timestamp"`     // normalized "DD/MM/YYYY HH:MM" when recognized
	RawTimestamp    *string  `json:"raw_timestamp"` // cell text verbatim
	HeightMeters    *float64 `json:"height_meters"`
	HeightFormatted string   `json:"height_formatted"`
}

// WindReading is the latest SHN wind sample. Speed arrives in knots and is
// also derived to km/h; direction arrives in degrees and is labeled on the
// Spanish compass rose.
type WindReading struct {
	SpeedKnots         *float64 `json:"speed_knots"`
	SpeedKmh           *float64 `json:"speed_kmh"`
	DirectionDegrees   *float64 `json:"direction_degrees"`
	DirectionCompass   *string  `json:"direction_compass"`
	SpeedFormatted     string   `json:"speed_formatted"`
	DirectionFormatted string   `json:"direction_formatted"`
}

// Telemetry bundles the two SHN readings decoded from one fetch.
type Telemetry struct {
	Tide TideReading `json:"tide"`
	Wind WindReading `json:"wind"`
}

// TrendState classifies the short-term height movement at San Fernando.
type TrendState string

const (
	TrendRising  TrendState = "rising"
	TrendFalling TrendState = "falling"
	TrendStable  TrendState = "stable"
	// TrendError marks a trend that could not be computed; clients render it
	// as "no data".
	TrendError TrendState = "error"
)

// Label returns the Spanish display label for the state.
func (s TrendState) Label() string {
	switch s {
	case TrendRising:
		return "Subiendo"
	case TrendFalling:
		return "Bajando"
	case TrendStable:
		return "Estable"
	}
	return "Sin datos"
}

// TrendResult is the outcome of a trend computation: the classified state and
// the signed change in meters that produced it, pre-formatted for display.
type TrendResult struct {
	State          TrendState
	Delta          float64 // meters, rounded to 2 decimals
	DeltaFormatted string  // e.g. "+0,03 m"; "±0,00 m" when stable
}

// SurgeEvent is the persisted state of the sudestada tracker. The zero value
// is the "no event" state. Peak fields are retained after deactivation as the
// record of the previous event.
type SurgeEvent struct {
	Active             bool    `json:"activa"`
	PeakHeightMeters   float64 `json:"pico_maximo,omitempty"`
	PeakObservedAt     string  `json:"hora_pico,omitempty"`          // upstream time text of the peak reading
	PeakDetectedAtUnix int64   `json:"pico_detectado_unix,omitempty"` // ingest stamp of the last peak raise
	StartedAtUnix      int64   `json:"inicio_unix,omitempty"`
}

// SurgeTransition names a lifecycle change produced by advancing the tracker.
// The zero value means nothing changed.
type SurgeTransition string

const (
	SurgeNone        SurgeTransition = ""
	SurgeActivated   SurgeTransition = "activated"
	SurgePeakUpdated SurgeTransition = "peak_updated"
	SurgeDeactivated SurgeTransition = "deactivated"
)

// TigrePrediction estimates the water level and arrival time at Tigre implied
// by a surge peak at Pilote Norden.
type TigrePrediction struct {
	HeightMeters float64
	TimeEstimate string
}
