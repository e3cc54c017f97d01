package service

import "github.com/tom-villanueva/marea-tigre/internal/domain"

// Response shapes served to the polling client. Keys are Spanish where the
// client renders them directly.

// HeightResponse is the San Fernando level with its trend.
type HeightResponse struct {
	Height          float64 `json:"altura"`
	HeightFormatted string  `json:"altura_formatted"`
	ObservedAt      string  `json:"hora"`
	Trend           string  `json:"tendencia"`
	TrendLabel      string  `json:"tendencia_label"`
	Change          float64 `json:"cambio"`
	ChangeFormatted string  `json:"cambio_formatted"`
}

// TrendResponse is the trend portion alone, recomputed from stored history.
type TrendResponse struct {
	Trend           string  `json:"tendencia"`
	TrendLabel      string  `json:"tendencia_label"`
	Change          float64 `json:"cambio"`
	ChangeFormatted string  `json:"cambio_formatted"`
}

// TelemetryResponse bundles the latest SHN station readings with the serve
// time.
type TelemetryResponse struct {
	Tide    domain.TideReading `json:"tide"`
	Wind    domain.WindReading `json:"wind"`
	Updated string             `json:"updated"`
}

// SurgeResponse reports the sudestada tracker. The peak and Tigre fields
// appear only while an event is active.
type SurgeResponse struct {
	Active  bool   `json:"activa"`
	Message string `json:"mensaje"`

	PeakMeters           float64 `json:"pico_maximo,omitempty"`
	PeakFormatted        string  `json:"pico_maximo_formatted,omitempty"`
	PeakObservedAt       string  `json:"hora_pico,omitempty"`
	TigreHeightMeters    float64 `json:"altura_tigre_estimada,omitempty"`
	TigreHeightFormatted string  `json:"altura_tigre_formatted,omitempty"`
	TigreTimeEstimate    string  `json:"hora_tigre_estimada,omitempty"`
	TigrePrediction      string  `json:"prediccion_tigre,omitempty"`
}
