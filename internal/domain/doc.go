// Package domain models Río de la Plata water-level and wind telemetry and
// the signals derived from it: the short-term height trend for San Fernando
// and long-lived sudestada (southeasterly storm-surge) events tracked at the
// Pilote Norden station, with a height/time estimate for Tigre derived from
// the event peak.
//
// # Data Sources
//
// Heights and hydrological alerts come from the INA (Instituto Nacional del
// Agua) public RSS feeds. Items carry free-text descriptions; the height feed
// embeds readings as lines of the form
//
//	"San Fernando: 1,45 m"
//	"FECHA y HORA: 12/05 14:30"
//
// with the comma as decimal separator, normalized to a dot during parsing.
// Feeds still declare ISO-8859-1; the decoder transcodes instead of assuming
// UTF-8. Alert descriptions may contain markup and are passed through
// verbatim; the consuming page owns rendering.
//
// Tide and wind telemetry comes from the SHN (Servicio de Hidrografía Naval)
// mobile endpoint. The response is not plain JSON: a preamble is separated
// from the payload by a literal "JSON**" token, and the payload's
// tide.latest / wind.latest fields hold URL-encoded HTML table fragments.
// Only the last table row (the most recent sample) is read. Any cell can be
// absent or non-numeric on any given fetch; each reading degrades
// field-by-field instead of failing the whole response.
//
// # Compass Convention
//
// Wind direction labels use the Spanish 16-point rose, clockwise from due
// north: N, NNE, NE, ENE, E, ESE, SE, SSE, S, SSO, SO, OSO, O, ONO, NO, NNO.
// West is "O" (oeste), not "W". A bearing maps onto the rose via
// round(degrees/22.5) mod 16.
//
// # Sudestada Thresholds
//
// A surge event activates when a Pilote Norden reading reaches 2.00 m and
// retires only once the current height drops under 1.80 m and at least four
// hours have passed since the last peak detection. The 0.20 m hysteresis band
// plus the dwell keeps readings that hover around the activation threshold
// from flapping the event. Peak fields survive deactivation as the record of
// the last event until the next activation overwrites them.
//
// The Tigre estimate is a fixed offset from the peak: +0.35 m and +3 h 30 m,
// the lag historically observed between the two stations. See [PredictTigre].
package domain
