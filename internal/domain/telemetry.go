package domain

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// telemetryDelimiter separates the SHN endpoint's preamble from its JSON
// payload. The token is part of the upstream contract, asterisks included.
const telemetryDelimiter = "JSON**"

// unavailable is the display placeholder for a reading field the source did
// not provide this fetch.
const unavailable = "-"

// challengeMarkers identify a security or redirect interstitial served in
// place of telemetry, checked case-insensitively before any parsing.
var challengeMarkers = []string{
	"<html",
	"<!doctype",
	"window.location",
	"request unsuccessful",
}

// telemetryEnvelope is the JSON payload after the delimiter. Each fragment's
// latest field holds a URL-encoded HTML table of recent samples.
type telemetryEnvelope struct {
	Tide telemetryFragment `json:"tide"`
	Wind telemetryFragment `json:"wind"`
}

type telemetryFragment struct {
	Latest string `json:"latest"`
}

var (
	tablePattern = regexp.MustCompile(`(?is)<table[^>]*>(.*?)</table>`)
	rowPattern   = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellPattern  = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	tagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)

	// firstDecimalPattern pulls the leading number out of a mixed cell like
	// "1,45 m". strictNumericPattern accepts nothing but a plain number;
	// wind cells that fail it are treated as absent.
	firstDecimalPattern  = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)
	strictNumericPattern = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
)

// tideTimestampLayouts are the shapes the SHN table has used for its sample
// timestamps. A recognized value is re-rendered as DD/MM/YYYY HH:MM;
// anything else passes through verbatim.
var tideTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02T15:04:05",
}

// compassRose is the Spanish 16-point rose, clockwise from due north.
var compassRose = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSO", "SO", "OSO", "O", "ONO", "NO", "NNO",
}

const knotsToKmh = 1.852

// ParseTelemetry decodes an SHN telemetry response into tide and wind
// readings. A challenge page yields ErrSecurityBlocked and a body without
// the payload delimiter yields ErrUnexpectedFormat; past those gates, each
// reading degrades field-by-field instead of failing the fetch.
func ParseTelemetry(body string) (Telemetry, error) {
	lower := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return Telemetry{}, ErrSecurityBlocked
		}
	}
	_, payload, found := strings.Cut(body, telemetryDelimiter)
	if !found {
		return Telemetry{}, fmt.Errorf("%w: missing %q delimiter", ErrUnexpectedFormat, telemetryDelimiter)
	}
	var envelope telemetryEnvelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &envelope); err != nil {
		return Telemetry{}, fmt.Errorf("%w: %v", ErrUnexpectedFormat, err)
	}
	return Telemetry{
		Tide: parseTideFragment(envelope.Tide.Latest),
		Wind: parseWindFragment(envelope.Wind.Latest),
	}, nil
}

// parseTideFragment reads the last sample row of the tide table: cell 0 is
// the timestamp, cell 1 the height in meters.
func parseTideFragment(fragment string) TideReading {
	reading := TideReading{HeightFormatted: unavailable}
	cells := lastRowCells(fragment)
	if len(cells) == 0 {
		return reading
	}
	if raw := cells[0]; raw != "" {
		reading.RawTimestamp = &raw
		normalized := normalizeTideTimestamp(raw)
		reading.Timestamp = &normalized
	}
	if len(cells) > 1 {
		if match := firstDecimalPattern.FindString(cells[1]); match != "" {
			if v, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64); err == nil {
				reading.HeightMeters = &v
				reading.HeightFormatted = FormatMeters(v)
			}
		}
	}
	return reading
}

// parseWindFragment reads the last sample row of the wind table: cell 1 is
// the speed in knots, cell 4 the direction in degrees. Either cell counts
// only when purely numeric.
func parseWindFragment(fragment string) WindReading {
	reading := WindReading{
		SpeedFormatted:     unavailable,
		DirectionFormatted: unavailable,
	}
	cells := lastRowCells(fragment)
	if len(cells) > 1 && strictNumericPattern.MatchString(cells[1]) {
		if knots, err := strconv.ParseFloat(cells[1], 64); err == nil {
			kmh := math.Round(knots*knotsToKmh*10) / 10
			reading.SpeedKnots = &knots
			reading.SpeedKmh = &kmh
			reading.SpeedFormatted = FormatKmh(kmh)
		}
	}
	if len(cells) > 4 && strictNumericPattern.MatchString(cells[4]) {
		if degrees, err := strconv.ParseFloat(cells[4], 64); err == nil {
			compass := CompassLabel(degrees)
			reading.DirectionDegrees = &degrees
			reading.DirectionCompass = &compass
			reading.DirectionFormatted = compass
		}
	}
	return reading
}

// lastRowCells URL-decodes a table fragment and returns the text of each
// <td> in the final row of the first table, tags stripped and entities
// resolved. Returns nil whenever the fragment holds no usable row.
func lastRowCells(fragment string) []string {
	if fragment == "" {
		return nil
	}
	decoded, err := url.QueryUnescape(fragment)
	if err != nil {
		// Stray percent signs occur; fall back to the raw fragment the way a
		// lenient decoder would.
		decoded = fragment
	}
	table := tablePattern.FindStringSubmatch(decoded)
	if table == nil {
		return nil
	}
	rows := rowPattern.FindAllStringSubmatch(table[1], -1)
	if len(rows) == 0 {
		return nil
	}
	cells := cellPattern.FindAllStringSubmatch(rows[len(rows)-1][1], -1)
	if len(cells) == 0 {
		return nil
	}
	texts := make([]string, len(cells))
	for i, cell := range cells {
		text := html.UnescapeString(tagPattern.ReplaceAllString(cell[1], ""))
		// The tables pad with &nbsp;, which would defeat the timestamp
		// layouts below.
		text = strings.ReplaceAll(text, " ", " ")
		texts[i] = strings.TrimSpace(text)
	}
	return texts
}

// normalizeTideTimestamp re-renders a recognized timestamp as
// "DD/MM/YYYY HH:MM"; unrecognized values pass through untouched.
func normalizeTideTimestamp(raw string) string {
	for _, layout := range tideTimestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02/01/2006 15:04")
		}
	}
	return raw
}

// CompassLabel maps a bearing in degrees onto the Spanish 16-point rose.
// Bearings beyond [0,360) wrap.
func CompassLabel(degrees float64) string {
	idx := int(math.Round(degrees/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassRose[idx]
}
