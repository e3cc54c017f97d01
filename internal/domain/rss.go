package domain

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// RSS item shapes for the INA alert and height feeds. Only the description
// matters; titles repeat the station list and links point at the INA portal.
type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
}

var (
	// sanFernandoPattern pulls the San Fernando level out of a bulletin
	// description, e.g. "San Fernando: 1,45 m". Both decimal separators occur
	// in the wild.
	sanFernandoPattern = regexp.MustCompile(`(?i)San\s+Fernando\s*:\s*(-?\d+(?:[.,]\d+)?)\s*m`)

	// observedAtPattern captures the bulletin's own timestamp line,
	// e.g. "FECHA y HORA: 12/05 14:30". The text after the colon is kept
	// verbatim up to the next tag or line break.
	observedAtPattern = regexp.MustCompile(`(?i)FECHA\s+y\s+HORA\s*:\s*([^<\r\n]+)`)
)

// decodeRSS unmarshals a feed body, transcoding the ISO-8859-1 encoding the
// INA feeds still declare.
func decodeRSS(body string) (rssDocument, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	dec.CharsetReader = charsetReader
	var doc rssDocument
	if err := dec.Decode(&doc); err != nil {
		return rssDocument{}, err
	}
	return doc, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8":
		return input, nil
	case "iso-8859-1", "latin1", "windows-1252":
		return &latin1Reader{r: input}, nil
	}
	return nil, fmt.Errorf("unsupported feed charset %q", charset)
}

// latin1Reader converts ISO-8859-1 bytes to UTF-8 on the fly. Every Latin-1
// byte maps to the code point of the same value, so no table is needed. Bytes
// that expand past the destination buffer carry over to the next Read.
type latin1Reader struct {
	r       io.Reader
	pending []byte
}

func (l *latin1Reader) Read(p []byte) (int, error) {
	if len(l.pending) > 0 {
		n := copy(p, l.pending)
		l.pending = l.pending[n:]
		return n, nil
	}
	buf := make([]byte, len(p))
	n, err := l.r.Read(buf)
	out := make([]byte, 0, n*2)
	for _, b := range buf[:n] {
		if b < 0x80 {
			out = append(out, b)
		} else {
			out = append(out, 0xC0|b>>6, 0x80|b&0x3F)
		}
	}
	written := copy(p, out)
	l.pending = out[written:]
	if len(l.pending) > 0 {
		return written, nil
	}
	return written, err
}

// ParseAlerts extracts every alert description from the INA alert feed, in
// feed order. Descriptions pass through verbatim apart from trimming; markup
// stays for the client to render. A body that does not parse, or a feed with
// no items, yields an empty list.
func ParseAlerts(body string) []string {
	alerts := []string{}
	doc, err := decodeRSS(body)
	if err != nil {
		return alerts
	}
	for _, item := range doc.Channel.Items {
		if desc := strings.TrimSpace(item.Description); desc != "" {
			alerts = append(alerts, desc)
		}
	}
	return alerts
}

// ParseSanFernandoHeight scans the INA height bulletin for the first item
// that carries both a San Fernando level and a "FECHA y HORA" timestamp.
// Items missing either are skipped; a bulletin with no usable item returns
// ErrNoDataFound.
func ParseSanFernandoHeight(body string) (HeightReport, error) {
	doc, err := decodeRSS(body)
	if err != nil {
		return HeightReport{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	for _, item := range doc.Channel.Items {
		height := sanFernandoPattern.FindStringSubmatch(item.Description)
		observed := observedAtPattern.FindStringSubmatch(item.Description)
		if height == nil || observed == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.Replace(height[1], ",", ".", 1), 64)
		if err != nil {
			continue
		}
		return HeightReport{
			HeightMeters: value,
			ObservedAt:   strings.TrimSpace(observed[1]),
		}, nil
	}
	return HeightReport{}, fmt.Errorf("%w: san fernando reading", ErrNoDataFound)
}
