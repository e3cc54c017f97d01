// Command feedsim serves synthetic INA and SHN endpoints in their real wire
// formats so the service can be developed and demoed without the government
// upstreams. It uses the actual domain formatting helpers to ensure the
// emitted text matches what the feed parsers expect. The sudestada scenario
// replays a full surge cycle: the river climbs past the activation threshold,
// peaks mid-cycle, and recedes.
//
// Usage:
//
//	go run ./cmd/feedsim -addr :9090 -scenario sudestada -cycle 2h
//
// Point the service at it with:
//
//	ALERTS_FEED_URL=http://localhost:9090/rss/alertas.xml \
//	HEIGHTS_FEED_URL=http://localhost:9090/rss/alturas.xml \
//	TELEMETRY_WARMUP_URL=http://localhost:9090/mobile/index.asp \
//	TELEMETRY_URL=http://localhost:9090/mobile/datosMareografo.asp \
//	TELEMETRY_LEGACY_TLS=false
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tom-villanueva/marea-tigre/internal/domain"
)

// SHN gates the telemetry endpoint behind an ASP session cookie; requests
// without one get a javascript challenge page instead of data.
const sessionCookie = "ASPSESSIONIDFEEDSIM"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	addr := flag.String("addr", ":9090", "listen address")
	scenario := flag.String("scenario", "sudestada", "scenario to replay: calm or sudestada")
	cycle := flag.Duration("cycle", 2*time.Hour, "duration of one full scenario cycle")
	flag.Parse()

	if *scenario != "calm" && *scenario != "sudestada" {
		flag.Usage()
		return fmt.Errorf("unknown scenario %q (want calm or sudestada)", *scenario)
	}

	sim := &simulator{scenario: *scenario, cycle: *cycle, start: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rss/alertas.xml", sim.handleAlerts)
	mux.HandleFunc("GET /rss/alturas.xml", sim.handleHeights)
	mux.HandleFunc("GET /mobile/index.asp", sim.handleWarmup)
	mux.HandleFunc("GET /mobile/datosMareografo.asp", sim.handleTelemetry)

	log.Printf("feedsim listening on %s (scenario=%s cycle=%s)", *addr, *scenario, *cycle)
	return http.ListenAndServe(*addr, mux)
}

type simulator struct {
	scenario string
	cycle    time.Duration
	start    time.Time
}

// phase is the position inside the current cycle, in [0, 1). Times before
// start wrap into the previous cycle so backfilled table rows stay on the
// waveform.
func (s *simulator) phase(at time.Time) float64 {
	elapsed := at.Sub(s.start) % s.cycle
	if elapsed < 0 {
		elapsed += s.cycle
	}
	return float64(elapsed) / float64(s.cycle)
}

// riverHeight follows half a sine wave per cycle. Calm hovers around 1,20 m;
// the sudestada scenario crests near 2,60 m so the surge tracker activates,
// records a peak, and later retires.
func (s *simulator) riverHeight(at time.Time) float64 {
	amplitude := 0.15
	if s.scenario == "sudestada" {
		amplitude = 1.40
	}
	return 1.20 + amplitude*math.Sin(s.phase(at)*math.Pi)
}

// wind returns speed in knots and origin direction in degrees. A sudestada
// blows from the southeast and stiffens toward the crest.
func (s *simulator) wind(at time.Time) (knots, degrees float64) {
	if s.scenario == "sudestada" {
		return 10 + 18*math.Sin(s.phase(at)*math.Pi), 135
	}
	return 8, 50
}

func (s *simulator) handleAlerts(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	var items []string
	if h := s.riverHeight(now); h >= 2.0 {
		items = append(items,
			"Alerta por sudestada: crecida s\xfabita del R\xedo de la Plata. Altura en Pilote Norden: "+domain.FormatMeters(h)+".")
	}
	serveRSS(w, rssFeed("Alertas - INA", items))
}

func (s *simulator) handleHeights(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	desc := fmt.Sprintf("Tigre: %s&lt;br/&gt;San Fernando: %s&lt;br/&gt;FECHA y HORA: %s",
		domain.FormatMeters(s.riverHeight(now)-0.22),
		domain.FormatMeters(s.riverHeight(now)),
		now.Format("02/01 15:04"))
	serveRSS(w, rssFeed("Alturas - Delta del Paran\xe1", []string{desc}))
}

func (s *simulator) handleWarmup(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "feedsim", Path: "/"})
	w.Header().Set("Content-Type", "text/html")
	io.WriteString(w, "<html><body>Mareas en tiempo real</body></html>")
}

func (s *simulator) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(sessionCookie); err != nil {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<HTML><HEAD><script>window.location="/mobile/index.asp";</script>Request unsuccessful.</HEAD></HTML>`)
		return
	}

	now := time.Now()
	payload, err := json.Marshal(map[string]map[string]string{
		"tide": {"latest": url.QueryEscape(s.tideTable(now))},
		"wind": {"latest": url.QueryEscape(s.windTable(now))},
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "var datos = [];JSON**%s", payload)
}

// tideTable emits the last hour of readings at 15-minute spacing, newest last,
// in the two-column layout the mareograph page uses.
func (s *simulator) tideTable(now time.Time) string {
	var b strings.Builder
	b.WriteString(`<table border="1"><tr><th>Fecha y Hora</th><th>Altura</th></tr>`)
	for i := 3; i >= 0; i-- {
		at := now.Add(-time.Duration(i) * 15 * time.Minute)
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>",
			at.Format("2006-01-02 15:04:05"), domain.FormatMeters(s.riverHeight(at)))
	}
	b.WriteString("</table>")
	return b.String()
}

// windTable emits a single current reading in the five-column anemometer
// layout: timestamp, speed, gust, station code, origin degrees.
func (s *simulator) windTable(now time.Time) string {
	knots, degrees := s.wind(now)
	var b strings.Builder
	b.WriteString(`<table border="1"><tr><th>Fecha y Hora</th><th>Velocidad</th><th>R&aacute;faga</th><th>Estaci&oacute;n</th><th>Direcci&oacute;n</th></tr>`)
	fmt.Fprintf(&b, "<tr><td>%s</td><td>%.0f</td><td>%.0f</td><td>PNM</td><td>%.0f</td></tr>",
		now.Format("2006-01-02 15:04"), knots, knots*1.4, degrees)
	b.WriteString("</table>")
	return b.String()
}

// rssFeed assembles a minimal RSS 2.0 document. Descriptions arrive already
// entity-escaped; non-ASCII bytes stay latin-1 to match the INA feeds, which
// declare ISO-8859-1 rather than UTF-8.
func rssFeed(title string, items []string) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n")
	b.WriteString("<rss version=\"2.0\">\n  <channel>\n")
	fmt.Fprintf(&b, "    <title>%s</title>\n", title)
	for _, item := range items {
		fmt.Fprintf(&b, "    <item><description>%s</description></item>\n", item)
	}
	b.WriteString("  </channel>\n</rss>\n")
	return b.String()
}

func serveRSS(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/rss+xml; charset=ISO-8859-1")
	io.WriteString(w, body)
}
