package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tom-villanueva/marea-tigre/internal/adapter/feed"
	"github.com/tom-villanueva/marea-tigre/internal/config"
	"github.com/tom-villanueva/marea-tigre/internal/domain"
	"github.com/tom-villanueva/marea-tigre/internal/filestore"
	"github.com/tom-villanueva/marea-tigre/internal/observability"
	"github.com/tom-villanueva/marea-tigre/internal/service"
)

// --- stubs ---

type stubFetcher struct {
	result feed.Result
	err    error
}

func (f *stubFetcher) Fetch(context.Context, string) (feed.Result, error) {
	return f.result, f.err
}

type stubSessionFetcher struct {
	result feed.Result
	err    error
}

func (f *stubSessionFetcher) FetchWithSession(context.Context, string, string) (feed.Result, error) {
	return f.result, f.err
}

type stubPublisher struct {
	transitions []domain.SurgeTransition
	events      []domain.SurgeEvent
	err         error
}

func (p *stubPublisher) PublishTransition(_ context.Context, transition domain.SurgeTransition, event domain.SurgeEvent) error {
	if p.err != nil {
		return p.err
	}
	p.transitions = append(p.transitions, transition)
	p.events = append(p.events, event)
	return nil
}

// --- fixtures ---

const alertsFeed = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0">
  <channel>
    <title>Alertas INA</title>
    <item><description>Alerta por crecida del Rio de la Plata.</description></item>
    <item><description>&lt;b&gt;Aviso:&lt;/b&gt; viento del sudeste rotando al este.</description></item>
  </channel>
</rss>`

func heightsFeed(height string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0">
  <channel>
    <title>Alturas de rios - INA</title>
    <item>
      <title>Delta del Parana</title>
      <description>Tigre: 0,98 m&lt;br/&gt;San Fernando: %s m&lt;br/&gt;FECHA y HORA: 12/05 14:30</description>
    </item>
  </channel>
</rss>`, height)
}

func tideTable(height string) string {
	return fmt.Sprintf(`<table border="1">
<tr><th>Fecha</th><th>Altura</th></tr>
<tr><td>2024-05-12 13:00:00</td><td>1,80 m</td></tr>
<tr><td>2024-05-12 14:00:00</td><td>%s m</td></tr>
</table>`, height)
}

const windTable = `<table border="1">
<tr><th>Fecha</th><th>Vel</th><th>Rafaga</th><th>Origen</th><th>Dir</th></tr>
<tr><td>2024-05-12 14:00</td><td>18</td><td>25</td><td>PNM</td><td>157</td></tr>
</table>`

func telemetryBody(tide, wind string) string {
	return fmt.Sprintf(`var datos = [];JSON**{"tide":{"latest":%q},"wind":{"latest":%q}}`,
		url.QueryEscape(tide), url.QueryEscape(wind))
}

func ok(body string) feed.Result {
	return feed.Result{StatusCode: 200, Body: body, OK: true}
}

// --- environment ---

type testEnv struct {
	svc       *service.Service
	cfg       *config.Config
	store     *filestore.Store
	dataDir   string
	rss       *stubFetcher
	telemetry *stubSessionFetcher
	publisher *stubPublisher
	clock     *clockwork.FakeClock
	logger    *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.May, 12, 14, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dataDir := t.TempDir()
	store, err := filestore.New(dataDir, logger)
	require.NoError(t, err)

	env := &testEnv{
		cfg: &config.Config{
			AlertsFeedURL:      "https://alerta.ina.gob.ar/rss/alertas.xml",
			HeightsFeedURL:     "https://alerta.ina.gob.ar/rss/alturas.xml",
			TelemetryURL:       "https://www.hidro.gob.ar/mobile/datosMareografo.asp",
			TelemetryWarmupURL: "https://www.hidro.gob.ar/mobile/index.asp",
		},
		store:     store,
		dataDir:   dataDir,
		rss:       &stubFetcher{},
		telemetry: &stubSessionFetcher{},
		publisher: &stubPublisher{},
		clock:     fakeClock,
		logger:    logger,
	}
	env.svc = service.New(env.cfg, env.rss, env.telemetry, env.store, env.publisher, env.clock, observability.NewMetricsForTesting(), env.logger)
	return env
}

// --- tests ---

func TestAlerts(t *testing.T) {
	t.Run("returns descriptions verbatim", func(t *testing.T) {
		env := newTestEnv(t)
		env.rss.result = ok(alertsFeed)

		alerts := env.svc.Alerts(context.Background())

		assert.Equal(t, []string{
			"Alerta por crecida del Rio de la Plata.",
			"<b>Aviso:</b> viento del sudeste rotando al este.",
		}, alerts)
	})

	t.Run("feed failure degrades to empty list", func(t *testing.T) {
		env := newTestEnv(t)
		env.rss.err = fmt.Errorf("%w: connection refused", domain.ErrUpstreamUnavailable)

		alerts := env.svc.Alerts(context.Background())

		// Empty slice, not nil: the endpoint serializes to [] rather than null.
		require.NotNil(t, alerts)
		assert.Empty(t, alerts)
	})
}

func TestSanFernandoHeight(t *testing.T) {
	env := newTestEnv(t)
	env.rss.result = ok(heightsFeed("1,45"))

	resp, err := env.svc.SanFernandoHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.45, resp.Height)
	assert.Equal(t, "1,45 m", resp.HeightFormatted)
	assert.Equal(t, "12/05 14:30", resp.ObservedAt)
	assert.Equal(t, "stable", resp.Trend)
	assert.Equal(t, "Estable", resp.TrendLabel)
	assert.Equal(t, "±0,00 m", resp.ChangeFormatted)

	env.rss.result = ok(heightsFeed("1,52"))

	resp, err = env.svc.SanFernandoHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.52, resp.Height)
	assert.Equal(t, "rising", resp.Trend)
	assert.Equal(t, "Subiendo", resp.TrendLabel)
	assert.InDelta(t, 0.07, resp.Change, 1e-9)
	assert.Equal(t, "+0,07 m", resp.ChangeFormatted)

	doc := filestore.Read(env.store, "alturas_sf", map[string][]domain.HeightSample{})
	require.Len(t, doc["registros"], 2)
	assert.Equal(t, 1.45, doc["registros"][0].Value)
	assert.Equal(t, 1.52, doc["registros"][1].Value)
}

func TestSanFernandoHeightFeedDown(t *testing.T) {
	env := newTestEnv(t)
	env.rss.err = fmt.Errorf("%w: connection refused", domain.ErrUpstreamUnavailable)

	_, err := env.svc.SanFernandoHeight(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestSanFernandoHeightNoReading(t *testing.T) {
	env := newTestEnv(t)
	env.rss.result = ok(alertsFeed)

	_, err := env.svc.SanFernandoHeight(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoDataFound)
}

func TestTendency(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.svc.Tendency(context.Background())

		assert.Equal(t, "stable", resp.Trend)
		assert.Equal(t, "Estable", resp.TrendLabel)
		assert.Equal(t, "±0,00 m", resp.ChangeFormatted)
	})

	t.Run("served from stored history", func(t *testing.T) {
		env := newTestEnv(t)
		for _, v := range []float64{1.00, 1.00, 1.03} {
			require.NoError(t, filestore.Append(env.store, "alturas_sf", "registros", domain.NewHeightSample(v, ""), 72))
		}

		resp := env.svc.Tendency(context.Background())

		assert.Equal(t, "rising", resp.Trend)
		assert.Equal(t, "Subiendo", resp.TrendLabel)
		assert.InDelta(t, 0.03, resp.Change, 1e-9)
		assert.Equal(t, "+0,03 m", resp.ChangeFormatted)
	})
}

func TestTelemetry(t *testing.T) {
	env := newTestEnv(t)
	env.telemetry.result = ok(telemetryBody(tideTable("2,10"), windTable))

	resp, err := env.svc.Telemetry(context.Background())
	require.NoError(t, err)

	require.NotNil(t, resp.Tide.HeightMeters)
	assert.Equal(t, 2.10, *resp.Tide.HeightMeters)
	assert.Equal(t, "2,10 m", resp.Tide.HeightFormatted)
	require.NotNil(t, resp.Wind.SpeedKmh)
	assert.Equal(t, 33.3, *resp.Wind.SpeedKmh)
	assert.Equal(t, "SSE", resp.Wind.DirectionFormatted)
	assert.Equal(t, "2024-05-12T14:00:00Z", resp.Updated)

	doc := filestore.Read(env.store, "alturas_pilote", map[string][]domain.HeightSample{})
	require.Len(t, doc["registros"], 1)
	assert.Equal(t, 2.10, doc["registros"][0].Value)
	assert.Equal(t, "12/05/2024 14:00", doc["registros"][0].ObservedAt)

	event := filestore.Read(env.store, "sudestada", domain.SurgeEvent{})
	assert.True(t, event.Active)
	assert.Equal(t, 2.10, event.PeakHeightMeters)

	assert.Equal(t, []domain.SurgeTransition{domain.SurgeActivated}, env.publisher.transitions)
}

func TestTelemetrySurgeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	serve := func(height string) {
		t.Helper()
		env.telemetry.result = ok(telemetryBody(tideTable(height), windTable))
		_, err := env.svc.Telemetry(ctx)
		require.NoError(t, err)
	}

	serve("2,10") // activates
	serve("2,30") // raises the peak
	serve("1,70") // below release but still inside the dwell window

	event := filestore.Read(env.store, "sudestada", domain.SurgeEvent{})
	assert.True(t, event.Active)
	assert.Equal(t, 2.30, event.PeakHeightMeters)

	env.clock.Advance(4 * time.Hour)
	serve("1,70") // dwell elapsed, event retires

	event = filestore.Read(env.store, "sudestada", domain.SurgeEvent{})
	assert.False(t, event.Active)
	assert.Equal(t, 2.30, event.PeakHeightMeters)

	assert.Equal(t, []domain.SurgeTransition{
		domain.SurgeActivated,
		domain.SurgePeakUpdated,
		domain.SurgeDeactivated,
	}, env.publisher.transitions)
	require.Len(t, env.publisher.events, 3)
	assert.False(t, env.publisher.events[2].Active)
	assert.Equal(t, 2.30, env.publisher.events[2].PeakHeightMeters)
}

func TestTelemetryChallengePage(t *testing.T) {
	env := newTestEnv(t)
	env.telemetry.result = ok("<HTML>Request unsuccessful.</HTML>")

	_, err := env.svc.Telemetry(context.Background())
	assert.ErrorIs(t, err, domain.ErrSecurityBlocked)

	doc := filestore.Read(env.store, "alturas_pilote", map[string][]domain.HeightSample{})
	assert.Empty(t, doc["registros"])
}

func TestTelemetryFetchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.telemetry.err = fmt.Errorf("%w: timeout", domain.ErrUpstreamUnavailable)

	_, err := env.svc.Telemetry(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestTelemetryWithoutTideHeight(t *testing.T) {
	env := newTestEnv(t)
	noHeight := `<table><tr><td>2024-05-12 14:00:00</td><td>s/d</td></tr></table>`
	env.telemetry.result = ok(telemetryBody(noHeight, windTable))

	resp, err := env.svc.Telemetry(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resp.Tide.HeightMeters)
	assert.Equal(t, "-", resp.Tide.HeightFormatted)

	doc := filestore.Read(env.store, "alturas_pilote", map[string][]domain.HeightSample{})
	assert.Empty(t, doc["registros"])
	event := filestore.Read(env.store, "sudestada", domain.SurgeEvent{})
	assert.False(t, event.Active)
}

func TestTelemetryPublishFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")
	env.telemetry.result = ok(telemetryBody(tideTable("2,10"), windTable))

	_, err := env.svc.Telemetry(context.Background())
	require.NoError(t, err)

	// The tracker still advanced even though nothing went out.
	event := filestore.Read(env.store, "sudestada", domain.SurgeEvent{})
	assert.True(t, event.Active)
	assert.Empty(t, env.publisher.transitions)
}

func TestTelemetryWithoutPublisher(t *testing.T) {
	env := newTestEnv(t)
	svc := service.New(env.cfg, env.rss, env.telemetry, env.store, nil, env.clock, observability.NewMetricsForTesting(), env.logger)
	env.telemetry.result = ok(telemetryBody(tideTable("2,10"), windTable))

	_, err := svc.Telemetry(context.Background())
	require.NoError(t, err)

	event := filestore.Read(env.store, "sudestada", domain.SurgeEvent{})
	assert.True(t, event.Active)
}

func TestSurgeStatus(t *testing.T) {
	t.Run("inactive", func(t *testing.T) {
		env := newTestEnv(t)

		resp := env.svc.SurgeStatus(context.Background())

		assert.False(t, resp.Active)
		assert.Equal(t, "Sin sudestada activa.", resp.Message)

		// Peak and Tigre fields stay out of the payload entirely.
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.JSONEq(t, `{"activa": false, "mensaje": "Sin sudestada activa."}`, string(data))
	})

	t.Run("active with prediction", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, filestore.Write(env.store, "sudestada", domain.SurgeEvent{
			Active:             true,
			PeakHeightMeters:   2.10,
			PeakObservedAt:     "14:00",
			PeakDetectedAtUnix: env.clock.Now().Unix(),
			StartedAtUnix:      env.clock.Now().Unix(),
		}))

		resp := env.svc.SurgeStatus(context.Background())

		assert.True(t, resp.Active)
		assert.Equal(t, 2.10, resp.PeakMeters)
		assert.Equal(t, "2,10 m", resp.PeakFormatted)
		assert.Equal(t, "14:00", resp.PeakObservedAt)
		assert.Equal(t, 2.45, resp.TigreHeightMeters)
		assert.Equal(t, "2,45 m", resp.TigreHeightFormatted)
		assert.Equal(t, "17:30", resp.TigreTimeEstimate)
		assert.Equal(t, "Sudestada en curso: pico de 2,10 m en Pilote Norden.", resp.Message)
		assert.Equal(t, "Altura estimada en Tigre: 2,45 m cerca de las 17:30.", resp.TigrePrediction)
	})

	t.Run("survives a deactivated event on disk", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, filestore.Write(env.store, "sudestada", domain.SurgeEvent{
			Active:           false,
			PeakHeightMeters: 2.30,
			PeakObservedAt:   "08:00",
		}))

		resp := env.svc.SurgeStatus(context.Background())

		assert.False(t, resp.Active)
		assert.Equal(t, "Sin sudestada activa.", resp.Message)
	})
}

func TestCheckReadiness(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.svc.CheckReadiness(context.Background()))

	require.NoError(t, os.RemoveAll(env.dataDir))
	assert.Error(t, env.svc.CheckReadiness(context.Background()))
}
