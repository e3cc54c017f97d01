//go:build livefeeds

package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tom-villanueva/marea-tigre/internal/domain"
	"github.com/tom-villanueva/marea-tigre/internal/observability"
)

// These tests hit the real INA and SHN endpoints; they are here to catch the
// upstream format drifting, not for CI.
// Run with: go test -tags=livefeeds ./internal/adapter/feed/ -v -count=1

func smokeClient(t *testing.T, legacy bool) *Client {
	t.Helper()
	return NewClient(
		Options{Timeout: 20 * time.Second, LegacyTLS: legacy},
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestSmoke_AlertsFeed(t *testing.T) {
	c := smokeClient(t, false)

	result, err := c.Fetch(context.Background(), "https://alerta.ina.gob.ar/rss/alertas.xml")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Contains(t, result.Body, "<rss")

	// A quiet river means an empty list; the decode itself must hold up.
	alerts := domain.ParseAlerts(result.Body)
	assert.NotNil(t, alerts)
}

func TestSmoke_HeightsFeed(t *testing.T) {
	c := smokeClient(t, false)

	result, err := c.Fetch(context.Background(), "https://alerta.ina.gob.ar/rss/alturas.xml")
	require.NoError(t, err)
	require.True(t, result.OK)

	report, err := domain.ParseSanFernandoHeight(result.Body)
	require.NoError(t, err)

	// Plausibility bounds for the Río de la Plata at San Fernando.
	assert.Greater(t, report.HeightMeters, -2.0)
	assert.Less(t, report.HeightMeters, 6.0)
	assert.NotEmpty(t, report.ObservedAt)
}

func TestSmoke_TelemetrySession(t *testing.T) {
	c := smokeClient(t, true)

	result, err := c.FetchWithSession(context.Background(),
		"https://www.hidro.gob.ar/mobile/index.asp",
		"https://www.hidro.gob.ar/mobile/datosMareografo.asp",
	)
	require.NoError(t, err)
	require.True(t, result.OK)

	telemetry, err := domain.ParseTelemetry(result.Body)
	if errors.Is(err, domain.ErrSecurityBlocked) {
		t.Skip("SHN challenge page active; session warm-up not honored right now")
	}
	require.NoError(t, err)

	// Readings degrade field-by-field; the formatted fields always render.
	assert.NotEmpty(t, telemetry.Tide.HeightFormatted)
	assert.NotEmpty(t, telemetry.Wind.SpeedFormatted)
	if telemetry.Tide.HeightMeters != nil {
		assert.Greater(t, *telemetry.Tide.HeightMeters, -2.0)
		assert.Less(t, *telemetry.Tide.HeightMeters, 6.0)
	}
}
