// Package service orchestrates the ingestion pipeline: it fetches the INA
// and SHN sources, hands bodies to the domain parsers, advances the trend
// history and the sudestada tracker through the store, and shapes the JSON
// responses the client polls for.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tom-villanueva/marea-tigre/internal/adapter/feed"
	"github.com/tom-villanueva/marea-tigre/internal/config"
	"github.com/tom-villanueva/marea-tigre/internal/domain"
	"github.com/tom-villanueva/marea-tigre/internal/filestore"
	"github.com/tom-villanueva/marea-tigre/internal/observability"
)

// Store document layout. Height histories live under a "registros" subkey so
// the documents stay extensible; the surge event is a bare singleton.
const (
	keySanFernando = "alturas_sf"
	keyPilote      = "alturas_pilote"
	keySurge       = "sudestada"

	subkeyRecords = "registros"

	maxSanFernandoRecords = 72
	maxPiloteRecords      = 100
)

// SessionFetcher retrieves a document after warming up a cookie session.
type SessionFetcher interface {
	FetchWithSession(ctx context.Context, warmupURL, targetURL string) (feed.Result, error)
}

// TransitionPublisher emits surge lifecycle transitions to downstream
// consumers.
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, transition domain.SurgeTransition, event domain.SurgeEvent) error
}

// Service wires the fetchers, parsers, store, and surge tracker together.
type Service struct {
	cfg       *config.Config
	rss       feed.Fetcher
	telemetry SessionFetcher
	store     *filestore.Store
	publisher TransitionPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Service. Pass a nil publisher to disable transition
// publishing.
func New(cfg *config.Config, rss feed.Fetcher, telemetry SessionFetcher, store *filestore.Store, publisher TransitionPublisher, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		rss:       rss,
		telemetry: telemetry,
		store:     store,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil if the service can persist state, or an error
// describing why it cannot.
func (s *Service) CheckReadiness(_ context.Context) error {
	return s.store.Ping()
}

// Alerts returns the current INA alert bulletins, HTML and all. The alerts
// endpoint never errors: an unreachable feed degrades to an empty list.
func (s *Service) Alerts(ctx context.Context) []string {
	result, err := s.rss.Fetch(ctx, s.cfg.AlertsFeedURL)
	if err != nil {
		s.logger.Warn("alerts feed unavailable", "error", err)
		return []string{}
	}
	return domain.ParseAlerts(result.Body)
}

// SanFernandoHeight fetches the INA height bulletin, appends the San
// Fernando reading to its history, and returns the reading with the
// recomputed trend.
func (s *Service) SanFernandoHeight(ctx context.Context) (HeightResponse, error) {
	result, err := s.rss.Fetch(ctx, s.cfg.HeightsFeedURL)
	if err != nil {
		return HeightResponse{}, err
	}
	report, err := domain.ParseSanFernandoHeight(result.Body)
	if err != nil {
		s.metrics.ParseFailures.WithLabelValues("alturas").Inc()
		return HeightResponse{}, err
	}

	sample := domain.NewHeightSample(report.HeightMeters, report.ObservedAt)
	if err := filestore.Append(s.store, keySanFernando, subkeyRecords, sample, maxSanFernandoRecords); err != nil {
		s.metrics.StoreFailures.WithLabelValues(keySanFernando).Inc()
		s.logger.Warn("height history not persisted", "key", keySanFernando, "error", err)
	}

	trend := s.trend()
	return HeightResponse{
		Height:          report.HeightMeters,
		HeightFormatted: domain.FormatMeters(report.HeightMeters),
		ObservedAt:      report.ObservedAt,
		Trend:           string(trend.State),
		TrendLabel:      trend.State.Label(),
		Change:          trend.Delta,
		ChangeFormatted: trend.DeltaFormatted,
	}, nil
}

// Tendency recomputes the trend from the stored San Fernando history without
// touching the feed.
func (s *Service) Tendency(_ context.Context) TrendResponse {
	trend := s.trend()
	return TrendResponse{
		Trend:           string(trend.State),
		TrendLabel:      trend.State.Label(),
		Change:          trend.Delta,
		ChangeFormatted: trend.DeltaFormatted,
	}
}

func (s *Service) trend() domain.TrendResult {
	doc := filestore.Read(s.store, keySanFernando, map[string][]domain.HeightSample{})
	return domain.ComputeTrend(doc[subkeyRecords])
}

// Telemetry fetches the SHN station inside a warmed-up session, advances the
// pilote history and the surge tracker with the tide reading, and returns
// both readings.
func (s *Service) Telemetry(ctx context.Context) (TelemetryResponse, error) {
	result, err := s.telemetry.FetchWithSession(ctx, s.cfg.TelemetryWarmupURL, s.cfg.TelemetryURL)
	if err != nil {
		return TelemetryResponse{}, err
	}
	telemetry, err := domain.ParseTelemetry(result.Body)
	if err != nil {
		s.metrics.ParseFailures.WithLabelValues("telemetria").Inc()
		return TelemetryResponse{}, err
	}

	s.recordPiloteReading(ctx, telemetry.Tide)

	return TelemetryResponse{
		Tide:    telemetry.Tide,
		Wind:    telemetry.Wind,
		Updated: s.clock.Now().Format(time.RFC3339),
	}, nil
}

// SurgeStatus reports the persisted sudestada state, deriving the Tigre
// estimate on read.
func (s *Service) SurgeStatus(_ context.Context) SurgeResponse {
	event := filestore.Read(s.store, keySurge, domain.SurgeEvent{})
	if !event.Active {
		return SurgeResponse{Active: false, Message: "Sin sudestada activa."}
	}

	prediction := domain.PredictTigre(event)
	return SurgeResponse{
		Active:               true,
		Message:              fmt.Sprintf("Sudestada en curso: pico de %s en Pilote Norden.", domain.FormatMeters(event.PeakHeightMeters)),
		PeakMeters:           event.PeakHeightMeters,
		PeakFormatted:        domain.FormatMeters(event.PeakHeightMeters),
		PeakObservedAt:       event.PeakObservedAt,
		TigreHeightMeters:    prediction.HeightMeters,
		TigreHeightFormatted: domain.FormatMeters(prediction.HeightMeters),
		TigreTimeEstimate:    prediction.TimeEstimate,
		TigrePrediction:      tigreSentence(prediction),
	}
}

// surgeChange is one tracker transition captured during a store update,
// snapshotted with the event state it produced.
type surgeChange struct {
	transition domain.SurgeTransition
	event      domain.SurgeEvent
}

// recordPiloteReading persists a usable tide reading and advances the surge
// event under the store's exclusive update. Storage failures are logged and
// skipped: the tracker simply does not advance this cycle.
func (s *Service) recordPiloteReading(ctx context.Context, tide domain.TideReading) {
	if tide.HeightMeters == nil {
		return
	}
	height := *tide.HeightMeters
	observedAt := ""
	if tide.Timestamp != nil {
		observedAt = *tide.Timestamp
	}

	sample := domain.NewHeightSample(height, observedAt)
	if err := filestore.Append(s.store, keyPilote, subkeyRecords, sample, maxPiloteRecords); err != nil {
		s.metrics.StoreFailures.WithLabelValues(keyPilote).Inc()
		s.logger.Warn("pilote history not persisted", "key", keyPilote, "error", err)
	}

	var changes []surgeChange
	var current domain.SurgeEvent
	err := filestore.Update(s.store, keySurge, domain.SurgeEvent{}, func(event domain.SurgeEvent) domain.SurgeEvent {
		event, transition := domain.TrackSurge(event, height, observedAt)
		if transition != domain.SurgeNone {
			changes = append(changes, surgeChange{transition: transition, event: event})
		}
		event, transition = domain.RetireSurge(event, height)
		if transition != domain.SurgeNone {
			changes = append(changes, surgeChange{transition: transition, event: event})
		}
		current = event
		return event
	})
	if err != nil {
		s.metrics.StoreFailures.WithLabelValues(keySurge).Inc()
		s.logger.Warn("surge state not persisted", "error", err)
		return
	}

	if current.Active {
		s.metrics.SurgeActive.Set(1)
	} else {
		s.metrics.SurgeActive.Set(0)
	}

	for _, change := range changes {
		s.metrics.SurgeTransitions.WithLabelValues(string(change.transition)).Inc()
		s.logger.Info("sudestada transition",
			"transition", string(change.transition),
			"peak_m", change.event.PeakHeightMeters,
			"active", change.event.Active,
		)
		s.publish(ctx, change)
	}
}

// publish forwards one transition to the configured publisher. Publish
// failures are logged, never surfaced: the tracker state is already
// persisted and the reading already served.
func (s *Service) publish(ctx context.Context, change surgeChange) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransition(ctx, change.transition, change.event); err != nil {
		s.logger.Warn("transition publish failed", "transition", string(change.transition), "error", err)
		return
	}
	s.metrics.EventsPublished.Inc()
}

func tigreSentence(prediction domain.TigrePrediction) string {
	height := domain.FormatMeters(prediction.HeightMeters)
	if prediction.TimeEstimate == "" {
		return fmt.Sprintf("Altura estimada en Tigre: %s.", height)
	}
	return fmt.Sprintf("Altura estimada en Tigre: %s cerca de las %s.", height, prediction.TimeEstimate)
}
