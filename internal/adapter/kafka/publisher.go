// Package kafka publishes sudestada lifecycle transitions for downstream
// consumers (alert fan-out, dashboards). Publishing is feature-flagged; the
// pipeline runs fine without a broker.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tom-villanueva/marea-tigre/internal/config"
	"github.com/tom-villanueva/marea-tigre/internal/domain"
)

// Publisher produces surge transition messages to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a producer for the configured transition topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishTransition emits one lifecycle change together with the event state
// after the transition was applied.
func (p *Publisher) PublishTransition(ctx context.Context, transition domain.SurgeTransition, event domain.SurgeEvent) error {
	msg, err := transitionMessage(transition, event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// transitionPayload is the wire shape, keyed in Spanish like the rest of the
// externally visible JSON.
type transitionPayload struct {
	Transition domain.SurgeTransition `json:"transicion"`
	Event      domain.SurgeEvent      `json:"evento"`
}

// transitionMessage marshals a transition into a Kafka message. The fixed
// key keeps every transition of the station on one partition, preserving
// lifecycle order for consumers.
func transitionMessage(transition domain.SurgeTransition, event domain.SurgeEvent) (kafkago.Message, error) {
	data, err := json.Marshal(transitionPayload{Transition: transition, Event: event})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize surge transition: %w", err)
	}
	return kafkago.Message{
		Key:   []byte("pilote-norden"),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "transition", Value: []byte(transition)},
			{Key: "peak_detected_at", Value: []byte(strconv.FormatInt(event.PeakDetectedAtUnix, 10))},
		},
	}, nil
}
