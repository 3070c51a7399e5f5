// Package kafka publishes finished assessment reports to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tailvane/windresource/internal/config"
	"github.com/tailvane/windresource/internal/pipeline"
)

// schemaVersion tags published messages so consumers can dispatch on
// the report layout.
const schemaVersion = "1"

// Publisher produces assessment reports to a Kafka topic.
// It implements pipeline.ReportSink.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured report topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: cfg.KafkaTimeout,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes the report and writes it keyed by run ID, so
// repeated runs of one assessment land in one partition and can be
// deduplicated downstream.
func (p *Publisher) Publish(ctx context.Context, report *pipeline.Report) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report %s: %w", report.RunID, err)
	}
	p.logger.Debug("report written", "run_id", report.RunID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeReport marshals a report into a Kafka message.
func serializeReport(report *pipeline.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "schema_version", Value: []byte(schemaVersion)},
			{Key: "site", Value: []byte(report.Site.String())},
			{Key: "turbine", Value: []byte(report.Turbine)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
