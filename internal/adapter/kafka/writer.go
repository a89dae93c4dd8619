// Package kafka publishes computed snapshots to a sink topic for downstream
// consumers (warehouse loaders, notification services).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/policymetrics/talent-flow-etl/internal/config"
	"github.com/policymetrics/talent-flow-etl/internal/domain"
)

// Writer produces state records to a Kafka topic.
// It implements pipeline.SnapshotPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSnapshot serializes every state record in the snapshot and writes
// them in a single WriteMessages call. Keys are FIPS codes, so a compacted
// topic retains exactly one current record per state.
func (w *Writer) PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if len(snap.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Records))
	for i := range snap.Records {
		msg, err := serializeToMessage(snap.Records[i], snap.FetchedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	w.logger.Debug("snapshot published", "records", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a StateRecord into a Kafka message.
func serializeToMessage(rec domain.StateRecord, fetchedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize state record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.FIPS),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "segment", Value: []byte(rec.Segment)},
			{Key: "fetched_at", Value: []byte(fetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
