// Package kafka publishes generated samples to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainharvest/internal/config"
	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

// maxPartialResends bounds how often LoadBatch resends the messages of a
// batch that the brokers rejected while the rest were written.
const maxPartialResends = 3

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces one message per generated roof to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sample topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

// SampleMessage is the message value: the harvesting row joined with the
// region of its runoff row.
type SampleMessage struct {
	domain.HarvestSample
	Region domain.Region `json:"region"`
}

// LoadBatch publishes the batch in a single WriteMessages call. Messages the
// brokers rejected are resent on their own, so rows already written are not
// duplicated. If the batch still fails, the pipeline retries all of it;
// message keys are deterministic sample IDs, so consumers dedupe on the key.
func (w *Writer) LoadBatch(ctx context.Context, batch pipeline.Batch) error {
	if len(batch.Harvest) == 0 {
		return nil
	}
	if len(batch.Harvest) != len(batch.Runoff) {
		return fmt.Errorf("batch at offset %d: %d runoff rows but %d harvest rows",
			batch.Offset, len(batch.Runoff), len(batch.Harvest))
	}

	generatedAt := domain.Now()
	msgs := make([]kafkago.Message, len(batch.Harvest))
	for i := range batch.Harvest {
		msg, err := serializeToMessage(batch.Runoff[i], batch.Harvest[i], generatedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.publish(ctx, msgs); err != nil {
		return err
	}
	w.logger.Debug("published batch", "topic", w.topic, "offset", batch.Offset, "messages", len(msgs))
	return nil
}

func (w *Writer) publish(ctx context.Context, msgs []kafkago.Message) error {
	pending := msgs
	for attempt := 0; ; attempt++ {
		err := w.writer.WriteMessages(ctx, pending...)
		if err == nil {
			return nil
		}
		var werrs kafkago.WriteErrors
		if !errors.As(err, &werrs) || len(werrs) != len(pending) || attempt == maxPartialResends || ctx.Err() != nil {
			return err
		}

		var failed []kafkago.Message
		for i, e := range werrs {
			if e != nil {
				failed = append(failed, pending[i])
			}
		}
		if len(failed) == 0 {
			return nil
		}
		w.logger.Warn("resending rejected messages",
			"topic", w.topic,
			"failed", len(failed),
			"written", len(pending)-len(failed),
			"error", err,
		)
		pending = failed
	}
}

// Close flushes pending writes and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a joined sample into a Kafka message keyed by
// the sample ID.
func serializeToMessage(runoff domain.RunoffSample, harvest domain.HarvestSample, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(SampleMessage{HarvestSample: harvest, Region: runoff.Region})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sample: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(harvest.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location", Value: []byte(harvest.Location)},
			{Key: "region", Value: []byte(runoff.Region)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
