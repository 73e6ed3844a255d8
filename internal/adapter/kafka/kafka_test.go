package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/rainharvest/internal/config"
	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 10, 0, 0, time.UTC)
	runoff := domain.RunoffSample{
		ID:                "3f0e",
		RoofType:          "Metal Roofs",
		RoofAge:           12,
		Region:            domain.RegionUrban,
		Location:          "Mumbai",
		RunoffCoefficient: 0.8485,
	}
	harvest := domain.HarvestSample{
		ID:                "3f0e",
		RoofAreaSqM:       150,
		RoofType:          "Metal Roofs",
		RoofAge:           12,
		RunoffCoefficient: 0.8485,
		Location:          "Mumbai",
		AnnualRainfallMM:  2200,
		HarvestableLiters: 266000,
	}

	msg, err := serializeToMessage(runoff, harvest, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("3f0e"), msg.Key)
	assert.Contains(t, string(msg.Value), `"region":"Urban"`)
	assert.Contains(t, string(msg.Value), `"annual_harvestable_water_liters":266000`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "location", msg.Headers[0].Key)
	assert.Equal(t, []byte("Mumbai"), msg.Headers[0].Value)
	assert.Equal(t, "region", msg.Headers[1].Key)
	assert.Equal(t, []byte("Urban"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var decoded SampleMessage
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, harvest, decoded.HarvestSample)
	assert.Equal(t, domain.RegionUrban, decoded.Region)
}

func TestWriter_LoadBatch_MismatchedBatch(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "harvest-samples"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	err := w.LoadBatch(context.Background(), pipeline.Batch{
		Runoff:  []domain.RunoffSample{{ID: "a"}},
		Harvest: []domain.HarvestSample{{ID: "a"}, {ID: "b"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 runoff rows but 2 harvest rows")
}

func TestWriter_LoadBatch_EmptyIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "harvest-samples"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.NoError(t, w.LoadBatch(context.Background(), pipeline.Batch{}))
}

type scriptedWriter struct {
	results []error
	calls   [][]string
}

func (s *scriptedWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	keys := make([]string, len(msgs))
	for i, m := range msgs {
		keys[i] = string(m.Key)
	}
	s.calls = append(s.calls, keys)
	if len(s.calls) > len(s.results) {
		return nil
	}
	return s.results[len(s.calls)-1]
}

func (s *scriptedWriter) Close() error { return nil }

func threeRowBatch() pipeline.Batch {
	b := pipeline.Batch{}
	for _, id := range []string{"a", "b", "c"} {
		b.Runoff = append(b.Runoff, domain.RunoffSample{ID: id, Region: domain.RegionRural})
		b.Harvest = append(b.Harvest, domain.HarvestSample{ID: id, Location: "Jaisalmer"})
	}
	return b
}

func TestWriter_LoadBatch_ResendsOnlyRejectedMessages(t *testing.T) {
	rejected := errors.New("leader not available")
	sw := &scriptedWriter{results: []error{kafkago.WriteErrors{nil, rejected, nil}}}
	w := &Writer{writer: sw, topic: "harvest-samples", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.LoadBatch(context.Background(), threeRowBatch()))
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"b"}}, sw.calls)
}

func TestWriter_LoadBatch_GivesUpAfterResends(t *testing.T) {
	rejected := errors.New("leader not available")
	results := make([]error, maxPartialResends+1)
	for i := range results {
		results[i] = kafkago.WriteErrors{rejected}
	}
	results[0] = kafkago.WriteErrors{nil, nil, rejected}
	sw := &scriptedWriter{results: results}
	w := &Writer{writer: sw, topic: "harvest-samples", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.LoadBatch(context.Background(), threeRowBatch())
	require.Error(t, err)
	require.Len(t, sw.calls, maxPartialResends+1)
	for _, call := range sw.calls[1:] {
		assert.Equal(t, []string{"c"}, call)
	}
}

func TestWriter_LoadBatch_OtherErrorReturnedAsIs(t *testing.T) {
	sw := &scriptedWriter{results: []error{io.ErrClosedPipe}}
	w := &Writer{writer: sw, topic: "harvest-samples", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.LoadBatch(context.Background(), threeRowBatch())
	require.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Len(t, sw.calls, 1)
}
