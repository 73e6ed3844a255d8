//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/rainharvest/internal/adapter/csvfile"
	"github.com/couchcryptid/rainharvest/internal/adapter/kafka"
	"github.com/couchcryptid/rainharvest/internal/config"
	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/generator"
	"github.com/couchcryptid/rainharvest/internal/observability"
	"github.com/couchcryptid/rainharvest/internal/pipeline"
	"github.com/couchcryptid/rainharvest/internal/validation"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testTopic   = "test-harvest-samples"
	testSamples = 120
	testSeed    = 2024
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("rainharvest-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestGenerateToKafkaAndCSV runs the generation pipeline with both sinks and
// checks that every CSV row arrives on the topic, keyed by its sample ID.
func TestGenerateToKafkaAndCSV(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	dir := t.TempDir()
	cfg := &config.Config{
		RunoffDataset:  filepath.Join(dir, "runoff.csv"),
		HarvestDataset: filepath.Join(dir, "harvest.csv"),
		KafkaBrokers:   []string{broker},
		KafkaTopic:     testTopic,
	}

	csvWriter, err := csvfile.NewWriter(cfg.RunoffDataset, cfg.HarvestDataset)
	require.NoError(t, err)
	kafkaWriter := kafka.NewWriter(cfg, discardLogger())

	sinks := []pipeline.Sink{{Name: "csv", Loader: csvWriter}, {Name: "kafka", Loader: kafkaWriter}}
	p := pipeline.New(generator.New(testSeed), sinks, discardLogger(), observability.NewMetricsForTesting(), 50)

	summary, err := p.Run(ctx, testSamples)
	require.NoError(t, err)
	require.NoError(t, csvWriter.Close())
	require.NoError(t, kafkaWriter.Close())
	assert.Equal(t, testSamples, summary.Samples)
	assert.Equal(t, 3, summary.Batches)

	report, err := validation.Validate(cfg.RunoffDataset, cfg.HarvestDataset)
	require.NoError(t, err)
	assert.True(t, report.Passed())

	harvest, err := csvfile.ReadHarvest(cfg.HarvestDataset)
	require.NoError(t, err)

	// The deterministic IDs of the same seed tell us which key to expect per row.
	s := generator.New(testSeed)
	expected, err := s.Harvest(s.Runoff(testSamples))
	require.NoError(t, err)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	for i := range testSamples {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read message %d", i)

		var got kafka.SampleMessage
		require.NoError(t, json.Unmarshal(msg.Value, &got))

		assert.Equal(t, expected[i].ID, string(msg.Key))
		assert.Equal(t, expected[i].ID, got.ID)
		assert.Equal(t, harvest[i].HarvestableLiters, got.HarvestableLiters)
		assert.Equal(t, harvest[i].Location, got.Location)

		loc, ok := domain.LookupLocation(got.Location)
		require.True(t, ok)
		assert.Equal(t, loc.Region, got.Region)

		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, got.Location, headers["location"])
		assert.Equal(t, string(got.Region), headers["region"])
		_, err = time.Parse(time.RFC3339, headers["generated_at"])
		assert.NoError(t, err)
	}
}
