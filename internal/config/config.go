package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	// Dataset generation.
	Samples        int
	Seed           uint64
	SeedSet        bool
	RunoffDataset  string
	HarvestDataset string
	BatchSize      int

	// Model artifacts.
	ModelDir     string
	ShowProgress bool

	// Optional Kafka sink for generated samples.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	MetricsFile     string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	samples, err := strconv.Atoi(sharedcfg.EnvOrDefault("SAMPLES", "20000"))
	if err != nil || samples <= 0 {
		return nil, errors.New("invalid SAMPLES: must be a positive integer")
	}

	seed, seedSet, err := parseSeed()
	if err != nil {
		return nil, err
	}

	showProgress, err := strconv.ParseBool(sharedcfg.EnvOrDefault("SHOW_PROGRESS", "true"))
	if err != nil {
		return nil, errors.New("invalid SHOW_PROGRESS: must be a boolean")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		Samples:        samples,
		Seed:           seed,
		SeedSet:        seedSet,
		RunoffDataset:  sharedcfg.EnvOrDefault("RUNOFF_DATASET", "data/Runoff_coeff_dataset.csv"),
		HarvestDataset: sharedcfg.EnvOrDefault("HARVEST_DATASET", "data/Harvesting_dataset.csv"),
		BatchSize:      batchSize,

		ModelDir:     sharedcfg.EnvOrDefault("MODEL_DIR", "models"),
		ShowProgress: showProgress,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "harvest-samples"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		MetricsFile:     os.Getenv("METRICS_FILE"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.RunoffDataset == "" {
		return nil, errors.New("RUNOFF_DATASET is required")
	}
	if cfg.HarvestDataset == "" {
		return nil, errors.New("HARVEST_DATASET is required")
	}
	if cfg.RunoffDataset == cfg.HarvestDataset {
		return nil, errors.New("RUNOFF_DATASET and HARVEST_DATASET must differ")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

// parseSeed reads SEED. An unset SEED means the run is unseeded.
func parseSeed() (uint64, bool, error) {
	s := os.Getenv("SEED")
	if s == "" {
		return 0, false, nil
	}
	seed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false, errors.New("invalid SEED: must be a non-negative integer")
	}
	return seed, true, nil
}
