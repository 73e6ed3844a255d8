package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const (
	headRows        = 5
	maxLoadAttempts = 5
)

// SampleSource draws runoff rows and derives the matching harvesting rows.
// *generator.Sampler implements it.
type SampleSource interface {
	Seed() uint64
	Runoff(n int) []domain.RunoffSample
	Harvest(runoff []domain.RunoffSample) ([]domain.HarvestSample, error)
}

// Batch is one slice of the generated datasets. Runoff[i] and Harvest[i]
// describe the same roof.
type Batch struct {
	Offset  int
	Runoff  []domain.RunoffSample
	Harvest []domain.HarvestSample
}

// BatchLoader writes a batch to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, batch Batch) error
}

// Sink names a loader for logs and metrics.
type Sink struct {
	Name   string
	Loader BatchLoader
}

// Summary describes a completed (or interrupted) generation run.
type Summary struct {
	Seed        uint64
	Samples     int
	Batches     int
	StartedAt   time.Time
	FinishedAt  time.Time
	RunoffHead  []domain.RunoffSample
	HarvestHead []domain.HarvestSample
}

// Pipeline orchestrates the sample-and-load loop.
type Pipeline struct {
	source    SampleSource
	sinks     []Sink
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	target    atomic.Int64
	generated atomic.Int64
	batchSize int
}

// Status is a point-in-time view of a running generation.
type Status struct {
	Seed      uint64 `json:"seed"`
	Target    int64  `json:"target"`
	Generated int64  `json:"generated"`
	Ready     bool   `json:"ready"`
}

// New creates a Pipeline that loads every batch into each sink in order.
func New(source SampleSource, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		source:    source,
		sinks:     sinks,
		logger:    logger,
		metrics:   metrics,
		batchSize: max(batchSize, 1),
	}
}

// CheckReadiness returns nil once the pipeline has loaded at least one batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any samples yet")
	}
	return nil
}

// Status reports generation progress. It is safe to call concurrently with Run.
func (p *Pipeline) Status() Status {
	return Status{
		Seed:      p.source.Seed(),
		Target:    p.target.Load(),
		Generated: p.generated.Load(),
		Ready:     p.ready.Load(),
	}
}

// Run generates n samples. It stops early with ctx.Err() on cancellation, or
// with the load error once a sink has failed maxLoadAttempts times in a row.
func (p *Pipeline) Run(ctx context.Context, n int) (Summary, error) {
	summary := Summary{Seed: p.source.Seed(), StartedAt: domain.Now()}
	p.logger.Info("generation started", "samples", n, "batch_size", p.batchSize, "seed", summary.Seed, "sinks", len(p.sinks))
	p.target.Store(int64(n))
	p.metrics.GeneratorRunning.Set(1)
	defer p.metrics.GeneratorRunning.Set(0)

	for summary.Samples < n {
		if err := ctx.Err(); err != nil {
			p.logger.Info("generation stopping", "reason", err, "samples", summary.Samples)
			summary.FinishedAt = domain.Now()
			return summary, err
		}

		batch, err := p.processBatch(ctx, summary.Samples, min(p.batchSize, n-summary.Samples))
		if err != nil {
			summary.FinishedAt = domain.Now()
			return summary, err
		}

		summary.Samples += len(batch.Runoff)
		summary.Batches++
		summary.capture(batch)
	}

	summary.FinishedAt = domain.Now()
	p.logger.Info("generation finished", "samples", summary.Samples, "batches", summary.Batches,
		"duration", summary.FinishedAt.Sub(summary.StartedAt))
	return summary, nil
}

// processBatch samples one batch and loads it into every sink.
func (p *Pipeline) processBatch(ctx context.Context, offset, size int) (Batch, error) {
	start := time.Now()

	runoff := p.source.Runoff(size)
	harvest, err := p.source.Harvest(runoff)
	if err != nil {
		return Batch{}, fmt.Errorf("derive harvesting batch at offset %d: %w", offset, err)
	}
	batch := Batch{Offset: offset, Runoff: runoff, Harvest: harvest}

	for _, sink := range p.sinks {
		if err := p.loadWithRetry(ctx, sink, batch); err != nil {
			return Batch{}, err
		}
	}

	p.metrics.SamplesGenerated.Add(float64(size))
	p.metrics.BatchesLoaded.Inc()
	p.metrics.BatchSize.Observe(float64(size))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.generated.Add(int64(size))
	p.ready.Store(true)
	return batch, nil
}

// loadWithRetry loads a batch, backing off exponentially between failures:
// 200ms doubling up to 5s.
func (p *Pipeline) loadWithRetry(ctx context.Context, sink Sink, batch Batch) error {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= maxLoadAttempts; attempt++ {
		if err = sink.Loader.LoadBatch(ctx, batch); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.metrics.LoadErrors.WithLabelValues(sink.Name).Inc()
		p.logger.Warn("load batch failed",
			"sink", sink.Name,
			"offset", batch.Offset,
			"batch_size", len(batch.Runoff),
			"attempt", attempt,
			"error", err,
		)
		if attempt == maxLoadAttempts {
			break
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("load batch into %s at offset %d: %w", sink.Name, batch.Offset, err)
}

func (s *Summary) capture(batch Batch) {
	if n := headRows - len(s.RunoffHead); n > 0 {
		s.RunoffHead = append(s.RunoffHead, batch.Runoff[:min(n, len(batch.Runoff))]...)
	}
	if n := headRows - len(s.HarvestHead); n > 0 {
		s.HarvestHead = append(s.HarvestHead, batch.Harvest[:min(n, len(batch.Harvest))]...)
	}
}
