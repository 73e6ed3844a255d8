// Command generate writes the synthetic runoff coefficient and harvesting
// datasets. Settings come from the environment; see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/couchcryptid/rainharvest/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/rainharvest/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rainharvest/internal/adapter/kafka"
	"github.com/couchcryptid/rainharvest/internal/config"
	"github.com/couchcryptid/rainharvest/internal/generator"
	"github.com/couchcryptid/rainharvest/internal/observability"
	"github.com/couchcryptid/rainharvest/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := run(ctx, cfg, logger, metrics)
	if err := observability.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Error("write metrics textfile", "path", cfg.MetricsFile, "error", err)
	}
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) int {
	seed := cfg.Seed
	if !cfg.SeedSet {
		seed = generator.RandomSeed()
		logger.Info("no SEED set, using a random seed", "seed", seed)
	}
	sampler := generator.New(seed)

	csvWriter, err := csvfile.NewWriter(cfg.RunoffDataset, cfg.HarvestDataset)
	if err != nil {
		logger.Error("failed to open datasets", "error", err)
		return 1
	}
	sinks := []pipeline.Sink{{Name: "csv", Loader: csvWriter}}
	closers := []namedCloser{{"csv writer", csvWriter}}

	if cfg.KafkaEnabled {
		kafkaWriter := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, pipeline.Sink{Name: "kafka", Loader: kafkaWriter})
		closers = append(closers, namedCloser{"kafka writer", kafkaWriter})
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(sampler, sinks, logger, metrics, cfg.BatchSize)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, func() any { return p.Status() }, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	summary, runErr := p.Run(ctx, cfg.Samples)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "sink", c.name, "error", err)
		}
	}

	if runErr != nil {
		logger.Error("generation failed", "error", runErr, "samples", summary.Samples, "seed", summary.Seed)
		return 1
	}

	printSummary(os.Stdout, cfg, summary)
	return 0
}

type namedCloser struct {
	name string
	io.Closer
}

func printSummary(out io.Writer, cfg *config.Config, s pipeline.Summary) {
	fmt.Fprintf(out, "Generated %d samples (seed %d)\n", s.Samples, s.Seed)
	fmt.Fprintf(out, "  %s\n  %s\n\n", cfg.RunoffDataset, cfg.HarvestDataset)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "roof_type\troof_age\tregion\tlocation\trunoff_coefficient")
	for _, r := range s.RunoffHead {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%.4f\n", r.RoofType, r.RoofAge, r.Region, r.Location, r.RunoffCoefficient)
	}
	w.Flush() //nolint:errcheck // stdout
	fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "roof_area_sq_m\troof_type\troof_age\trunoff_coefficient\tlocation\tannual_rainfall_mm\tannual_harvestable_water_liters")
	for _, h := range s.HarvestHead {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.4f\t%s\t%d\t%d\n",
			h.RoofAreaSqM, h.RoofType, h.RoofAge, h.RunoffCoefficient, h.Location, h.AnnualRainfallMM, h.HarvestableLiters)
	}
	w.Flush() //nolint:errcheck // stdout
}
