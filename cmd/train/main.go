// Command train fits one or all of the models on the generated datasets and
// writes their artifacts to MODEL_DIR. When HTTP_ADDR is set it serves
// /healthz, /readyz, /status and /metrics until training ends.
//
// Usage:
//
//	go run ./cmd/train -model runoff-gbm
//	go run ./cmd/train -model all
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/rainharvest/internal/adapter/http"
	"github.com/couchcryptid/rainharvest/internal/config"
	"github.com/couchcryptid/rainharvest/internal/observability"
	"github.com/couchcryptid/rainharvest/internal/training"
)

func main() {
	modelFlag := flag.String("model", "all", "model to train: runoff-gbm, water-loss, runoff-nn, or all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	kinds, err := parseModels(*modelFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []training.Option
	if cfg.ShowProgress {
		opts = append(opts, training.WithProgress(os.Stderr))
	}
	trainer := training.New(cfg, logger, metrics, opts...)
	job := training.NewJob(kinds)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, job, func() any { return job.Status() }, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	code := run(ctx, trainer, job, kinds, os.Stdout)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		cancel()
	}
	if err := observability.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Error("write metrics textfile", "path", cfg.MetricsFile, "error", err)
	}
	stop()
	os.Exit(code)
}

func parseModels(s string) ([]training.Kind, error) {
	if s == "all" {
		return training.Kinds(), nil
	}
	k, err := training.ParseKind(s)
	if err != nil {
		return nil, err
	}
	return []training.Kind{k}, nil
}

type modelTrainer interface {
	Train(ctx context.Context, k training.Kind) (training.Result, error)
}

func run(ctx context.Context, trainer modelTrainer, job *training.Job, kinds []training.Kind, out io.Writer) int {
	for _, k := range kinds {
		fmt.Fprintf(out, "--- Training %s ---\n", k)
		job.Start(k)
		res, err := trainer.Train(ctx, k)
		job.Finish(k, err)
		if err != nil {
			if errors.Is(err, training.ErrDatasetNotFound) {
				fmt.Fprintf(out, "Error: %v\n", err)
				fmt.Fprintln(out, "Please run the generate command first.")
				return 1
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
		printResult(out, res)
	}
	return 0
}

func printResult(out io.Writer, res training.Result) {
	fmt.Fprintf(out, "Data split: %d training", res.TrainRows)
	if res.ValidationRows > 0 {
		fmt.Fprintf(out, ", %d validation", res.ValidationRows)
	}
	fmt.Fprintf(out, ", %d testing samples.\n", res.TestRows)

	m := res.Metrics
	switch res.Kind {
	case training.RunoffGBM:
		fmt.Fprintf(out, "Root Mean Squared Error (RMSE): %.4f\n", m.RMSE)
		fmt.Fprintf(out, "Mean Absolute Error (MAE): %.4f\n", m.MAE)
		fmt.Fprintf(out, "R-squared (R²): %.4f\n", m.R2)
	case training.WaterLoss:
		fmt.Fprintf(out, "R-squared (R²): %.4f\n", m.R2)
		fmt.Fprintf(out, "Mean Absolute Error (MAE): %.2f liters\n", m.MAE)
	case training.RunoffNN:
		fmt.Fprintf(out, "Model R-squared (R² Score) on Test Data: %.4f\n", m.R2)
	}
	fmt.Fprintf(out, "Model saved to %s\n", res.ArtifactPath)

	if res.Kind == training.WaterLoss {
		fmt.Fprintln(out, "Harvest estimate = area × rainfall × coefficient − predicted loss (see the predict command).")
	}
	fmt.Fprintln(out)
}
