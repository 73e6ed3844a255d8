package training

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainharvest/internal/adapter/csvfile"
	"github.com/couchcryptid/rainharvest/internal/config"
	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/features"
	"github.com/couchcryptid/rainharvest/internal/model"
	"github.com/couchcryptid/rainharvest/internal/model/gbm"
	"github.com/couchcryptid/rainharvest/internal/model/nn"
	"github.com/couchcryptid/rainharvest/internal/observability"
	"gonum.org/v1/gonum/mat"
)

// ErrDatasetNotFound is returned when the input CSV for a model is missing.
var ErrDatasetNotFound = csvfile.ErrDatasetNotFound

// Result summarizes one training run.
type Result struct {
	Kind           Kind
	TrainRows      int
	ValidationRows int
	TestRows       int
	Rounds         int
	Metrics        model.Metrics
	Duration       time.Duration
	ArtifactPath   string
}

// Trainer fits models from the configured datasets and writes artifacts to
// the model directory.
type Trainer struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	progress io.Writer
	gbmOpts  []gbm.Option
	nnOpts   []nn.Option
}

// Option customizes a Trainer.
type Option func(*Trainer)

// WithProgress renders progress bars on w.
func WithProgress(w io.Writer) Option { return func(t *Trainer) { t.progress = w } }

// WithGBMOptions appends estimator options after the per-model defaults.
func WithGBMOptions(opts ...gbm.Option) Option {
	return func(t *Trainer) { t.gbmOpts = append(t.gbmOpts, opts...) }
}

// WithNNOptions appends network options after the defaults.
func WithNNOptions(opts ...nn.Option) Option {
	return func(t *Trainer) { t.nnOpts = append(t.nnOpts, opts...) }
}

// New creates a Trainer.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Trainer {
	t := &Trainer{cfg: cfg, logger: logger, metrics: metrics}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// split is a prepared dataset: encoded train/validation/test matrices.
type split struct {
	enc                 *features.ColumnEncoder
	xTrain, xVal, xTest *mat.Dense
	yTrain, yVal, yTest []float64
}

// Train fits the model of kind k, evaluates it on held-out rows, and saves
// the artifact.
func (t *Trainer) Train(ctx context.Context, k Kind) (Result, error) {
	log := t.logger.With("model", string(k))
	res := Result{Kind: k, ArtifactPath: ArtifactPath(t.cfg.ModelDir, k)}

	frame, y, err := t.load(k)
	if err != nil {
		return res, err
	}
	log.Info("dataset loaded", "rows", len(y))

	s, err := prepare(k, frame, y)
	if err != nil {
		return res, err
	}
	res.TrainRows, res.TestRows = len(s.yTrain), len(s.yTest)
	res.ValidationRows = len(s.yVal)
	t.recordRows(k, res)
	log.Info("data split", "train", res.TrainRows, "validation", res.ValidationRows, "test", res.TestRows)

	if err := ctx.Err(); err != nil {
		return res, err
	}

	start := domain.Now()
	onRound := func() {
		res.Rounds++
		t.metrics.TrainingRounds.WithLabelValues(string(k)).Inc()
	}
	predictor, payload, err := t.fit(k, s, onRound)
	if err != nil {
		return res, fmt.Errorf("train %s: %w", k, err)
	}
	res.Duration = domain.Now().Sub(start)
	t.metrics.TrainingDuration.WithLabelValues(string(k)).Observe(res.Duration.Seconds())
	log.Info("training complete", "rounds", res.Rounds, "duration", res.Duration)

	pred, err := predictor.Predict(s.xTest)
	if err != nil {
		return res, fmt.Errorf("evaluate %s: %w", k, err)
	}
	res.Metrics, err = model.Evaluate(s.yTest, pred)
	if err != nil {
		return res, fmt.Errorf("evaluate %s: %w", k, err)
	}
	t.recordScore(k, res.Metrics)
	log.Info("model evaluated", "rmse", res.Metrics.RMSE, "mae", res.Metrics.MAE, "r2", res.Metrics.R2)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	err = model.Save(res.ArtifactPath, model.Artifact{
		Kind:      string(k),
		TrainedAt: domain.Now().UTC(),
		Encoder:   s.enc,
		Model:     payload,
		Metrics:   res.Metrics,
	})
	if err != nil {
		return res, fmt.Errorf("save %s: %w", k, err)
	}
	log.Info("model saved", "path", res.ArtifactPath)
	return res, nil
}

func (t *Trainer) load(k Kind) (features.Frame, []float64, error) {
	if k == WaterLoss {
		rows, err := csvfile.ReadHarvest(t.cfg.HarvestDataset)
		if err != nil {
			return features.Frame{}, nil, err
		}
		f, y := waterLossFrame(rows)
		return f, y, nil
	}
	rows, err := csvfile.ReadRunoff(t.cfg.RunoffDataset)
	if err != nil {
		return features.Frame{}, nil, err
	}
	f, y := runoffFrame(rows)
	return f, y, nil
}

// prepare splits rows 80/20 with a fixed seed. The network additionally
// halves the held-out rows into validation and test sets. The encoder is
// fitted on training rows only.
func prepare(k Kind, frame features.Frame, y []float64) (*split, error) {
	trainIdx, testIdx := features.TrainTestSplit(len(y), testFraction, seed)
	var valIdx []int
	if k == RunoffNN {
		v, tst := features.TrainTestSplit(len(testIdx), 0.5, seed)
		valIdx, testIdx = features.Select(testIdx, v), features.Select(testIdx, tst)
	}
	if len(trainIdx) == 0 || len(testIdx) == 0 || (k == RunoffNN && len(valIdx) == 0) {
		return nil, fmt.Errorf("dataset of %d rows is too small to split", len(y))
	}

	s := &split{enc: encoderFor(k)}
	var err error
	if s.xTrain, err = s.enc.FitTransform(frame.Take(trainIdx)); err != nil {
		return nil, fmt.Errorf("encode training rows: %w", err)
	}
	if s.xTest, err = s.enc.Transform(frame.Take(testIdx)); err != nil {
		return nil, fmt.Errorf("encode test rows: %w", err)
	}
	s.yTrain, s.yTest = features.Select(y, trainIdx), features.Select(y, testIdx)
	if len(valIdx) > 0 {
		if s.xVal, err = s.enc.Transform(frame.Take(valIdx)); err != nil {
			return nil, fmt.Errorf("encode validation rows: %w", err)
		}
		s.yVal = features.Select(y, valIdx)
	}
	return s, nil
}

type estimator interface {
	Predict(x mat.Matrix) ([]float64, error)
	MarshalModel() (json.RawMessage, error)
}

func (t *Trainer) fit(k Kind, s *split, onRound func()) (estimator, json.RawMessage, error) {
	var est estimator
	switch k {
	case RunoffGBM, WaterLoss:
		opts := []gbm.Option{gbm.WithProgress(t.progress), gbm.WithRoundHook(func(int, float64) { onRound() })}
		if k == WaterLoss {
			opts = append(opts, gbm.WithEstimators(50))
		}
		r := gbm.New(append(opts, t.gbmOpts...)...)
		if err := r.Fit(s.xTrain, s.yTrain); err != nil {
			return nil, nil, err
		}
		est = r
	case RunoffNN:
		opts := []nn.Option{
			nn.WithSeed(seed),
			nn.WithProgress(t.progress),
			nn.WithEpochHook(func(epoch int, trainLoss, valLoss float64) {
				onRound()
				t.logger.Debug("epoch finished", "model", string(k), "epoch", epoch, "loss", trainLoss, "val_loss", valLoss)
			}),
		}
		n := nn.New(append(opts, t.nnOpts...)...)
		if err := n.FitValidated(s.xTrain, s.yTrain, s.xVal, s.yVal); err != nil {
			return nil, nil, err
		}
		est = n
	default:
		return nil, nil, fmt.Errorf("unknown model %q", k)
	}

	payload, err := est.MarshalModel()
	if err != nil {
		return nil, nil, err
	}
	return est, payload, nil
}

func (t *Trainer) recordRows(k Kind, res Result) {
	t.metrics.DatasetRows.WithLabelValues(string(k), "train").Set(float64(res.TrainRows))
	t.metrics.DatasetRows.WithLabelValues(string(k), "validation").Set(float64(res.ValidationRows))
	t.metrics.DatasetRows.WithLabelValues(string(k), "test").Set(float64(res.TestRows))
}

func (t *Trainer) recordScore(k Kind, m model.Metrics) {
	t.metrics.ModelScore.WithLabelValues(string(k), "rmse").Set(m.RMSE)
	t.metrics.ModelScore.WithLabelValues(string(k), "mae").Set(m.MAE)
	t.metrics.ModelScore.WithLabelValues(string(k), "r2").Set(m.R2)
}
