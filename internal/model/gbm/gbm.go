// Package gbm implements gradient-boosted regression trees with histogram
// binning and leaf-wise growth.
package gbm

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/couchcryptid/rainharvest/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultEstimators   = 100
	defaultLearningRate = 0.1
	defaultMaxLeaves    = 31
	defaultMinLeaf      = 20
	defaultMaxBins      = 255
)

type settings struct {
	estimators   int
	learningRate float64
	maxLeaves    int
	minLeaf      int
	lambda       float64
	maxBins      int
	progress     io.Writer
	onRound      func(round int, trainRMSE float64)
}

// Option configures a Regressor.
type Option func(*settings)

// WithEstimators sets the number of boosting rounds.
func WithEstimators(n int) Option { return func(s *settings) { s.estimators = n } }

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(lr float64) Option { return func(s *settings) { s.learningRate = lr } }

// WithMaxLeaves caps the leaves grown per tree.
func WithMaxLeaves(n int) Option { return func(s *settings) { s.maxLeaves = n } }

// WithMinSamplesLeaf sets the minimum number of rows in a leaf.
func WithMinSamplesLeaf(n int) Option { return func(s *settings) { s.minLeaf = n } }

// WithLambda sets the L2 penalty on leaf values.
func WithLambda(l float64) Option { return func(s *settings) { s.lambda = l } }

// WithMaxBins caps the histogram bins per feature (at most 255).
func WithMaxBins(n int) Option { return func(s *settings) { s.maxBins = min(n, defaultMaxBins) } }

// WithProgress renders a progress bar on w during Fit.
func WithProgress(w io.Writer) Option { return func(s *settings) { s.progress = w } }

// WithRoundHook is called after every boosting round.
func WithRoundHook(fn func(round int, trainRMSE float64)) Option {
	return func(s *settings) { s.onRound = fn }
}

// Regressor is a boosted ensemble fitted with squared loss.
type Regressor struct {
	cfg settings

	Features int     `json:"features"`
	Init     float64 `json:"init"`
	Trees    []Tree  `json:"trees"`
}

// New creates an unfitted Regressor.
func New(opts ...Option) *Regressor {
	cfg := settings{
		estimators:   defaultEstimators,
		learningRate: defaultLearningRate,
		maxLeaves:    defaultMaxLeaves,
		minLeaf:      defaultMinLeaf,
		maxBins:      defaultMaxBins,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Regressor{cfg: cfg}
}

// Fit trains the ensemble from scratch.
func (r *Regressor) Fit(x mat.Matrix, y []float64) error {
	if err := model.CheckFit(x, y); err != nil {
		return err
	}
	if r.cfg.estimators <= 0 || r.cfg.maxLeaves < 2 || r.cfg.minLeaf < 1 || r.cfg.maxBins < 2 {
		return fmt.Errorf("gbm: invalid settings %+v", r.cfg)
	}

	rows, cols := x.Dims()
	b := newBinned(x, r.cfg.maxBins)

	r.Features = cols
	r.Init = stat.Mean(y, nil)
	r.Trees = make([]Tree, 0, r.cfg.estimators)

	pred := make([]float64, rows)
	floats.AddConst(r.Init, pred)
	grad := make([]float64, rows)

	bar := model.NewProgress(r.cfg.progress, "boosting", r.cfg.estimators)
	defer bar.Stop()

	g := grower{b: b, cfg: &r.cfg, grad: grad}
	for round := 1; round <= r.cfg.estimators; round++ {
		floats.SubTo(grad, pred, y)
		tree, leaves := g.grow()
		for _, leaf := range leaves {
			v := tree.Nodes[leaf.node].Value
			for _, i := range leaf.rows {
				pred[i] += v
			}
		}
		r.Trees = append(r.Trees, tree)
		bar.Incr()

		if r.cfg.onRound != nil {
			floats.SubTo(grad, pred, y)
			r.cfg.onRound(round, floats.Norm(grad, 2)/math.Sqrt(float64(rows)))
		}
	}
	return nil
}

// Predict sums the initial score and every tree's leaf value per row.
func (r *Regressor) Predict(x mat.Matrix) ([]float64, error) {
	if err := model.CheckPredict(x, r.Features); err != nil {
		return nil, err
	}
	rows, _ := x.Dims()
	out := make([]float64, rows)
	row := make([]float64, r.Features)
	for i := range out {
		mat.Row(row, i, x)
		v := r.Init
		for t := range r.Trees {
			v += r.Trees[t].predict(row)
		}
		out[i] = v
	}
	return out, nil
}

// MarshalModel encodes the fitted ensemble for an artifact.
func (r *Regressor) MarshalModel() (json.RawMessage, error) {
	if r.Features == 0 {
		return nil, model.ErrNotFitted
	}
	return json.Marshal(r)
}

// UnmarshalModel restores an ensemble written by MarshalModel.
func UnmarshalModel(data json.RawMessage) (*Regressor, error) {
	r := New()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode gbm model: %w", err)
	}
	if r.Features == 0 {
		return nil, fmt.Errorf("decode gbm model: %w", model.ErrNotFitted)
	}
	return r, nil
}
