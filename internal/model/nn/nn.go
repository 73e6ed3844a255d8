// Package nn implements a small fully connected regression network trained
// with Adam and early stopping.
package nn

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/rainharvest/internal/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

type settings struct {
	hidden       []int
	dropout      float64
	learningRate float64
	beta1        float64
	beta2        float64
	epsilon      float64
	batchSize    int
	epochs       int
	patience     int
	seed         uint64
	progress     io.Writer
	onEpoch      func(epoch int, trainLoss, valLoss float64)
}

// Option configures a Network.
type Option func(*settings)

// WithHiddenLayers sets the widths of the ReLU hidden layers.
func WithHiddenLayers(widths ...int) Option { return func(s *settings) { s.hidden = widths } }

// WithDropout sets the dropout rate applied after the first hidden layer.
func WithDropout(rate float64) Option { return func(s *settings) { s.dropout = rate } }

// WithLearningRate sets the Adam step size.
func WithLearningRate(lr float64) Option { return func(s *settings) { s.learningRate = lr } }

// WithBatchSize sets the mini-batch size.
func WithBatchSize(n int) Option { return func(s *settings) { s.batchSize = n } }

// WithEpochs caps the number of passes over the training data.
func WithEpochs(n int) Option { return func(s *settings) { s.epochs = n } }

// WithPatience sets how many epochs without validation improvement are
// tolerated before training stops.
func WithPatience(n int) Option { return func(s *settings) { s.patience = n } }

// WithSeed seeds weight initialization, shuffling and dropout.
func WithSeed(seed uint64) Option { return func(s *settings) { s.seed = seed } }

// WithProgress renders a progress bar on w during Fit.
func WithProgress(w io.Writer) Option { return func(s *settings) { s.progress = w } }

// WithEpochHook is called after every epoch.
func WithEpochHook(fn func(epoch int, trainLoss, valLoss float64)) Option {
	return func(s *settings) { s.onEpoch = fn }
}

// Network is a multilayer perceptron: ReLU hidden layers, dropout after the
// first, and a linear output unit.
type Network struct {
	cfg settings
	rng *rand.Rand

	Inputs int     `json:"inputs"`
	Layers []Layer `json:"layers"`
	// Epochs is the number of epochs run by the last Fit.
	Epochs int `json:"epochs"`
}

// New creates an unfitted Network with 128 and 64 unit hidden layers.
func New(opts ...Option) *Network {
	cfg := settings{
		hidden:       []int{128, 64},
		dropout:      0.2,
		learningRate: 0.001,
		beta1:        0.9,
		beta2:        0.999,
		epsilon:      1e-7,
		batchSize:    32,
		epochs:       200,
		patience:     10,
		seed:         42,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Network{cfg: cfg}
}

// Fit trains on (x, y) and stops early on training loss.
func (n *Network) Fit(x mat.Matrix, y []float64) error {
	return n.FitValidated(x, y, nil, nil)
}

// FitValidated trains on (x, y), monitoring the mean squared error on
// (xVal, yVal). Weights from the best validation epoch are restored. With
// a nil xVal the training loss is monitored instead.
func (n *Network) FitValidated(x mat.Matrix, y []float64, xVal mat.Matrix, yVal []float64) error {
	if err := model.CheckFit(x, y); err != nil {
		return err
	}
	_, cols := x.Dims()
	if xVal != nil {
		if err := model.CheckFit(xVal, yVal); err != nil {
			return fmt.Errorf("validation set: %w", err)
		}
		if _, c := xVal.Dims(); c != cols {
			return fmt.Errorf("validation set: %w: %d columns, want %d", model.ErrShape, c, cols)
		}
	}
	if n.cfg.batchSize < 1 || n.cfg.epochs < 1 || n.cfg.dropout < 0 || n.cfg.dropout >= 1 {
		return fmt.Errorf("nn: invalid settings %+v", n.cfg)
	}

	n.rng = rand.New(rand.NewPCG(n.cfg.seed, 0x6e6e))
	n.init(cols)
	t := newTrainer(n)

	bar := model.NewProgress(n.cfg.progress, "epochs", n.cfg.epochs)
	defer bar.Stop()

	best := math.Inf(1)
	var bestLayers []Layer
	wait := 0
	for epoch := 1; epoch <= n.cfg.epochs; epoch++ {
		trainLoss := t.epoch(x, y)
		monitored := trainLoss
		valLoss := math.NaN()
		if xVal != nil {
			valLoss = n.loss(xVal, yVal)
			monitored = valLoss
		}
		n.Epochs = epoch
		bar.Incr()
		if n.cfg.onEpoch != nil {
			n.cfg.onEpoch(epoch, trainLoss, valLoss)
		}

		if monitored < best {
			best = monitored
			bestLayers = cloneLayers(n.Layers)
			wait = 0
			continue
		}
		wait++
		if wait >= n.cfg.patience {
			break
		}
	}
	if bestLayers != nil {
		n.Layers = bestLayers
	}
	return nil
}

// Predict runs the network in inference mode.
func (n *Network) Predict(x mat.Matrix) ([]float64, error) {
	if err := model.CheckPredict(x, n.Inputs); err != nil {
		return nil, err
	}
	out := n.forward(x)
	return mat.Col(nil, 0, out), nil
}

// init draws Glorot-uniform weights and zero biases.
func (n *Network) init(inputs int) {
	n.Inputs = inputs
	n.Epochs = 0
	widths := append(append([]int{inputs}, n.cfg.hidden...), 1)
	n.Layers = make([]Layer, len(widths)-1)
	for i := range n.Layers {
		in, out := widths[i], widths[i+1]
		limit := math.Sqrt(6 / float64(in+out))
		u := distuv.Uniform{Min: -limit, Max: limit, Src: n.rng}
		w := mat.NewDense(in, out, nil)
		raw := w.RawMatrix().Data
		for j := range raw {
			raw[j] = u.Rand()
		}
		act := ReLU
		if i == len(n.Layers)-1 {
			act = Linear
		}
		n.Layers[i] = Layer{W: w, B: make([]float64, out), Activation: act}
	}
}

// forward is the inference pass: no dropout.
func (n *Network) forward(x mat.Matrix) *mat.Dense {
	a := x
	var z *mat.Dense
	for i := range n.Layers {
		z = n.Layers[i].affine(a)
		n.Layers[i].Activation.apply(z)
		a = z
	}
	return z
}

func (n *Network) loss(x mat.Matrix, y []float64) float64 {
	out := n.forward(x)
	var sum float64
	for i, v := range y {
		d := out.At(i, 0) - v
		sum += d * d
	}
	return sum / float64(len(y))
}

func cloneLayers(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = Layer{W: mat.DenseCopyOf(l.W), B: append([]float64(nil), l.B...), Activation: l.Activation}
	}
	return out
}
