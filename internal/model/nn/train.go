package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// adamState holds the first and second moment estimates of one layer.
type adamState struct {
	mW, vW []float64
	mB, vB []float64
}

type trainer struct {
	n     *Network
	state []adamState
	steps int
	order []int
}

func newTrainer(n *Network) *trainer {
	t := &trainer{n: n, state: make([]adamState, len(n.Layers))}
	for i, l := range n.Layers {
		r, c := l.W.Dims()
		t.state[i] = adamState{
			mW: make([]float64, r*c),
			vW: make([]float64, r*c),
			mB: make([]float64, c),
			vB: make([]float64, c),
		}
	}
	return t
}

// epoch runs one shuffled pass of mini-batch updates and returns the mean
// training loss, measured with dropout active.
func (t *trainer) epoch(x mat.Matrix, y []float64) float64 {
	rows, cols := x.Dims()
	if len(t.order) != rows {
		t.order = make([]int, rows)
		for i := range t.order {
			t.order[i] = i
		}
	}
	t.n.rng.Shuffle(rows, func(i, j int) { t.order[i], t.order[j] = t.order[j], t.order[i] })

	bs := t.n.cfg.batchSize
	row := make([]float64, cols)
	var total float64
	for start := 0; start < rows; start += bs {
		batch := t.order[start:min(start+bs, rows)]
		xb := mat.NewDense(len(batch), cols, nil)
		yb := make([]float64, len(batch))
		for i, j := range batch {
			xb.SetRow(i, mat.Row(row, j, x))
			yb[i] = y[j]
		}
		total += t.step(xb, yb) * float64(len(batch))
	}
	return total / float64(rows)
}

// step does a forward and backward pass over one batch and applies an Adam
// update to every layer. It returns the batch loss.
func (t *trainer) step(xb *mat.Dense, yb []float64) float64 {
	loss, dW, dB := t.gradients(xb, yb)
	t.steps++
	for l := range t.n.Layers {
		t.apply(t.n.Layers[l].W.RawMatrix().Data, dW[l].RawMatrix().Data, t.state[l].mW, t.state[l].vW)
		t.apply(t.n.Layers[l].B, dB[l], t.state[l].mB, t.state[l].vB)
	}
	return loss
}

// gradients returns the mean squared error of the batch and its gradient
// with respect to every layer's weights and biases.
func (t *trainer) gradients(xb *mat.Dense, yb []float64) (float64, []*mat.Dense, [][]float64) {
	layers := t.n.Layers
	inputs := make([]mat.Matrix, len(layers))
	zs := make([]*mat.Dense, len(layers))
	masks := make([]*mat.Dense, len(layers))

	var a mat.Matrix = xb
	var out *mat.Dense
	for l := range layers {
		inputs[l] = a
		zs[l] = layers[l].affine(a)
		out = mat.DenseCopyOf(zs[l])
		layers[l].Activation.apply(out)
		if l == 0 && len(layers) > 1 && t.n.cfg.dropout > 0 {
			masks[l] = t.dropoutMask(out.Dims())
			out.MulElem(out, masks[l])
		}
		a = out
	}

	b := len(yb)
	grad := mat.NewDense(b, 1, nil)
	var loss float64
	for i, v := range yb {
		d := out.At(i, 0) - v
		loss += d * d
		grad.Set(i, 0, 2*d/float64(b))
	}
	loss /= float64(b)

	dWs := make([]*mat.Dense, len(layers))
	dBs := make([][]float64, len(layers))
	for l := len(layers) - 1; l >= 0; l-- {
		if masks[l] != nil {
			grad.MulElem(grad, masks[l])
		}
		if layers[l].Activation == ReLU {
			g, z := grad.RawMatrix().Data, zs[l].RawMatrix().Data
			for i := range g {
				if z[i] <= 0 {
					g[i] = 0
				}
			}
		}

		dW := new(mat.Dense)
		dW.Mul(inputs[l].T(), grad)
		_, units := grad.Dims()
		dB := make([]float64, units)
		for i := range b {
			for j, v := range grad.RawRowView(i) {
				dB[j] += v
			}
		}
		dWs[l], dBs[l] = dW, dB

		if l > 0 {
			next := new(mat.Dense)
			next.Mul(grad, layers[l].W.T())
			grad = next
		}
	}
	return loss, dWs, dBs
}

// apply is one Adam update with bias-corrected step size.
func (t *trainer) apply(params, grads, m, v []float64) {
	cfg := &t.n.cfg
	step := float64(t.steps)
	lr := cfg.learningRate * math.Sqrt(1-math.Pow(cfg.beta2, step)) / (1 - math.Pow(cfg.beta1, step))
	for i, g := range grads {
		m[i] = cfg.beta1*m[i] + (1-cfg.beta1)*g
		v[i] = cfg.beta2*v[i] + (1-cfg.beta2)*g*g
		params[i] -= lr * m[i] / (math.Sqrt(v[i]) + cfg.epsilon)
	}
}

// dropoutMask zeroes units with probability rate and scales survivors by
// 1/(1-rate) so inference needs no rescaling.
func (t *trainer) dropoutMask(r, c int) *mat.Dense {
	rate := t.n.cfg.dropout
	keep := 1 / (1 - rate)
	mask := mat.NewDense(r, c, nil)
	raw := mask.RawMatrix().Data
	for i := range raw {
		if t.n.rng.Float64() >= rate {
			raw[i] = keep
		}
	}
	return mask
}
