package nn

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/rainharvest/internal/model"
	"gonum.org/v1/gonum/mat"
)

// Activation is an element-wise nonlinearity.
type Activation string

const (
	ReLU   Activation = "relu"
	Linear Activation = "linear"
)

func (a Activation) apply(z *mat.Dense) {
	if a != ReLU {
		return
	}
	raw := z.RawMatrix()
	for i := range raw.Rows {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j, v := range row {
			if v < 0 {
				row[j] = 0
			}
		}
	}
}

// Layer is a dense layer computing act(a·W + B).
type Layer struct {
	W          *mat.Dense
	B          []float64
	Activation Activation
}

func (l *Layer) affine(a mat.Matrix) *mat.Dense {
	var z mat.Dense
	z.Mul(a, l.W)
	r, _ := z.Dims()
	for i := range r {
		row := z.RawRowView(i)
		for j := range row {
			row[j] += l.B[j]
		}
	}
	return &z
}

type layerJSON struct {
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Weights    []float64  `json:"weights"`
	Bias       []float64  `json:"bias"`
	Activation Activation `json:"activation"`
}

func (l Layer) MarshalJSON() ([]byte, error) {
	r, c := l.W.Dims()
	return json.Marshal(layerJSON{
		Rows:       r,
		Cols:       c,
		Weights:    mat.DenseCopyOf(l.W).RawMatrix().Data,
		Bias:       l.B,
		Activation: l.Activation,
	})
}

func (l *Layer) UnmarshalJSON(data []byte) error {
	var j layerJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	if j.Rows <= 0 || j.Cols <= 0 || len(j.Weights) != j.Rows*j.Cols || len(j.Bias) != j.Cols {
		return fmt.Errorf("layer %dx%d: %w", j.Rows, j.Cols, model.ErrShape)
	}
	l.W = mat.NewDense(j.Rows, j.Cols, j.Weights)
	l.B = j.Bias
	l.Activation = j.Activation
	return nil
}

// MarshalModel encodes the fitted network for an artifact.
func (n *Network) MarshalModel() (json.RawMessage, error) {
	if n.Inputs == 0 {
		return nil, model.ErrNotFitted
	}
	return json.Marshal(n)
}

// UnmarshalModel restores a network written by MarshalModel.
func UnmarshalModel(data json.RawMessage) (*Network, error) {
	n := New()
	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("decode nn model: %w", err)
	}
	if n.Inputs == 0 || len(n.Layers) == 0 {
		return nil, fmt.Errorf("decode nn model: %w", model.ErrNotFitted)
	}
	in := n.Inputs
	for i, l := range n.Layers {
		r, c := l.W.Dims()
		if r != in {
			return nil, fmt.Errorf("decode nn model: layer %d has %d inputs, want %d: %w", i, r, in, model.ErrShape)
		}
		in = c
	}
	if in != 1 {
		return nil, fmt.Errorf("decode nn model: %d outputs: %w", in, model.ErrShape)
	}
	return n, nil
}
