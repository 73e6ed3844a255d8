package features

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNotFitted is returned when Transform is called before Fit.
	ErrNotFitted = errors.New("encoder not fitted")
	// ErrMissingColumn is returned when a frame lacks a configured column.
	ErrMissingColumn = errors.New("missing column")
)

// Frame is a column-oriented table of raw feature values.
type Frame struct {
	Numeric     map[string][]float64
	Categorical map[string][]string
}

// NewFrame returns an empty frame.
func NewFrame() Frame {
	return Frame{Numeric: map[string][]float64{}, Categorical: map[string][]string{}}
}

// Len is the number of rows, taken from the first non-empty column found.
func (f Frame) Len() int {
	for _, v := range f.Numeric {
		return len(v)
	}
	for _, v := range f.Categorical {
		return len(v)
	}
	return 0
}

// Take returns a new frame holding only the given rows, in order.
func (f Frame) Take(idx []int) Frame {
	out := NewFrame()
	for name, col := range f.Numeric {
		v := make([]float64, len(idx))
		for i, j := range idx {
			v[i] = col[j]
		}
		out.Numeric[name] = v
	}
	for name, col := range f.Categorical {
		v := make([]string, len(idx))
		for i, j := range idx {
			v[i] = col[j]
		}
		out.Categorical[name] = v
	}
	return out
}

// StandardScaler centers a column on its mean and divides by its population
// standard deviation.
type StandardScaler struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// FitScaler learns the mean and standard deviation of values. A constant
// column gets Std 1 so it maps to zero.
func FitScaler(values []float64) StandardScaler {
	mean, std := stat.PopMeanStdDev(values, nil)
	if std == 0 {
		std = 1
	}
	return StandardScaler{Mean: mean, Std: std}
}

func (s StandardScaler) Scale(v float64) float64 {
	return (v - s.Mean) / s.Std
}

// OneHotEncoder maps a categorical column onto indicator columns, one per
// category seen during fitting. Categories are sorted. With DropFirst the
// first category is the all-zero baseline. Unseen values encode to all zeros.
type OneHotEncoder struct {
	Categories []string `json:"categories"`
	DropFirst  bool     `json:"drop_first,omitempty"`
}

// FitOneHot collects the distinct values of a column.
func FitOneHot(values []string, dropFirst bool) OneHotEncoder {
	cats := slices.Clone(values)
	slices.Sort(cats)
	return OneHotEncoder{Categories: slices.Compact(cats), DropFirst: dropFirst}
}

// Width is the number of indicator columns produced.
func (e OneHotEncoder) Width() int {
	if e.DropFirst && len(e.Categories) > 0 {
		return len(e.Categories) - 1
	}
	return len(e.Categories)
}

// Encode writes the indicator vector for v into dst, which must have Width
// elements.
func (e OneHotEncoder) Encode(v string, dst []float64) {
	clear(dst)
	i, ok := slices.BinarySearch(e.Categories, v)
	if !ok {
		return
	}
	if e.DropFirst {
		if i == 0 {
			return
		}
		i--
	}
	dst[i] = 1
}

func (e OneHotEncoder) names(prefix string) []string {
	cats := e.Categories
	if e.DropFirst && len(cats) > 0 {
		cats = cats[1:]
	}
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = prefix + "_" + c
	}
	return out
}

// Kind selects how a column is encoded.
type Kind string

const (
	Passthrough Kind = "passthrough"
	Standardize Kind = "standardize"
	OneHot      Kind = "one_hot"
	// OneHotDropFirst is OneHot with the first category as the baseline.
	OneHotDropFirst Kind = "one_hot_drop_first"
)

func (k Kind) numeric() bool { return k == Passthrough || k == Standardize }

// Column is one configured input column and its fitted state.
type Column struct {
	Name   string          `json:"name"`
	Kind   Kind            `json:"kind"`
	Scaler *StandardScaler `json:"scaler,omitempty"`
	OneHot *OneHotEncoder  `json:"one_hot,omitempty"`
}

// ColumnEncoder assembles a design matrix from a Frame: numeric columns first,
// in configured order, then one indicator block per categorical column.
// It is JSON-serializable so it can be stored next to a fitted model.
type ColumnEncoder struct {
	Columns []Column `json:"columns"`
	Fitted  bool     `json:"fitted"`
}

// NewColumnEncoder configures an encoder. Numeric columns are moved ahead of
// categorical ones; relative order is otherwise kept.
func NewColumnEncoder(cols ...Column) *ColumnEncoder {
	ordered := make([]Column, 0, len(cols))
	for _, c := range cols {
		if c.Kind.numeric() {
			ordered = append(ordered, Column{Name: c.Name, Kind: c.Kind})
		}
	}
	for _, c := range cols {
		if !c.Kind.numeric() {
			ordered = append(ordered, Column{Name: c.Name, Kind: c.Kind})
		}
	}
	return &ColumnEncoder{Columns: ordered}
}

// Fit learns scalers and category sets from f.
func (e *ColumnEncoder) Fit(f Frame) error {
	for i := range e.Columns {
		c := &e.Columns[i]
		switch c.Kind {
		case Passthrough:
			if _, ok := f.Numeric[c.Name]; !ok {
				return fmt.Errorf("%w: %s", ErrMissingColumn, c.Name)
			}
		case Standardize:
			v, ok := f.Numeric[c.Name]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingColumn, c.Name)
			}
			s := FitScaler(v)
			c.Scaler = &s
		case OneHot, OneHotDropFirst:
			v, ok := f.Categorical[c.Name]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingColumn, c.Name)
			}
			enc := FitOneHot(v, c.Kind == OneHotDropFirst)
			c.OneHot = &enc
		default:
			return fmt.Errorf("column %s: unknown kind %q", c.Name, c.Kind)
		}
	}
	e.Fitted = true
	return nil
}

// Width is the number of design-matrix columns produced by Transform.
func (e *ColumnEncoder) Width() int {
	w := 0
	for _, c := range e.Columns {
		if c.OneHot != nil {
			w += c.OneHot.Width()
		} else {
			w++
		}
	}
	return w
}

// FeatureNames labels the design-matrix columns.
func (e *ColumnEncoder) FeatureNames() []string {
	var names []string
	for _, c := range e.Columns {
		if c.OneHot != nil {
			names = append(names, c.OneHot.names(c.Name)...)
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

// Transform encodes f into an n×Width matrix.
func (e *ColumnEncoder) Transform(f Frame) (*mat.Dense, error) {
	if !e.Fitted {
		return nil, ErrNotFitted
	}
	n := f.Len()
	if n == 0 {
		return nil, errors.New("transform: empty frame")
	}

	x := mat.NewDense(n, e.Width(), nil)
	col := 0
	for _, c := range e.Columns {
		switch {
		case c.Kind.numeric():
			v, ok := f.Numeric[c.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c.Name)
			}
			if len(v) != n {
				return nil, fmt.Errorf("column %s: %d rows, want %d", c.Name, len(v), n)
			}
			for i, val := range v {
				if c.Scaler != nil {
					val = c.Scaler.Scale(val)
				}
				x.Set(i, col, val)
			}
			col++
		default:
			v, ok := f.Categorical[c.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c.Name)
			}
			if len(v) != n {
				return nil, fmt.Errorf("column %s: %d rows, want %d", c.Name, len(v), n)
			}
			w := c.OneHot.Width()
			for i, val := range v {
				c.OneHot.Encode(val, x.RawRowView(i)[col:col+w])
			}
			col += w
		}
	}
	return x, nil
}

// FitTransform fits on f and encodes it.
func (e *ColumnEncoder) FitTransform(f Frame) (*mat.Dense, error) {
	if err := e.Fit(f); err != nil {
		return nil, err
	}
	return e.Transform(f)
}
