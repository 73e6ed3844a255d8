package gbm

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// binned is the histogram view of a design matrix. bins[f][i] is the bin of
// row i in feature f, and uppers[f][b] is the inclusive upper edge of bin b.
// The last edge of every feature is +Inf.
type binned struct {
	bins   [][]uint8
	uppers [][]float64
}

func newBinned(x mat.Matrix, maxBins int) *binned {
	rows, cols := x.Dims()
	b := &binned{bins: make([][]uint8, cols), uppers: make([][]float64, cols)}

	col := make([]float64, rows)
	for f := range cols {
		mat.Col(col, f, x)
		uppers := binEdges(col, maxBins)
		bins := make([]uint8, rows)
		for i, v := range col {
			bins[i] = uint8(sort.SearchFloat64s(uppers, v))
		}
		b.bins[f] = bins
		b.uppers[f] = uppers
	}
	return b
}

// binEdges places edges halfway between distinct values. With more distinct
// values than maxBins, edges follow evenly spaced quantiles of the distinct
// values instead.
func binEdges(values []float64, maxBins int) []float64 {
	distinct := slices.Clone(values)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	var edges []float64
	if len(distinct) <= maxBins {
		edges = make([]float64, 0, len(distinct))
		for i := 1; i < len(distinct); i++ {
			edges = append(edges, (distinct[i-1]+distinct[i])/2)
		}
	} else {
		edges = make([]float64, 0, maxBins)
		for k := 1; k < maxBins; k++ {
			i := k * len(distinct) / maxBins
			edges = append(edges, (distinct[i-1]+distinct[i])/2)
		}
		edges = slices.Compact(edges)
	}
	return append(edges, math.Inf(1))
}
