// Package model defines the regression contract shared by the estimators,
// their evaluation metrics, and the on-disk artifact format.
package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNotFitted is returned by Predict before a successful Fit.
	ErrNotFitted = errors.New("model not fitted")
	// ErrShape is returned when inputs disagree on dimensions.
	ErrShape = errors.New("shape mismatch")
)

// Regressor is a supervised estimator of a single continuous target.
type Regressor interface {
	Fit(x mat.Matrix, y []float64) error
	Predict(x mat.Matrix) ([]float64, error)
}

// CheckFit validates training inputs.
func CheckFit(x mat.Matrix, y []float64) error {
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return fmt.Errorf("%w: empty design matrix", ErrShape)
	}
	if r != len(y) {
		return fmt.Errorf("%w: %d rows but %d targets", ErrShape, r, len(y))
	}
	return nil
}

// CheckPredict validates prediction inputs against the fitted feature count.
func CheckPredict(x mat.Matrix, features int) error {
	if features == 0 {
		return ErrNotFitted
	}
	if _, c := x.Dims(); c != features {
		return fmt.Errorf("%w: %d columns, model expects %d", ErrShape, c, features)
	}
	return nil
}

// Metrics are held-out regression scores.
type Metrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Evaluate scores predictions against ground truth.
func Evaluate(yTrue, yPred []float64) (Metrics, error) {
	if len(yTrue) == 0 {
		return Metrics{}, fmt.Errorf("%w: no samples to evaluate", ErrShape)
	}
	if len(yTrue) != len(yPred) {
		return Metrics{}, fmt.Errorf("%w: %d targets but %d predictions", ErrShape, len(yTrue), len(yPred))
	}

	n := float64(len(yTrue))
	residuals := floats.SubTo(make([]float64, len(yTrue)), yTrue, yPred)
	return Metrics{
		RMSE: math.Sqrt(floats.Dot(residuals, residuals) / n),
		MAE:  floats.Norm(residuals, 1) / n,
		R2:   stat.RSquaredFrom(yPred, yTrue, nil),
	}, nil
}
