// Package training fits the three estimators that consume the generated
// datasets and loads their artifacts back for prediction.
package training

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies a trained model.
type Kind string

const (
	// RunoffGBM predicts the runoff coefficient from roof type, age and
	// region with boosted trees.
	RunoffGBM Kind = "runoff-gbm"
	// WaterLoss predicts the litres lost between potential and harvestable
	// water. Harvest estimates subtract it from the physical potential.
	WaterLoss Kind = "water-loss"
	// RunoffNN predicts the runoff coefficient with a neural network that
	// also sees the location.
	RunoffNN Kind = "runoff-nn"
)

// Kinds lists every trainable model.
func Kinds() []Kind { return []Kind{RunoffGBM, WaterLoss, RunoffNN} }

// ParseKind validates a model name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return "", fmt.Errorf("unknown model %q (want one of %s)", s, strings.Join(names, ", "))
}

// ArtifactPath is where a model of kind k is stored under dir.
func ArtifactPath(dir string, k Kind) string {
	return filepath.Join(dir, string(k)+".model")
}
