// Command predict loads a trained artifact and scores one roof.
//
// Usage:
//
//	go run ./cmd/predict -model runoff-nn -roof-type "Concrete Roof" -roof-age 10 -location Pune
//	go run ./cmd/predict -model water-loss -roof-type "Metal Roofs" -roof-age 10 \
//	  -location Mumbai -roof-area 120 -coefficient 0.85
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/training"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

type options struct {
	model    string
	artifact string
	input    training.Input
	region   string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.StringVar(&o.model, "model", string(training.RunoffGBM), "model kind: runoff-gbm, water-loss, or runoff-nn")
	fs.StringVar(&o.artifact, "artifact", "", "artifact path (default MODEL_DIR/<model>.model)")
	fs.StringVar(&o.input.RoofType, "roof-type", "", "roof type, e.g. \"Concrete Roof\"")
	fs.IntVar(&o.input.RoofAge, "roof-age", 0, "roof age in years")
	fs.StringVar(&o.region, "region", "", "Urban or Rural (default: from -location)")
	fs.StringVar(&o.input.Location, "location", "", "location name, e.g. Pune")
	fs.IntVar(&o.input.RoofAreaSqM, "roof-area", 0, "roof area in m² (water-loss)")
	fs.IntVar(&o.input.AnnualRainfallMM, "rainfall", 0, "annual rainfall in mm (default: from -location)")
	fs.Float64Var(&o.input.RunoffCoefficient, "coefficient", 0, "runoff coefficient (water-loss)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	o.input.Region = domain.Region(o.region)
	if o.region != "" && !o.input.Region.Valid() {
		return o, fmt.Errorf("invalid -region %q: want Urban or Rural", o.region)
	}
	if o.input.RoofType == "" {
		return o, fmt.Errorf("missing required flag: -roof-type")
	}
	kind, err := training.ParseKind(o.model)
	if err != nil {
		return o, err
	}
	if o.artifact == "" {
		o.artifact = training.ArtifactPath(sharedcfg.EnvOrDefault("MODEL_DIR", "models"), kind)
	}
	return o, nil
}

func run(args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	p, err := training.LoadPredictor(o.artifact)
	if err != nil {
		return err
	}
	if string(p.Kind()) != o.model {
		return fmt.Errorf("%s holds a %s model, not %s", o.artifact, p.Kind(), o.model)
	}
	fmt.Fprintf(out, "Model %s trained %s (test R² %.4f)\n", p.Kind(), p.TrainedAt().Format("2006-01-02 15:04"), p.Metrics().R2)

	if p.Kind() == training.WaterLoss {
		h, err := p.PredictHarvest(o.input)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Potential water: %.0f liters\n", h.PotentialLiters)
		fmt.Fprintf(out, "Predicted loss: %.0f liters\n", h.PredictedLoss)
		fmt.Fprintf(out, "Predicted harvestable water: %.0f liters\n", h.HarvestableLiters)
		return nil
	}

	coef, err := p.Predict(o.input)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Predicted runoff coefficient: %.4f\n", coef)
	return nil
}
