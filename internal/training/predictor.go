package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/features"
	"github.com/couchcryptid/rainharvest/internal/model"
	"github.com/couchcryptid/rainharvest/internal/model/gbm"
	"github.com/couchcryptid/rainharvest/internal/model/nn"
	"gonum.org/v1/gonum/mat"
)

// ErrWrongModel is returned when a prediction needs a different model kind.
var ErrWrongModel = errors.New("operation not supported by this model")

// Input is one roof to predict for. Region and AnnualRainfallMM default to
// the reference table values of Location when zero.
type Input struct {
	RoofType          string
	RoofAge           int
	Region            domain.Region
	Location          string
	RoofAreaSqM       int
	AnnualRainfallMM  int
	RunoffCoefficient float64
}

// Predictor applies a saved artifact to raw inputs.
type Predictor struct {
	kind      Kind
	trainedAt time.Time
	metrics   model.Metrics
	encoder   *features.ColumnEncoder
	model     interface {
		Predict(x mat.Matrix) ([]float64, error)
	}
}

// LoadPredictor reads an artifact written by Trainer.Train.
func LoadPredictor(path string) (*Predictor, error) {
	a, err := model.Load(path)
	if err != nil {
		return nil, err
	}
	k, err := ParseKind(a.Kind)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}

	p := &Predictor{kind: k, trainedAt: a.TrainedAt, metrics: a.Metrics, encoder: a.Encoder}
	switch k {
	case RunoffNN:
		p.model, err = nn.UnmarshalModel(a.Model)
	default:
		p.model, err = gbm.UnmarshalModel(a.Model)
	}
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return p, nil
}

func (p *Predictor) Kind() Kind             { return p.kind }
func (p *Predictor) TrainedAt() time.Time   { return p.trainedAt }
func (p *Predictor) Metrics() model.Metrics { return p.metrics }
func (p *Predictor) Features() []string     { return p.encoder.FeatureNames() }

// Predict returns the model output for in: the runoff coefficient for the
// runoff models, the litres lost for the water-loss model.
func (p *Predictor) Predict(in Input) (float64, error) {
	in, err := in.resolve()
	if err != nil {
		return 0, err
	}

	f := features.NewFrame()
	f.Numeric[domain.ColRoofAge] = []float64{float64(in.RoofAge)}
	f.Categorical[domain.ColRoofType] = []string{in.RoofType}
	f.Categorical[domain.ColRegion] = []string{string(in.Region)}
	f.Categorical[domain.ColLocation] = []string{in.Location}

	x, err := p.encoder.Transform(f)
	if err != nil {
		return 0, fmt.Errorf("encode input: %w", err)
	}
	out, err := p.model.Predict(x)
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Harvest is a hybrid estimate of annual harvestable water.
type Harvest struct {
	PotentialLiters   float64
	PredictedLoss     float64
	HarvestableLiters float64
}

// PredictHarvest combines the physical potential (area × rainfall ×
// coefficient) with the learned loss. It needs a water-loss model.
func (p *Predictor) PredictHarvest(in Input) (Harvest, error) {
	if p.kind != WaterLoss {
		return Harvest{}, fmt.Errorf("%w: harvest estimates need %s, have %s", ErrWrongModel, WaterLoss, p.kind)
	}
	in, err := in.resolve()
	if err != nil {
		return Harvest{}, err
	}
	if in.RoofAreaSqM <= 0 {
		return Harvest{}, errors.New("roof area must be positive")
	}
	if in.AnnualRainfallMM <= 0 {
		return Harvest{}, errors.New("annual rainfall must be positive or the location known")
	}
	if in.RunoffCoefficient <= 0 || in.RunoffCoefficient > 1 {
		return Harvest{}, fmt.Errorf("runoff coefficient %v out of range (0, 1]", in.RunoffCoefficient)
	}

	loss, err := p.Predict(in)
	if err != nil {
		return Harvest{}, err
	}
	potential := domain.PotentialWater(in.RoofAreaSqM, in.AnnualRainfallMM, in.RunoffCoefficient)
	return Harvest{
		PotentialLiters:   potential,
		PredictedLoss:     loss,
		HarvestableLiters: max(potential-loss, 0),
	}, nil
}

// resolve fills Region and rainfall from the location table and checks the
// fields every model needs.
func (in Input) resolve() (Input, error) {
	if in.RoofType == "" {
		return in, errors.New("roof type is required")
	}
	if in.RoofAge < 0 {
		return in, fmt.Errorf("roof age %d is negative", in.RoofAge)
	}
	if loc, ok := domain.LookupLocation(in.Location); ok {
		if in.Region == "" {
			in.Region = loc.Region
		}
		if in.AnnualRainfallMM == 0 {
			in.AnnualRainfallMM = loc.RainfallMM
		}
	}
	return in, nil
}
