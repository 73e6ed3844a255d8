package training

import (
	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/features"
)

const (
	seed         = 42
	testFraction = 0.2
)

func runoffFrame(rows []domain.RunoffSample) (features.Frame, []float64) {
	f := features.NewFrame()
	age := make([]float64, len(rows))
	roof := make([]string, len(rows))
	region := make([]string, len(rows))
	location := make([]string, len(rows))
	y := make([]float64, len(rows))
	for i, r := range rows {
		age[i] = float64(r.RoofAge)
		roof[i] = r.RoofType
		region[i] = string(r.Region)
		location[i] = r.Location
		y[i] = r.RunoffCoefficient
	}
	f.Numeric[domain.ColRoofAge] = age
	f.Categorical[domain.ColRoofType] = roof
	f.Categorical[domain.ColRegion] = region
	f.Categorical[domain.ColLocation] = location
	return f, y
}

// waterLossFrame returns the features of the hybrid model and its target:
// potential water minus harvestable water.
func waterLossFrame(rows []domain.HarvestSample) (features.Frame, []float64) {
	f := features.NewFrame()
	age := make([]float64, len(rows))
	roof := make([]string, len(rows))
	y := make([]float64, len(rows))
	for i, h := range rows {
		age[i] = float64(h.RoofAge)
		roof[i] = h.RoofType
		y[i] = h.PotentialLiters() - float64(h.HarvestableLiters)
	}
	f.Numeric[domain.ColRoofAge] = age
	f.Categorical[domain.ColRoofType] = roof
	return f, y
}

func encoderFor(k Kind) *features.ColumnEncoder {
	switch k {
	case RunoffGBM:
		return features.NewColumnEncoder(
			features.Column{Name: domain.ColRoofAge, Kind: features.Passthrough},
			features.Column{Name: domain.ColRoofType, Kind: features.OneHotDropFirst},
			features.Column{Name: domain.ColRegion, Kind: features.OneHotDropFirst},
		)
	case WaterLoss:
		return features.NewColumnEncoder(
			features.Column{Name: domain.ColRoofAge, Kind: features.Passthrough},
			features.Column{Name: domain.ColRoofType, Kind: features.OneHot},
		)
	default:
		return features.NewColumnEncoder(
			features.Column{Name: domain.ColRoofAge, Kind: features.Standardize},
			features.Column{Name: domain.ColRoofType, Kind: features.OneHot},
			features.Column{Name: domain.ColRegion, Kind: features.OneHot},
			features.Column{Name: domain.ColLocation, Kind: features.OneHot},
		)
	}
}
