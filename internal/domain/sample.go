package domain

// RunoffSample is one row of the runoff coefficient dataset.
type RunoffSample struct {
	ID                string  `json:"id"`
	RoofType          string  `json:"roof_type"`
	RoofAge           int     `json:"roof_age"`
	Region            Region  `json:"region"`
	Location          string  `json:"location"`
	RunoffCoefficient float64 `json:"runoff_coefficient"`
}

// HarvestSample is one row of the harvesting dataset. It is derived from the
// RunoffSample at the same row index and shares its ID.
type HarvestSample struct {
	ID                string  `json:"id"`
	RoofAreaSqM       int     `json:"roof_area_sq_m"`
	RoofType          string  `json:"roof_type"`
	RoofAge           int     `json:"roof_age"`
	RunoffCoefficient float64 `json:"runoff_coefficient"`
	Location          string  `json:"location"`
	AnnualRainfallMM  int     `json:"annual_rainfall_mm"`
	HarvestableLiters int64   `json:"annual_harvestable_water_liters"`
}

// PotentialLiters recomputes the pre-loss volume for the sample.
func (h HarvestSample) PotentialLiters() float64 {
	return PotentialWater(h.RoofAreaSqM, h.AnnualRainfallMM, h.RunoffCoefficient)
}

// Column names shared by the CSV files and every consumer of them.
const (
	ColRoofType          = "roof_type"
	ColRoofAge           = "roof_age"
	ColRegion            = "region"
	ColLocation          = "location"
	ColRunoffCoefficient = "runoff_coefficient"
	ColRoofArea          = "roof_area_sq_m"
	ColAnnualRainfall    = "annual_rainfall_mm"
	ColHarvestable       = "annual_harvestable_water_liters"
)

// RunoffColumns is the header of the runoff coefficient dataset.
var RunoffColumns = []string{ColRoofType, ColRoofAge, ColRegion, ColLocation, ColRunoffCoefficient}

// HarvestColumns is the header of the harvesting dataset.
var HarvestColumns = []string{
	ColRoofArea, ColRoofType, ColRoofAge, ColRunoffCoefficient,
	ColLocation, ColAnnualRainfall, ColHarvestable,
}
