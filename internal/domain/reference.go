package domain

// Region is the coarse urban/rural classification of a location.
type Region string

const (
	RegionUrban Region = "Urban"
	RegionRural Region = "Rural"
)

// Modifier returns the additive runoff coefficient penalty for the region.
// Unknown regions carry no penalty.
func (r Region) Modifier() float64 {
	switch r {
	case RegionUrban:
		return -0.03 // grime, pollutants
	case RegionRural:
		return -0.05 // dust, organic matter
	default:
		return 0
	}
}

// Valid reports whether r is one of the two known regions.
func (r Region) Valid() bool {
	return r == RegionUrban || r == RegionRural
}

// RoofType is a roofing material and its baseline runoff coefficient.
type RoofType struct {
	Name            string  `json:"name"`
	BaseCoefficient float64 `json:"base_coefficient"`
}

// Location is a named place with its fixed region and annual rainfall.
type Location struct {
	Name       string `json:"name"`
	Region     Region `json:"region"`
	State      string `json:"state"`
	RainfallMM int    `json:"annual_rainfall_mm"`
}

var roofTypes = []RoofType{
	{Name: "Galvanized Iron Sheet", BaseCoefficient: 0.90},
	{Name: "Asbestos Sheet", BaseCoefficient: 0.80},
	{Name: "Tiled Roof", BaseCoefficient: 0.75},
	{Name: "Concrete Roof", BaseCoefficient: 0.70},
	{Name: "Ceramic Tiles", BaseCoefficient: 0.85},
	{Name: "Terracotta and Clay Tiles", BaseCoefficient: 0.85},
	{Name: "Metal Roofs", BaseCoefficient: 0.90},
	{Name: "Stone Slabs", BaseCoefficient: 0.75},
	{Name: "Modern Composite Sheets", BaseCoefficient: 0.88},
	{Name: "Lime-Finished Roofs", BaseCoefficient: 0.70},
}

var locations = []Location{
	{Name: "Delhi", Region: RegionUrban, State: "Delhi", RainfallMM: 780},
	{Name: "Mumbai", Region: RegionUrban, State: "Maharashtra", RainfallMM: 2250},
	{Name: "Bengaluru", Region: RegionUrban, State: "Karnataka", RainfallMM: 970},
	{Name: "Chennai", Region: RegionUrban, State: "Tamil Nadu", RainfallMM: 1400},
	{Name: "Kolkata", Region: RegionUrban, State: "West Bengal", RainfallMM: 1800},
	{Name: "Hyderabad", Region: RegionUrban, State: "Telangana", RainfallMM: 800},
	{Name: "Ahmedabad", Region: RegionUrban, State: "Gujarat", RainfallMM: 800},
	{Name: "Pune", Region: RegionUrban, State: "Maharashtra", RainfallMM: 720},
	{Name: "Jaipur", Region: RegionUrban, State: "Rajasthan", RainfallMM: 650},
	{Name: "Lucknow", Region: RegionUrban, State: "Uttar Pradesh", RainfallMM: 1000},
	{Name: "Bhopal", Region: RegionUrban, State: "Madhya Pradesh", RainfallMM: 1150},
	{Name: "Patna", Region: RegionUrban, State: "Bihar", RainfallMM: 1200},

	{Name: "Hisar", Region: RegionRural, State: "Haryana", RainfallMM: 500},
	{Name: "Anantapur", Region: RegionRural, State: "Andhra Pradesh", RainfallMM: 560},
	{Name: "Wardha", Region: RegionRural, State: "Maharashtra", RainfallMM: 1060},
	{Name: "Purnia", Region: RegionRural, State: "Bihar", RainfallMM: 1350},
	{Name: "Tezpur", Region: RegionRural, State: "Assam", RainfallMM: 1850},
	{Name: "Jaisalmer", Region: RegionRural, State: "Rajasthan", RainfallMM: 210},
	{Name: "Bathinda", Region: RegionRural, State: "Punjab", RainfallMM: 420},
	{Name: "Gorakhpur", Region: RegionRural, State: "Uttar Pradesh", RainfallMM: 1250},
	{Name: "Raichur", Region: RegionRural, State: "Karnataka", RainfallMM: 620},
	{Name: "Shillong", Region: RegionRural, State: "Meghalaya", RainfallMM: 2900},
	{Name: "Sambalpur", Region: RegionRural, State: "Odisha", RainfallMM: 1400},
	{Name: "Sagar", Region: RegionRural, State: "Madhya Pradesh", RainfallMM: 1100},
}

var (
	roofTypeIndex = indexBy(roofTypes, func(r RoofType) string { return r.Name })
	locationIndex = indexBy(locations, func(l Location) string { return l.Name })
)

func indexBy[T any](items []T, key func(T) string) map[string]T {
	m := make(map[string]T, len(items))
	for _, it := range items {
		m[key(it)] = it
	}
	return m
}

// RoofTypes returns the roof type table in declaration order.
func RoofTypes() []RoofType {
	return append([]RoofType(nil), roofTypes...)
}

// Locations returns the location table in declaration order.
func Locations() []Location {
	return append([]Location(nil), locations...)
}

// Regions returns both regions, urban first.
func Regions() []Region {
	return []Region{RegionUrban, RegionRural}
}

// LookupRoofType finds a roof type by its exact name.
func LookupRoofType(name string) (RoofType, bool) {
	r, ok := roofTypeIndex[name]
	return r, ok
}

// LookupLocation finds a location by its exact name.
func LookupLocation(name string) (Location, bool) {
	l, ok := locationIndex[name]
	return l, ok
}
