// Package validation checks generated datasets against the physical model:
// schema, per-row invariants of both tables, and row-by-row correspondence.
package validation

import (
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/rainharvest/internal/adapter/csvfile"
	"github.com/couchcryptid/rainharvest/internal/domain"
)

// maxErrors caps the messages kept per phase; the remainder is only counted.
const maxErrors = 25

// coefficientTolerance absorbs float formatting in the CSV files.
const coefficientTolerance = 1e-9

// Phase collects the failures of one group of checks.
type Phase struct {
	Name    string
	Errors  []string
	Dropped int
}

func (p *Phase) errorf(format string, args ...any) {
	if len(p.Errors) >= maxErrors {
		p.Dropped++
		return
	}
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase found no errors.
func (p *Phase) Passed() bool { return len(p.Errors) == 0 }

// Failures is the total number of errors found, including dropped ones.
func (p *Phase) Failures() int { return len(p.Errors) + p.Dropped }

// Report is the outcome of Validate.
type Report struct {
	RunoffRows  int
	HarvestRows int
	Phases      []*Phase
}

// Passed reports whether every phase passed.
func (r *Report) Passed() bool {
	for _, p := range r.Phases {
		if !p.Passed() {
			return false
		}
	}
	return true
}

// Validate loads both datasets and runs every phase. An error is returned
// only when a file cannot be read at all.
func Validate(runoffPath, harvestPath string) (*Report, error) {
	runoffTable, err := csvfile.ReadTable(runoffPath)
	if err != nil {
		return nil, err
	}
	harvestTable, err := csvfile.ReadTable(harvestPath)
	if err != nil {
		return nil, err
	}

	report := &Report{RunoffRows: len(runoffTable.Rows), HarvestRows: len(harvestTable.Rows)}
	schema := checkSchema(runoffTable, harvestTable)
	report.Phases = append(report.Phases, schema)
	if !schema.Passed() {
		return report, nil
	}

	runoff, runoffPhase := checkRunoff(runoffTable)
	harvest, harvestPhase := checkHarvest(harvestTable)
	report.Phases = append(report.Phases, runoffPhase, harvestPhase, checkCorrespondence(runoff, harvest))
	return report, nil
}

func checkSchema(runoff, harvest *csvfile.Table) *Phase {
	p := &Phase{Name: "Schema"}
	if !slices.Equal(runoff.Header, domain.RunoffColumns) {
		p.errorf("%s: header %v, want %v", runoff.Path, runoff.Header, domain.RunoffColumns)
	}
	if !slices.Equal(harvest.Header, domain.HarvestColumns) {
		p.errorf("%s: header %v, want %v", harvest.Path, harvest.Header, domain.HarvestColumns)
	}
	return p
}

// checkRunoff validates every runoff row. Rows that fail to parse are
// reported and returned as zero values to keep indices aligned.
func checkRunoff(t *csvfile.Table) ([]domain.RunoffSample, *Phase) {
	p := &Phase{Name: "Runoff coefficient rows"}
	rows := make([]domain.RunoffSample, len(t.Rows))
	for i := range t.Rows {
		s, err := t.RunoffRow(i)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		rows[i] = s
		line := t.Line(i)

		roof, ok := domain.LookupRoofType(s.RoofType)
		if !ok {
			p.errorf("line %d: unknown roof type %q", line, s.RoofType)
		}
		loc, ok := domain.LookupLocation(s.Location)
		switch {
		case !ok:
			p.errorf("line %d: unknown location %q", line, s.Location)
		case loc.Region != s.Region:
			p.errorf("line %d: %s is %s, row says %s", line, s.Location, loc.Region, s.Region)
		}
		if s.RoofAge < domain.MinRoofAge || s.RoofAge > domain.MaxRoofAge {
			p.errorf("line %d: roof age %d outside [%d, %d]", line, s.RoofAge, domain.MinRoofAge, domain.MaxRoofAge)
		}
		if s.RunoffCoefficient < domain.MinRunoffCoefficient || s.RunoffCoefficient > domain.MaxRunoffCoefficient {
			p.errorf("line %d: runoff coefficient %v outside [%v, %v]", line, s.RunoffCoefficient,
				domain.MinRunoffCoefficient, domain.MaxRunoffCoefficient)
		}
		if s.RunoffCoefficient != domain.Round4(s.RunoffCoefficient) {
			p.errorf("line %d: runoff coefficient %v has more than 4 decimals", line, s.RunoffCoefficient)
		}
		if roof.BaseCoefficient > 0 && loc.Region.Valid() {
			// Noise beyond six standard deviations is implausible.
			expected := domain.AgeAdjustedCoefficient(roof.BaseCoefficient, s.RoofAge) + loc.Region.Modifier()
			expected = math.Max(domain.MinRunoffCoefficient, math.Min(domain.MaxRunoffCoefficient, expected))
			if math.Abs(s.RunoffCoefficient-expected) > 6*domain.CoefficientNoiseStdDev+1e-4 {
				p.errorf("line %d: runoff coefficient %v too far from expected %.4f", line, s.RunoffCoefficient, expected)
			}
		}
	}
	return rows, p
}

func checkHarvest(t *csvfile.Table) ([]domain.HarvestSample, *Phase) {
	p := &Phase{Name: "Harvesting rows"}
	rows := make([]domain.HarvestSample, len(t.Rows))
	for i := range t.Rows {
		h, err := t.HarvestRow(i)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		rows[i] = h
		line := t.Line(i)

		if _, ok := domain.LookupRoofType(h.RoofType); !ok {
			p.errorf("line %d: unknown roof type %q", line, h.RoofType)
		}
		if h.RoofAreaSqM < domain.MinRoofAreaSqM || h.RoofAreaSqM > domain.MaxRoofAreaSqM {
			p.errorf("line %d: roof area %d outside [%d, %d]", line, h.RoofAreaSqM, domain.MinRoofAreaSqM, domain.MaxRoofAreaSqM)
		}
		if h.RoofAge < domain.MinRoofAge || h.RoofAge > domain.MaxRoofAge {
			p.errorf("line %d: roof age %d outside [%d, %d]", line, h.RoofAge, domain.MinRoofAge, domain.MaxRoofAge)
		}
		if loc, ok := domain.LookupLocation(h.Location); !ok {
			p.errorf("line %d: unknown location %q", line, h.Location)
		} else if loc.RainfallMM != h.AnnualRainfallMM {
			p.errorf("line %d: %s rainfall is %d mm, row says %d", line, h.Location, loc.RainfallMM, h.AnnualRainfallMM)
		}

		if ff := domain.FirstFlushLoss(h.RoofAge); ff < domain.BaseFirstFlushLoss || ff > domain.MaxFirstFlushLoss {
			p.errorf("line %d: first-flush loss %v outside [%v, %v]", line, ff, domain.BaseFirstFlushLoss, domain.MaxFirstFlushLoss)
		}
		if h.HarvestableLiters < 0 {
			p.errorf("line %d: negative harvestable water %d", line, h.HarvestableLiters)
			continue
		}
		potential := h.PotentialLiters()
		low := domain.HarvestableWater(potential, h.RoofAge, domain.MinInefficiency)
		high := domain.HarvestableWater(potential, h.RoofAge, domain.MaxInefficiency)
		if h.HarvestableLiters < low || h.HarvestableLiters > high {
			p.errorf("line %d: harvestable water %d outside [%d, %d]", line, h.HarvestableLiters, low, high)
		}
	}
	return rows, p
}

func checkCorrespondence(runoff []domain.RunoffSample, harvest []domain.HarvestSample) *Phase {
	p := &Phase{Name: "Row correspondence"}
	if len(runoff) != len(harvest) {
		p.errorf("runoff has %d rows, harvesting has %d", len(runoff), len(harvest))
	}
	for i := range min(len(runoff), len(harvest)) {
		r, h := runoff[i], harvest[i]
		line := i + 2
		if r.RoofType != h.RoofType {
			p.errorf("line %d: roof type %q vs %q", line, r.RoofType, h.RoofType)
		}
		if r.RoofAge != h.RoofAge {
			p.errorf("line %d: roof age %d vs %d", line, r.RoofAge, h.RoofAge)
		}
		if math.Abs(r.RunoffCoefficient-h.RunoffCoefficient) > coefficientTolerance {
			p.errorf("line %d: runoff coefficient %v vs %v", line, r.RunoffCoefficient, h.RunoffCoefficient)
		}
		if r.Location != h.Location {
			p.errorf("line %d: location %q vs %q", line, r.Location, h.Location)
		}
	}
	return p
}
