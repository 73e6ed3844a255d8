package validation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/rainharvest/internal/adapter/csvfile"
	"github.com/couchcryptid/rainharvest/internal/generator"
	"github.com/couchcryptid/rainharvest/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	runoffHeader  = "roof_type,roof_age,region,location,runoff_coefficient\n"
	harvestHeader = "roof_area_sq_m,roof_type,roof_age,runoff_coefficient,location,annual_rainfall_mm,annual_harvestable_water_liters\n"
)

func generated(t *testing.T, n int) (string, string) {
	t.Helper()
	dir := t.TempDir()
	runoffPath, harvestPath := filepath.Join(dir, "runoff.csv"), filepath.Join(dir, "harvest.csv")
	w, err := csvfile.NewWriter(runoffPath, harvestPath)
	require.NoError(t, err)

	s := generator.New(5)
	runoff := s.Runoff(n)
	harvest, err := s.Harvest(runoff)
	require.NoError(t, err)
	require.NoError(t, w.LoadBatch(context.Background(), pipeline.Batch{Runoff: runoff, Harvest: harvest}))
	require.NoError(t, w.Close())
	return runoffPath, harvestPath
}

func writeFiles(t *testing.T, runoff, harvest string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	runoffPath, harvestPath := filepath.Join(dir, "runoff.csv"), filepath.Join(dir, "harvest.csv")
	require.NoError(t, os.WriteFile(runoffPath, []byte(runoff), 0o600))
	require.NoError(t, os.WriteFile(harvestPath, []byte(harvest), 0o600))
	return runoffPath, harvestPath
}

func phase(t *testing.T, r *Report, name string) *Phase {
	t.Helper()
	for _, p := range r.Phases {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("phase %q not run", name)
	return nil
}

func TestValidate_GeneratedDataPasses(t *testing.T) {
	report, err := Validate(generated(t, 2000))
	require.NoError(t, err)

	for _, p := range report.Phases {
		assert.True(t, p.Passed(), "%s: %v", p.Name, p.Errors)
	}
	assert.True(t, report.Passed())
	assert.Len(t, report.Phases, 4)
	assert.Equal(t, 2000, report.RunoffRows)
	assert.Equal(t, 2000, report.HarvestRows)
}

func TestValidate_SchemaMismatchStopsEarly(t *testing.T) {
	report, err := Validate(writeFiles(t,
		"roof_type,age,region,location,runoff_coefficient\n",
		harvestHeader,
	))
	require.NoError(t, err)
	assert.False(t, report.Passed())
	require.Len(t, report.Phases, 1)
	assert.Contains(t, report.Phases[0].Errors[0], "runoff.csv: header")
}

func TestValidate_RowErrors(t *testing.T) {
	runoff := runoffHeader +
		"Concrete Roof,50,Urban,Jaisalmer,0.643\n" + // region mismatch
		"Thatch,10,Urban,Delhi,0.8\n" + // unknown roof type
		"Concrete Roof,60,Rural,Jaisalmer,0.99\n" + // age and coefficient out of range
		"Concrete Roof,old,Rural,Jaisalmer,0.64\n" // parse error
	harvest := harvestHeader +
		"100,Concrete Roof,50,0.643,Jaisalmer,210,12000\n" +
		"100,Thatch,10,0.8,Delhi,999,-1\n" +
		"20,Concrete Roof,60,0.99,Jaisalmer,210,100\n" +
		"100,Concrete Roof,1,0.64,Jaisalmer,210,12000\n"

	report, err := Validate(writeFiles(t, runoff, harvest))
	require.NoError(t, err)
	assert.False(t, report.Passed())

	rp := phase(t, report, "Runoff coefficient rows")
	joined := strings.Join(rp.Errors, "\n")
	assert.Contains(t, joined, "line 2: Jaisalmer is Rural, row says Urban")
	assert.Contains(t, joined, `line 3: unknown roof type "Thatch"`)
	assert.Contains(t, joined, "line 4: roof age 60 outside [1, 50]")
	assert.Contains(t, joined, "line 4: runoff coefficient 0.99 outside")
	assert.Contains(t, joined, "line 5: column roof_age")

	hp := phase(t, report, "Harvesting rows")
	joined = strings.Join(hp.Errors, "\n")
	assert.Contains(t, joined, "line 3: Delhi rainfall is 780 mm, row says 999")
	assert.Contains(t, joined, "line 3: negative harvestable water -1")
	assert.Contains(t, joined, "line 4: roof area 20 outside [40, 600]")
	assert.Contains(t, joined, "line 2: harvestable water 12000 outside")

	cp := phase(t, report, "Row correspondence")
	joined = strings.Join(cp.Errors, "\n")
	assert.Contains(t, joined, "line 5: roof age 0 vs 1")
}

func TestValidate_CountMismatch(t *testing.T) {
	runoffPath, harvestPath := generated(t, 10)
	data, err := os.ReadFile(harvestPath)
	require.NoError(t, err)
	lines := strings.SplitAfter(string(data), "\n")
	require.NoError(t, os.WriteFile(harvestPath, []byte(strings.Join(lines[:6], "")), 0o600))

	report, err := Validate(runoffPath, harvestPath)
	require.NoError(t, err)
	cp := phase(t, report, "Row correspondence")
	require.False(t, cp.Passed())
	assert.Equal(t, "runoff has 10 rows, harvesting has 5", cp.Errors[0])
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := Validate(filepath.Join(t.TempDir(), "nope.csv"), "also-nope.csv")
	require.ErrorIs(t, err, csvfile.ErrDatasetNotFound)
}

func TestPhase_CapsErrors(t *testing.T) {
	p := &Phase{Name: "x"}
	for i := range maxErrors + 7 {
		p.errorf("error %d", i)
	}
	assert.Len(t, p.Errors, maxErrors)
	assert.Equal(t, 7, p.Dropped)
	assert.Equal(t, maxErrors+7, p.Failures())
}
