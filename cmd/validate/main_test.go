package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/rainharvest/internal/adapter/csvfile"
	"github.com/couchcryptid/rainharvest/internal/generator"
	"github.com/couchcryptid/rainharvest/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Passes(t *testing.T) {
	dir := t.TempDir()
	runoffPath, harvestPath := filepath.Join(dir, "r.csv"), filepath.Join(dir, "h.csv")
	w, err := csvfile.NewWriter(runoffPath, harvestPath)
	require.NoError(t, err)
	s := generator.New(99)
	runoff := s.Runoff(50)
	harvest, err := s.Harvest(runoff)
	require.NoError(t, err)
	require.NoError(t, w.LoadBatch(context.Background(), pipeline.Batch{Runoff: runoff, Harvest: harvest}))
	require.NoError(t, w.Close())

	var out, errOut bytes.Buffer
	assert.Equal(t, 0, run(runoffPath, harvestPath, &out, &errOut))
	assert.Contains(t, out.String(), "Records: 50 runoff coefficient, 50 harvesting")
	assert.Contains(t, out.String(), "All validations passed.")
	assert.Empty(t, errOut.String())
}

func TestRun_Fails(t *testing.T) {
	dir := t.TempDir()
	runoffPath, harvestPath := filepath.Join(dir, "r.csv"), filepath.Join(dir, "h.csv")
	require.NoError(t, os.WriteFile(runoffPath, []byte("roof_type,roof_age,region,location,runoff_coefficient\nConcrete Roof,50,Urban,Jaisalmer,0.643\n"), 0o600))
	require.NoError(t, os.WriteFile(harvestPath, []byte("roof_area_sq_m,roof_type,roof_age,runoff_coefficient,location,annual_rainfall_mm,annual_harvestable_water_liters\n"), 0o600))

	var out bytes.Buffer
	assert.Equal(t, 1, run(runoffPath, harvestPath, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "--- Runoff coefficient rows ---")
	assert.Contains(t, out.String(), "Jaisalmer is Rural, row says Urban")
	assert.Contains(t, out.String(), "runoff has 1 rows, harvesting has 0")
	assert.Contains(t, out.String(), "Validation FAILED.")
}

func TestRun_MissingDataset(t *testing.T) {
	var errOut bytes.Buffer
	assert.Equal(t, 1, run(filepath.Join(t.TempDir(), "r.csv"), "h.csv", &bytes.Buffer{}, &errOut))
	assert.Contains(t, errOut.String(), "Run the generate command first.")
}
