package csvfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/rainharvest/internal/adapter/csvfile"
	"github.com/couchcryptid/rainharvest/internal/generator"
	"github.com/couchcryptid/rainharvest/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBatches(t *testing.T, dir string, sizes ...int) (runoffPath, harvestPath string, batches []pipeline.Batch) {
	t.Helper()
	runoffPath = filepath.Join(dir, "nested", "runoff.csv")
	harvestPath = filepath.Join(dir, "nested", "harvest.csv")

	w, err := csvfile.NewWriter(runoffPath, harvestPath)
	require.NoError(t, err)

	s := generator.New(3)
	offset := 0
	for _, n := range sizes {
		runoff := s.Runoff(n)
		harvest, err := s.Harvest(runoff)
		require.NoError(t, err)
		b := pipeline.Batch{Offset: offset, Runoff: runoff, Harvest: harvest}
		require.NoError(t, w.LoadBatch(context.Background(), b))
		batches = append(batches, b)
		offset += n
	}
	require.NoError(t, w.Close())
	return runoffPath, harvestPath, batches
}

func TestWriter_Headers(t *testing.T) {
	runoffPath, harvestPath, _ := writeBatches(t, t.TempDir(), 2)

	data, err := os.ReadFile(runoffPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "roof_type,roof_age,region,location,runoff_coefficient\n"))

	data, err = os.ReadFile(harvestPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data),
		"roof_area_sq_m,roof_type,roof_age,runoff_coefficient,location,annual_rainfall_mm,annual_harvestable_water_liters\n"))
}

func TestWriter_RoundTrip(t *testing.T) {
	runoffPath, harvestPath, batches := writeBatches(t, t.TempDir(), 7, 5)

	runoff, err := csvfile.ReadRunoff(runoffPath)
	require.NoError(t, err)
	harvest, err := csvfile.ReadHarvest(harvestPath)
	require.NoError(t, err)
	require.Len(t, runoff, 12)
	require.Len(t, harvest, 12)

	want := append(batches[0].Runoff, batches[1].Runoff...)
	// IDs are not part of the file format.
	if diff := cmp.Diff(want, runoff, cmpopts.IgnoreFields(want[0], "ID")); diff != "" {
		t.Fatalf("runoff mismatch (-want +got):\n%s", diff)
	}
	wantHarvest := append(batches[0].Harvest, batches[1].Harvest...)
	if diff := cmp.Diff(wantHarvest, harvest, cmpopts.IgnoreFields(wantHarvest[0], "ID")); diff != "" {
		t.Fatalf("harvest mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTable_NotFound(t *testing.T) {
	_, err := csvfile.ReadRunoff(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, csvfile.ErrDatasetNotFound))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadTable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "empty file",
			content: "",
			errMsg:  "empty file",
		},
		{
			name:    "missing column",
			content: "roof_type,roof_age,region,location\nMetal Roof,3,Urban,Mumbai\n",
			errMsg:  "missing columns runoff_coefficient",
		},
		{
			name:    "bad number",
			content: "roof_type,roof_age,region,location,runoff_coefficient\nMetal Roof,old,Urban,Mumbai,0.8\n",
			errMsg:  "line 2: column roof_age",
		},
		{
			name:    "ragged row",
			content: "roof_type,roof_age,region,location,runoff_coefficient\nMetal Roof,3,Urban\n",
			errMsg:  "wrong number of fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "runoff.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := csvfile.ReadRunoff(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestTable_ColumnOrderIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runoff.csv")
	content := "location,runoff_coefficient,roof_type,region,roof_age\nMumbai,0.8512,Metal Roof,Urban,4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rows, err := csvfile.ReadRunoff(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Metal Roof", rows[0].RoofType)
	assert.Equal(t, 4, rows[0].RoofAge)
	assert.InDelta(t, 0.8512, rows[0].RunoffCoefficient, 1e-12)
}
