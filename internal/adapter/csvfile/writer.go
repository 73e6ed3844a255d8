// Package csvfile reads and writes the runoff and harvesting datasets as
// comma-separated files with a header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/rainharvest/internal/domain"
	"github.com/couchcryptid/rainharvest/internal/pipeline"
)

// Writer streams generated batches to the two dataset files.
// It implements pipeline.BatchLoader.
type Writer struct {
	runoffFile  *os.File
	harvestFile *os.File
	runoff      *csv.Writer
	harvest     *csv.Writer
}

// NewWriter creates (or truncates) both dataset files and writes their headers.
func NewWriter(runoffPath, harvestPath string) (*Writer, error) {
	runoffFile, err := create(runoffPath)
	if err != nil {
		return nil, err
	}
	harvestFile, err := create(harvestPath)
	if err != nil {
		_ = runoffFile.Close()
		return nil, err
	}

	w := &Writer{
		runoffFile:  runoffFile,
		harvestFile: harvestFile,
		runoff:      csv.NewWriter(runoffFile),
		harvest:     csv.NewWriter(harvestFile),
	}
	if err := w.runoff.Write(domain.RunoffColumns); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write runoff header: %w", err)
	}
	if err := w.harvest.Write(domain.HarvestColumns); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write harvest header: %w", err)
	}
	return w, nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	return f, nil
}

// LoadBatch appends the batch to both files and flushes them.
func (w *Writer) LoadBatch(_ context.Context, batch pipeline.Batch) error {
	for i := range batch.Runoff {
		if err := w.runoff.Write(RunoffRecord(batch.Runoff[i])); err != nil {
			return fmt.Errorf("write runoff row: %w", err)
		}
	}
	for i := range batch.Harvest {
		if err := w.harvest.Write(HarvestRecord(batch.Harvest[i])); err != nil {
			return fmt.Errorf("write harvest row: %w", err)
		}
	}
	w.runoff.Flush()
	w.harvest.Flush()
	return errors.Join(w.runoff.Error(), w.harvest.Error())
}

// Close flushes and closes both files.
func (w *Writer) Close() error {
	w.runoff.Flush()
	w.harvest.Flush()
	return errors.Join(
		w.runoff.Error(),
		w.harvest.Error(),
		w.runoffFile.Close(),
		w.harvestFile.Close(),
	)
}

// RunoffRecord renders a runoff sample in RunoffColumns order.
func RunoffRecord(r domain.RunoffSample) []string {
	return []string{
		r.RoofType,
		strconv.Itoa(r.RoofAge),
		string(r.Region),
		r.Location,
		formatFloat(r.RunoffCoefficient),
	}
}

// HarvestRecord renders a harvesting sample in HarvestColumns order.
func HarvestRecord(h domain.HarvestSample) []string {
	return []string{
		strconv.Itoa(h.RoofAreaSqM),
		h.RoofType,
		strconv.Itoa(h.RoofAge),
		formatFloat(h.RunoffCoefficient),
		h.Location,
		strconv.Itoa(h.AnnualRainfallMM),
		strconv.FormatInt(h.HarvestableLiters, 10),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
