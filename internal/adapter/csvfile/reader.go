package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/rainharvest/internal/domain"
)

// ErrDatasetNotFound is returned when a dataset file does not exist.
var ErrDatasetNotFound = errors.New("dataset not found")

// Table is a parsed CSV file with field values addressable by header name.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadTable loads a CSV file. The first row is the header.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrDatasetNotFound, path, err)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s: empty file", path)
		}
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	r.FieldsPerRecord = len(header)

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	t := &Table{Path: path, Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		t.index[strings.TrimSpace(h)] = i
	}
	return t, nil
}

// Has reports whether the table has the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Get returns the trimmed value of col in row i, or "" when the column is absent.
func (t *Table) Get(i int, col string) string {
	j, ok := t.index[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][j])
}

// Line returns the 1-based file line of data row i.
func (t *Table) Line(i int) int { return i + 2 }

// RequireColumns reports every column of cols missing from the header.
func (t *Table) RequireColumns(cols []string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns %s", t.Path, strings.Join(missing, ", "))
	}
	return nil
}

// rowParser collects the first conversion error for a row.
type rowParser struct {
	t   *Table
	i   int
	err error
}

func (p *rowParser) int(col string) int {
	v, err := strconv.Atoi(p.t.Get(p.i, col))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s line %d: column %s: %w", p.t.Path, p.t.Line(p.i), col, err)
	}
	return v
}

func (p *rowParser) int64(col string) int64 {
	v, err := strconv.ParseInt(p.t.Get(p.i, col), 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s line %d: column %s: %w", p.t.Path, p.t.Line(p.i), col, err)
	}
	return v
}

func (p *rowParser) float(col string) float64 {
	v, err := strconv.ParseFloat(p.t.Get(p.i, col), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s line %d: column %s: %w", p.t.Path, p.t.Line(p.i), col, err)
	}
	return v
}

// ReadRunoff loads the runoff coefficient dataset.
func ReadRunoff(path string) ([]domain.RunoffSample, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return t.Runoff()
}

// Runoff converts the table into runoff samples, stopping at the first
// malformed row.
func (t *Table) Runoff() ([]domain.RunoffSample, error) {
	if err := t.RequireColumns(domain.RunoffColumns); err != nil {
		return nil, err
	}
	out := make([]domain.RunoffSample, 0, len(t.Rows))
	for i := range t.Rows {
		s, err := t.RunoffRow(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// RunoffRow parses data row i as a runoff sample.
func (t *Table) RunoffRow(i int) (domain.RunoffSample, error) {
	p := rowParser{t: t, i: i}
	s := domain.RunoffSample{
		RoofType:          t.Get(i, domain.ColRoofType),
		RoofAge:           p.int(domain.ColRoofAge),
		Region:            domain.Region(t.Get(i, domain.ColRegion)),
		Location:          t.Get(i, domain.ColLocation),
		RunoffCoefficient: p.float(domain.ColRunoffCoefficient),
	}
	return s, p.err
}

// ReadHarvest loads the harvesting dataset.
func ReadHarvest(path string) ([]domain.HarvestSample, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return t.Harvest()
}

// Harvest converts the table into harvesting samples, stopping at the first
// malformed row.
func (t *Table) Harvest() ([]domain.HarvestSample, error) {
	if err := t.RequireColumns(domain.HarvestColumns); err != nil {
		return nil, err
	}
	out := make([]domain.HarvestSample, 0, len(t.Rows))
	for i := range t.Rows {
		s, err := t.HarvestRow(i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// HarvestRow parses data row i as a harvesting sample.
func (t *Table) HarvestRow(i int) (domain.HarvestSample, error) {
	p := rowParser{t: t, i: i}
	s := domain.HarvestSample{
		RoofAreaSqM:       p.int(domain.ColRoofArea),
		RoofType:          t.Get(i, domain.ColRoofType),
		RoofAge:           p.int(domain.ColRoofAge),
		RunoffCoefficient: p.float(domain.ColRunoffCoefficient),
		Location:          t.Get(i, domain.ColLocation),
		AnnualRainfallMM:  p.int(domain.ColAnnualRainfall),
		HarvestableLiters: p.int64(domain.ColHarvestable),
	}
	return s, p.err
}
