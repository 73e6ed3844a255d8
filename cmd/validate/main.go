// Command validate checks a generated dataset pair against the physical
// model: headers, per-row invariants of both files, and row-by-row
// correspondence between them.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -runoff data/Runoff_coeff_dataset.csv \
//	  -harvest data/Harvesting_dataset.csv
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/rainharvest/internal/adapter/csvfile"
	"github.com/couchcryptid/rainharvest/internal/validation"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

func main() {
	runoff := flag.String("runoff", sharedcfg.EnvOrDefault("RUNOFF_DATASET", "data/Runoff_coeff_dataset.csv"), "runoff coefficient dataset")
	harvest := flag.String("harvest", sharedcfg.EnvOrDefault("HARVEST_DATASET", "data/Harvesting_dataset.csv"), "harvesting dataset")
	flag.Parse()

	if code := run(*runoff, *harvest, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func run(runoffPath, harvestPath string, out, errOut io.Writer) int {
	fmt.Fprintln(out, "=== Rainwater Dataset Validation ===")
	fmt.Fprintln(out)

	report, err := validation.Validate(runoffPath, harvestPath)
	if err != nil {
		fmt.Fprintf(errOut, "FATAL: %v\n", err)
		if errors.Is(err, csvfile.ErrDatasetNotFound) {
			fmt.Fprintln(errOut, "Run the generate command first.")
		}
		return 1
	}

	for _, p := range report.Phases {
		status := "\033[32mPASS\033[0m"
		if !p.Passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", p.Failures())
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.Name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d runoff coefficient, %d harvesting\n", report.RunoffRows, report.HarvestRows)

	for _, p := range report.Phases {
		if p.Passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.Name)
		for i, e := range p.Errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
		if p.Dropped > 0 {
			fmt.Fprintf(out, "  ... and %d more\n", p.Dropped)
		}
	}

	if report.Passed() {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}
