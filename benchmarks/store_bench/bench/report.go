package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bradenaw/juniper/xslices"
)

type Report struct {
	Name       string
	Runs       []*Statistics
	Statistics *Statistics
}

func NewReport(name string, runs ...*Statistics) *Report {
	totals := xslices.Map(runs, func(r *Statistics) time.Duration {
		return r.Total
	})

	return &Report{Name: name, Runs: runs, Statistics: NewStatistics(totals...)}
}

type Reporter interface {
	ProduceReport(reports []*Report) error
}

// StdOutReporter prints the reports to os.Stdout.
type StdOutReporter struct{}

func (StdOutReporter) ProduceReport(reports []*Report) error {
	for i, report := range reports {
		fmt.Printf("[%02d] Benchmark %v\n", i, report.Name)
		fmt.Printf("[%02d] %v\n", i, report.Statistics)

		for r, run := range report.Runs {
			fmt.Printf("[%02d] Run %02d - %v\n", i, r, run)
		}
	}

	return nil
}

// JSONReporter writes the reports to a json file.
type JSONReporter struct {
	path string
}

func (j JSONReporter) ProduceReport(reports []*Report) error {
	b, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(j.path, b, 0o600)
}
