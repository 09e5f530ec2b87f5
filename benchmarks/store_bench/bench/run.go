package bench

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/profile"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func RunMain() {
	flag.Usage = func() {
		fmt.Printf("Usage %v [options] benchmark0 benchmark1 ... benchmarkN\n", os.Args[0])
		fmt.Printf("\nAvailable Benchmarks:\n")

		names := maps.Keys(benchmarks)
		slices.Sort(names)

		for _, name := range names {
			fmt.Printf("  * %v\n", name)
		}

		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return
	}

	var selected []Benchmark

	for _, arg := range flag.Args() {
		v, ok := benchmarks[arg]
		if !ok {
			panic(fmt.Sprintf("Unknown benchmark %v", arg))
		}

		selected = append(selected, v)
	}

	var reporter Reporter

	if len(*JSONReport) != 0 {
		reporter = JSONReporter{path: *JSONReport}
	} else {
		reporter = StdOutReporter{}
	}

	dir, err := dataDir()
	if err != nil {
		panic(fmt.Sprintf("Failed to get benchmark directory: %v", err))
	}

	reports := make([]*Report, 0, len(selected))

	for _, b := range selected {
		if *Verbose {
			fmt.Printf("Begin Benchmark: %v\n", b.Name())
		}

		runs := make([]*Statistics, 0, *BenchmarkRuns)

		for r := uint(0); r < *BenchmarkRuns; r++ {
			runs = append(runs, measure(filepath.Join(dir, fmt.Sprintf("%v-%d", b.Name(), r)), b))
		}

		reports = append(reports, NewReport(b.Name(), runs...))
	}

	if err := reporter.ProduceReport(reports); err != nil {
		panic(fmt.Sprintf("Failed to produce benchmark report: %v", err))
	}
}

func measure(dir string, b Benchmark) *Statistics {
	if *Verbose {
		fmt.Printf("Benchmark Data Path: %v\n", dir)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		panic(fmt.Sprintf("Failed to create benchmark directory '%v': %v", dir, err))
	}

	ctx := context.Background()

	if err := b.Setup(ctx, dir); err != nil {
		panic(fmt.Sprintf("Failed to setup benchmark %v: %v", b.Name(), err))
	}

	run, err := profiled(dir, func() (*Run, error) { return b.Run(ctx) })
	if err != nil {
		panic(fmt.Sprintf("Failed to run benchmark %v: %v", b.Name(), err))
	}

	if err := b.TearDown(ctx); err != nil {
		panic(fmt.Sprintf("Failed to teardown benchmark %v: %v", b.Name(), err))
	}

	return NewStatistics(run.Durations...)
}

// profiled runs fn under the profiler selected on the command line. Profiles are written next to the store data.
func profiled(dir string, fn func() (*Run, error)) (*Run, error) {
	var mode func(*profile.Profile)

	switch *Profile {
	case "":
		return fn()

	case "cpu":
		mode = profile.CPUProfile

	case "mem":
		mode = profile.MemProfile

	case "block":
		mode = profile.BlockProfile

	default:
		return nil, fmt.Errorf("unknown profile mode %q", *Profile)
	}

	defer profile.Start(mode, profile.ProfilePath(dir), profile.NoShutdownHook, profile.Quiet).Stop()

	return fn()
}
