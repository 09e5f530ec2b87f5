package bench

import (
	"context"
	"os"
)

type Benchmark interface {
	// Name is matched against the command line arguments.
	Name() string

	// Setup prepares the benchmark state in dir. It is not timed.
	Setup(ctx context.Context, dir string) error

	// Run performs the timed part of the benchmark.
	Run(ctx context.Context) (*Run, error)

	// TearDown releases the benchmark state. It is not timed.
	TearDown(ctx context.Context) error
}

var benchmarks = make(map[string]Benchmark)

func Register(benchmark Benchmark) {
	if _, ok := benchmarks[benchmark.Name()]; ok {
		panic("benchmark with this name already exists: " + benchmark.Name())
	}

	benchmarks[benchmark.Name()] = benchmark
}

// dataDir returns the directory benchmark data is generated in, creating a temporary one if no path was given.
func dataDir() (string, error) {
	if len(*BenchPath) != 0 {
		if err := os.MkdirAll(*BenchPath, 0o700); err != nil {
			return "", err
		}

		return *BenchPath, nil
	}

	return os.MkdirTemp("", "localstore-bench-*")
}
