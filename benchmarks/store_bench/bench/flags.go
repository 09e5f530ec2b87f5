package bench

import "flag"

var (
	BenchPath     = flag.String("path", "", "Directory where the store data is written. A temporary directory is used if not set.")
	Verbose       = flag.Bool("verbose", false, "Enable verbose logging.")
	JSONReport    = flag.String("json-reporter", "", "If set, write a json report to the given file.")
	BenchmarkRuns = flag.Uint("bench-runs", 1, "Number of runs per benchmark.")
	Profile       = flag.String("profile", "", "Capture a profile of the timed section: cpu, mem or block.")
	MessageCount  = flag.Uint("message-count", 1000, "Number of messages stored in the source folder before each benchmark.")
	BodySize      = flag.Uint("body-size", 4*1024, "Size in bytes of the generated message bodies.")
	BatchSize     = flag.Uint("batch-size", 100, "Number of messages appended per transaction.")
)
