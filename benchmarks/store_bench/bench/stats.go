package bench

import (
	"fmt"
	"math"
	"time"

	"github.com/bradenaw/juniper/xslices"
	"golang.org/x/exp/slices"
)

// Run is the outcome of one timed run: one duration per measured operation.
type Run struct {
	Durations []time.Duration
}

type Statistics struct {
	SampleCount  int
	Total        time.Duration
	Fastest      time.Duration
	Slowest      time.Duration
	Average      time.Duration
	Median       time.Duration
	Percentile90 time.Duration
	RMS          time.Duration
}

func (s *Statistics) String() string {
	return fmt.Sprintf("SampleCount:%04d Total:%v Fastest:%v Slowest:%v Average:%v Median:%v 90thPercentile:%v RMS:%v",
		s.SampleCount, s.Total, s.Fastest, s.Slowest, s.Average, s.Median, s.Percentile90, s.RMS,
	)
}

func NewStatistics(durations ...time.Duration) *Statistics {
	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	n := len(sorted)
	if n == 0 {
		return &Statistics{}
	}

	stats := &Statistics{
		SampleCount: n,
		Fastest:     sorted[0],
		Slowest:     sorted[n-1],
		Total: xslices.Reduce(sorted, 0, func(total, d time.Duration) time.Duration {
			return total + d
		}),
		Percentile90: sorted[int(math.Floor(float64(n-1)*0.9))],
	}

	stats.Average = stats.Total / time.Duration(n)

	if n%2 == 0 {
		stats.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		stats.Median = sorted[n/2]
	}

	var sumSquares float64

	for _, d := range sorted {
		// Divide early so the sum cannot overflow.
		sumSquares += float64(d) * float64(d) / float64(n)
	}

	stats.RMS = time.Duration(math.Round(math.Sqrt(sumSquares)))

	return stats
}

// Timer collects the durations of repeated Start/Stop pairs.
type Timer struct {
	start     time.Time
	durations []time.Duration
}

func NewTimer(capacity int) *Timer {
	return &Timer{durations: make([]time.Duration, 0, capacity)}
}

func (t *Timer) Start() {
	t.start = time.Now()
}

func (t *Timer) Stop() {
	t.durations = append(t.durations, time.Since(t.start))
}

func (t *Timer) Run() *Run {
	return &Run{Durations: t.durations}
}
