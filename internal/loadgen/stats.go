package loadgen

import (
	"fmt"
	"strings"
	"time"
)

// Stats aggregates per-request outcomes of a run.
type Stats struct {
	Latencies  []time.Duration
	Successful int
	Timeouts   int
	Errors     int
}

func (s *Stats) merge(other Stats) {
	s.Latencies = append(s.Latencies, other.Latencies...)
	s.Successful += other.Successful
	s.Timeouts += other.Timeouts
	s.Errors += other.Errors
}

// Summary renders the run statistics in a human-readable block.
func (s *Stats) Summary(elapsed time.Duration) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Test completed in %.2f seconds\n", elapsed.Seconds())
	fmt.Fprintf(&b, "Successful requests: %d\n", s.Successful)
	fmt.Fprintf(&b, "Timeouts: %d\n", s.Timeouts)
	if s.Errors > 0 {
		fmt.Fprintf(&b, "Errors: %d\n", s.Errors)
	}

	if len(s.Latencies) > 0 {
		var sum, min, max time.Duration
		min = s.Latencies[0]
		max = s.Latencies[0]
		for _, lat := range s.Latencies {
			sum += lat
			if lat < min {
				min = lat
			}
			if lat > max {
				max = lat
			}
		}
		avg := sum / time.Duration(len(s.Latencies))

		fmt.Fprintf(&b, "Average latency: %.2fms\n", float64(avg.Microseconds())/1000)
		fmt.Fprintf(&b, "Minimum latency: %dms\n", min.Milliseconds())
		fmt.Fprintf(&b, "Maximum latency: %dms\n", max.Milliseconds())
		fmt.Fprintf(&b, "Avg RPS: %.2f\n", float64(len(s.Latencies))/elapsed.Seconds())
	}

	return b.String()
}
