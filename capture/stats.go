package capture

import (
	"fmt"
	"math"
)

// RollingStats accumulates a running summary of a measurement series without
// retaining the samples. Mean and variance use Welford's update, so long
// soak runs stay numerically stable. The zero value is ready to use. It is
// not safe for concurrent use; callers that share one hold their own lock,
// as the capture wrapper does.
type RollingStats struct {
	count uint64
	mean  float64
	m2    float64
	min   float64
	max   float64
}

// Update folds one sample into the summary.
func (s *RollingStats) Update(v float64) {
	s.count++
	if s.count == 1 {
		s.mean = v
		s.min = v
		s.max = v
		return
	}
	delta := v - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (v - s.mean)
	if v < s.min {
		s.min = v
	}
	if v > s.max {
		s.max = v
	}
}

// Count returns the number of samples folded in.
func (s *RollingStats) Count() uint64 { return s.count }

// Mean returns the running mean, zero before any sample.
func (s *RollingStats) Mean() float64 { return s.mean }

// StdDev returns the sample standard deviation, zero below two samples.
func (s *RollingStats) StdDev() float64 {
	if s.count < 2 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.count-1))
}

// Min returns the smallest sample seen, zero before any sample.
func (s *RollingStats) Min() float64 { return s.min }

// Max returns the largest sample seen, zero before any sample.
func (s *RollingStats) Max() float64 { return s.max }

// Summary returns a copyable snapshot of the current summary.
func (s *RollingStats) Summary() Summary {
	return Summary{
		Count:  s.count,
		Mean:   s.mean,
		StdDev: s.StdDev(),
		Min:    s.min,
		Max:    s.max,
	}
}

func (s *RollingStats) String() string {
	return fmt.Sprintf("mean %.2f std %.2f range %.2f to %.2f over %d", s.Mean(), s.StdDev(), s.Min(), s.Max(), s.Count())
}

// Summary is a point-in-time view of a RollingStats, shaped for JSON.
type Summary struct {
	Count  uint64  `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Stats is the wrapper's combined snapshot: operation counters plus signal
// summaries over every received packet.
type Stats struct {
	TxPackets  uint64  `json:"tx_packets"`
	TxBytes    uint64  `json:"tx_bytes"`
	TxErrors   uint64  `json:"tx_errors"`
	RxPackets  uint64  `json:"rx_packets"`
	RxBytes    uint64  `json:"rx_bytes"`
	RxErrors   uint64  `json:"rx_errors"`
	SinkErrors uint64  `json:"sink_errors"`
	RSSI       Summary `json:"rssi"`
	LQI        Summary `json:"lqi"`
}
