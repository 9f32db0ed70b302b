package metric

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a window of durations in milliseconds.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P95    float64 `json:"p95"`
	Lower  float64 `json:"lower"` // bootstrap interval of the mean
	Upper  float64 `json:"upper"`
}

// Latency keeps the most recent handling durations.
type Latency struct {
	mu      sync.Mutex
	samples []float64
	size    int
	next    int
}

// NewLatency keeps up to size samples.
func NewLatency(size int) *Latency {
	if size <= 0 {
		size = 1024
	}
	return &Latency{size: size, samples: make([]float64, 0, size)}
}

// Observe records one duration.
func (l *Latency) Observe(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.samples) < l.size {
		l.samples = append(l.samples, ms)
		return
	}
	l.samples[l.next] = ms
	l.next = (l.next + 1) % l.size
}

// Summary computes the statistics of the current window.
func (l *Latency) Summary() Summary {
	l.mu.Lock()
	data := append([]float64(nil), l.samples...)
	l.mu.Unlock()

	if len(data) == 0 {
		return Summary{}
	}
	sort.Float64s(data)

	mean, stdDev := stat.MeanStdDev(data, nil)
	if len(data) == 1 {
		stdDev = 0
	}
	interval := Bootstrap(data, func(v []float64) float64 { return stat.Mean(v, nil) }, 200, 0.95)

	return Summary{
		Count:  len(data),
		Mean:   mean,
		StdDev: stdDev,
		P95:    stat.Quantile(0.95, stat.Empirical, data, nil),
		Lower:  interval.Lower,
		Upper:  interval.Upper,
	}
}

// BootstrapInterval represents the confidence interval calculated by the bootstrap method.
type BootstrapInterval struct {
	Lower  float64
	Upper  float64
	StdDev float64
	Mean   float64
}

// Bootstrap resamples values with replacement sampleSize times and returns
// the confidence interval of measure.
func Bootstrap(values []float64, measure func([]float64) float64, sampleSize int,
	confidence float64) BootstrapInterval {

	if len(values) == 0 {
		return BootstrapInterval{}
	}

	data := make([]float64, 0, sampleSize)
	for i := 0; i < sampleSize; i++ {
		samples := make([]float64, len(values))
		for j := range samples {
			samples[j] = lo.Sample(values)
		}
		data = append(data, measure(samples))
	}

	tail := 1 - confidence
	sort.Float64s(data)

	mean, stdDev := stat.MeanStdDev(data, nil)
	return BootstrapInterval{
		Lower:  stat.Quantile(tail/2, stat.LinInterp, data, nil),
		Upper:  stat.Quantile(1-tail/2, stat.LinInterp, data, nil),
		StdDev: stdDev,
		Mean:   mean,
	}
}
