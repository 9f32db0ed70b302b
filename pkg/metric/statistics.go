// Package metric counts handled requests and measures handling latency.
package metric

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

// Families are the request families with a statistic.
var Families = []string{
	"alerts", "alpha", "c", "convert", "d", "flow", "hmap", "mcap",
	"t", "mk", "n", "p", "paper", "v", "x",
}

// Statistics keeps per family counters and exports them to prometheus.
type Statistics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	rejections    prometheus.Counter
	confirmations *prometheus.CounterVec
	providers     *prometheus.CounterVec

	mu     sync.Mutex
	counts map[string]int
}

// NewStatistics creates counters on a private registry.
func NewStatistics() *Statistics {
	s := &Statistics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphabot_requests_total",
				Help: "Weighted requests handled per family",
			},
			[]string{"family"},
		),
		rejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alphabot_rate_limited_total",
				Help: "Batches stopped by the rate limiter",
			},
		),
		confirmations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphabot_confirmations_total",
				Help: "Confirmation prompts by outcome",
			},
			[]string{"outcome"},
		),
		providers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphabot_provider_requests_total",
				Help: "Market data requests by platform and result",
			},
			[]string{"platform", "result"},
		),
		counts: make(map[string]int, len(Families)),
	}
	s.registry.MustRegister(s.requests, s.rejections, s.confirmations, s.providers)

	for _, family := range Families {
		s.requests.WithLabelValues(family)
		s.counts[family] = 0
	}
	return s
}

// Registry exposes the prometheus registry for the admin endpoint.
func (s *Statistics) Registry() *prometheus.Registry {
	return s.registry
}

// Add increments the statistic of family by n. Unknown families are ignored.
func (s *Statistics) Add(family string, n int) {
	if n <= 0 || !lo.Contains(Families, family) {
		return
	}
	s.mu.Lock()
	s.counts[family] += n
	s.mu.Unlock()
	s.requests.WithLabelValues(family).Add(float64(n))
}

// RateLimited counts a rejected batch.
func (s *Statistics) RateLimited() {
	s.rejections.Inc()
}

// Confirmation counts a prompt outcome.
func (s *Statistics) Confirmation(outcome string) {
	s.confirmations.WithLabelValues(outcome).Inc()
}

// Provider counts a market data request result ("ok", "unavailable").
func (s *Statistics) Provider(platform, result string) {
	s.providers.WithLabelValues(platform, result).Inc()
}

// Get returns the statistic of family.
func (s *Statistics) Get(family string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[family]
}

// Snapshot copies every family statistic.
func (s *Statistics) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Assign(s.counts)
}
