// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Every constructor in this file takes a prometheus.Registerer rather than
// using the global prometheus.DefaultRegisterer, so reactorbus's per-run
// registry (built fresh in cmd/reactorbus's serve command) is the only
// thing holding these metrics — nothing survives past that registry's own
// lifetime.

// NewCounter registers a monotonically increasing counter, e.g. a total
// dispatch or accept count.
func NewCounter(registry prometheus.Registerer, name, help string) prometheus.Counter {
	return promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: help,
	})
}

// NewHistogram registers a histogram using Prometheus's default buckets
// ([.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10]).
func NewHistogram(registry prometheus.Registerer, name, help string) prometheus.Histogram {
	return promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: prometheus.DefBuckets,
	})
}

// NewHistogramWithBuckets registers a histogram with caller-supplied
// buckets; DurationBuckets is a starting point for second-scale latencies.
func NewHistogramWithBuckets(registry prometheus.Registerer, name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: buckets,
	})
}

// NewGauge registers a gauge, a value that can move in either direction —
// a live lane count, a queue depth, a configured capacity.
func NewGauge(registry prometheus.Registerer, name, help string) prometheus.Gauge {
	return promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
}

// NewGaugeVec registers a gauge partitioned by labels, e.g. per-lane
// backlog capacity.
func NewGaugeVec(registry prometheus.Registerer, name, help string, labels []string) *prometheus.GaugeVec {
	return promauto.With(registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

// NewCounterVec registers a counter partitioned by labels, e.g. dispatch
// outcome.
func NewCounterVec(registry prometheus.Registerer, name, help string, labels []string) *prometheus.CounterVec {
	return promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	)
}

// DurationBuckets returns buckets spanning 10ms-10s, suitable for the
// dispatch-latency histograms the bus and parallel action record.
func DurationBuckets() []float64 {
	return []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}
}
