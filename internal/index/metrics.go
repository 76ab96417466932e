// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIndex holds Prometheus metrics for the library index.
type metricsIndex struct {
	once sync.Once

	rescans         *prometheus.CounterVec
	rescanDuration  prometheus.Histogram
	elements        prometheus.Gauge
	skippedElements prometheus.Counter
	scanWarnings    prometheus.Counter
	watchTriggers   prometheus.Counter
}

var idxMetrics metricsIndex

func (m *metricsIndex) init() {
	m.once.Do(func() {
		m.rescans = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "partlib_rescans_total",
			Help: "Library rescans by result",
		}, []string{"result"})
		m.rescanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "partlib_rescan_seconds",
			Help:    "Duration of library rescans",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		})
		m.elements = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "partlib_elements",
			Help: "Elements in the library cache after the last rescan",
		})
		m.skippedElements = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partlib_skipped_elements_total",
			Help: "Invalid elements skipped during rescans",
		})
		m.scanWarnings = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partlib_scan_warnings_total",
			Help: "Library entries the scanner could not read",
		})
		m.watchTriggers = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partlib_watch_triggers_total",
			Help: "Rescans triggered by file changes",
		})
	})
}

// Collectors returns the index metrics for registration, e.g.
// prometheus.MustRegister(index.Collectors()...).
func Collectors() []prometheus.Collector {
	idxMetrics.init()
	return []prometheus.Collector{
		idxMetrics.rescans,
		idxMetrics.rescanDuration,
		idxMetrics.elements,
		idxMetrics.skippedElements,
		idxMetrics.scanWarnings,
		idxMetrics.watchTriggers,
	}
}

// record helpers
func recordRescan(took time.Duration, err error) {
	idxMetrics.init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	idxMetrics.rescans.WithLabelValues(result).Inc()
	idxMetrics.rescanDuration.Observe(took.Seconds())
}

func setElementsGauge(n int) { idxMetrics.init(); idxMetrics.elements.Set(float64(n)) }
func recordSkipped()         { idxMetrics.init(); idxMetrics.skippedElements.Inc() }
func recordScanWarning()     { idxMetrics.init(); idxMetrics.scanWarnings.Inc() }
func recordWatchTrigger()    { idxMetrics.init(); idxMetrics.watchTriggers.Inc() }
