// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the client's Prometheus collectors. The CLI is short
// lived, so collectors are dumped to a node-exporter textfile on exit rather
// than scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels requests that returned 2xx.
	OutcomeSuccess = "success"
	// OutcomeError labels transport failures and non-2xx responses.
	OutcomeError = "error"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "requests_total",
			Help:      "Backend requests, partitioned by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	researchEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "research_events_total",
			Help:      "Decoded research stream events, partitioned by phase.",
		},
		[]string{"phase"},
	)

	malformedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "research_malformed_lines_total",
			Help:      "Stream data lines skipped because their JSON did not parse.",
		},
	)

	researchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mosaic",
			Name:      "research_seconds",
			Help:      "Wall time of one research stream from handshake to end.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
	)
)

// Register attaches the collectors to reg. Registering twice is harmless.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		requestsTotal,
		researchEventsTotal,
		malformedLinesTotal,
		researchDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRequest counts one backend request.
func ObserveRequest(endpoint string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveEvent counts one decoded stream event.
func ObserveEvent(phase string) {
	researchEventsTotal.WithLabelValues(phase).Inc()
}

// ObserveMalformedLine counts one skipped stream line.
func ObserveMalformedLine() {
	malformedLinesTotal.Inc()
}

// ObserveResearch records the duration of one stream.
func ObserveResearch(d time.Duration) {
	if d < 0 {
		d = 0
	}
	researchDurationSeconds.Observe(d.Seconds())
}

// WriteTextfile gathers reg and writes it to path in the text exposition
// format.
func WriteTextfile(path string, reg prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, reg)
}
