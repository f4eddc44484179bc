// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the passgate counters.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	AuthEventsTotal *prometheus.CounterVec
}

// NewMetrics creates the passgate counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passgate_requests_total",
				Help: "Total number of HTTP API requests by operation and status code",
			},
			[]string{"operation", "status"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passgate_auth_events_total",
				Help: "Total number of auth service operations by event and outcome",
			},
			[]string{"event", "outcome"},
		),
	}
	reg.MustRegister(m.RequestsTotal, m.AuthEventsTotal)
	return m
}

// RecordRequest counts one API request.
func (m *Metrics) RecordRequest(operation string, status int) {
	m.RequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

// RecordAuthEvent counts one service operation. It satisfies auth.EventRecorder.
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}
