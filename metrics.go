/*
 * Copyright (c) 2024 yakumioto <yaku.mioto@gmail.com>
 * All rights reserved.
 */

package otelrewrite

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts rewritten and untouched span mutations per event kind.
// A nil *Metrics records nothing.
type Metrics struct {
	rewritesVec    *prometheus.CounterVec
	passthroughVec *prometheus.CounterVec

	// counters are resolved up front so recording never allocates.
	rewriteCounters     [numKinds]prometheus.Counter
	passthroughCounters [numKinds]prometheus.Counter
}

// NewMetrics creates the rewrite counters and registers them with reg.
// A nil reg leaves the counters unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		rewritesVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otelrewrite",
			Name:      "rewrites_total",
			Help:      "Span mutations rewritten by a matching rule, by event type.",
		}, []string{"type"}),
		passthroughVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otelrewrite",
			Name:      "passthrough_total",
			Help:      "Span mutations forwarded unchanged because no rule matched, by event type.",
		}, []string{"type"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.rewritesVec, m.passthroughVec} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("failed to register rewrite metrics: %w", err)
			}
		}
	}

	for i := 0; i < numKinds; i++ {
		kind := EventKind(i).String()
		m.rewriteCounters[i] = m.rewritesVec.WithLabelValues(kind)
		m.passthroughCounters[i] = m.passthroughVec.WithLabelValues(kind)
	}
	return m, nil
}

func (m *Metrics) rewritten(kind EventKind) {
	if m != nil {
		m.rewriteCounters[kind].Inc()
	}
}

func (m *Metrics) passthrough(kind EventKind) {
	if m != nil {
		m.passthroughCounters[kind].Inc()
	}
}
