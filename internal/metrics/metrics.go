// Copyright 2026 CodeRef Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides the process-wide Prometheus registry every
// other component (ResourceManager, the agent pool, the queue) shares,
// plus the flattened snapshot the `get_metrics` MCP tool returns.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/coderef-dev/coderef/internal/agents"
)

// Registry wraps one prometheus.Registry plus the agent-throughput
// counters not already owned by ResourceManager.
type Registry struct {
	prom *prometheus.Registry

	agentCompleted *prometheus.GaugeVec
	agentFailed    *prometheus.GaugeVec
	agentInFlight  *prometheus.GaugeVec
}

// New builds a Registry with its own counters registered, ready to be
// passed to resource.New and internal/bus-adjacent components as their
// prometheus.Registerer.
func New() *Registry {
	r := &Registry{
		prom: prometheus.NewRegistry(),
		agentCompleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coderef_agent_completed_total", Help: "Tasks completed per agent kind",
		}, []string{"kind"}),
		agentFailed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coderef_agent_failed_total", Help: "Tasks failed per agent kind",
		}, []string{"kind"}),
		agentInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coderef_agent_in_flight", Help: "Tasks currently in flight per agent kind",
		}, []string{"kind"}),
	}
	r.prom.MustRegister(r.agentCompleted, r.agentFailed, r.agentInFlight)
	return r
}

// Registerer exposes the underlying prometheus.Registry so
// resource.New and other components can register their own collectors
// into the same process-wide registry.
func (r *Registry) Registerer() prometheus.Registerer { return r.prom }

// recordAgentHealth mirrors a Registry's agent HealthSnapshot into the
// gauge vectors above, so Gather reflects current agent state without
// every agent needing its own prometheus wiring.
func (r *Registry) recordAgentHealth(reg *agents.Registry) {
	for kind, h := range reg.HealthSnapshot() {
		r.agentCompleted.WithLabelValues(string(kind)).Set(float64(h.Completed))
		r.agentFailed.WithLabelValues(string(kind)).Set(float64(h.Failed))
		r.agentInFlight.WithLabelValues(string(kind)).Set(float64(h.InFlight))
	}
}

// Snapshot gathers every registered metric family, flattened to one
// entry per sample keyed "metric_name{first_label_value}" (or just
// metric_name for an unlabelled sample; further labels are not part of
// the key), for the `get_metrics` tool result.
func (r *Registry) Snapshot(reg *agents.Registry) (map[string]float64, error) {
	r.recordAgentHealth(reg)
	families, err := r.prom.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			name := fam.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				name += "{" + labels[0].GetValue() + "}"
			}
			out[name] = metricValue(m)
		}
	}
	return out, nil
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Counter != nil:
		return m.Counter.GetValue()
	default:
		return 0
	}
}
