// Package metrics records sampler and harness activity as Prometheus
// collectors on a caller-supplied registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bayesharness"

// Sampler holds the collectors of inference runs. A nil *Sampler records
// nothing, so callers can pass one unconditionally.
type Sampler struct {
	draws       prometheus.Counter
	proposals   *prometheus.CounterVec
	accepted    *prometheus.CounterVec
	divergences prometheus.Counter
	stepSize    *prometheus.GaugeVec
	treeDepth   prometheus.Histogram
	mapEvals    prometheus.Counter
}

// NewSampler registers the sampler collectors on reg.
func NewSampler(reg prometheus.Registerer) *Sampler {
	f := promauto.With(reg)
	return &Sampler{
		draws: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "draws_total",
			Help:      "Draws appended to traces",
		}),
		proposals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "proposals_total",
			Help:      "Proposals made by step method",
		}, []string{"method"}),
		accepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "accepted_total",
			Help:      "Accepted proposals by step method",
		}, []string{"method"}),
		divergences: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "divergences_total",
			Help:      "Divergent Hamiltonian trajectories",
		}),
		stepSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "step_size",
			Help:      "Current step size or proposal scale by step method",
		}, []string{"method"}),
		treeDepth: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "tree_depth",
			Help:      "NUTS tree depth per iteration",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		}),
		mapEvals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "map",
			Name:      "evaluations_total",
			Help:      "Log-probability evaluations made by the MAP optimizer",
		}),
	}
}

// Draw counts one appended draw.
func (s *Sampler) Draw() {
	if s == nil {
		return
	}
	s.draws.Inc()
}

// Proposal counts one proposal of method and whether it was accepted.
func (s *Sampler) Proposal(method string, accepted bool) {
	if s == nil {
		return
	}
	s.proposals.WithLabelValues(method).Inc()
	if accepted {
		s.accepted.WithLabelValues(method).Inc()
	}
}

// Divergence counts one divergent trajectory.
func (s *Sampler) Divergence() {
	if s == nil {
		return
	}
	s.divergences.Inc()
}

// StepSize records the current step size of method.
func (s *Sampler) StepSize(method string, size float64) {
	if s == nil {
		return
	}
	s.stepSize.WithLabelValues(method).Set(size)
}

// TreeDepth records the depth of one NUTS tree.
func (s *Sampler) TreeDepth(depth int) {
	if s == nil {
		return
	}
	s.treeDepth.Observe(float64(depth))
}

// MAPEvaluations adds n optimizer evaluations.
func (s *Sampler) MAPEvaluations(n int) {
	if s == nil {
		return
	}
	s.mapEvals.Add(float64(n))
}

// Harness holds the collectors of scenario runs.
type Harness struct {
	scenarios *prometheus.CounterVec
}

// NewHarness registers the harness collectors on reg.
func NewHarness(reg prometheus.Registerer) *Harness {
	return &Harness{
		scenarios: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harness",
			Name:      "scenarios_total",
			Help:      "Scenarios run by outcome (pass, fail, skip)",
		}, []string{"outcome"}),
	}
}

// Scenario counts one scenario outcome.
func (h *Harness) Scenario(outcome string) {
	if h == nil {
		return
	}
	h.scenarios.WithLabelValues(outcome).Inc()
}

// WriteFile writes the text exposition of g to path.
func WriteFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
