// Package metrics exposes sampler and optimizer progress as Prometheus
// collectors.
//
// Collectors are created per registry rather than as globals so independent
// runs (and tests) do not collide. A nil *Metrics records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	// Proposals counts Metropolis-Hastings proposals by result.
	Proposals *prometheus.CounterVec
	// AcceptanceRate is the running acceptance rate of the latest chain.
	AcceptanceRate prometheus.Gauge
	// ChainLogProb is the joint log probability of the latest chain state.
	ChainLogProb prometheus.Gauge

	// Evaluations counts fitness evaluations by algorithm.
	Evaluations *prometheus.CounterVec
	// BestFitness is the best fitness seen so far by algorithm.
	BestFitness *prometheus.GaugeVec
	// Runs counts finished optimizer runs by algorithm and outcome.
	Runs *prometheus.CounterVec
	// RunDuration measures optimizer wall time by algorithm.
	RunDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Proposals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keanu_mcmc_proposals_total",
				Help: "Metropolis-Hastings proposals by result",
			},
			[]string{"result"},
		),
		AcceptanceRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "keanu_mcmc_acceptance_rate",
			Help: "Fraction of accepted proposals in the current chain",
		}),
		ChainLogProb: f.NewGauge(prometheus.GaugeOpts{
			Name: "keanu_mcmc_log_prob",
			Help: "Joint log probability of the current chain state",
		}),
		Evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keanu_optimizer_evaluations_total",
				Help: "Fitness function evaluations",
			},
			[]string{"algorithm"},
		),
		BestFitness: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keanu_optimizer_best_fitness",
				Help: "Best fitness value found so far",
			},
			[]string{"algorithm"},
		),
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keanu_optimizer_runs_total",
				Help: "Finished optimizer runs by outcome",
			},
			[]string{"algorithm", "outcome"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keanu_optimizer_run_duration_seconds",
				Help:    "Wall time of optimizer runs",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"algorithm"},
		),
	}
}

// Proposal records one accept or reject decision.
func (m *Metrics) Proposal(accepted bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.Proposals.WithLabelValues(result).Inc()
}

// ChainState records the acceptance rate and log probability after a step.
func (m *Metrics) ChainState(acceptanceRate, logProb float64) {
	if m == nil {
		return
	}
	m.AcceptanceRate.Set(acceptanceRate)
	m.ChainLogProb.Set(logProb)
}

// Evaluation records one fitness evaluation and the best value so far.
func (m *Metrics) Evaluation(algorithm string, best float64) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(algorithm).Inc()
	m.BestFitness.WithLabelValues(algorithm).Set(best)
}

// RunFinished records the outcome and duration of an optimizer run.
func (m *Metrics) RunFinished(algorithm, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(algorithm, outcome).Inc()
	m.RunDuration.WithLabelValues(algorithm).Observe(elapsed.Seconds())
}
