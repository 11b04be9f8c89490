package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestProposals(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Proposal(true)
	m.Proposal(false)
	m.Proposal(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Proposals.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Proposals.WithLabelValues("rejected")))

	m.ChainState(0.25, -3.5)
	assert.Equal(t, 0.25, testutil.ToFloat64(m.AcceptanceRate))
	assert.Equal(t, -3.5, testutil.ToFloat64(m.ChainLogProb))
}

func TestOptimizer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Evaluation("cg", -10)
	m.Evaluation("cg", -4)
	m.RunFinished("cg", "converged", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("cg")))
	assert.Equal(t, -4.0, testutil.ToFloat64(m.BestFitness.WithLabelValues("cg")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("cg", "converged")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Proposal(true)
		m.ChainState(1, 0)
		m.Evaluation("nelder-mead", 0)
		m.RunFinished("nelder-mead", "failed", time.Second)
	})
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
