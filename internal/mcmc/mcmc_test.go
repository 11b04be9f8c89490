package mcmc

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/improbable-research/keanu-sub009/internal/dist"
	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/metrics"
	"github.com/improbable-research/keanu-sub009/internal/network"
	"github.com/improbable-research/keanu-sub009/internal/random"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// orModel builds A ~ Bernoulli(0.3), B ~ Bernoulli(0.4) with A || B observed
// true. P(A | A || B) = 0.3 / (1 - 0.7*0.6).
func orModel(t *testing.T) (*network.BayesianNetwork, *graph.Vertex, *graph.Vertex) {
	t.Helper()
	g := graph.New()
	a := dist.NewBernoulli(g, g.Scalar(0.3))
	b := dist.NewBernoulli(g, g.Scalar(0.4))
	either := dist.NewBernoulli(g, g.If(g.Or(a, b), g.Scalar(1), g.Scalar(0)))
	require.NoError(t, either.Observe(tensor.BoolScalar(true)))

	net, err := network.FromConnected(either)
	require.NoError(t, err)
	return net, a, b
}

// gaussianModel builds mu ~ N(0, 1) with N(mu, 1) observed at 2, whose
// posterior is N(1, 0.5).
func gaussianModel(t *testing.T) (*network.BayesianNetwork, *graph.Vertex) {
	t.Helper()
	g := graph.New()
	mu := dist.NewGaussian(g, g.Scalar(0), g.Scalar(1))
	obs := dist.NewGaussian(g, mu, g.Scalar(1))
	require.NoError(t, obs.Observe(tensor.Scalar(2)))

	net, err := network.FromConnected(obs)
	require.NoError(t, err)
	return net, mu
}

func TestBernoulliOrPosterior(t *testing.T) {
	net, a, b := orModel(t)
	mh, err := New(net, Config{Seed: 7})
	require.NoError(t, err)

	samples, err := mh.GetPosteriorSamples(context.Background(), []*graph.Vertex{a, b}, 50000)
	require.NoError(t, err)
	samples = samples.Drop(1000)

	pA := samples.Probability(func(s network.NetworkState) bool { return s.Get(a).Bool(0) })
	assert.InDelta(t, 0.3/0.58, pA, 0.02)

	never := samples.Probability(func(s network.NetworkState) bool {
		return !s.Get(a).Bool(0) && !s.Get(b).Bool(0)
	})
	assert.Zero(t, never, "the observation rules out A = B = false")
}

func TestGaussianPosterior(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"prior", Config{Seed: 3}},
		{"gaussian", Config{Seed: 3, Proposal: Gaussian, Sigma: 1}},
		{"random-selector", Config{Seed: 3, Proposal: Gaussian, Selector: Random}},
		{"block", Config{Seed: 3, Proposal: Gaussian, Selector: Block}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, mu := gaussianModel(t)
			mh, err := New(net, tt.cfg)
			require.NoError(t, err)

			samples, err := mh.GetPosteriorSamples(context.Background(), []*graph.Vertex{mu}, 20000)
			require.NoError(t, err)
			samples = samples.Drop(1000)

			mean, err := samples.Mean(mu)
			require.NoError(t, err)
			variance, err := samples.Variance(mu)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, mean.Scalar(), 0.05)
			assert.InDelta(t, 0.5, variance.Scalar(), 0.05)
			assert.Greater(t, mh.AcceptanceRate(), 0.1)
		})
	}
}

func TestStream_LogProbTracksNetwork(t *testing.T) {
	g := graph.New()
	a := dist.NewGaussian(g, g.Scalar(0), g.Scalar(1))
	b := dist.NewGaussian(g, a, g.Scalar(1))
	obs := dist.NewGaussian(g, g.Add(a, b), g.Scalar(1))
	require.NoError(t, obs.Observe(tensor.Scalar(3)))
	net, err := network.FromConnected(obs)
	require.NoError(t, err)

	mh, err := New(net, Config{Seed: 11, Proposal: Gaussian, Sigma: 0.5})
	require.NoError(t, err)

	steps := 0
	for s, err := range mh.Stream(context.Background(), []*graph.Vertex{a, b}) {
		require.NoError(t, err)
		want, err := net.LogProb()
		require.NoError(t, err)
		require.InDelta(t, want, s.LogProb(), 1e-8)
		assert.Equal(t, a.MustValue().Scalar(), s.Get(a).Scalar())
		if steps++; steps == 500 {
			break
		}
	}
}

func TestReproducible(t *testing.T) {
	run := func() []float64 {
		net, mu := gaussianModel(t)
		mh, err := New(net, Config{Seed: 99, Proposal: Gaussian})
		require.NoError(t, err)
		samples, err := mh.GetPosteriorSamples(context.Background(), []*graph.Vertex{mu}, 200)
		require.NoError(t, err)
		out := make([]float64, samples.Len())
		for i, s := range samples.States() {
			out[i] = s.Get(mu).Scalar()
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestStream_Restartable(t *testing.T) {
	net, mu := gaussianModel(t)
	mh, err := New(net, Config{Seed: 5, Proposal: Gaussian})
	require.NoError(t, err)

	stream := mh.Stream(context.Background(), []*graph.Vertex{mu})
	first, err := network.CollectStream(stream, 100)
	require.NoError(t, err)
	second, err := network.CollectStream(stream, 100)
	require.NoError(t, err)

	for i := range first.Len() {
		assert.Equal(t, first.State(i).Get(mu).Scalar(), second.State(i).Get(mu).Scalar())
	}

	thinned, err := network.CollectStream(network.DownSampleStream(network.DropStream(stream, 10), 5), 4)
	require.NoError(t, err)
	for i := range thinned.Len() {
		assert.Equal(t, first.State(10+5*i).Get(mu).Scalar(), thinned.State(i).Get(mu).Scalar())
	}
}

func TestGetPosteriorSamples_Cancelled(t *testing.T) {
	net, mu := gaussianModel(t)
	mh, err := New(net, Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mh.GetPosteriorSamples(ctx, []*graph.Vertex{mu}, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImpossibleNetwork(t *testing.T) {
	g := graph.New()
	a := dist.NewBernoulli(g, g.Scalar(0.5))
	d := dist.NewBernoulli(g, g.If(a, g.Scalar(0), g.Scalar(0)))
	require.NoError(t, d.Observe(tensor.BoolScalar(true)))
	net, err := network.FromConnected(a)
	require.NoError(t, err)

	mh, err := New(net, Config{ProbeAttempts: 20})
	require.NoError(t, err)
	_, err = mh.GetPosteriorSamples(context.Background(), []*graph.Vertex{a}, 10)
	assert.ErrorIs(t, err, network.ErrImpossibleNetwork)
}

func TestNew_InvalidConfig(t *testing.T) {
	net, _ := gaussianModel(t)
	_, err := New(net, Config{Proposal: "hamiltonian"})
	assert.ErrorContains(t, err, "hamiltonian")
	_, err = New(net, Config{Proposal: Gaussian, Sigma: -1})
	assert.Error(t, err)
	_, err = New(net, Config{Selector: "gibbs"})
	assert.ErrorContains(t, err, "gibbs")
}

func TestRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	net, mu := gaussianModel(t)
	mh, err := New(net, Config{Proposal: Gaussian, Metrics: m})
	require.NoError(t, err)

	_, err = mh.GetPosteriorSamples(context.Background(), []*graph.Vertex{mu}, 300)
	require.NoError(t, err)

	accepted := testutil.ToFloat64(m.Proposals.WithLabelValues("accepted"))
	rejected := testutil.ToFloat64(m.Proposals.WithLabelValues("rejected"))
	assert.Equal(t, 300.0, accepted+rejected)
	assert.InDelta(t, accepted/300, testutil.ToFloat64(m.AcceptanceRate), 1e-12)
}

func TestRunChains(t *testing.T) {
	build := func(int) (*network.BayesianNetwork, []*graph.Vertex, error) {
		g := graph.New()
		mu := dist.NewGaussian(g, g.Scalar(0), g.Scalar(1))
		obs := dist.NewGaussian(g, mu, g.Scalar(1))
		if err := obs.Observe(tensor.Scalar(2)); err != nil {
			return nil, nil, err
		}
		net, err := network.FromConnected(obs)
		return net, []*graph.Vertex{mu}, err
	}

	chains, err := RunChains(context.Background(), 4, 5000, build, Config{Seed: 1, Proposal: Gaussian})
	require.NoError(t, err)
	require.Len(t, chains, 4)

	firsts := make(map[float64]bool)
	for _, samples := range chains {
		require.Equal(t, 5000, samples.Len())
		mu := samples.State(0).IDs()[0]
		var sum float64
		for _, s := range samples.Drop(500).States() {
			v, _ := s.Value(mu)
			sum += v.Scalar()
		}
		assert.InDelta(t, 1.0, sum/4500, 0.1)
		v, _ := samples.State(0).Value(mu)
		firsts[v.Scalar()] = true
	}
	assert.Len(t, firsts, 4, "chains use distinct seeds")

	again, err := RunChains(context.Background(), 4, 50, build, Config{Seed: 1, Proposal: Gaussian})
	require.NoError(t, err)
	for i := range again {
		id := again[i].State(0).IDs()[0]
		got, _ := again[i].State(0).Value(id)
		want, _ := chains[i].State(0).Value(id)
		assert.Equal(t, want.Scalar(), got.Scalar())
	}
}

func TestSelectors(t *testing.T) {
	g := graph.New()
	vs := []*graph.Vertex{g.Scalar(1), g.Scalar(2), g.Scalar(3)}
	src := random.New(1)

	var cycled []*graph.Vertex
	for step := range 4 {
		cycled = append(cycled, CyclingSelector{}.Select(vs, step, src)...)
	}
	assert.Equal(t, []*graph.Vertex{vs[0], vs[1], vs[2], vs[0]}, cycled)
	assert.Equal(t, vs, BlockSelector{}.Select(vs, 0, src))

	picked := RandomSelector{}.Select(vs, 0, src)
	require.Len(t, picked, 1)
	assert.Contains(t, vs, picked[0])
}

func TestGaussianProposal_DiscreteFallsBackToPrior(t *testing.T) {
	g := graph.New()
	flip := dist.NewBernoulli(g, g.Scalar(0.25))
	require.NoError(t, flip.SetValue(tensor.BoolScalar(true)))

	p := GaussianProposal{Sigma: 10}
	y, err := p.Propose(flip, random.New(1))
	require.NoError(t, err)
	assert.Equal(t, tensor.Bool, y.DType())

	q, err := p.LogDensity(flip, y, tensor.BoolScalar(false))
	require.NoError(t, err)
	assert.InDelta(t, -0.2876820724517809, q, 1e-12)
}
