package network

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// Sample-set errors.
var (
	ErrNoSamples     = errors.New("no samples")
	ErrUnknownVertex = errors.New("vertex not recorded in samples")
)

// NetworkState is an immutable record of vertex values at one point in time,
// together with the joint log probability there.
type NetworkState struct {
	values  map[graph.ID]*tensor.Tensor
	logProb float64
}

// NewNetworkState wraps values. The map is owned by the state afterwards.
func NewNetworkState(values map[graph.ID]*tensor.Tensor, logProb float64) NetworkState {
	return NetworkState{values: values, logProb: logProb}
}

// Capture records the current values of vertices.
func Capture(vertices []*graph.Vertex, logProb float64) (NetworkState, error) {
	values := make(map[graph.ID]*tensor.Tensor, len(vertices))
	for _, v := range vertices {
		t, err := v.Value()
		if err != nil {
			return NetworkState{}, err
		}
		values[v.ID()] = t
	}
	return NetworkState{values: values, logProb: logProb}, nil
}

// Get returns the recorded value of v, or nil.
func (s NetworkState) Get(v *graph.Vertex) *tensor.Tensor {
	return s.values[v.ID()]
}

// Value returns the recorded value for id.
func (s NetworkState) Value(id graph.ID) (*tensor.Tensor, bool) {
	t, ok := s.values[id]
	return t, ok
}

// IDs returns the recorded vertex ids in ascending order.
func (s NetworkState) IDs() []graph.ID {
	ids := make([]graph.ID, 0, len(s.values))
	for id := range s.values {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LogProb returns the joint log probability recorded with the state.
func (s NetworkState) LogProb() float64 { return s.logProb }

// Snapshot records the latent values of the network.
func (n *BayesianNetwork) Snapshot() (NetworkState, error) {
	lp, err := n.LogProb()
	if err != nil && !errors.Is(err, graph.ErrNoValue) {
		return NetworkState{}, err
	}
	return Capture(n.latent, lp)
}

// Restore writes every recorded value back into the network and cascades.
// Vertices not recorded in s are left alone.
func (n *BayesianNetwork) Restore(s NetworkState) error {
	updates := make(map[*graph.Vertex]*tensor.Tensor, len(s.values))
	for _, v := range n.vertices {
		if t, ok := s.values[v.ID()]; ok {
			updates[v] = t
		}
	}
	return graph.CascadeUpdate(updates)
}

// NetworkSamples is an ordered collection of states produced by a sampler.
type NetworkSamples struct {
	states []NetworkState
}

// NewNetworkSamples wraps states in the order they were produced.
func NewNetworkSamples(states []NetworkState) *NetworkSamples {
	return &NetworkSamples{states: states}
}

// Len returns the number of states.
func (ns *NetworkSamples) Len() int { return len(ns.states) }

// States returns the states in order.
func (ns *NetworkSamples) States() []NetworkState { return ns.states }

// State returns the i-th state.
func (ns *NetworkSamples) State(i int) NetworkState { return ns.states[i] }

// Drop discards the first count states (burn-in).
func (ns *NetworkSamples) Drop(count int) *NetworkSamples {
	count = min(max(count, 0), len(ns.states))
	return &NetworkSamples{states: ns.states[count:]}
}

// DownSample keeps every interval-th state, starting with the first.
func (ns *NetworkSamples) DownSample(interval int) *NetworkSamples {
	if interval <= 1 {
		return ns
	}
	kept := make([]NetworkState, 0, len(ns.states)/interval+1)
	for i := 0; i < len(ns.states); i += interval {
		kept = append(kept, ns.states[i])
	}
	return &NetworkSamples{states: kept}
}

// Get returns the recorded values of v across all states.
func (ns *NetworkSamples) Get(v *graph.Vertex) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(ns.states))
	for i, s := range ns.states {
		t, ok := s.values[v.ID()]
		if !ok {
			return nil, fmt.Errorf("%w: %s in state %d", ErrUnknownVertex, v, i)
		}
		out[i] = t
	}
	return out, nil
}

// LogProbs returns the recorded joint log probability of each state.
func (ns *NetworkSamples) LogProbs() []float64 {
	out := make([]float64, len(ns.states))
	for i, s := range ns.states {
		out[i] = s.logProb
	}
	return out
}

// columns transposes the samples of v into one series per element.
func (ns *NetworkSamples) columns(v *graph.Vertex) ([][]float64, tensor.Shape, error) {
	if len(ns.states) == 0 {
		return nil, nil, ErrNoSamples
	}
	values, err := ns.Get(v)
	if err != nil {
		return nil, nil, err
	}
	shape := values[0].Shape()
	cols := make([][]float64, shape.NumElements())
	for j := range cols {
		cols[j] = make([]float64, len(values))
		for i, t := range values {
			cols[j][i] = t.At(j)
		}
	}
	return cols, shape, nil
}

// Mean returns the element-wise sample mean of v.
func (ns *NetworkSamples) Mean(v *graph.Vertex) (*tensor.Tensor, error) {
	return ns.reduce(v, func(xs []float64) float64 { return stat.Mean(xs, nil) })
}

// Variance returns the element-wise unbiased sample variance of v.
func (ns *NetworkSamples) Variance(v *graph.Vertex) (*tensor.Tensor, error) {
	return ns.reduce(v, func(xs []float64) float64 { return stat.Variance(xs, nil) })
}

func (ns *NetworkSamples) reduce(v *graph.Vertex, f func([]float64) float64) (*tensor.Tensor, error) {
	cols, shape, err := ns.columns(v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cols))
	for j, c := range cols {
		out[j] = f(c)
	}
	return tensor.FromSlice(out, shape)
}

// Mode returns the most frequent whole value of v. Ties go to the value seen
// first.
func (ns *NetworkSamples) Mode(v *graph.Vertex) (*tensor.Tensor, error) {
	if len(ns.states) == 0 {
		return nil, ErrNoSamples
	}
	values, err := ns.Get(v)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(values))
	var (
		best      *tensor.Tensor
		bestCount int
	)
	for _, t := range values {
		key := fmt.Sprint(t.Data())
		counts[key]++
		if counts[key] > bestCount {
			best, bestCount = t, counts[key]
		}
	}
	return best, nil
}

// Probability returns the fraction of states satisfying pred.
func (ns *NetworkSamples) Probability(pred func(NetworkState) bool) float64 {
	if len(ns.states) == 0 {
		return 0
	}
	hits := 0
	for _, s := range ns.states {
		if pred(s) {
			hits++
		}
	}
	return float64(hits) / float64(len(ns.states))
}

// Autocorrelation returns the normalised autocorrelation of element index of
// v for lags 0..maxLag. A constant series yields NaN beyond lag 0.
func (ns *NetworkSamples) Autocorrelation(v *graph.Vertex, index, maxLag int) ([]float64, error) {
	cols, _, err := ns.columns(v)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(cols) {
		return nil, fmt.Errorf("element %d out of range for %s", index, v)
	}
	xs := append([]float64(nil), cols[index]...)
	floats.AddConst(-stat.Mean(xs, nil), xs)
	maxLag = min(maxLag, len(xs)-1)
	denom := floats.Dot(xs, xs)
	acf := make([]float64, maxLag+1)
	for k := range acf {
		acf[k] = floats.Dot(xs[:len(xs)-k], xs[k:]) / denom
	}
	return acf, nil
}

// DropStream skips the first count states of seq.
func DropStream(seq iter.Seq2[NetworkState, error], count int) iter.Seq2[NetworkState, error] {
	return func(yield func(NetworkState, error) bool) {
		i := 0
		for s, err := range seq {
			if err != nil {
				yield(s, err)
				return
			}
			if i++; i <= count {
				continue
			}
			if !yield(s, nil) {
				return
			}
		}
	}
}

// DownSampleStream keeps every interval-th state of seq, starting with the first.
func DownSampleStream(seq iter.Seq2[NetworkState, error], interval int) iter.Seq2[NetworkState, error] {
	interval = max(interval, 1)
	return func(yield func(NetworkState, error) bool) {
		i := 0
		for s, err := range seq {
			if err != nil {
				yield(s, err)
				return
			}
			keep := i%interval == 0
			i++
			if keep && !yield(s, nil) {
				return
			}
		}
	}
}

// CollectStream gathers up to limit states from seq into a sample set.
func CollectStream(seq iter.Seq2[NetworkState, error], limit int) (*NetworkSamples, error) {
	states := make([]NetworkState, 0, max(limit, 0))
	if limit <= 0 {
		return NewNetworkSamples(states), nil
	}
	for s, err := range seq {
		if err != nil {
			return nil, err
		}
		states = append(states, s)
		if len(states) == limit {
			break
		}
	}
	return NewNetworkSamples(states), nil
}
