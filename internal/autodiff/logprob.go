package autodiff

import (
	"fmt"
	"sync"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/tensor"
)

// DLogProb returns the partials of v's log probability at its current value
// with respect to the value itself and the parameters at positions wrtParams.
// Distributions with analytic partials are used directly; others are
// differentiated through their log-probability graph.
func DLogProb(v *graph.Vertex, wrtValue bool, wrtParams []int) (*graph.LogProbGradient, error) {
	return dLogProb(v, wrtValue, wrtParams, nil)
}

// LogProbGraphs caches log-probability graphs per vertex so repeated gradient
// evaluations do not rebuild them. The zero value is ready to use.
type LogProbGraphs struct {
	mu     sync.Mutex
	graphs map[graph.ID]*graph.LogProbGraph
}

// DLogProb is DLogProb with graph reuse. Calls for the same vertex serialise.
func (c *LogProbGraphs) DLogProb(v *graph.Vertex, wrtValue bool, wrtParams []int) (*graph.LogProbGradient, error) {
	return dLogProb(v, wrtValue, wrtParams, c)
}

func (c *LogProbGraphs) get(v *graph.Vertex) (*graph.LogProbGraph, bool) {
	if c.graphs == nil {
		c.graphs = make(map[graph.ID]*graph.LogProbGraph)
	}
	if lg, ok := c.graphs[v.ID()]; ok {
		return lg, true
	}
	lg, ok := graph.BuildLogProbGraph(v)
	if ok {
		c.graphs[v.ID()] = lg
	}
	return lg, ok
}

func dLogProb(v *graph.Vertex, wrtValue bool, wrtParams []int, cache *LogProbGraphs) (*graph.LogProbGradient, error) {
	if !v.IsProbabilistic() {
		return nil, &graph.VertexError{Op: "dlogprob", ID: v.ID(), Label: v.Label(), Err: graph.ErrObserveNonProbabilistic}
	}
	if wrtValue && v.IsDiscrete() {
		return nil, &graph.VertexError{Op: "dlogprob", ID: v.ID(), Label: v.Label(), Err: ErrDiscreteGradient}
	}
	x, err := v.Value()
	if err != nil {
		return nil, err
	}
	params, err := v.ParamValues()
	if err != nil {
		return nil, err
	}

	if d, ok := v.Distribution().(graph.Differentiable); ok {
		grad, err := d.DLogProb(x, params, wrtValue, wrtParams)
		if err != nil {
			return nil, &graph.VertexError{Op: "dlogprob", ID: v.ID(), Label: v.Label(), Err: err}
		}
		return grad, nil
	}

	var (
		lg *graph.LogProbGraph
		ok bool
	)
	if cache != nil {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		lg, ok = cache.get(v)
	} else {
		lg, ok = graph.BuildLogProbGraph(v)
	}
	if !ok {
		return nil, &graph.VertexError{Op: "dlogprob", ID: v.ID(), Label: v.Label(),
			Err: fmt.Errorf("%w: %s has no gradient", ErrNotDifferentiable, v.Distribution().Name())}
	}
	if err := lg.Feed(x, params); err != nil {
		return nil, err
	}

	wrt := make([]*graph.Vertex, 0, len(wrtParams)+1)
	if wrtValue {
		wrt = append(wrt, lg.X)
	}
	for _, i := range wrtParams {
		if i < 0 || i >= len(lg.Params) {
			return nil, fmt.Errorf("%s: no parameter %d", v.Distribution().Name(), i)
		}
		wrt = append(wrt, lg.Params[i])
	}
	partials, err := Reverse(lg.LogProb, wrt...)
	if err != nil {
		return nil, err
	}

	out := &graph.LogProbGradient{Params: make(map[int]*tensor.Tensor, len(wrtParams))}
	if wrtValue {
		out.Value = partials[lg.X.ID()].WrtTensor()
	}
	for _, i := range wrtParams {
		out.Params[i] = partials[lg.Params[i].ID()].WrtTensor()
	}
	return out, nil
}
