// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package network views a vertex graph as a Bayesian network.
//
// A BayesianNetwork partitions its vertices into latent and observed sets
// when it is built. The partitions are snapshots: observing or unobserving a
// vertex afterwards requires building a new network.
//
// This package provides:
//   - joint log probability, log likelihood and their gradients
//   - evaluation at override points without disturbing the graph
//   - probing out of zero-probability states
//   - NetworkState and NetworkSamples with summary statistics
package network

import (
	"iter"

	"github.com/improbable-research/keanu-sub009/internal/graph"
	"github.com/improbable-research/keanu-sub009/internal/network"
)

// BayesianNetwork is a partitioned view over the vertices of a graph.
type BayesianNetwork = network.BayesianNetwork

// NetworkState is an immutable record of vertex values and the joint log
// probability at that time.
type NetworkState = network.NetworkState

// NetworkSamples is an ordered collection of states.
type NetworkSamples = network.NetworkSamples

// Network errors.
var (
	ErrImpossibleNetwork = network.ErrImpossibleNetwork
	ErrNoSamples         = network.ErrNoSamples
	ErrUnknownVertex     = network.ErrUnknownVertex
)

// New builds a network over vertices.
func New(vertices []*graph.Vertex) (*BayesianNetwork, error) {
	return network.New(vertices)
}

// FromConnected builds a network over every vertex connected to roots.
func FromConnected(roots ...*graph.Vertex) (*BayesianNetwork, error) {
	return network.FromConnected(roots...)
}

// NewNetworkSamples wraps states in the order they were produced.
func NewNetworkSamples(states []NetworkState) *NetworkSamples {
	return network.NewNetworkSamples(states)
}

// DropStream skips the first count states of seq.
func DropStream(seq iter.Seq2[NetworkState, error], count int) iter.Seq2[NetworkState, error] {
	return network.DropStream(seq, count)
}

// DownSampleStream keeps every interval-th state of seq.
func DownSampleStream(seq iter.Seq2[NetworkState, error], interval int) iter.Seq2[NetworkState, error] {
	return network.DownSampleStream(seq, interval)
}

// CollectStream gathers up to limit states from seq.
func CollectStream(seq iter.Seq2[NetworkState, error], limit int) (*NetworkSamples, error) {
	return network.CollectStream(seq, limit)
}
