// Copyright 2025 The Keanu Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph builds the vertex computation graphs probabilistic models are
// made of.
//
// # Overview
//
// A Graph is an arena of vertices. Each vertex is one of four kinds:
//   - Probabilistic: a random variable drawn from a distribution over its parents
//   - Deterministic: an operation applied to its parents
//   - Constant: a fixed value
//   - Placeholder: a value fed from outside, optionally mirroring a default vertex
//
// Setting a value with SetAndCascade recomputes every deterministic
// descendant in one topological pass. Propagation stops at probabilistic
// vertices, whose values do not depend on their parents.
//
// # Basic Usage
//
//	g := graph.New()
//	a := dist.NewGaussian(g, g.Scalar(0), g.Scalar(1))
//	b := g.Exp(a)
//	if err := a.SetAndCascade(tensor.Scalar(1)); err != nil {
//	    return err
//	}
//	b.MustValue().Scalar() // e
//
// # Errors
//
// Building a vertex from incompatible operands panics with a *VertexError.
// Every runtime operation returns errors that wrap one of the sentinels
// below, carrying the offending vertex's id and label.
package graph
