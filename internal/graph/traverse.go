package graph

import (
	"fmt"
	"slices"

	"github.com/tidwall/btree"
)

func byID(a, b *Vertex) bool {
	return a.id < b.id
}

// newVertexSet returns an id-ordered vertex set.
func newVertexSet() *btree.BTreeG[*Vertex] {
	return btree.NewBTreeGOptions(byID, btree.Options{NoLocks: true})
}

// ConnectedGraph returns every vertex reachable from v by following parent or
// child edges transitively, in id order.
func (v *Vertex) ConnectedGraph() []*Vertex {
	return ConnectedGraph(v)
}

// ConnectedGraph returns the union of the connected components containing
// roots, in id order.
func ConnectedGraph(roots ...*Vertex) []*Vertex {
	seen := newVertexSet()
	var stack []*Vertex
	for _, r := range roots {
		if _, dup := seen.Set(r); !dup {
			stack = append(stack, r)
		}
	}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ids := range [2][]ID{u.parents, u.children} {
			for _, id := range ids {
				w := u.g.get(id)
				if _, dup := seen.Set(w); !dup {
					stack = append(stack, w)
				}
			}
		}
	}
	return seen.Items()
}

// Ancestors returns every vertex v transitively depends on, in id order.
func (v *Vertex) Ancestors() []*Vertex {
	out := upstream(v, func(*Vertex) bool { return true })
	// A placeholder's default may be created after it, so v is not always last.
	return slices.DeleteFunc(out, func(u *Vertex) bool { return u == v })
}

// Descendants returns every vertex that transitively depends on v, in id order.
func (v *Vertex) Descendants() []*Vertex {
	return downstream([]*Vertex{v}, func(*Vertex) bool { return true })
}

// isAncestorOf reports whether w transitively depends on v.
func (v *Vertex) isAncestorOf(w *Vertex) bool {
	for _, d := range v.Descendants() {
		if d == w {
			return true
		}
	}
	return false
}

// upstream collects v (if include(v)) and every ancestor reachable through
// vertices accepted by include, in id order. Traversal stops at rejected
// vertices.
func upstream(v *Vertex, include func(*Vertex) bool) []*Vertex {
	set := newVertexSet()
	if !include(v) {
		return nil
	}
	set.Set(v)
	stack := []*Vertex{v}
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, id := range u.parents {
			p := u.g.get(id)
			if !include(p) {
				continue
			}
			if _, dup := set.Set(p); !dup {
				stack = append(stack, p)
			}
		}
	}
	return set.Items()
}

// downstream collects the strict descendants of sources reachable through
// vertices accepted by include, in id order. Each vertex is visited once even
// when several paths lead to it.
func downstream(sources []*Vertex, include func(*Vertex) bool) []*Vertex {
	set := newVertexSet()
	var stack []*Vertex
	stack = append(stack, sources...)
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, id := range u.children {
			c := u.g.get(id)
			if !include(c) {
				continue
			}
			if _, dup := set.Set(c); !dup {
				stack = append(stack, c)
			}
		}
	}
	return set.Items()
}

// TopologicalSort orders vertices so that every vertex follows those of its
// parents that are also in the input. Ties are broken by id so the order is
// reproducible.
func TopologicalSort(vertices []*Vertex) ([]*Vertex, error) {
	members := make(map[ID]*Vertex, len(vertices))
	for _, v := range vertices {
		members[v.id] = v
	}
	indegree := make(map[ID]int, len(vertices))
	ready := newVertexSet()
	for _, v := range members {
		n := 0
		for _, pid := range v.parents {
			if _, ok := members[pid]; ok {
				n++
			}
		}
		indegree[v.id] = n
		if n == 0 {
			ready.Set(v)
		}
	}

	order := make([]*Vertex, 0, len(members))
	for ready.Len() > 0 {
		v, _ := ready.PopMin()
		order = append(order, v)
		for _, cid := range v.children {
			if _, ok := members[cid]; !ok {
				continue
			}
			indegree[cid]--
			if indegree[cid] == 0 {
				ready.Set(members[cid])
			}
		}
	}
	if len(order) != len(members) {
		return nil, fmt.Errorf("topological sort: %w among %d vertices", ErrCycle, len(members)-len(order))
	}
	return order, nil
}
