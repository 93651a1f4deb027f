package cfa

import (
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/spakin/disjoint"
)

// Compress merges straight-line chains of statements. A plain location
// with a single incoming and a single outgoing statement edge is removed,
// and the operations of both edges are concatenated onto the incoming one.
// Removed locations are represented by the source of the absorbing edge.
// Compress returns the number of removed locations.
func Compress(c *CFA) int {
	removed := map[*Node]bool{}
	deadEdges := map[*Edge]bool{}

	for changed := true; changed; {
		changed = false
		for _, n := range c.nodes {
			if removed[n] || !compressible(n) {
				continue
			}

			in, out := n.in[0], n.out[0]
			from, to := in.from, out.to
			if _, err := from.EdgeTo(to); err == nil {
				continue
			}

			in.to = to
			in.ops = append(append([]formula.Op{}, in.ops...), out.ops...)
			in.label = joinLabel(in.label, out.label)
			for i, e := range to.in {
				if e == out {
					to.in[i] = in
				}
			}
			n.in, n.out = nil, nil

			disjoint.Union(n.el, from.el)
			from.el.Find().Data = from

			removed[n] = true
			deadEdges[out] = true
			changed = true
		}
	}

	if len(removed) == 0 {
		return 0
	}

	c.nodes = filter(c.nodes, func(n *Node) bool { return !removed[n] })
	c.edges = filter(c.edges, func(e *Edge) bool { return !deadEdges[e] })
	for _, f := range c.Functions {
		f.Nodes = filter(f.Nodes, func(n *Node) bool { return !removed[n] })
	}
	return len(removed)
}

func compressible(n *Node) bool {
	if n.kind != Plain || len(n.in) != 1 || len(n.out) != 1 {
		return false
	}
	in, out := n.in[0], n.out[0]
	return in.kind == Statement && out.kind == Statement &&
		in.from != n && out.to != n
}

func filter[T any](xs []T, keep func(T) bool) []T {
	res := xs[:0]
	for _, x := range xs {
		if keep(x) {
			res = append(res, x)
		}
	}
	return res
}
