package cfa

import (
	"fmt"
	"io"
	"strings"

	"github.com/cs-au-dk/golazy/utils/dot"
	"github.com/cs-au-dk/golazy/utils/graph"
)

// Graph views the automaton as a graph over its locations.
func (c *CFA) Graph() graph.Graph[*Node] {
	return graph.OfHashable(func(n *Node) (res []*Node) {
		for _, e := range n.out {
			res = append(res, e.to)
		}
		return
	})
}

func (c *CFA) ToDot() *dot.DotGraph {
	G := c.Graph()
	dg := G.ToDotGraph(c.nodes, &graph.VisualizationConfig[*Node]{
		NodeAttrs: func(n *Node) (string, dot.DotAttrs) {
			attrs := dot.DotAttrs{"label": fmt.Sprintf("%v\n%s", n, n.label)}
			switch n.kind {
			case FunctionEntry:
				attrs["shape"] = "box"
			case FunctionExit:
				attrs["shape"] = "box"
				attrs["style"] = "rounded"
			case Error:
				attrs["style"] = "filled"
				attrs["fillcolor"] = "red"
			}
			return n.String(), attrs
		},
		ClusterKey: func(n *Node) any { return n.fun },
		ClusterAttrs: func(key any) (string, dot.DotAttrs) {
			f := key.(*Function)
			return fmt.Sprintf("fun%d", f.Entry.id), dot.DotAttrs{"label": f.Name}
		},
		EdgeAttrs: func(from, to *Node) dot.DotAttrs {
			e, err := from.EdgeTo(to)
			if err != nil {
				return nil
			}
			ops := make([]string, len(e.ops))
			for i, op := range e.ops {
				ops[i] = op.String()
			}
			attrs := dot.DotAttrs{"label": strings.Join(ops, "\n")}
			switch e.kind {
			case Call, Return:
				attrs["style"] = "dashed"
			case Summary:
				attrs["style"] = "dotted"
			}
			return attrs
		},
	})
	dg.Name = "cfa"
	if c.Entry != nil {
		dg.Title = c.Entry.Name
	}
	return dg
}

// Fprint writes every function of the automaton together with its edges.
func (c *CFA) Fprint(w io.Writer) error {
	for _, f := range c.Functions {
		if _, err := fmt.Fprintf(w, "func %s (entry %v, exit %v)\n", f.Name, f.Entry, f.Exit); err != nil {
			return err
		}
		for _, n := range f.Nodes {
			for _, e := range n.out {
				if _, err := fmt.Fprintf(w, "  %v\n", e); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
