package lazy

import (
	"fmt"

	"github.com/cs-au-dk/golazy/utils/dot"
	"github.com/cs-au-dk/golazy/utils/graph"
)

// Graph views the tree, including covering edges, as a graph over states.
func (a *ART) Graph() graph.Graph[*AbstractState] {
	return graph.OfHashable(func(s *AbstractState) []*AbstractState {
		res := a.Children(s)
		if s.IsCovered() {
			res = append(res, a.State(s.coveredBy))
		}
		return res
	})
}

// ToDot renders the tree. Covering edges are dashed, error states are red
// and infeasible states are grey.
func (a *ART) ToDot() *dot.DotGraph {
	dg := a.Graph().ToDotGraph(a.States(), &graph.VisualizationConfig[*AbstractState]{
		NodeAttrs: func(s *AbstractState) (string, dot.DotAttrs) {
			attrs := dot.DotAttrs{
				"label": fmt.Sprintf("%v\n%v\n%s", s, s.context, s.abstraction.Pretty()),
				"shape": "box",
			}
			switch {
			case s.IsFalse():
				attrs["style"] = "filled"
				attrs["fillcolor"] = "lightgrey"
			case s.IsError():
				attrs["style"] = "filled"
				attrs["fillcolor"] = "red"
			case s.IsCovered():
				attrs["style"] = "dotted"
			}
			return fmt.Sprintf("s%d", s.id), attrs
		},
		EdgeAttrs: func(from, to *AbstractState) dot.DotAttrs {
			if to.parent == from.id {
				e, err := from.location.EdgeTo(to.location)
				if err != nil {
					return nil
				}
				return dot.DotAttrs{"label": e.Label()}
			}
			return dot.DotAttrs{"style": "dashed", "constraint": "false"}
		},
	})
	dg.Name = "art"
	return dg
}
