// Package cfa models programs as control-flow automata: graphs whose nodes
// are program locations and whose edges carry the operations executed
// between them. Automata are built from the SSA form of Go functions.
package cfa

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/pkg/errors"
	"github.com/spakin/disjoint"
	"golang.org/x/tools/go/ssa"
)

type NodeKind uint8

const (
	Plain NodeKind = iota
	FunctionEntry
	FunctionExit
	Error
)

func (k NodeKind) String() string {
	switch k {
	case FunctionEntry:
		return "entry"
	case FunctionExit:
		return "exit"
	case Error:
		return "error"
	}
	return "plain"
}

// Node is a program location.
type Node struct {
	id    int
	kind  NodeKind
	fun   *Function
	label string
	in    []*Edge
	out   []*Edge

	// Union-find element tracking the node that replaced this one during compression.
	el *disjoint.Element
}

func (n *Node) ID() int             { return n.id }
func (n *Node) Kind() NodeKind      { return n.kind }
func (n *Node) Function() *Function { return n.fun }
func (n *Node) Label() string       { return n.label }
func (n *Node) In() []*Edge         { return n.in }
func (n *Node) Out() []*Edge        { return n.out }
func (n *Node) IsError() bool       { return n.kind == Error }

func (n *Node) String() string {
	return fmt.Sprintf("N%d", n.id)
}

// Describe prints the node together with its function and label.
func (n *Node) Describe() string {
	return fmt.Sprintf("N%d(%s:%s)", n.id, n.fun.Name, n.label)
}

var ErrNoEdge = errors.New("no edge between locations")

// EdgeTo finds the unique edge from n to m.
func (n *Node) EdgeTo(m *Node) (*Edge, error) {
	for _, e := range n.out {
		if e.to == m {
			return e, nil
		}
	}
	return nil, errors.Wrapf(ErrNoEdge, "%v -> %v", n, m)
}

type EdgeKind uint8

const (
	Statement EdgeKind = iota
	// Call edges lead from a call site to the entry of the callee.
	Call
	// Return edges lead from the exit of a callee to the location after the call.
	Return
	// Summary edges cross a call site without entering the callee.
	Summary
)

func (k EdgeKind) String() string {
	switch k {
	case Call:
		return "call"
	case Return:
		return "return"
	case Summary:
		return "summary"
	}
	return "stmt"
}

// Edge is a transition between two locations, labelled by a sequence of
// operations executed in order.
type Edge struct {
	id       int
	kind     EdgeKind
	from, to *Node
	ops      []formula.Op
	label    string
	site     *CallSite
}

func (e *Edge) ID() int             { return e.id }
func (e *Edge) Kind() EdgeKind      { return e.kind }
func (e *Edge) From() *Node         { return e.from }
func (e *Edge) To() *Node           { return e.to }
func (e *Edge) Ops() []formula.Op   { return e.ops }
func (e *Edge) Label() string       { return e.label }
func (e *Edge) CallSite() *CallSite { return e.site }

func (e *Edge) String() string {
	ops := make([]string, len(e.ops))
	for i, op := range e.ops {
		ops[i] = op.String()
	}
	return fmt.Sprintf("%v -[%v]-> %v {%s}", e.from, e.kind, e.to, strings.Join(ops, "; "))
}

// Function is the part of the automaton belonging to one Go function.
type Function struct {
	Name  string
	Entry *Node
	Exit  *Node
	// Parameter variables. Entries are nil for parameters of unsupported types.
	Params []*formula.Term
	// Result variables assigned on return. Entries are nil for unsupported types.
	Results []*formula.Term
	Nodes   []*Node
	Sites   []*CallSite

	ssa *ssa.Function
}

func (f *Function) SSA() *ssa.Function { return f.ssa }

func (f *Function) String() string { return f.Name }

// CallSite connects the call and return locations of a call with the callee.
type CallSite struct {
	Caller, Callee *Function
	// Call is the location before the call, Return the location after it.
	Call, Return *Node
	// Recursive call sites call into the strongly connected component of the caller.
	Recursive bool
}

func (s *CallSite) String() string {
	return fmt.Sprintf("%s@%v->%s", s.Caller.Name, s.Call, s.Callee.Name)
}

// CFA is a control-flow automaton over a set of functions.
type CFA struct {
	Entry     *Function
	Functions []*Function

	fm      *formula.Manager
	nodes   []*Node
	edges   []*Edge
	nodeIDs int
	edgeIDs int
	funs    map[*ssa.Function]*Function
}

func newCFA(fm *formula.Manager) *CFA {
	return &CFA{
		fm:   fm,
		funs: make(map[*ssa.Function]*Function),
	}
}

func (c *CFA) Manager() *formula.Manager { return c.fm }

// Nodes lists the live nodes of the automaton in creation order.
func (c *CFA) Nodes() []*Node { return c.nodes }

// Edges lists the live edges of the automaton in creation order.
func (c *CFA) Edges() []*Edge { return c.edges }

// Function finds the automaton fragment of an SSA function.
func (c *CFA) Function(fun *ssa.Function) (*Function, bool) {
	f, ok := c.funs[fun]
	return f, ok
}

// ErrorNodes lists all error locations.
func (c *CFA) ErrorNodes() (res []*Node) {
	for _, n := range c.nodes {
		if n.IsError() {
			res = append(res, n)
		}
	}
	return
}

// Representative finds the node standing in for n. Nodes removed by
// compression are represented by the node whose outgoing edge absorbed them.
func (c *CFA) Representative(n *Node) *Node {
	return n.el.Find().Data.(*Node)
}

func (c *CFA) newNode(kind NodeKind, fun *Function, label string) *Node {
	n := &Node{
		id:    c.nodeIDs,
		kind:  kind,
		fun:   fun,
		label: label,
		el:    disjoint.NewElement(),
	}
	n.el.Data = n
	c.nodeIDs++
	c.nodes = append(c.nodes, n)
	fun.Nodes = append(fun.Nodes, n)
	return n
}

// connect adds an edge from a to b. If the pair is already connected, an
// intermediate location is inserted so that every ordered pair of
// locations has at most one edge.
func (c *CFA) connect(kind EdgeKind, from, to *Node, ops []formula.Op, label string, site *CallSite) *Edge {
	if _, err := from.EdgeTo(to); err == nil {
		if kind != Statement {
			panic(fmt.Errorf("duplicate %v edge %v -> %v", kind, from, to))
		}
		mid := c.newNode(Plain, from.fun, label)
		c.connect(Statement, mid, to, nil, "", nil)
		to = mid
	}
	e := &Edge{
		id:    c.edgeIDs,
		kind:  kind,
		from:  from,
		to:    to,
		ops:   ops,
		label: label,
		site:  site,
	}
	c.edgeIDs++
	c.edges = append(c.edges, e)
	from.out = append(from.out, e)
	to.in = append(to.in, e)
	return e
}
