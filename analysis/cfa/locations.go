package cfa

import (
	"fmt"

	"github.com/pkg/errors"
)

// LocationManager decides how the analysis moves between functions.
type LocationManager interface {
	// Create maps a node to the location the analysis uses for it.
	Create(n *Node) *Node
	// IsFunctionStart holds if entering n enters a new call frame.
	IsFunctionStart(n *Node) bool
	// IsFunctionEnd holds if moving from a to b leaves a call frame.
	IsFunctionEnd(a, b *Node) bool
	// IsRightEdge holds if e, leading to b, may be taken in context ctx.
	IsRightEdge(ctx Context, e *Edge, b *Node) bool
	// PushContextFindReturnNode computes the frame entered when moving
	// from the call location a to the function start b.
	PushContextFindReturnNode(a, b *Node) Frame
}

const (
	CallStackLocations = "callstack"
	SummaryLocations   = "summary"
)

// NewLocationManager selects a location manager by name.
func NewLocationManager(kind string, c *CFA) (LocationManager, error) {
	switch kind {
	case CallStackLocations, "":
		return CallStackManager{c}, nil
	case SummaryLocations:
		return SummaryManager{c}, nil
	}
	return nil, errors.Errorf("unknown location manager %q", kind)
}

// CallStackManager follows calls into callees and matches returns against
// the call stack of the context. Summary edges are only taken at recursive
// call sites.
type CallStackManager struct {
	c *CFA
}

func (m CallStackManager) Create(n *Node) *Node {
	return m.c.Representative(n)
}

func (CallStackManager) IsFunctionStart(n *Node) bool {
	return n.kind == FunctionEntry
}

func (CallStackManager) IsFunctionEnd(a, b *Node) bool {
	if a.kind != FunctionExit {
		return false
	}
	e, err := a.EdgeTo(b)
	return err == nil && e.kind == Return
}

func (CallStackManager) IsRightEdge(ctx Context, e *Edge, b *Node) bool {
	if e.to != b {
		return false
	}
	switch e.kind {
	case Summary:
		return e.site.Recursive
	case Return:
		top, ok := ctx.Top()
		return ok && top.Returns() && top.Site == e.site && top.Return == b
	}
	return true
}

func (CallStackManager) PushContextFindReturnNode(a, b *Node) Frame {
	e, err := a.EdgeTo(b)
	if err != nil {
		panic(err)
	}
	if e.kind != Call {
		panic(fmt.Errorf("%v is not a call edge", e))
	}
	if e.site.Recursive {
		return Frame{Site: e.site}
	}
	return Frame{Site: e.site, Return: e.site.Return}
}

// SummaryManager never returns from callees. Calls are continued through
// summary edges that havoc the results, while call edges still lead into
// callees so that their error locations remain reachable. Contexts stay empty.
type SummaryManager struct {
	c *CFA
}

func (m SummaryManager) Create(n *Node) *Node {
	return m.c.Representative(n)
}

func (SummaryManager) IsFunctionStart(*Node) bool { return false }

func (SummaryManager) IsFunctionEnd(a, b *Node) bool { return false }

func (SummaryManager) IsRightEdge(ctx Context, e *Edge, b *Node) bool {
	return e.to == b && e.kind != Return
}

func (SummaryManager) PushContextFindReturnNode(a, b *Node) Frame {
	panic(fmt.Errorf("summary locations do not enter call frames (%v -> %v)", a, b))
}
