package cfa

import (
	"strings"

	"github.com/benbjohnson/immutable"
)

// Frame is an entry of a call context: the call site being executed and the
// location at which execution continues when the callee returns. Frames of
// recursive call sites have no return location, and no return edge matches them.
type Frame struct {
	Site   *CallSite
	Return *Node
}

// Returns holds for frames that can be left through a return edge.
func (f Frame) Returns() bool { return f.Return != nil }

func (f Frame) String() string {
	if f.Site == nil {
		return "⊥"
	}
	if !f.Returns() {
		return f.Site.String() + "/rec"
	}
	return f.Site.String()
}

// Context is a persistent call stack. The zero value is the empty context.
type Context struct {
	frames *immutable.List[Frame]
}

func EmptyContext() Context {
	return Context{}
}

func (c Context) Len() int {
	if c.frames == nil {
		return 0
	}
	return c.frames.Len()
}

// Top retrieves the innermost frame.
func (c Context) Top() (Frame, bool) {
	if c.Len() == 0 {
		return Frame{}, false
	}
	return c.frames.Get(c.frames.Len() - 1), true
}

// Push enters a call. Entering a recursive call site while the innermost
// frame already belongs to one leaves the context unchanged, which keeps
// contexts bounded in the presence of recursion.
func (c Context) Push(f Frame) Context {
	if top, ok := c.Top(); ok && !top.Returns() && !f.Returns() {
		return c
	}
	if c.frames == nil {
		return Context{immutable.NewList[Frame]().Append(f)}
	}
	return Context{c.frames.Append(f)}
}

// Pop leaves the innermost call. Popping the empty context is a no-op.
func (c Context) Pop() Context {
	switch c.Len() {
	case 0:
		return c
	case 1:
		return Context{}
	}
	return Context{c.frames.Slice(0, c.frames.Len()-1)}
}

func (c Context) Equal(o Context) bool {
	if c.Len() != o.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if c.frames.Get(i) != o.frames.Get(i) {
			return false
		}
	}
	return true
}

func (c Context) String() string {
	parts := make([]string, c.Len())
	for i := range parts {
		parts[i] = c.frames.Get(i).String()
	}
	return "[" + strings.Join(parts, " · ") + "]"
}
