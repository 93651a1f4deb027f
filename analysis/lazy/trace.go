package lazy

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/analysis/smt"
	"github.com/cs-au-dk/golazy/utils"
	"github.com/fatih/color"
)

// Binding is the value of a program variable at some point of a trace.
type Binding struct {
	Var   *formula.Term
	Value smt.Value
}

func (b Binding) String() string {
	return b.Var.String() + " = " + b.Value.String()
}

// ConcreteStep is one edge of a concrete trace together with the values
// written by its operations.
type ConcreteStep struct {
	Edge    *cfa.Edge
	Written []Binding
}

// ConcreteTrace is an execution reaching an error location.
type ConcreteTrace struct {
	// Initial values of the variables read before being written.
	Inputs []Binding
	Steps  []ConcreteStep
}

// Error is the error location at the end of the trace.
func (t *ConcreteTrace) Error() *cfa.Node {
	if t == nil || len(t.Steps) == 0 {
		return nil
	}
	return t.Steps[len(t.Steps)-1].Edge.To()
}

var colorize = struct {
	Edge  func(...interface{}) string
	Value func(...interface{}) string
	Error func(...interface{}) string
}{
	Edge:  utils.CanColorize(color.New(color.FgCyan).SprintFunc()),
	Value: utils.CanColorize(color.New(color.FgYellow).SprintFunc()),
	Error: utils.CanColorize(color.New(color.FgHiRed, color.Bold).SprintFunc()),
}

func (t *ConcreteTrace) String() string {
	if t == nil {
		return "no trace"
	}
	var sb strings.Builder
	if len(t.Inputs) > 0 {
		sb.WriteString("inputs:")
		for _, b := range t.Inputs {
			sb.WriteString(" " + colorize.Value(b))
		}
		sb.WriteString("\n")
	}
	for _, step := range t.Steps {
		sb.WriteString(colorize.Edge(step.Edge.String()))
		for _, b := range step.Written {
			sb.WriteString("\n    " + colorize.Value(b))
		}
		sb.WriteString("\n")
	}
	if n := t.Error(); n != nil {
		sb.WriteString(colorize.Error(fmt.Sprintf("error location %v", n.Describe())))
	}
	return sb.String()
}

// concreteTrace reads the values along a path out of a model. ssaAt[i] is
// the SSA map in effect at position i of the path.
func concreteTrace(fm *formula.Manager, edges []*cfa.Edge, ssaAt []formula.SSAMap, model *smt.Model) *ConcreteTrace {
	trace := &ConcreteTrace{Steps: make([]ConcreteStep, len(edges))}
	for _, v := range model.Vars() {
		if v.Index() == formula.DefaultIndex {
			val, _ := model.Get(v)
			trace.Inputs = append(trace.Inputs, Binding{fm.Var(v.Name(), v.Sort()), val})
		}
	}
	for i, e := range edges {
		step := ConcreteStep{Edge: e}
		seen := map[*formula.Term]bool{}
		for _, op := range e.Ops() {
			for _, w := range formula.Written(op) {
				if seen[w] {
					continue
				}
				seen[w] = true
				inst := fm.VarAt(w.Name(), w.Sort(), ssaAt[i+1].Get(w.Name()))
				if val, ok := model.Get(inst); ok {
					step.Written = append(step.Written, Binding{w, val})
				}
			}
		}
		trace.Steps[i] = step
	}
	return trace
}
