package smt

import (
	"strconv"

	"github.com/cs-au-dk/golazy/analysis/formula"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Value is the value of a variable in a model.
type Value struct {
	sort formula.Sort
	i    int64
	b    bool
}

func IntValue(i int64) Value { return Value{sort: formula.Int, i: i} }
func BoolValue(b bool) Value { return Value{sort: formula.Bool, b: b} }

func (v Value) Sort() formula.Sort { return v.sort }
func (v Value) Int() int64         { return v.i }
func (v Value) Bool() bool         { return v.b }

func (v Value) String() string {
	if v.sort == formula.Bool {
		return strconv.FormatBool(v.b)
	}
	return strconv.FormatInt(v.i, 10)
}

// Model is a satisfying assignment of the instantiated variables of a query.
type Model struct {
	values map[*formula.Term]Value
}

func newModel() *Model {
	return &Model{values: make(map[*formula.Term]Value)}
}

func (m *Model) set(v *formula.Term, val Value) {
	m.values[v] = val
}

// Get retrieves the value of a variable. Variables that did not occur in
// the query are unconstrained and not part of the model.
func (m *Model) Get(v *formula.Term) (Value, bool) {
	val, ok := m.values[v]
	return val, ok
}

// Vars lists the variables of the model ordered by name and SSA index.
func (m *Model) Vars() []*formula.Term {
	vs := maps.Keys(m.values)
	slices.SortFunc(vs, func(a, b *formula.Term) bool {
		if a.Name() != b.Name() {
			return a.Name() < b.Name()
		}
		return a.Index() < b.Index()
	})
	return vs
}

func (m *Model) Len() int { return len(m.values) }
