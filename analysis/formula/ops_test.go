package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeEdgeFormulaSequential(t *testing.T) {
	m := NewManager(16)
	x := m.Var("x", Int)
	y := m.Var("y", Int)

	ops := []Op{
		Assign{Vars: []*Term{x}, Vals: []*Term{m.Add(x, m.IntConst(1))}},
		Assume{Cond: m.Slt(x, y)},
		Havoc{Vars: []*Term{y}},
	}

	f, ssa := m.MakeEdgeFormula(ops, EmptySSAMap())

	exp := m.And(
		m.Eq(m.VarAt("x", Int, 2), m.Add(m.VarAt("x", Int, 1), m.IntConst(1))),
		m.Slt(m.VarAt("x", Int, 2), m.VarAt("y", Int, 1)),
	)
	assert.Same(t, exp, f)
	assert.Equal(t, 2, ssa.Get("x"))
	assert.Equal(t, 2, ssa.Get("y"))
	assert.Equal(t, DefaultIndex, ssa.Get("z"))
}

func TestMakeEdgeFormulaParallelAssign(t *testing.T) {
	m := NewManager(16)
	x := m.Var("x", Int)
	y := m.Var("y", Int)

	// x, y := y, x
	f, ssa := m.MakeEdgeFormula([]Op{
		Assign{Vars: []*Term{x, y}, Vals: []*Term{y, x}},
	}, EmptySSAMap())

	exp := m.And(
		m.Eq(m.VarAt("x", Int, 2), m.VarAt("y", Int, 1)),
		m.Eq(m.VarAt("y", Int, 2), m.VarAt("x", Int, 1)),
	)
	assert.Same(t, exp, f)
	assert.Equal(t, "[x@2, y@2]", ssa.String())
}

func TestSSAMapPersistence(t *testing.T) {
	s0 := EmptySSAMap()
	s1 := s0.Inc("a")
	s2 := s1.Inc("a")

	assert.Equal(t, 1, s0.Get("a"))
	assert.Equal(t, 2, s1.Get("a"))
	assert.Equal(t, 3, s2.Get("a"))
	assert.Equal(t, 0, s0.Len())

	var zero SSAMap
	assert.Equal(t, DefaultIndex, zero.Get("a"))
	assert.Equal(t, 2, zero.Inc("a").Get("a"))
}

func TestOpStrings(t *testing.T) {
	m := NewManager(16)
	x := m.Var("x", Int)

	assert.Equal(t, "[x < 3]", Assume{m.Slt(x, m.IntConst(3))}.String())
	assert.Equal(t, "x := x + 1", Assign{[]*Term{x}, []*Term{m.Add(x, m.IntConst(1))}}.String())
	assert.Equal(t, "havoc x", Havoc{[]*Term{x}}.String())
}
