package cfa

import (
	"go/constant"
	"go/token"
	"go/types"
	"strconv"

	"github.com/cs-au-dk/golazy/analysis/formula"
	"golang.org/x/tools/go/ssa"
)

// sortOf determines how values of type t are represented. Only booleans
// and integers are supported. Values of other types are left unconstrained.
func sortOf(t types.Type) (formula.Sort, bool) {
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return 0, false
	}
	switch info := basic.Info(); {
	case info&types.IsBoolean != 0:
		return formula.Bool, true
	case info&types.IsInteger != 0:
		return formula.Int, true
	}
	return 0, false
}

func isUnsigned(t types.Type) bool {
	basic, ok := t.Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsUnsigned != 0
}

// registerName names the variable holding an SSA register.
func (f *Function) registerName(v ssa.Value) string {
	return f.Name + "." + v.Name()
}

// register retrieves the (uninstantiated) variable of an SSA register, or
// nil if its type is not supported.
func (f *Function) register(fm *formula.Manager, v ssa.Value) *formula.Term {
	sort, ok := sortOf(v.Type())
	if !ok {
		return nil
	}
	return fm.Var(f.registerName(v), sort)
}

// component retrieves the variable of the i'th component of a tuple register.
func (f *Function) component(fm *formula.Manager, v ssa.Value, i int) *formula.Term {
	tuple, ok := v.Type().(*types.Tuple)
	if !ok || i >= tuple.Len() {
		return nil
	}
	sort, ok := sortOf(tuple.At(i).Type())
	if !ok {
		return nil
	}
	return fm.Var(f.registerName(v)+"#"+strconv.Itoa(i), sort)
}

// defined lists the variables written by the value-producing instruction v.
func (f *Function) defined(fm *formula.Manager, v ssa.Value) (res []*formula.Term) {
	if tuple, ok := v.Type().(*types.Tuple); ok {
		for i := 0; i < tuple.Len(); i++ {
			if x := f.component(fm, v, i); x != nil {
				res = append(res, x)
			}
		}
		return
	}
	if x := f.register(fm, v); x != nil {
		res = append(res, x)
	}
	return
}

// value translates an SSA operand. The result is nil if the operand has an
// unsupported type or is not a register or constant.
func (f *Function) value(fm *formula.Manager, v ssa.Value) *formula.Term {
	c, ok := v.(*ssa.Const)
	if !ok {
		switch v.(type) {
		case *ssa.Parameter, ssa.Instruction:
			return f.register(fm, v)
		}
		return nil
	}

	sort, ok := sortOf(c.Type())
	if !ok {
		return nil
	}
	if c.Value == nil {
		if sort == formula.Bool {
			return fm.False()
		}
		return fm.IntConst(0)
	}
	switch c.Value.Kind() {
	case constant.Bool:
		return fm.BoolConst(constant.BoolVal(c.Value))
	case constant.Int:
		if i, exact := constant.Int64Val(c.Value); exact {
			return fm.IntConst(i)
		}
		if u, exact := constant.Uint64Val(c.Value); exact {
			return fm.IntConst(int64(u))
		}
	}
	return nil
}

// binop translates a binary operation over translated operands, or returns
// nil if the operation cannot be represented.
func binop(fm *formula.Manager, op token.Token, unsigned bool, x, y *formula.Term) *formula.Term {
	if x.Sort() != y.Sort() {
		return nil
	}
	switch op {
	case token.EQL:
		return fm.Eq(x, y)
	case token.NEQ:
		return fm.Neq(x, y)
	}
	if x.Sort() != formula.Int {
		return nil
	}

	lt, le := fm.Slt, fm.Sle
	if unsigned {
		lt, le = fm.Ult, fm.Ule
	}

	switch op {
	case token.ADD:
		return fm.Add(x, y)
	case token.SUB:
		return fm.Sub(x, y)
	case token.MUL:
		return fm.Mul(x, y)
	case token.QUO:
		if unsigned {
			return nil
		}
		return fm.Binary(formula.KQuo, x, y)
	case token.REM:
		if unsigned {
			return nil
		}
		return fm.Binary(formula.KRem, x, y)
	case token.AND:
		return fm.Binary(formula.KBitAnd, x, y)
	case token.OR:
		return fm.Binary(formula.KBitOr, x, y)
	case token.XOR:
		return fm.Binary(formula.KBitXor, x, y)
	case token.AND_NOT:
		return fm.Binary(formula.KBitAndNot, x, y)
	case token.SHL:
		return fm.Binary(formula.KShl, x, y)
	case token.SHR:
		if unsigned {
			return fm.Binary(formula.KUShr, x, y)
		}
		return fm.Binary(formula.KShr, x, y)
	case token.LSS:
		return lt(x, y)
	case token.LEQ:
		return le(x, y)
	case token.GTR:
		return lt(y, x)
	case token.GEQ:
		return le(y, x)
	}
	return nil
}

// expr translates the value computed by a register-defining instruction.
// A nil result means the register must be havocked.
func (f *Function) expr(fm *formula.Manager, v ssa.Value) *formula.Term {
	switch v := v.(type) {
	case *ssa.BinOp:
		x, y := f.value(fm, v.X), f.value(fm, v.Y)
		if x == nil || y == nil {
			return nil
		}
		// The signedness of comparisons is decided by the operands.
		return binop(fm, v.Op, isUnsigned(v.X.Type()), x, y)
	case *ssa.UnOp:
		x := f.value(fm, v.X)
		if x == nil {
			return nil
		}
		switch {
		case v.Op == token.NOT && x.Sort() == formula.Bool:
			return fm.Not(x)
		case v.Op == token.SUB && x.Sort() == formula.Int:
			return fm.Neg(x)
		case v.Op == token.XOR && x.Sort() == formula.Int:
			return fm.Compl(x)
		}
	case *ssa.Convert:
		// Integers of all sizes share one width.
		if x := f.value(fm, v.X); x != nil && x.Sort() == formula.Int {
			if sort, ok := sortOf(v.Type()); ok && sort == formula.Int {
				return x
			}
		}
	case *ssa.ChangeType:
		return f.value(fm, v.X)
	case *ssa.Extract:
		return f.component(fm, v.Tuple, v.Index)
	}
	return nil
}
