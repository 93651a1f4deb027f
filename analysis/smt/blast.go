package smt

import (
	"fmt"

	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/pkg/errors"
)

type blastKey struct {
	t     *formula.Term
	group int
}

// blaster translates terms into an and-inverter circuit. Variables are
// shared among all groups, while fresh bits introduced for uninterpreted
// operators are local to the group in which they are blasted.
type blaster struct {
	c     *logic.C
	width int
	exact bool

	vars    map[*formula.Term][]z.Lit
	varList []*formula.Term
	memo    map[blastKey][]z.Lit
}

func newBlaster(width uint, exact bool) *blaster {
	return &blaster{
		c:     logic.NewC(),
		width: int(width),
		exact: exact,
		vars:  make(map[*formula.Term][]z.Lit),
		memo:  make(map[blastKey][]z.Lit),
	}
}

// unsupported is raised (as a panic) while blasting and recovered by callers.
type unsupported struct{ err error }

func (b *blaster) fail(format string, args ...interface{}) {
	panic(unsupported{errors.Errorf(format, args...)})
}

// catch converts an unsupported term panic into an error.
func catch(err *error) {
	if r := recover(); r != nil {
		if u, ok := r.(unsupported); ok {
			*err = u.err
			return
		}
		panic(r)
	}
}

// toSolver writes the circuit into a solver. Variable bits are mentioned in
// a satisfied clause so the solver knows every one of them.
func (b *blaster) toSolver(dst inter.Adder) {
	b.c.ToCnf(dst)
	dst.Add(b.c.T)
	dst.Add(z.LitNull)
	for _, v := range b.varList {
		for _, m := range b.vars[v] {
			dst.Add(m)
			dst.Add(b.c.T)
			dst.Add(z.LitNull)
		}
	}
}

func (b *blaster) variable(v *formula.Term) []z.Lit {
	if bits, ok := b.vars[v]; ok {
		return bits
	}
	n := 1
	if v.Sort() == formula.Int {
		n = b.width
	}
	bits := make([]z.Lit, n)
	for i := range bits {
		bits[i] = b.c.Lit()
	}
	b.vars[v] = bits
	b.varList = append(b.varList, v)
	return bits
}

func (b *blaster) fresh() []z.Lit {
	bits := make([]z.Lit, b.width)
	for i := range bits {
		bits[i] = b.c.Lit()
	}
	return bits
}

// lit blasts a boolean term.
func (b *blaster) lit(t *formula.Term, group int) z.Lit {
	if t.Sort() != formula.Bool {
		b.fail("expected boolean term, got %v", t)
	}
	return b.blast(t, group)[0]
}

// vec blasts an integer term into its bits, least significant first.
func (b *blaster) vec(t *formula.Term, group int) []z.Lit {
	if t.Sort() != formula.Int {
		b.fail("expected integer term, got %v", t)
	}
	return b.blast(t, group)
}

func (b *blaster) blast(t *formula.Term, group int) []z.Lit {
	if t.IsVar() {
		return b.variable(t)
	}
	key := blastKey{t, group}
	if res, ok := b.memo[key]; ok {
		return res
	}
	res := b.translate(t, group)
	b.memo[key] = res
	return res
}

func (b *blaster) translate(t *formula.Term, g int) []z.Lit {
	c := b.c
	one := func(m z.Lit) []z.Lit { return []z.Lit{m} }
	args := t.Args()

	switch t.Kind() {
	case formula.KConst:
		if t.Sort() == formula.Bool {
			if t.IsTrue() {
				return one(c.T)
			}
			return one(c.F)
		}
		return b.constant(t.Value())
	case formula.KNot:
		return one(b.lit(args[0], g).Not())
	case formula.KAnd:
		res := c.T
		for _, a := range args {
			res = c.And(res, b.lit(a, g))
		}
		return one(res)
	case formula.KOr:
		res := c.F
		for _, a := range args {
			res = b.or(res, b.lit(a, g))
		}
		return one(res)
	case formula.KEq:
		if args[0].Sort() == formula.Bool {
			return one(b.xor(b.lit(args[0], g), b.lit(args[1], g)).Not())
		}
		x, y := b.vec(args[0], g), b.vec(args[1], g)
		res := c.T
		for i := range x {
			res = c.And(res, b.xor(x[i], y[i]).Not())
		}
		return one(res)
	case formula.KIte:
		cond := b.lit(args[0], g)
		x, y := b.blast(args[1], g), b.blast(args[2], g)
		res := make([]z.Lit, len(x))
		for i := range x {
			res[i] = b.mux(cond, x[i], y[i])
		}
		return res
	case formula.KBit:
		return one(b.vec(args[0], g)[t.BitIndex()])
	case formula.KAdd:
		sum, _ := b.add(b.vec(args[0], g), b.vec(args[1], g), c.F)
		return sum
	case formula.KSub:
		sum, _ := b.add(b.vec(args[0], g), b.not(b.vec(args[1], g)), c.T)
		return sum
	case formula.KNeg:
		sum, _ := b.add(b.constant(0), b.not(b.vec(args[0], g)), c.T)
		return sum
	case formula.KCompl:
		return b.not(b.vec(args[0], g))
	case formula.KMul:
		return b.mul(b.vec(args[0], g), b.vec(args[1], g))
	case formula.KSlt, formula.KSle, formula.KUlt, formula.KUle:
		x, y := b.vec(args[0], g), b.vec(args[1], g)
		signed := t.Kind() == formula.KSlt || t.Kind() == formula.KSle
		if t.Kind() == formula.KSle || t.Kind() == formula.KUle {
			return one(b.less(y, x, signed).Not())
		}
		return one(b.less(x, y, signed))
	case formula.KBitAnd, formula.KBitOr, formula.KBitXor, formula.KBitAndNot:
		if !b.exact {
			return b.fresh()
		}
		x, y := b.vec(args[0], g), b.vec(args[1], g)
		res := make([]z.Lit, len(x))
		for i := range x {
			switch t.Kind() {
			case formula.KBitAnd:
				res[i] = c.And(x[i], y[i])
			case formula.KBitOr:
				res[i] = b.or(x[i], y[i])
			case formula.KBitXor:
				res[i] = b.xor(x[i], y[i])
			case formula.KBitAndNot:
				res[i] = c.And(x[i], y[i].Not())
			}
		}
		return res
	case formula.KShl, formula.KShr, formula.KUShr:
		if !b.exact || !args[1].IsConst() {
			return b.fresh()
		}
		return b.shift(t.Kind(), b.vec(args[0], g), args[1].Value())
	case formula.KQuo, formula.KRem:
		return b.fresh()
	}
	b.fail("cannot blast %v term %v", t.Kind(), t)
	return nil
}

func (b *blaster) constant(v int64) []z.Lit {
	bits := make([]z.Lit, b.width)
	for i := range bits {
		if (v>>uint(i))&1 == 1 {
			bits[i] = b.c.T
		} else {
			bits[i] = b.c.F
		}
	}
	return bits
}

func (b *blaster) or(x, y z.Lit) z.Lit {
	return b.c.And(x.Not(), y.Not()).Not()
}

func (b *blaster) xor(x, y z.Lit) z.Lit {
	return b.or(b.c.And(x, y.Not()), b.c.And(x.Not(), y))
}

func (b *blaster) mux(cond, x, y z.Lit) z.Lit {
	return b.or(b.c.And(cond, x), b.c.And(cond.Not(), y))
}

func (b *blaster) not(x []z.Lit) []z.Lit {
	res := make([]z.Lit, len(x))
	for i, m := range x {
		res[i] = m.Not()
	}
	return res
}

// add is a ripple carry adder. It returns the sum and the carry out.
func (b *blaster) add(x, y []z.Lit, carry z.Lit) ([]z.Lit, z.Lit) {
	sum := make([]z.Lit, len(x))
	for i := range x {
		p := b.xor(x[i], y[i])
		sum[i] = b.xor(p, carry)
		carry = b.or(b.c.And(x[i], y[i]), b.c.And(carry, p))
	}
	return sum, carry
}

func (b *blaster) mul(x, y []z.Lit) []z.Lit {
	res := b.constant(0)
	for i := range y {
		partial := make([]z.Lit, len(x))
		for j := range partial {
			if j < i {
				partial[j] = b.c.F
			} else {
				partial[j] = b.c.And(x[j-i], y[i])
			}
		}
		res, _ = b.add(res, partial, b.c.F)
	}
	return res
}

// less compares x < y. Signed comparison flips the sign bits and
// compares unsigned.
func (b *blaster) less(x, y []z.Lit, signed bool) z.Lit {
	if signed {
		n := len(x) - 1
		x = append(append([]z.Lit{}, x[:n]...), x[n].Not())
		y = append(append([]z.Lit{}, y[:n]...), y[n].Not())
	}
	// x - y produces a carry out iff x >= y.
	_, carry := b.add(x, b.not(y), b.c.T)
	return carry.Not()
}

func (b *blaster) shift(kind formula.Kind, x []z.Lit, amount int64) []z.Lit {
	n := len(x)
	res := make([]z.Lit, n)
	sign := x[n-1]
	for i := range res {
		var src int64
		if kind == formula.KShl {
			src = int64(i) - amount
		} else {
			src = int64(i) + amount
		}
		switch {
		case amount < 0 || amount >= int64(n) || src < 0 || src >= int64(n):
			if kind == formula.KShr {
				res[i] = sign
			} else {
				res[i] = b.c.F
			}
		default:
			res[i] = x[src]
		}
	}
	return res
}

// bitRef names one bit of a variable. Boolean variables have a single bit.
type bitRef struct {
	v   *formula.Term
	bit int
}

// term converts the bit back into a formula.
func (r bitRef) term(fm *formula.Manager) *formula.Term {
	if r.v.Sort() == formula.Bool {
		return r.v
	}
	return fm.Bit(r.v, r.bit)
}

func (r bitRef) String() string {
	return fmt.Sprintf("%v[%d]", r.v, r.bit)
}
