package formula

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/slices"
)

// nodeKey identifies a term structurally in the unique table of a Manager.
type nodeKey struct {
	kind  Kind
	sort  Sort
	name  string
	index int
	val   int64
	args  string
}

// Manager creates hash-consed terms. Integer terms are interpreted as
// two's complement bitvectors of the manager's width, and constants are
// normalized accordingly on creation.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	width  uint
	unique map[nodeKey]*Term
	terms  []*Term

	tru, fls *Term
}

// NewManager creates a formula manager for integers of the given bit width.
func NewManager(width uint) *Manager {
	if width == 0 || width > 64 {
		panic(fmt.Errorf("unsupported integer width %d", width))
	}
	m := &Manager{
		width:  width,
		unique: make(map[nodeKey]*Term),
	}
	m.fls = m.mk(nodeKey{kind: KConst, sort: Bool, val: 0}, nil)
	m.tru = m.mk(nodeKey{kind: KConst, sort: Bool, val: 1}, nil)
	return m
}

// Width is the bit width of integer terms.
func (m *Manager) Width() uint { return m.width }

// Size is the number of distinct terms created so far.
func (m *Manager) Size() int { return len(m.terms) }

func argsKey(args []*Term) string {
	if len(args) == 0 {
		return ""
	}
	buf := make([]byte, 4*len(args))
	for i, a := range args {
		binary.LittleEndian.PutUint32(buf[4*i:], a.id)
	}
	return string(buf)
}

func (m *Manager) mk(key nodeKey, args []*Term) *Term {
	key.args = argsKey(args)
	if t, ok := m.unique[key]; ok {
		return t
	}
	t := &Term{
		id:    uint32(len(m.terms)),
		kind:  key.kind,
		sort:  key.sort,
		args:  args,
		name:  key.name,
		index: key.index,
		val:   key.val,
	}
	m.unique[key] = t
	m.terms = append(m.terms, t)
	return t
}

func (m *Manager) True() *Term  { return m.tru }
func (m *Manager) False() *Term { return m.fls }

func (m *Manager) BoolConst(b bool) *Term {
	if b {
		return m.tru
	}
	return m.fls
}

// normalize truncates v to the manager's width and sign-extends the result.
func (m *Manager) normalize(v int64) int64 {
	shift := 64 - m.width
	return (v << shift) >> shift
}

func (m *Manager) unsigned(v int64) uint64 {
	if m.width == 64 {
		return uint64(v)
	}
	return uint64(v) & (1<<m.width - 1)
}

func (m *Manager) IntConst(v int64) *Term {
	return m.mk(nodeKey{kind: KConst, sort: Int, val: m.normalize(v)}, nil)
}

// Var creates an uninstantiated variable.
func (m *Manager) Var(name string, sort Sort) *Term {
	return m.VarAt(name, sort, 0)
}

// VarAt creates a variable with the given SSA index.
func (m *Manager) VarAt(name string, sort Sort, index int) *Term {
	if index < 0 {
		panic(fmt.Errorf("negative SSA index %d for %s", index, name))
	}
	return m.mk(nodeKey{kind: KVar, sort: sort, name: name, index: index}, nil)
}

func (m *Manager) Not(t *Term) *Term {
	m.expect(t, Bool)
	switch {
	case t.IsTrue():
		return m.fls
	case t.IsFalse():
		return m.tru
	case t.kind == KNot:
		return t.args[0]
	}
	return m.mk(nodeKey{kind: KNot, sort: Bool}, []*Term{t})
}

func (m *Manager) And(ts ...*Term) *Term {
	return m.nary(KAnd, ts)
}

func (m *Manager) Or(ts ...*Term) *Term {
	return m.nary(KOr, ts)
}

// nary builds a flattened, deduplicated conjunction or disjunction.
// Arguments are ordered by id so that equal sets of operands share a node.
func (m *Manager) nary(kind Kind, ts []*Term) *Term {
	unit, zero := m.tru, m.fls
	if kind == KOr {
		unit, zero = m.fls, m.tru
	}

	seen := make(map[*Term]bool, len(ts))
	args := make([]*Term, 0, len(ts))
	var add func(t *Term) bool
	add = func(t *Term) bool {
		m.expect(t, Bool)
		switch {
		case t == unit:
			return true
		case t == zero:
			return false
		case t.kind == kind:
			for _, a := range t.args {
				if !add(a) {
					return false
				}
			}
			return true
		}
		if seen[t] {
			return true
		}
		if seen[m.Not(t)] {
			return false
		}
		seen[t] = true
		args = append(args, t)
		return true
	}

	for _, t := range ts {
		if !add(t) {
			return zero
		}
	}

	switch len(args) {
	case 0:
		return unit
	case 1:
		return args[0]
	}
	slices.SortFunc(args, func(a, b *Term) bool { return a.id < b.id })
	return m.mk(nodeKey{kind: kind, sort: Bool}, args)
}

func (m *Manager) Implies(a, b *Term) *Term {
	return m.Or(m.Not(a), b)
}

// Eq is equality of integers, and equivalence of booleans.
func (m *Manager) Eq(a, b *Term) *Term {
	if a.sort != b.sort {
		panic(fmt.Errorf("sort mismatch in %v == %v", a, b))
	}
	if a == b {
		return m.tru
	}
	if a.IsConst() && b.IsConst() {
		return m.BoolConst(a.val == b.val)
	}
	if a.sort == Bool {
		switch {
		case a.IsTrue():
			return b
		case b.IsTrue():
			return a
		case a.IsFalse():
			return m.Not(b)
		case b.IsFalse():
			return m.Not(a)
		case a == m.Not(b):
			return m.fls
		}
	}
	if b.id < a.id {
		a, b = b, a
	}
	return m.mk(nodeKey{kind: KEq, sort: Bool}, []*Term{a, b})
}

func (m *Manager) Neq(a, b *Term) *Term {
	return m.Not(m.Eq(a, b))
}

func (m *Manager) Ite(c, t, e *Term) *Term {
	m.expect(c, Bool)
	if t.sort != e.sort {
		panic(fmt.Errorf("sort mismatch in ite(%v, %v, %v)", c, t, e))
	}
	switch {
	case c.IsTrue():
		return t
	case c.IsFalse():
		return e
	case t == e:
		return t
	case c.kind == KNot:
		return m.Ite(c.args[0], e, t)
	}
	if t.sort == Bool {
		switch {
		case t.IsTrue() && e.IsFalse():
			return c
		case t.IsFalse() && e.IsTrue():
			return m.Not(c)
		}
	}
	return m.mk(nodeKey{kind: KIte, sort: t.sort}, []*Term{c, t, e})
}

// Bit selects bit i of the integer variable x.
func (m *Manager) Bit(x *Term, i int) *Term {
	if !x.IsVar() || x.sort != Int {
		panic(fmt.Errorf("bit selection on non-variable %v", x))
	}
	if i < 0 || uint(i) >= m.width {
		panic(fmt.Errorf("bit index %d out of range", i))
	}
	return m.mk(nodeKey{kind: KBit, sort: Bool, val: int64(i)}, []*Term{x})
}

func (m *Manager) Neg(t *Term) *Term   { return m.Unary(KNeg, t) }
func (m *Manager) Compl(t *Term) *Term { return m.Unary(KCompl, t) }

// Unary creates the application of an integer unary operator, or boolean negation.
func (m *Manager) Unary(kind Kind, t *Term) *Term {
	switch kind {
	case KNot:
		return m.Not(t)
	case KNeg, KCompl:
	default:
		panic(fmt.Errorf("%v is not a unary operator", kind))
	}
	m.expect(t, Int)
	if t.IsConst() {
		if kind == KNeg {
			return m.IntConst(-t.val)
		}
		return m.IntConst(^t.val)
	}
	if t.kind == kind {
		return t.args[0]
	}
	return m.mk(nodeKey{kind: kind, sort: Int}, []*Term{t})
}

func (m *Manager) Add(a, b *Term) *Term { return m.Binary(KAdd, a, b) }
func (m *Manager) Sub(a, b *Term) *Term { return m.Binary(KSub, a, b) }
func (m *Manager) Mul(a, b *Term) *Term { return m.Binary(KMul, a, b) }
func (m *Manager) Slt(a, b *Term) *Term { return m.Binary(KSlt, a, b) }
func (m *Manager) Sle(a, b *Term) *Term { return m.Binary(KSle, a, b) }
func (m *Manager) Ult(a, b *Term) *Term { return m.Binary(KUlt, a, b) }
func (m *Manager) Ule(a, b *Term) *Term { return m.Binary(KUle, a, b) }

// Binary creates the application of a binary operator. Operations over
// constants are folded with wrap-around semantics.
func (m *Manager) Binary(kind Kind, a, b *Term) *Term {
	switch {
	case kind == KEq:
		return m.Eq(a, b)
	case kind == KAnd || kind == KOr:
		return m.nary(kind, []*Term{a, b})
	case kind.IsBinaryArith(), kind.IsComparison():
	default:
		panic(fmt.Errorf("%v is not a binary operator", kind))
	}
	m.expect(a, Int)
	m.expect(b, Int)

	if a.IsConst() && b.IsConst() {
		if t := m.fold(kind, a.val, b.val); t != nil {
			return t
		}
	}
	if t := m.simplify(kind, a, b); t != nil {
		return t
	}

	sort := Int
	if kind.IsComparison() {
		sort = Bool
	}
	switch kind {
	case KAdd, KMul, KBitAnd, KBitOr, KBitXor:
		if b.id < a.id {
			a, b = b, a
		}
	}
	return m.mk(nodeKey{kind: kind, sort: sort}, []*Term{a, b})
}

func (m *Manager) fold(kind Kind, x, y int64) *Term {
	switch kind {
	case KAdd:
		return m.IntConst(x + y)
	case KSub:
		return m.IntConst(x - y)
	case KMul:
		return m.IntConst(x * y)
	case KBitAnd:
		return m.IntConst(x & y)
	case KBitOr:
		return m.IntConst(x | y)
	case KBitXor:
		return m.IntConst(x ^ y)
	case KBitAndNot:
		return m.IntConst(x &^ y)
	case KShl:
		if s := m.unsigned(y); s < uint64(m.width) {
			return m.IntConst(x << s)
		}
		return m.IntConst(0)
	case KShr:
		if s := m.unsigned(y); s < uint64(m.width) {
			return m.IntConst(x >> s)
		}
		if x < 0 {
			return m.IntConst(-1)
		}
		return m.IntConst(0)
	case KUShr:
		if s := m.unsigned(y); s < uint64(m.width) {
			return m.IntConst(int64(m.unsigned(x) >> s))
		}
		return m.IntConst(0)
	case KQuo:
		if y != 0 {
			return m.IntConst(x / y)
		}
	case KRem:
		if y != 0 {
			return m.IntConst(x % y)
		}
	case KSlt:
		return m.BoolConst(x < y)
	case KSle:
		return m.BoolConst(x <= y)
	case KUlt:
		return m.BoolConst(m.unsigned(x) < m.unsigned(y))
	case KUle:
		return m.BoolConst(m.unsigned(x) <= m.unsigned(y))
	}
	return nil
}

// simplify applies algebraic identities with a neutral or absorbing operand.
func (m *Manager) simplify(kind Kind, a, b *Term) *Term {
	isConst := func(t *Term, v int64) bool {
		return t.IsConst() && t.val == v
	}
	switch kind {
	case KAdd, KBitOr, KBitXor:
		if isConst(a, 0) {
			return b
		}
		if isConst(b, 0) {
			return a
		}
	case KSub:
		if isConst(b, 0) {
			return a
		}
		if a == b {
			return m.IntConst(0)
		}
	case KMul:
		if isConst(a, 0) || isConst(b, 0) {
			return m.IntConst(0)
		}
		if isConst(a, 1) {
			return b
		}
		if isConst(b, 1) {
			return a
		}
	case KBitAnd:
		if isConst(a, 0) || isConst(b, 0) {
			return m.IntConst(0)
		}
		if a == b {
			return a
		}
	case KShl, KShr, KUShr:
		if isConst(b, 0) {
			return a
		}
	case KSle, KUle:
		if a == b {
			return m.tru
		}
	case KSlt, KUlt:
		if a == b {
			return m.fls
		}
	}
	return nil
}

func (m *Manager) expect(t *Term, sort Sort) {
	if t == nil {
		panic(fmt.Errorf("nil term where %v was expected", sort))
	}
	if t.sort != sort {
		panic(fmt.Errorf("term %v has sort %v, expected %v", t, t.sort, sort))
	}
}

// rebuild creates a term with the same head as t over new arguments.
func (m *Manager) rebuild(t *Term, args []*Term) *Term {
	switch t.kind {
	case KConst, KVar:
		return t
	case KNot, KNeg, KCompl:
		return m.Unary(t.kind, args[0])
	case KAnd, KOr:
		return m.nary(t.kind, args)
	case KEq:
		return m.Eq(args[0], args[1])
	case KIte:
		return m.Ite(args[0], args[1], args[2])
	case KBit:
		return m.Bit(args[0], int(t.val))
	}
	return m.Binary(t.kind, args[0], args[1])
}
