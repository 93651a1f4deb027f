package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Sort is the type of a term.
type Sort uint8

const (
	Bool Sort = iota
	Int
)

func (s Sort) String() string {
	switch s {
	case Bool:
		return "bool"
	case Int:
		return "int"
	}
	return "sort(" + strconv.Itoa(int(s)) + ")"
}

// Kind is the operator at the head of a term.
type Kind uint8

const (
	KConst Kind = iota
	KVar
	KNot
	KAnd
	KOr
	KEq
	KIte
	KBit
	// Arithmetic
	KAdd
	KSub
	KMul
	KNeg
	KCompl
	// Comparisons
	KSlt
	KSle
	KUlt
	KUle
	// Operators that may be left uninterpreted by the decision procedure.
	KBitAnd
	KBitOr
	KBitXor
	KBitAndNot
	KShl
	KShr
	KUShr
	KQuo
	KRem
)

var kindNames = [...]string{
	KConst:     "const",
	KVar:       "var",
	KNot:       "!",
	KAnd:       "&&",
	KOr:        "||",
	KEq:        "==",
	KIte:       "ite",
	KBit:       "bit",
	KAdd:       "+",
	KSub:       "-",
	KMul:       "*",
	KNeg:       "-",
	KCompl:     "^",
	KSlt:       "<",
	KSle:       "<=",
	KUlt:       "<u",
	KUle:       "<=u",
	KBitAnd:    "&",
	KBitOr:     "|",
	KBitXor:    "^",
	KBitAndNot: "&^",
	KShl:       "<<",
	KShr:       ">>",
	KUShr:      ">>u",
	KQuo:       "/",
	KRem:       "%",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsUninterpreted holds for operators that the decision procedure
// over-approximates unless told otherwise.
func (k Kind) IsUninterpreted() bool {
	return k >= KBitAnd
}

// IsBinaryArith holds for binary operators over integers with an integer result.
func (k Kind) IsBinaryArith() bool {
	switch k {
	case KAdd, KSub, KMul, KBitAnd, KBitOr, KBitXor, KBitAndNot, KShl, KShr, KUShr, KQuo, KRem:
		return true
	}
	return false
}

// IsComparison holds for binary integer predicates.
func (k Kind) IsComparison() bool {
	switch k {
	case KSlt, KSle, KUlt, KUle:
		return true
	}
	return false
}

// Term is a node of a hash-consed formula DAG. Terms are only created by a
// Manager, and two terms of the same Manager are structurally equal iff
// they are the same pointer.
type Term struct {
	id   uint32
	kind Kind
	sort Sort
	args []*Term
	// Variable name.
	name string
	// SSA index of a variable. Zero for uninstantiated variables.
	index int
	// Value of a constant, or position of a Bit term.
	val int64
}

func (t *Term) ID() uint32      { return t.id }
func (t *Term) Kind() Kind      { return t.kind }
func (t *Term) Sort() Sort      { return t.sort }
func (t *Term) Args() []*Term   { return t.args }
func (t *Term) Arg(i int) *Term { return t.args[i] }

// Name is the name of a variable term.
func (t *Term) Name() string { return t.name }

// Index is the SSA index of a variable term.
func (t *Term) Index() int { return t.index }

// Value is the value of an integer constant.
func (t *Term) Value() int64 { return t.val }

// BitIndex is the position selected by a Bit term.
func (t *Term) BitIndex() int { return int(t.val) }

func (t *Term) IsConst() bool { return t.kind == KConst }
func (t *Term) IsVar() bool   { return t.kind == KVar }
func (t *Term) IsTrue() bool  { return t.kind == KConst && t.sort == Bool && t.val != 0 }
func (t *Term) IsFalse() bool { return t.kind == KConst && t.sort == Bool && t.val == 0 }

// IsInstantiated holds for variables carrying an SSA index.
func (t *Term) IsInstantiated() bool { return t.kind == KVar && t.index > 0 }

// VarName is the printed name of a variable, including its SSA index.
func (t *Term) VarName() string {
	if t.index == 0 {
		return t.name
	}
	return t.name + "@" + strconv.Itoa(t.index)
}

func (t *Term) String() string {
	var sb strings.Builder
	t.write(&sb, plainPrinter)
	return sb.String()
}

// printer decorates the lexical categories of a printed term.
type printer struct {
	op, variable, constant func(...interface{}) string
}

var plainPrinter = printer{
	op:       fmt.Sprint,
	variable: fmt.Sprint,
	constant: fmt.Sprint,
}

func (t *Term) write(sb *strings.Builder, p printer) {
	switch t.kind {
	case KConst:
		if t.sort == Bool {
			sb.WriteString(p.constant(t.IsTrue()))
		} else {
			sb.WriteString(p.constant(t.val))
		}
	case KVar:
		sb.WriteString(p.variable(t.VarName()))
	case KNot:
		sb.WriteString(p.op("!"))
		t.args[0].writeOperand(sb, p)
	case KNeg, KCompl:
		sb.WriteString(p.op(t.kind.String()))
		t.args[0].writeOperand(sb, p)
	case KBit:
		t.args[0].write(sb, p)
		sb.WriteString("[" + p.constant(t.val) + "]")
	case KIte:
		sb.WriteString(p.op("ite") + "(")
		for i, a := range t.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb, p)
		}
		sb.WriteString(")")
	default:
		for i, a := range t.args {
			if i > 0 {
				sb.WriteString(" " + p.op(t.kind.String()) + " ")
			}
			a.writeOperand(sb, p)
		}
	}
}

func (t *Term) writeOperand(sb *strings.Builder, p printer) {
	switch t.kind {
	case KConst, KVar, KBit, KIte, KNot, KNeg, KCompl:
		t.write(sb, p)
	default:
		sb.WriteString("(")
		t.write(sb, p)
		sb.WriteString(")")
	}
}
