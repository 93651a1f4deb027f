package smt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cs-au-dk/golazy/analysis/formula"
)

var smtlibOps = map[formula.Kind]string{
	formula.KNot:    "not",
	formula.KAnd:    "and",
	formula.KOr:     "or",
	formula.KEq:     "=",
	formula.KIte:    "ite",
	formula.KAdd:    "bvadd",
	formula.KSub:    "bvsub",
	formula.KMul:    "bvmul",
	formula.KNeg:    "bvneg",
	formula.KCompl:  "bvnot",
	formula.KSlt:    "bvslt",
	formula.KSle:    "bvsle",
	formula.KUlt:    "bvult",
	formula.KUle:    "bvule",
	formula.KBitAnd: "bvand",
	formula.KBitOr:  "bvor",
	formula.KBitXor: "bvxor",
	formula.KShl:    "bvshl",
	formula.KShr:    "bvashr",
	formula.KUShr:   "bvlshr",
	formula.KQuo:    "bvsdiv",
	formula.KRem:    "bvsrem",
}

// WriteSMTLIB prints a term as an SMT-LIB 2 expression over bitvectors of the given width.
func WriteSMTLIB(w io.Writer, t *formula.Term, width uint) error {
	bw := bufio.NewWriter(w)
	writeSMTLIB(bw, t, width)
	return bw.Flush()
}

func smtlibName(v *formula.Term) string {
	return "|" + strings.ReplaceAll(v.VarName(), "|", "_") + "|"
}

func writeSMTLIB(w *bufio.Writer, t *formula.Term, width uint) {
	switch t.Kind() {
	case formula.KConst:
		if t.Sort() == formula.Bool {
			fmt.Fprint(w, t.IsTrue())
			return
		}
		v := uint64(t.Value())
		if width < 64 {
			v &= 1<<width - 1
		}
		fmt.Fprintf(w, "(_ bv%d %d)", v, width)
		return
	case formula.KVar:
		w.WriteString(smtlibName(t))
		return
	case formula.KBit:
		fmt.Fprintf(w, "(= ((_ extract %d %d) ", t.BitIndex(), t.BitIndex())
		writeSMTLIB(w, t.Arg(0), width)
		w.WriteString(") #b1)")
		return
	case formula.KBitAndNot:
		w.WriteString("(bvand ")
		writeSMTLIB(w, t.Arg(0), width)
		w.WriteString(" (bvnot ")
		writeSMTLIB(w, t.Arg(1), width)
		w.WriteString("))")
		return
	}

	w.WriteString("(" + smtlibOps[t.Kind()])
	for _, a := range t.Args() {
		w.WriteString(" ")
		writeSMTLIB(w, a, width)
	}
	w.WriteString(")")
}

// Dump writes the session as an SMT-LIB 2 script with one named assertion per group.
func (p *prover) Dump(w io.Writer) error {
	if p.closed {
		return ErrClosed
	}
	bw := bufio.NewWriter(w)
	width := p.s.opts.IntWidth

	fmt.Fprintln(bw, "(set-option :produce-interpolants true)")
	fmt.Fprintln(bw, "(set-logic QF_UFBV)")

	declared := map[*formula.Term]bool{}
	for _, gr := range p.groups {
		for _, t := range gr.terms {
			for _, v := range formula.Vars(t) {
				if declared[v] {
					continue
				}
				declared[v] = true
				if v.Sort() == formula.Bool {
					fmt.Fprintf(bw, "(declare-fun %s () Bool)\n", smtlibName(v))
				} else {
					fmt.Fprintf(bw, "(declare-fun %s () (_ BitVec %d))\n", smtlibName(v), width)
				}
			}
		}
	}

	for i, gr := range p.groups {
		conj := p.fm.And(gr.terms...)
		bw.WriteString("(assert (! ")
		writeSMTLIB(bw, conj, width)
		fmt.Fprintf(bw, " :named g%d))\n", i)
	}
	fmt.Fprintln(bw, "(check-sat)")
	return bw.Flush()
}
