package cfa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/utils/graph"
	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
)

type BuildOptions struct {
	// Calls to functions with these names are error locations.
	ErrorFuncs []string
	// Whether panics are error locations. Otherwise they end execution.
	PanicIsError bool
	// Whether straight-line chains of statements are merged after construction.
	Compress bool
}

var (
	assumeFuncs = map[string]bool{
		"assume":            true,
		"__VERIFIER_assume": true,
	}
	nondetPrefixes = []string{"nondet", "__VERIFIER_nondet"}
)

func isNondet(name string) bool {
	for _, prefix := range nondetPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

type builder struct {
	c      *CFA
	fm     *formula.Manager
	opts   BuildOptions
	errFns map[string]bool
	scc    graph.SCCDecomposition[*ssa.Function]
	names  map[string]int
}

// Build constructs the automaton of entry and every function statically
// reachable from it.
func Build(fm *formula.Manager, entry *ssa.Function, opts BuildOptions) (*CFA, error) {
	if entry == nil {
		return nil, errors.New("no entry function")
	}
	if len(entry.Blocks) == 0 {
		return nil, errors.Errorf("entry function %s has no body", entry)
	}

	b := &builder{
		c:      newCFA(fm),
		fm:     fm,
		opts:   opts,
		errFns: make(map[string]bool),
		names:  make(map[string]int),
	}
	for _, name := range opts.ErrorFuncs {
		b.errFns[name] = true
	}
	if b.errFns[entry.Name()] {
		return nil, errors.Errorf("entry function %s is an error function", entry)
	}

	calls := graph.FromStaticCalls()
	b.scc = calls.SCC([]*ssa.Function{entry})

	var funs []*ssa.Function
	calls.BFS(entry, func(fun *ssa.Function) bool {
		if !b.special(fun) && len(fun.Blocks) > 0 {
			funs = append(funs, fun)
		}
		return false
	})

	// Shells first, so that call sites can refer to callee entries and exits.
	for _, fun := range funs {
		b.declare(fun)
	}
	for _, fun := range funs {
		f, _ := b.c.Function(fun)
		b.body(f)
	}
	b.c.Entry, _ = b.c.Function(entry)

	if opts.Compress {
		Compress(b.c)
	}
	return b.c, nil
}

// special holds for functions that are modelled by the analysis itself.
func (b *builder) special(fun *ssa.Function) bool {
	name := fun.Name()
	return b.errFns[name] || assumeFuncs[name] || isNondet(name)
}

func (b *builder) uniqueName(fun *ssa.Function) string {
	name := fun.Name()
	if recv := fun.Signature.Recv(); recv != nil {
		typ := recv.Type().String()
		if i := strings.LastIndex(typ, "."); i >= 0 {
			typ = typ[i+1:]
		}
		name = strings.TrimPrefix(typ, "*") + "." + name
	}
	if fun.Parent() != nil {
		name = strings.ReplaceAll(name, "$", "_")
	}
	b.names[name]++
	if n := b.names[name]; n > 1 {
		name += "#" + strconv.Itoa(n)
	}
	return name
}

func (b *builder) declare(fun *ssa.Function) {
	f := &Function{ssa: fun}
	f.Name = b.uniqueName(fun)
	f.Entry = b.c.newNode(FunctionEntry, f, "entry")
	f.Exit = b.c.newNode(FunctionExit, f, "exit")

	for _, p := range fun.Params {
		f.Params = append(f.Params, f.register(b.fm, p))
	}
	results := fun.Signature.Results()
	for i := 0; i < results.Len(); i++ {
		var v *formula.Term
		if sort, ok := sortOf(results.At(i).Type()); ok {
			v = b.fm.Var(f.Name+".$ret"+strconv.Itoa(i), sort)
		}
		f.Results = append(f.Results, v)
	}

	b.c.Functions = append(b.c.Functions, f)
	b.c.funs[fun] = f
}

// blockBuilder accumulates the operations of one basic block. Operations
// are emitted onto an edge whenever control leaves the current location.
type blockBuilder struct {
	*builder
	f       *Function
	nodes   []*Node
	block   *ssa.BasicBlock
	cur     *Node
	pending []formula.Op
	label   []string
}

func (bb *blockBuilder) emit(op formula.Op, label string) {
	bb.pending = append(bb.pending, op)
	bb.label = append(bb.label, label)
}

// flush takes the pending operations, prefixed to ops.
func (bb *blockBuilder) flush(ops ...formula.Op) ([]formula.Op, string) {
	res := make([]formula.Op, 0, len(bb.pending)+len(ops))
	res = append(append(res, bb.pending...), ops...)
	label := strings.Join(bb.label, "; ")
	bb.pending, bb.label = nil, nil
	return res, label
}

func (bb *blockBuilder) havoc(v ssa.Value) {
	if vars := bb.f.defined(bb.fm, v); len(vars) > 0 {
		bb.emit(formula.Havoc{Vars: vars}, v.Name()+" = "+v.String())
	}
}

func (b *builder) body(f *Function) {
	fun := f.ssa
	bb := &blockBuilder{builder: b, f: f}

	bb.nodes = make([]*Node, len(fun.Blocks))
	for i, block := range fun.Blocks {
		if i == 0 {
			bb.nodes[i] = f.Entry
			continue
		}
		label := "b" + strconv.Itoa(block.Index)
		if block.Comment != "" {
			label += " " + block.Comment
		}
		bb.nodes[i] = b.c.newNode(Plain, f, label)
	}

	for _, block := range fun.Blocks {
		bb.block = block
		bb.cur = bb.nodes[block.Index]
		bb.pending, bb.label = nil, nil
		bb.instructions()
	}
}

// jump connects the current location to the start of a successor block,
// assigning the phi nodes of the successor.
func (bb *blockBuilder) jump(succ *ssa.BasicBlock, cond formula.Op, label string) {
	pred := -1
	for i, p := range succ.Preds {
		if p == bb.block {
			pred = i
			break
		}
	}

	var ops []formula.Op
	if cond != nil {
		ops = append(ops, cond)
	}

	var assign formula.Assign
	var havoc formula.Havoc
	for _, insn := range succ.Instrs {
		phi, ok := insn.(*ssa.Phi)
		if !ok {
			break
		}
		dst := bb.f.register(bb.fm, phi)
		if dst == nil {
			continue
		}
		if val := bb.f.value(bb.fm, phi.Edges[pred]); val != nil && val.Sort() == dst.Sort() {
			assign.Vars = append(assign.Vars, dst)
			assign.Vals = append(assign.Vals, val)
		} else {
			havoc.Vars = append(havoc.Vars, dst)
		}
	}
	if len(assign.Vars) > 0 {
		ops = append(ops, assign)
	}
	if len(havoc.Vars) > 0 {
		ops = append(ops, havoc)
	}

	pending, plabel := bb.flush(ops...)
	if plabel != "" {
		label = plabel + "; " + label
	}
	bb.c.connect(Statement, bb.cur, bb.nodes[succ.Index], pending, label, nil)
}

func (bb *blockBuilder) instructions() {
	fm := bb.fm
	for _, insn := range bb.block.Instrs {
		switch insn := insn.(type) {
		case *ssa.Phi:
			// Assigned on the incoming edges.
		case *ssa.Jump:
			bb.jump(bb.block.Succs[0], nil, "")
			return
		case *ssa.If:
			cond := bb.f.value(fm, insn.Cond)
			if cond == nil || cond.Sort() != formula.Bool {
				bb.jump(bb.block.Succs[0], nil, "")
				bb.jump(bb.block.Succs[1], nil, "")
				return
			}
			// Both branches are taken from the same location.
			pending, plabel := bb.pending, bb.label
			bb.jump(bb.block.Succs[0], formula.Assume{Cond: cond}, "["+cond.String()+"]")
			bb.pending, bb.label = pending, plabel
			bb.jump(bb.block.Succs[1], formula.Assume{Cond: fm.Not(cond)}, "[!"+cond.String()+"]")
			return
		case *ssa.Return:
			var assign formula.Assign
			var havoc formula.Havoc
			for i, res := range bb.f.Results {
				if res == nil {
					continue
				}
				if val := bb.f.value(fm, insn.Results[i]); val != nil && val.Sort() == res.Sort() {
					assign.Vars = append(assign.Vars, res)
					assign.Vals = append(assign.Vals, val)
				} else {
					havoc.Vars = append(havoc.Vars, res)
				}
			}
			var ops []formula.Op
			if len(assign.Vars) > 0 {
				ops = append(ops, assign)
			}
			if len(havoc.Vars) > 0 {
				ops = append(ops, havoc)
			}
			pending, label := bb.flush(ops...)
			bb.c.connect(Statement, bb.cur, bb.f.Exit, pending, joinLabel(label, "return"), nil)
			return
		case *ssa.Panic:
			if bb.opts.PanicIsError {
				bb.fail("panic")
			}
			// Execution does not continue past a panic.
			return
		case *ssa.Call:
			if !bb.call(insn) {
				return
			}
		case ssa.Value:
			if x := bb.f.register(fm, insn); x != nil {
				if val := bb.f.expr(fm, insn); val != nil && val.Sort() == x.Sort() {
					bb.emit(formula.Assign{Vars: []*formula.Term{x}, Vals: []*formula.Term{val}},
						insn.Name()+" = "+insn.String())
					continue
				}
			}
			bb.havoc(insn)
		default:
			// Instructions without a result only affect memory, which is not modelled.
		}
	}
}

func joinLabel(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

// fail connects the current location to a fresh error location.
func (bb *blockBuilder) fail(label string) {
	errNode := bb.c.newNode(Error, bb.f, label)
	pending, plabel := bb.flush()
	bb.c.connect(Statement, bb.cur, errNode, pending, joinLabel(plabel, label), nil)
}

// call translates a call instruction. It returns false if execution does
// not continue after the call.
func (bb *blockBuilder) call(insn *ssa.Call) bool {
	fm := bb.fm
	common := insn.Common()
	callee := common.StaticCallee()
	if callee == nil {
		bb.havoc(insn)
		return true
	}

	name := callee.Name()
	switch {
	case bb.errFns[name]:
		bb.fail(name + "()")
		return false
	case assumeFuncs[name]:
		if len(common.Args) == 1 {
			if cond := bb.f.value(fm, common.Args[0]); cond != nil && cond.Sort() == formula.Bool {
				bb.emit(formula.Assume{Cond: cond}, "assume "+cond.String())
			}
		}
		bb.havoc(insn)
		return true
	case isNondet(name):
		bb.havoc(insn)
		return true
	}

	target, ok := bb.c.Function(callee)
	if !ok {
		// External function.
		bb.havoc(insn)
		return true
	}

	site := &CallSite{
		Caller:    bb.f,
		Callee:    target,
		Call:      bb.cur,
		Recursive: bb.scc.SameComponent(bb.f.ssa, callee),
	}
	site.Return = bb.c.newNode(Plain, bb.f, "after "+target.Name)

	var params formula.Assign
	var unknown formula.Havoc
	for i, p := range target.Params {
		if p == nil {
			continue
		}
		if val := bb.f.value(fm, common.Args[i]); val != nil && val.Sort() == p.Sort() {
			params.Vars = append(params.Vars, p)
			params.Vals = append(params.Vals, val)
		} else {
			unknown.Vars = append(unknown.Vars, p)
		}
	}
	var callOps []formula.Op
	if len(params.Vars) > 0 {
		callOps = append(callOps, params)
	}
	if len(unknown.Vars) > 0 {
		callOps = append(callOps, unknown)
	}

	var summaryOps []formula.Op
	var results formula.Assign
	var lost formula.Havoc
	if defined := bb.f.defined(fm, insn); len(defined) > 0 {
		summaryOps = append(summaryOps, formula.Havoc{Vars: defined})
		for i, res := range target.Results {
			var dst *formula.Term
			if len(target.Results) == 1 {
				dst = bb.f.register(fm, insn)
			} else {
				dst = bb.f.component(fm, insn, i)
			}
			switch {
			case dst == nil:
			case res == nil || res.Sort() != dst.Sort():
				lost.Vars = append(lost.Vars, dst)
			default:
				results.Vars = append(results.Vars, dst)
				results.Vals = append(results.Vals, res)
			}
		}
	}
	var returnOps []formula.Op
	if len(results.Vars) > 0 {
		returnOps = append(returnOps, results)
	}
	if len(lost.Vars) > 0 {
		returnOps = append(returnOps, lost)
	}

	pending, label := bb.pending, bb.label
	callLabel := fmt.Sprintf("call %s", target.Name)
	bb.c.connect(Call, site.Call, target.Entry,
		append(append([]formula.Op{}, pending...), callOps...), joinLabel(strings.Join(label, "; "), callLabel), site)
	bb.c.connect(Summary, site.Call, site.Return,
		append(append([]formula.Op{}, pending...), summaryOps...), joinLabel(strings.Join(label, "; "), "summary "+target.Name), site)
	bb.c.connect(Return, target.Exit, site.Return, returnOps, "return to "+bb.f.Name, site)
	bb.pending, bb.label = nil, nil

	bb.f.Sites = append(bb.f.Sites, site)
	bb.cur = site.Return
	return true
}
