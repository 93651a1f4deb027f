package lazy

import (
	"context"
	"time"

	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/analysis/smt"
	"github.com/cs-au-dk/golazy/utils"
	"github.com/cs-au-dk/golazy/utils/worklist"
	"github.com/fatih/color"
)

type Verdict string

const (
	Safe    Verdict = "SAFE"
	Unsafe  Verdict = "UNSAFE"
	Unknown Verdict = "UNKNOWN"
)

func (v Verdict) String() string {
	var col color.Attribute
	switch v {
	case Safe:
		col = color.FgGreen
	case Unsafe:
		col = color.FgRed
	default:
		col = color.FgYellow
	}
	return utils.CanColorize(color.New(col, color.Bold).SprintFunc())(string(v))
}

// Result is the outcome of a run.
type Result struct {
	Verdict Verdict
	// Counterexample of an unsafe run.
	Trace *ConcreteTrace
	// Why the run ended without a verdict.
	Reason string
	Stats  *Stats
	ART    *ART
}

// Run checks whether an error location of the automaton is reachable.
func Run(ctx context.Context, c *cfa.CFA, locs cfa.LocationManager, fm *formula.Manager, solver smt.Solver, cfg Config) (Result, error) {
	e, err := NewEngine(c, locs, fm, solver, cfg)
	if err != nil {
		return Result{Verdict: Unknown}, err
	}
	return e.Run(ctx)
}

// Run explores the tree until it is closed, an error is found, the step
// bound is exhausted or ctx is done.
func (e *Engine) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	res = Result{Verdict: Unknown, Stats: e.stats, ART: e.art}
	defer func() { e.stats.Time += time.Since(start) }()

	wl := worklist.Empty[*AbstractState]()
	enqueue := wl.Push
	if e.cfg.Search == SearchBFS {
		enqueue = wl.Add
	}
	requeue := func(states []*AbstractState) {
		// states are ordered newest first and must leave the worklist in that order.
		for i := len(states) - 1; i >= 0; i-- {
			wl.Push(states[i])
		}
	}

	wl.Add(e.Initial())
	for !wl.IsEmpty() {
		select {
		case <-ctx.Done():
			res.Reason = ctx.Err().Error()
			return
		default:
		}

		s := wl.GetNext()
		if !e.art.Contains(s) || s.IsCovered() || s.expanded {
			continue
		}
		if e.cfg.MaxSteps > 0 && e.stats.Steps >= e.cfg.MaxSteps {
			res.Reason = "step bound exhausted"
			return
		}
		e.stats.Steps++

		outs, perr := e.transfer.Post(s)
		if perr != nil {
			return res, perr
		}
		// Released states go ahead of the successors.
		var released [][]*AbstractState
		for len(outs) > 0 {
			out := outs[0]
			outs = outs[1:]
			switch out := out.(type) {
			case Bottom:
			case Successor:
				enqueue(out.State)
			case ErrorFound:
				res.Verdict, res.Trace = Unsafe, out.Trace
				return
			case RefinementNeeded:
				wl.Filter(e.art.Contains)
				released = append(released, out.Requeue)
			case Requeue:
				outs = append(outs, out.Then)
				released = append(released, out.States)
			default:
				panic(internal("unexpected outcome %v", out))
			}
		}
		for _, states := range released {
			requeue(states)
		}
		utils.VerbosePrint("Step %d: %v, worklist %d, tree %d\n", e.stats.Steps, s.Describe(), wl.Len(), e.art.Size())
	}

	res.Verdict = Safe
	return
}
