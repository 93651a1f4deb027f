package lazy

import (
	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/utils"
)

// TransferRelation computes abstract successors. Successors start with the
// abstraction true and are only strengthened by refinement.
type TransferRelation struct {
	fm       *formula.Manager
	locs     cfa.LocationManager
	art      *ART
	reached  *ReachedSet
	pending  *Pending
	entailer *Entailer
	stop     *StopOperator
	refiner  *Refiner
	cfg      Config
	stats    *Stats

	// Positional refinements of forced covering queries. Nil entries are
	// queries that did not allow covering.
	forced map[string][]*formula.Term
}

// Successor computes the successor of state along edge. Error states are
// checked for feasibility instead, and closed states have no successor.
// States released by coverage changes are handed back as a Requeue.
func (t *TransferRelation) Successor(state *AbstractState, edge *cfa.Edge) (Outcome, error) {
	if closed, out, err := t.close(state); err != nil || closed {
		return out, err
	}
	return t.requeue(t.materialize(state, edge)), nil
}

// Post computes the successors of state along all its outgoing edges and
// marks it expanded.
func (t *TransferRelation) Post(state *AbstractState) ([]Outcome, error) {
	if closed, out, err := t.close(state); err != nil || closed {
		return []Outcome{out}, err
	}

	var res []Outcome
	for _, e := range state.location.Out() {
		if out := t.materialize(state, e); out != (Bottom{}) {
			res = append(res, out)
		}
	}
	state.expanded = true
	if t.pending.Len() > 0 {
		res = append(res, t.requeue(Bottom{}))
	}
	return res, nil
}

// close runs the checks preceding materialization. It reports whether
// state must not be expanded, together with the outcome replacing its
// successors.
func (t *TransferRelation) close(state *AbstractState) (bool, Outcome, error) {
	if state.IsError() {
		out, err := t.checkError(state)
		return true, out, err
	}

	if state.IsCovered() {
		return true, t.requeue(Bottom{}), nil
	}

	if t.stop.StopAny(state) {
		t.stats.transfer(func(ts *TransferStats) { ts.Closed++ })
		return true, t.requeue(Bottom{}), nil
	}

	if t.cfg.ForcedCovering {
		covered, err := t.forceCover(state)
		if err != nil {
			return true, nil, err
		}
		if covered {
			t.stats.transfer(func(ts *TransferStats) { ts.ForcedCovered++ })
			return true, t.requeue(Bottom{}), nil
		}
	}

	return false, nil, nil
}

// checkError analyses the path to an error state.
func (t *TransferRelation) checkError(state *AbstractState) (Outcome, error) {
	if state.IsFalse() {
		return Bottom{}, nil
	}

	info, err := t.refiner.BuildCounterexampleTrace(t.art.PathTo(state))
	if err != nil {
		return nil, err
	}
	if !info.IsSpurious() {
		return ErrorFound{info.Trace}, nil
	}

	discard := t.Strengthen(info)
	t.stats.transfer(func(ts *TransferStats) { ts.Refinements++ })
	out := RefinementNeeded{Discard: discard, Requeue: t.pending.Drain()}
	t.stats.transfer(func(ts *TransferStats) { ts.Requeued += len(out.Requeue) })
	utils.VerbosePrint("Refined %v %v\n", state, out)
	return out, nil
}

func (t *TransferRelation) materialize(state *AbstractState, edge *cfa.Edge) Outcome {
	if edge.From() != state.location {
		panic(internal("edge %v does not leave %v", edge, state))
	}

	to := t.locs.Create(edge.To())
	if !t.locs.IsRightEdge(state.context, edge, to) {
		return Bottom{}
	}

	ctx := state.context
	if t.locs.IsFunctionEnd(state.location, to) {
		ctx = ctx.Pop()
	}
	if t.locs.IsFunctionStart(to) {
		ctx = ctx.Push(t.locs.PushContextFindReturnNode(state.location, to))
	}

	succ := t.art.newState(to, t.fm.True(), ctx)
	t.art.AddChild(state, succ)
	t.stats.transfer(func(ts *TransferStats) { ts.Successors++ })
	return Successor{succ}
}

// requeue wraps out with the pending states, newest first.
func (t *TransferRelation) requeue(out Outcome) Outcome {
	if t.pending.Len() == 0 {
		return out
	}
	states := t.pending.Drain()
	t.stats.transfer(func(ts *TransferStats) { ts.Requeued += len(states) })
	return Requeue{States: states, Then: out}
}
