package lazy

import (
	"strconv"
	"strings"

	"github.com/cs-au-dk/golazy/analysis/formula"
)

// forceCover tries to cover e by a recent state at the same location whose
// abstraction can be shown to hold along the path from their nearest
// common ancestor to e.
func (t *TransferRelation) forceCover(e *AbstractState) (bool, error) {
	candidates := t.reached.At(e.location)
	tries := 0
	for i := len(candidates) - 1; i >= 0; i-- {
		el := candidates[i]
		if el.id >= e.id {
			continue
		}
		if float64(e.id-el.id)/float64(e.id) > t.cfg.ForcedCoveringDistance {
			break
		}
		if el.abstraction.IsTrue() || el.IsCovered() || !el.context.Equal(e.context) {
			continue
		}
		if tries >= t.cfg.ForcedCoveringCandidates {
			break
		}
		tries++
		t.stats.transfer(func(ts *TransferStats) { ts.ForcedAttempts++ })

		nca := t.art.NearestCommonAncestor(e, el)
		if nca == nil {
			continue
		}
		path := t.art.PathBetween(nca, e)

		if nca.IsFalse() {
			for _, s := range path[1:] {
				if !s.IsFalse() {
					s.setAbstraction(nca.abstraction)
					t.pending.Add(t.reached.Release(s)...)
				}
			}
			t.stop.cover(e, el)
			return true, nil
		}

		formulas, err := t.forcedRefinement(nca, path, el)
		if err != nil {
			return false, err
		}
		if formulas == nil {
			continue
		}

		t.strengthen(path, formulas)
		if !t.art.Contains(e) || e.IsFalse() {
			return true, nil
		}
		if !t.art.Contains(el) || el.IsCovered() {
			continue
		}
		t.stop.cover(e, el)
		return true, nil
	}
	return false, nil
}

// forcedRefinement answers a forced covering query, consulting the cache
// first. The answer is nil if covering is not possible.
func (t *TransferRelation) forcedRefinement(nca *AbstractState, path []*AbstractState, el *AbstractState) ([]*formula.Term, error) {
	var key strings.Builder
	key.WriteString(strconv.FormatUint(uint64(nca.abstraction.ID()), 10))
	key.WriteByte(':')
	key.WriteString(strconv.FormatUint(uint64(el.abstraction.ID()), 10))
	for _, e := range edgesOf(path) {
		key.WriteByte(',')
		key.WriteString(strconv.Itoa(e.ID()))
	}

	if formulas, ok := t.forced[key.String()]; ok {
		return formulas, nil
	}

	info, err := t.refiner.ForceCover(nca, path, el)
	if err != nil {
		return nil, err
	}
	var formulas []*formula.Term
	if info.IsSpurious() {
		formulas = info.formulas
	}
	t.forced[key.String()] = formulas
	return formulas, nil
}
