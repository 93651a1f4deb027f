package lazy

// StopOperator closes states by covering them with older states at the
// same location.
type StopOperator struct {
	art     *ART
	reached *ReachedSet
	domain  *Domain
	pending *Pending
	stats   *Stats
}

func NewStopOperator(art *ART, reached *ReachedSet, domain *Domain, pending *Pending, stats *Stats) *StopOperator {
	return &StopOperator{art, reached, domain, pending, stats}
}

// Stop covers candidate by against if the abstraction of candidate entails
// that of against. Only older states in the same context may cover.
func (op *StopOperator) Stop(candidate, against *AbstractState) bool {
	if candidate.location != against.location || against.id >= candidate.id {
		return false
	}
	if !candidate.context.Equal(against.context) {
		return false
	}
	if !op.domain.PartialOrder(candidate, against) {
		return false
	}
	op.cover(candidate, against)
	return true
}

// StopAny attempts to cover candidate by any reached state at its location.
// States that are already covered, or whose abstraction is false, are closed.
func (op *StopOperator) StopAny(candidate *AbstractState) bool {
	if candidate.IsCovered() || candidate.IsFalse() {
		return true
	}
	for _, el := range op.reached.At(candidate.location) {
		if el == candidate || el.IsCovered() {
			continue
		}
		if op.Stop(candidate, el) {
			return true
		}
	}
	return false
}

// cover registers the covering and invalidates everything that hinged on
// candidate being live. States covered by candidate or by its descendants
// are released for reprocessing, and the descendants are detached.
func (op *StopOperator) cover(candidate, against *AbstractState) {
	op.reached.Cover(candidate, against)
	op.stats.covering()
	op.pending.Add(op.reached.Release(candidate)...)

	detached := op.art.Subtree(candidate, true, false)
	for _, d := range detached {
		op.reached.Uncover(d)
		for _, r := range op.reached.Release(d) {
			if op.art.Contains(r) {
				op.pending.Add(r)
			}
		}
		op.pending.Remove(d.id)
	}
	op.stats.transfer(func(t *TransferStats) { t.Detached += len(detached) })
}
