package lazy

import (
	"github.com/benbjohnson/immutable"
	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/utils"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ReachedSet indexes the live states of the reachability tree by location,
// and owns the covering relation between them.
type ReachedSet struct {
	byLoc map[*cfa.Node]*immutable.SortedMap[StateID, *AbstractState]
	// Covering state to the states it covers.
	covers map[StateID]map[StateID]*AbstractState
	size   int
}

func NewReachedSet() *ReachedSet {
	return &ReachedSet{
		byLoc:  make(map[*cfa.Node]*immutable.SortedMap[StateID, *AbstractState]),
		covers: make(map[StateID]map[StateID]*AbstractState),
	}
}

func (r *ReachedSet) Add(s *AbstractState) {
	mp, ok := r.byLoc[s.location]
	if !ok {
		mp = utils.NewSortedMap[StateID, *AbstractState]()
	}
	if _, found := mp.Get(s.id); found {
		panic(internal("%v is already reached", s))
	}
	r.byLoc[s.location] = mp.Set(s.id, s)
	r.size++
}

// Remove deletes s from its location. Covering information is left untouched.
func (r *ReachedSet) Remove(s *AbstractState) bool {
	mp, ok := r.byLoc[s.location]
	if !ok {
		return false
	}
	if _, found := mp.Get(s.id); !found {
		return false
	}
	mp = mp.Delete(s.id)
	if mp.Len() == 0 {
		delete(r.byLoc, s.location)
	} else {
		r.byLoc[s.location] = mp
	}
	r.size--
	return true
}

func (r *ReachedSet) Contains(s *AbstractState) bool {
	mp, ok := r.byLoc[s.location]
	if !ok {
		return false
	}
	_, found := mp.Get(s.id)
	return found
}

// At lists the states at a location, oldest first.
func (r *ReachedSet) At(loc *cfa.Node) []*AbstractState {
	mp, ok := r.byLoc[loc]
	if !ok {
		return nil
	}
	res := make([]*AbstractState, 0, mp.Len())
	for iter := mp.Iterator(); !iter.Done(); {
		_, s, _ := iter.Next()
		res = append(res, s)
	}
	return res
}

func (r *ReachedSet) Len(loc *cfa.Node) int {
	if mp, ok := r.byLoc[loc]; ok {
		return mp.Len()
	}
	return 0
}

// Size is the number of reached states over all locations.
func (r *ReachedSet) Size() int {
	return r.size
}

// Cover records that covering subsumes covered.
func (r *ReachedSet) Cover(covered, covering *AbstractState) {
	if covered.id <= covering.id {
		panic(internal("%v cannot be covered by the younger %v", covered, covering))
	}
	r.Uncover(covered)
	set, ok := r.covers[covering.id]
	if !ok {
		set = make(map[StateID]*AbstractState)
		r.covers[covering.id] = set
	}
	set[covered.id] = covered
	covered.coveredBy = covering.id
}

// Uncover clears the covering of s, if any.
func (r *ReachedSet) Uncover(s *AbstractState) {
	if !s.IsCovered() {
		return
	}
	if set, ok := r.covers[s.coveredBy]; ok {
		delete(set, s.id)
		if len(set) == 0 {
			delete(r.covers, s.coveredBy)
		}
	}
	s.coveredBy = NoState
}

// CoveredBy lists the states covered by covering, oldest first.
func (r *ReachedSet) CoveredBy(covering *AbstractState) []*AbstractState {
	res := maps.Values(r.covers[covering.id])
	slices.SortFunc(res, func(a, b *AbstractState) bool { return a.id < b.id })
	return res
}

// Release uncovers every state covered by covering and returns them.
func (r *ReachedSet) Release(covering *AbstractState) []*AbstractState {
	res := r.CoveredBy(covering)
	for _, s := range res {
		s.coveredBy = NoState
	}
	delete(r.covers, covering.id)
	return res
}

// IsCovering holds if covering covers at least one state.
func (r *ReachedSet) IsCovering(covering *AbstractState) bool {
	return len(r.covers[covering.id]) > 0
}
