package lazy

import (
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/analysis/smt"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

type entailmentKey [2]uint32

// entailmentStore memoizes entailment answers.
type entailmentStore interface {
	get(key entailmentKey) (res bool, ok bool)
	add(key entailmentKey, res bool)
}

type noStore struct{}

func (noStore) get(entailmentKey) (bool, bool) { return false, false }
func (noStore) add(entailmentKey, bool)        {}

type mapStore map[entailmentKey]bool

func (m mapStore) get(key entailmentKey) (bool, bool) {
	res, ok := m[key]
	return res, ok
}

func (m mapStore) add(key entailmentKey, res bool) { m[key] = res }

type lruStore struct{ *lru.Cache }

func (c lruStore) get(key entailmentKey) (bool, bool) {
	res, ok := c.Get(key)
	if !ok {
		return false, false
	}
	return res.(bool), true
}

func (c lruStore) add(key entailmentKey, res bool) { c.Add(key, res) }

// Entailer decides entailment between abstractions. Answers are memoized
// by the pair of term identities, which is sound because terms are
// hash-consed and immutable.
type Entailer struct {
	solver smt.Solver
	store  entailmentStore
	stats  *Stats
}

func NewEntailer(solver smt.Solver, kind string, size int, stats *Stats) (*Entailer, error) {
	var store entailmentStore
	switch kind {
	case CacheNone:
		store = noStore{}
	case CacheMap, "":
		store = mapStore{}
	case CacheLRU:
		c, err := lru.New(size)
		if err != nil {
			return nil, errors.Wrap(err, "creating entailment cache")
		}
		store = lruStore{c}
	default:
		return nil, errors.Errorf("unknown entailment cache %q", kind)
	}
	return &Entailer{solver: solver, store: store, stats: stats}, nil
}

// Entails holds if every valuation satisfying f satisfies g.
func (e *Entailer) Entails(f, g *formula.Term) bool {
	if f == nil || g == nil {
		panic(internal("entailment between absent abstractions"))
	}
	if f == g || f.IsFalse() || g.IsTrue() {
		return true
	}

	key := entailmentKey{f.ID(), g.ID()}
	if res, ok := e.store.get(key); ok {
		e.stats.entailment(true)
		return res
	}
	e.stats.entailment(false)

	res, err := e.solver.Entails(f, g)
	if err != nil {
		panic(errors.Wrapf(ErrInternal, "entailment %v ⊨ %v: %v", f, g, err))
	}
	e.store.add(key, res)
	return res
}
