package lazy

import (
	"testing"

	"github.com/cs-au-dk/golazy/analysis/cfa"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopReflexive(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	tr := buildTree(t, e)
	for _, s := range []*AbstractState{tr.r, tr.a, tr.b, tr.c, tr.d} {
		assert.False(t, e.stop.Stop(s, s), "%v covers itself", s)
		assert.False(t, s.IsCovered())
	}
}

func TestPartialOrderLocationScoped(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	nodes := e.c.Nodes()
	require.GreaterOrEqual(t, len(nodes), 2)

	r := root(e, nodes[0])
	a := child(e, r, nodes[1])
	b := child(e, r, nodes[0])
	a.setAbstraction(e.fm.False())

	// false entails everything, but only at the same location.
	assert.False(t, e.domain.PartialOrder(a, r))
	assert.False(t, e.domain.PartialOrder(a, b))
	assert.True(t, e.domain.PartialOrder(r, b))
	assert.True(t, e.domain.PartialOrder(b, r))

	r.setAbstraction(positive(e.fm, "main.x"))
	assert.True(t, e.domain.PartialOrder(r, b))
	assert.False(t, e.domain.PartialOrder(b, r))
}

func TestDomainContract(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	r := root(e, e.c.Entry.Entry)

	assert.NotSame(t, e.domain.Bottom(), e.domain.Top())
	assert.Panics(t, func() { e.domain.PartialOrder(&AbstractState{location: r.location}, r) })
	assert.PanicsWithValue(t, errUnsupportedOperation, func() { e.domain.Join(r, r) })
	assert.Panics(t, func() { r.setAbstraction(nil) })
}

func TestStopRegistersCovering(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	n := e.c.Entry.Entry
	r := root(e, n)
	a := child(e, r, n)
	b := child(e, r, n)

	// Younger states never cover older ones.
	assert.False(t, e.stop.Stop(a, b))
	require.True(t, e.stop.Stop(b, a))
	assert.Equal(t, a.ID(), b.CoveredBy())
	assert.Equal(t, []*AbstractState{b}, e.reached.CoveredBy(a))
	assert.Equal(t, 1, e.stats.Stop.Coverings)
}

func TestStopContextMismatch(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	n := e.c.Entry.Entry
	r := root(e, n)
	a := child(e, r, n)
	b := e.art.newState(n, e.fm.True(), cfa.EmptyContext().Push(cfa.Frame{
		Site: &cfa.CallSite{Caller: e.c.Entry, Callee: e.c.Entry, Call: n, Return: n},
	}))
	e.art.AddChild(r, b)

	assert.False(t, e.stop.Stop(b, a))
	assert.False(t, e.stop.StopAny(b))
	assert.False(t, b.IsCovered())
}

func TestStopAny(t *testing.T) {
	e, solver := newTestEngine(t, guardSrc, DefaultConfig())
	nodes := e.c.Nodes()
	r := root(e, nodes[0])
	r.setAbstraction(positive(e.fm, "main.z"))

	f := child(e, r, nodes[1])
	f.setAbstraction(e.fm.False())
	assert.True(t, e.stop.StopAny(f))
	assert.False(t, f.IsCovered())

	// Older states at the location are tried in order. The covered one is skipped.
	p := positive(e.fm, "main.x")
	a := child(e, r, nodes[0])
	b := child(e, r, nodes[0])
	a.setAbstraction(p)
	e.reached.Cover(b, r)
	c := child(e, r, nodes[0])
	c.setAbstraction(e.fm.And(p, positive(e.fm, "main.y")))

	require.True(t, e.stop.StopAny(c))
	assert.Equal(t, a.ID(), c.CoveredBy())
	assert.Positive(t, solver.entailments)
	assert.True(t, e.stop.StopAny(c))
}

func TestStopReleasesCovered(t *testing.T) {
	e, _ := newTestEngine(t, guardSrc, DefaultConfig())
	nodes := e.c.Nodes()
	require.GreaterOrEqual(t, len(nodes), 3)
	l0, l1, l2 := nodes[0], nodes[1], nodes[2]

	r := root(e, l0)
	a := child(e, r, l1)
	b := child(e, r, l1)
	y := child(e, b, l2)
	z := child(e, r, l2)
	w := child(e, r, l1)
	e.reached.Cover(z, y)
	e.reached.Cover(w, b)

	require.True(t, e.stop.Stop(b, a))

	assert.False(t, e.art.Contains(y))
	assert.False(t, w.IsCovered())
	assert.False(t, z.IsCovered())
	assert.True(t, e.pending.Contains(w.ID()))
	assert.True(t, e.pending.Contains(z.ID()))
	assert.False(t, e.pending.Contains(y.ID()))
	assert.Equal(t, []*AbstractState{w, z}, e.pending.Drain())
}

func TestEntailmentCaches(t *testing.T) {
	for _, kind := range []string{CacheNone, CacheMap, CacheLRU} {
		t.Run(kind, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.EntailmentCache = kind
			e, solver := newTestEngine(t, guardSrc, cfg)
			ent := e.domain.entailer

			p, q := positive(e.fm, "main.x"), positive(e.fm, "main.y")
			pq := e.fm.And(p, q)
			for i := 0; i < 2; i++ {
				assert.True(t, ent.Entails(pq, p))
				assert.False(t, ent.Entails(p, pq))
			}
			// Trivial queries never reach the solver.
			assert.True(t, ent.Entails(p, p))
			assert.True(t, ent.Entails(e.fm.False(), p))
			assert.True(t, ent.Entails(p, e.fm.True()))

			if kind == CacheNone {
				assert.Equal(t, 4, solver.entailments)
				assert.Equal(t, 0, e.stats.Stop.CacheHits)
			} else {
				assert.Equal(t, 2, solver.entailments)
				assert.Equal(t, 2, e.stats.Stop.CacheHits)
			}
		})
	}

	_, err := NewEntailer(nil, "disk", 0, nil)
	assert.Error(t, err)
	_, err = NewEntailer(nil, CacheLRU, 0, nil)
	assert.Error(t, err)
}
