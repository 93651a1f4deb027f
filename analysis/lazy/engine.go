package lazy

import (
	"github.com/cs-au-dk/golazy/analysis/cfa"
	"github.com/cs-au-dk/golazy/analysis/formula"
	"github.com/cs-au-dk/golazy/analysis/smt"
	"github.com/pkg/errors"
)

// Engine holds the state of one lazy abstraction run over an automaton.
type Engine struct {
	c        *cfa.CFA
	fm       *formula.Manager
	locs     cfa.LocationManager
	cfg      Config
	art      *ART
	reached  *ReachedSet
	pending  *Pending
	domain   *Domain
	stop     *StopOperator
	refiner  *Refiner
	transfer *TransferRelation
	stats    *Stats
}

func NewEngine(c *cfa.CFA, locs cfa.LocationManager, fm *formula.Manager, solver smt.Solver, cfg Config) (*Engine, error) {
	if c == nil || c.Entry == nil {
		return nil, errors.New("automaton without entry function")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fm.Width() != cfg.IntWidth {
		return nil, errors.Errorf("formula manager width %d does not match configured width %d",
			fm.Width(), cfg.IntWidth)
	}

	stats := &Stats{}
	entailer, err := NewEntailer(solver, cfg.EntailmentCache, cfg.EntailmentCacheSize, stats)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		c:       c,
		fm:      fm,
		locs:    locs,
		cfg:     cfg,
		reached: NewReachedSet(),
		pending: NewPending(),
		domain:  NewDomain(entailer),
		stats:   stats,
	}
	e.art = NewART(e.reached)
	e.stop = NewStopOperator(e.art, e.reached, e.domain, e.pending, stats)
	e.refiner = NewRefiner(fm, solver, locs, cfg, stats)
	e.transfer = &TransferRelation{
		fm:       fm,
		locs:     locs,
		art:      e.art,
		reached:  e.reached,
		pending:  e.pending,
		entailer: entailer,
		stop:     e.stop,
		refiner:  e.refiner,
		cfg:      cfg,
		stats:    stats,
		forced:   make(map[string][]*formula.Term),
	}
	return e, nil
}

func (e *Engine) ART() *ART                   { return e.art }
func (e *Engine) Reached() *ReachedSet        { return e.reached }
func (e *Engine) Domain() *Domain             { return e.domain }
func (e *Engine) Stop() *StopOperator         { return e.stop }
func (e *Engine) Refiner() *Refiner           { return e.refiner }
func (e *Engine) Transfer() *TransferRelation { return e.transfer }
func (e *Engine) Stats() *Stats               { return e.stats }

// Initial creates the root of the tree at the entry of the automaton.
func (e *Engine) Initial() *AbstractState {
	if root := e.art.Root(); root != nil {
		return root
	}
	root := e.art.newState(e.locs.Create(e.c.Entry.Entry), e.fm.True(), cfa.EmptyContext())
	e.art.AddRoot(root)
	return root
}
