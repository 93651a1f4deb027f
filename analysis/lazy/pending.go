package lazy

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Pending collects states released from covering that must be processed
// again by the driver.
type Pending struct {
	states map[StateID]*AbstractState
}

func NewPending() *Pending {
	return &Pending{states: make(map[StateID]*AbstractState)}
}

func (p *Pending) Add(ss ...*AbstractState) {
	for _, s := range ss {
		p.states[s.id] = s
	}
}

func (p *Pending) Remove(id StateID) {
	delete(p.states, id)
}

func (p *Pending) Len() int {
	return len(p.states)
}

func (p *Pending) Contains(id StateID) bool {
	_, ok := p.states[id]
	return ok
}

// Filter drops the states for which keep does not hold.
func (p *Pending) Filter(keep func(*AbstractState) bool) {
	for id, s := range p.states {
		if !keep(s) {
			delete(p.states, id)
		}
	}
}

// Drain empties the set, returning its states newest first.
func (p *Pending) Drain() []*AbstractState {
	res := maps.Values(p.states)
	slices.SortFunc(res, func(a, b *AbstractState) bool { return a.id > b.id })
	p.states = make(map[StateID]*AbstractState)
	return res
}
