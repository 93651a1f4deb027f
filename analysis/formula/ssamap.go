package formula

import (
	"strconv"
	"strings"

	"github.com/benbjohnson/immutable"
	"github.com/cs-au-dk/golazy/utils"
)

// DefaultIndex is the SSA index of variables that were never assigned.
const DefaultIndex = 1

// SSAMap maps variable names to their current SSA index.
// It is persistent: updates return a new map and leave the receiver intact.
type SSAMap struct {
	mp *immutable.SortedMap[string, int]
}

func EmptySSAMap() SSAMap {
	return SSAMap{utils.NewSortedMap[string, int]()}
}

// Get retrieves the index of the variable, or DefaultIndex.
func (s SSAMap) Get(name string) int {
	if s.mp == nil {
		return DefaultIndex
	}
	if idx, ok := s.mp.Get(name); ok {
		return idx
	}
	return DefaultIndex
}

// Inc advances the index of the variable.
func (s SSAMap) Inc(name string) SSAMap {
	mp := s.mp
	if mp == nil {
		mp = utils.NewSortedMap[string, int]()
	}
	return SSAMap{mp.Set(name, s.Get(name)+1)}
}

func (s SSAMap) Len() int {
	if s.mp == nil {
		return 0
	}
	return s.mp.Len()
}

// ForEach visits the explicitly indexed variables in name order.
func (s SSAMap) ForEach(do func(name string, index int)) {
	if s.mp == nil {
		return
	}
	for it := s.mp.Iterator(); !it.Done(); {
		name, idx, _ := it.Next()
		do(name, idx)
	}
}

func (s SSAMap) String() string {
	parts := []string{}
	s.ForEach(func(name string, index int) {
		parts = append(parts, name+"@"+strconv.Itoa(index))
	})
	return "[" + strings.Join(parts, ", ") + "]"
}
