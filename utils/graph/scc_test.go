package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSCCComponents(t *testing.T) {
	scc := _sampleGraph.SCC([]int{0})

	// 0, 1, 4 form a cycle through 0 -> 1 -> 4 -> 0.
	assert.True(t, scc.SameComponent(0, 4))
	assert.True(t, scc.SameComponent(1, 4))
	// 5 and 6 form a two-node cycle.
	assert.True(t, scc.SameComponent(5, 6))
	assert.False(t, scc.SameComponent(0, 8))

	for _, comp := range scc.Components {
		t.Log("Component:", comp)
	}
}

func TestSCCRecursion(t *testing.T) {
	G := OfHashable(func(i int) []int {
		return map[int][]int{
			0: {1, 2},
			1: {1},
			2: {3},
			3: {},
		}[i]
	})
	scc := G.SCC([]int{0})

	tests := []struct {
		node     int
		expected bool
	}{
		{0, false},
		{1, true},
		{2, false},
		{3, false},
	}

	for _, test := range tests {
		if res := scc.IsRecursive(test.node); res != test.expected {
			t.Errorf("IsRecursive(%d) = %v, expected %v", test.node, res, test.expected)
		}
	}

	assert.Equal(t, -1, scc.ComponentOf(42))
}

func TestBFSStopsEarly(t *testing.T) {
	visited := []int{}
	stopped := _sampleGraph.BFS(0, func(n int) bool {
		visited = append(visited, n)
		return n == 4
	})

	assert.True(t, stopped)
	assert.Equal(t, 0, visited[0])
	assert.Contains(t, visited, 4)
	assert.NotContains(t, visited, 12)
}
