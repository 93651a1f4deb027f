package cfa_test

import (
	"testing"

	"github.com/cs-au-dk/golazy/analysis/cfa"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextPushPop(t *testing.T) {
	c := buildCalls(t, false)
	main := function(t, c, "main")
	s1, s2 := main.Sites[0], main.Sites[1]
	f1 := cfa.Frame{Site: s1, Return: s1.Return}
	f2 := cfa.Frame{Site: s2, Return: s2.Return}

	empty := cfa.EmptyContext()
	assert.Equal(t, 0, empty.Len())
	_, ok := empty.Top()
	assert.False(t, ok)
	assert.Equal(t, 0, empty.Pop().Len())

	one := empty.Push(f1)
	two := one.Push(f2)
	assert.Equal(t, 1, one.Len())
	assert.Equal(t, 2, two.Len())

	top, ok := two.Top()
	require.True(t, ok)
	assert.Equal(t, f2, top)

	// Contexts are persistent.
	assert.True(t, two.Pop().Equal(one))
	assert.Equal(t, 1, one.Len())
	assert.True(t, two.Pop().Pop().Equal(empty))
	assert.False(t, one.Equal(empty.Push(f2)))
	assert.True(t, one.Equal(empty.Push(f1)))
}

func TestContextRecursionBarrier(t *testing.T) {
	c := buildCalls(t, false)
	count := function(t, c, "count")
	site := count.Sites[0]
	barrier := cfa.Frame{Site: site}
	assert.False(t, barrier.Returns())

	ctx := cfa.EmptyContext().Push(barrier)
	assert.True(t, ctx.Push(barrier).Equal(ctx))
	assert.Equal(t, 1, ctx.Push(barrier).Push(barrier).Len())
}

func TestNewLocationManager(t *testing.T) {
	c := buildCalls(t, false)

	lm, err := cfa.NewLocationManager(cfa.CallStackLocations, c)
	require.NoError(t, err)
	assert.IsType(t, cfa.CallStackManager{}, lm)

	lm, err = cfa.NewLocationManager(cfa.SummaryLocations, c)
	require.NoError(t, err)
	assert.IsType(t, cfa.SummaryManager{}, lm)

	_, err = cfa.NewLocationManager("explicit", c)
	assert.Error(t, err)
}

func TestCallStackManager(t *testing.T) {
	c := buildCalls(t, false)
	lm, _ := cfa.NewLocationManager(cfa.CallStackLocations, c)
	main := function(t, c, "main")
	count := function(t, c, "count")

	site := main.Sites[0]
	call, _ := site.Call.EdgeTo(site.Callee.Entry)
	summary, _ := site.Call.EdgeTo(site.Return)
	ret, _ := site.Callee.Exit.EdgeTo(site.Return)

	assert.True(t, lm.IsFunctionStart(site.Callee.Entry))
	assert.False(t, lm.IsFunctionStart(site.Return))
	assert.True(t, lm.IsFunctionEnd(site.Callee.Exit, site.Return))
	assert.False(t, lm.IsFunctionEnd(site.Call, site.Return))

	empty := cfa.EmptyContext()
	assert.True(t, lm.IsRightEdge(empty, call, site.Callee.Entry))
	assert.False(t, lm.IsRightEdge(empty, summary, site.Return))
	assert.False(t, lm.IsRightEdge(empty, ret, site.Return))
	assert.False(t, lm.IsRightEdge(empty, call, site.Return))

	frame := lm.PushContextFindReturnNode(site.Call, site.Callee.Entry)
	assert.Equal(t, cfa.Frame{Site: site, Return: site.Return}, frame)
	assert.True(t, lm.IsRightEdge(empty.Push(frame), ret, site.Return))

	other := main.Sites[1]
	wrong := empty.Push(cfa.Frame{Site: other, Return: other.Return})
	assert.False(t, lm.IsRightEdge(wrong, ret, site.Return))

	rec := count.Sites[0]
	recSummary, _ := rec.Call.EdgeTo(rec.Return)
	recReturn, _ := count.Exit.EdgeTo(rec.Return)
	assert.True(t, lm.IsRightEdge(empty, recSummary, rec.Return))

	barrier := lm.PushContextFindReturnNode(rec.Call, count.Entry)
	assert.False(t, barrier.Returns())
	assert.False(t, lm.IsRightEdge(empty.Push(barrier), recReturn, rec.Return))

	assert.Panics(t, func() { lm.PushContextFindReturnNode(site.Call, site.Return) })
}

func TestSummaryManager(t *testing.T) {
	c := buildCalls(t, false)
	lm, _ := cfa.NewLocationManager(cfa.SummaryLocations, c)
	main := function(t, c, "main")

	site := main.Sites[0]
	call, _ := site.Call.EdgeTo(site.Callee.Entry)
	summary, _ := site.Call.EdgeTo(site.Return)
	ret, _ := site.Callee.Exit.EdgeTo(site.Return)

	empty := cfa.EmptyContext()
	assert.False(t, lm.IsFunctionStart(site.Callee.Entry))
	assert.False(t, lm.IsFunctionEnd(site.Callee.Exit, site.Return))
	assert.True(t, lm.IsRightEdge(empty, call, site.Callee.Entry))
	assert.True(t, lm.IsRightEdge(empty, summary, site.Return))
	assert.False(t, lm.IsRightEdge(empty, ret, site.Return))

	assert.Equal(t, main.Entry, lm.Create(main.Entry))
}
