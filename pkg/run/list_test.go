package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRun(t *testing.T, uid string) *InMemoryRun {
	t.Helper()
	r, err := NewInMemoryRun(map[string]interface{}{"uid": uid})
	require.NoError(t, err)
	return r
}

func TestListAppendAndRemove(t *testing.T) {
	l := NewList()
	r1 := newTestRun(t, "a")
	r2 := newTestRun(t, "b")

	assert.True(t, l.Append(r1))
	assert.True(t, l.Append(r2))
	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Contains(r1))

	assert.True(t, l.Remove(r1))
	assert.False(t, l.Contains(r1))
	assert.Equal(t, 1, l.Len())
	assert.Same(t, Run(r2), l.At(0))
}

func TestListRejectsDuplicates(t *testing.T) {
	l := NewList()
	r := newTestRun(t, "a")

	assert.True(t, l.Append(r))
	assert.False(t, l.Append(r))
	assert.Equal(t, 1, l.Len())
}

func TestListRemoveAbsentIsNoOp(t *testing.T) {
	l := NewList()
	assert.False(t, l.Remove(newTestRun(t, "ghost")))
}

func TestListEmitsAddedAndRemoved(t *testing.T) {
	l := NewList()
	r := newTestRun(t, "a")

	var added, removed []ListEvent
	l.Added.Subscribe(func(p interface{}) { added = append(added, p.(ListEvent)) })
	l.Removed.Subscribe(func(p interface{}) { removed = append(removed, p.(ListEvent)) })

	l.Append(r)
	require.Len(t, added, 1)
	assert.Equal(t, 0, added[0].Index)
	assert.Equal(t, "a", UID(added[0].Run))

	l.Remove(r)
	require.Len(t, removed, 1)
	assert.Equal(t, 0, removed[0].Index)
}

func TestListPopPreservesOrder(t *testing.T) {
	l := NewList()
	for _, uid := range []string{"a", "b", "c"} {
		l.Append(newTestRun(t, uid))
	}

	popped := l.Pop(1)
	assert.Equal(t, "b", UID(popped))
	assert.Equal(t, "a", UID(l.At(0)))
	assert.Equal(t, "c", UID(l.At(1)))
}
