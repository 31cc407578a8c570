package plotspec

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioworks/Spectra/pkg/array"
)

func newTestLine(label string) *Line {
	transform := func(ctx context.Context) (LineData, error) {
		return LineData{
			X: array.FromSlice([]float64{0, 1}),
			Y: array.FromSlice([]float64{1, 2}),
		}, nil
	}
	return NewLine(transform, nil, label, map[string]interface{}{"color": "#000000"})
}

func TestStyleUpdateMergesAndNotifies(t *testing.T) {
	s := NewStyle(map[string]interface{}{"color": "red"})

	var got map[string]interface{}
	s.Updated.Subscribe(func(p interface{}) { got = p.(map[string]interface{}) })

	s.Update(map[string]interface{}{"linestyle": "dashed"})

	color, ok := s.GetString("color")
	assert.True(t, ok)
	assert.Equal(t, "red", color)
	ls, _ := s.GetString("linestyle")
	assert.Equal(t, "dashed", ls)
	assert.Equal(t, map[string]interface{}{"linestyle": "dashed"}, got)
}

func TestStyleSnapshotIsACopy(t *testing.T) {
	s := NewStyle(map[string]interface{}{"color": "red"})
	snap := s.Snapshot()
	snap["color"] = "blue"

	color, _ := s.GetString("color")
	assert.Equal(t, "red", color)
}

func TestElementListAppendRemoveByID(t *testing.T) {
	l := NewElementList()
	a := newTestLine("a")
	b := newTestLine("b")

	assert.True(t, l.Append(a))
	assert.True(t, l.Append(b))
	assert.False(t, l.Append(a))
	assert.Equal(t, 2, l.Len())

	got, ok := l.ByID(a.ID())
	require.True(t, ok)
	assert.Equal(t, "a", got.Label())

	assert.True(t, l.Remove(a.ID()))
	assert.False(t, l.Remove(a.ID()))
	_, ok = l.ByID(a.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, l.Len())
}

func TestElementListRemoveUnknownIDTolerated(t *testing.T) {
	l := NewElementList()
	assert.False(t, l.Remove(uuid.New()))
}

func TestElementListClearFiresRemovedInOrder(t *testing.T) {
	l := NewElementList()
	a := newTestLine("a")
	b := newTestLine("b")
	l.Append(a)
	l.Append(b)

	var removed []string
	l.Removed.Subscribe(func(p interface{}) { removed = append(removed, p.(Element).Label()) })

	l.Clear()

	assert.Equal(t, []string{"a", "b"}, removed)
	assert.Equal(t, 0, l.Len())
}

func TestLineDataInvokesDeferredTransform(t *testing.T) {
	calls := 0
	line := NewLine(func(ctx context.Context) (LineData, error) {
		calls++
		return LineData{X: array.FromSlice(nil), Y: array.FromSlice(nil)}, nil
	}, nil, "lazy", nil)

	assert.Equal(t, 0, calls, "transform must not run at creation")

	_, err := line.Data(context.Background())
	require.NoError(t, err)
	_, err = line.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
