package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemoryRunRequiresUID(t *testing.T) {
	_, err := NewInMemoryRun(map[string]interface{}{})
	assert.Error(t, err)

	r, err := NewInMemoryRun(map[string]interface{}{"uid": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", UID(r))
}

func TestAddStreamFiresNewStreamOnce(t *testing.T) {
	r := newTestRun(t, "a")
	var got []string
	r.Events().NewStream.Subscribe(func(p interface{}) {
		got = append(got, p.(StreamAdded).Name)
	})

	r.AddStream("primary", []string{"det", "motor"})
	r.AddStream("primary", []string{"det"})
	r.AddStream("baseline", []string{"temp"})

	assert.Equal(t, []string{"primary", "baseline"}, got)
	assert.Equal(t, []string{"primary", "baseline"}, r.Streams())
}

func TestAppendDataGrowsColumns(t *testing.T) {
	r := newTestRun(t, "a")
	r.AddStream("primary", []string{"det", "motor"})

	require.NoError(t, r.AppendData("primary", map[string]float64{"det": 1, "motor": 10}))
	require.NoError(t, r.AppendData("primary", map[string]float64{"det": 2, "motor": 20}))

	s, ok := r.Stream("primary")
	require.True(t, ok)
	col, ok := s.Column("det")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, col.Data())
}

func TestAppendDataValidatesSchema(t *testing.T) {
	r := newTestRun(t, "a")
	r.AddStream("primary", []string{"det"})

	assert.Error(t, r.AppendData("ghost", map[string]float64{"det": 1}))
	assert.Error(t, r.AppendData("primary", map[string]float64{"unknown": 1}))
}

func TestCompleteFiresOnceAndSetsStop(t *testing.T) {
	r := newTestRun(t, "a")
	assert.True(t, IsLiveAndNotCompleted(r))

	count := 0
	r.Events().Completed.Subscribe(func(interface{}) { count++ })

	r.Complete(map[string]interface{}{"exit_status": "success"})
	r.Complete(nil)

	assert.Equal(t, 1, count)
	assert.False(t, IsLiveAndNotCompleted(r))
	assert.Equal(t, "success", r.Metadata().Stop["exit_status"])
}

func TestHasStreams(t *testing.T) {
	r := newTestRun(t, "a")
	r.AddStream("primary", nil)

	assert.True(t, HasStreams(r, []string{"primary"}))
	assert.False(t, HasStreams(r, []string{"primary", "baseline"}))
	assert.True(t, HasStreams(r, nil))
}

func TestStartAccessors(t *testing.T) {
	r, err := NewInMemoryRun(map[string]interface{}{
		"uid":     "a",
		"plan":    "grid_scan",
		"motors":  []interface{}{"y", "x"},
		"shape":   []interface{}{float64(2), float64(3)},
		"snaking": []interface{}{false, true},
	})
	require.NoError(t, err)

	plan, ok := StartString(r, "plan")
	assert.True(t, ok)
	assert.Equal(t, "grid_scan", plan)

	motors, ok := StartStrings(r, "motors")
	assert.True(t, ok)
	assert.Equal(t, []string{"y", "x"}, motors)

	shape, ok := StartInts(r, "shape")
	assert.True(t, ok)
	assert.Equal(t, []int{2, 3}, shape)

	snaking, ok := StartBools(r, "snaking")
	assert.True(t, ok)
	assert.Equal(t, []bool{false, true}, snaking)

	_, ok = StartStrings(r, "missing")
	assert.False(t, ok)
}
