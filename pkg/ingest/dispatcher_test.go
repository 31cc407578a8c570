package ingest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherSerializesWork(t *testing.T) {
	d := NewDispatcher(16, nil)

	// The counter is unguarded: only single-goroutine execution keeps the
	// race detector quiet and the total exact.
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				require.NoError(t, d.Dispatch(func() { counter++ }))
			}
		}()
	}
	wg.Wait()
	d.Close()

	assert.Equal(t, 1000, counter)
}

func TestDispatcherPreservesSubmissionOrder(t *testing.T) {
	d := NewDispatcher(4, nil)

	var got []int
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, d.Dispatch(func() { got = append(got, i) }))
	}
	d.Close()

	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestDispatchAfterCloseFails(t *testing.T) {
	d := NewDispatcher(1, nil)
	d.Close()

	err := d.Dispatch(func() {})
	assert.ErrorIs(t, err, ErrDispatcherClosed)

	// Close is idempotent.
	d.Close()
}
