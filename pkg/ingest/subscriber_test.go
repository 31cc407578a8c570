package ingest

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioworks/Spectra/pkg/run"
)

func TestNewSubscriberValidation(t *testing.T) {
	a := NewAssembler(run.NewList(), nil)
	d := NewDispatcher(1, nil)
	defer d.Close()
	conn := new(nats.Conn)

	_, err := NewSubscriber(SubscriberConfig{Assembler: a, Dispatcher: d})
	assert.ErrorIs(t, err, ErrNoConn)

	_, err = NewSubscriber(SubscriberConfig{Conn: conn, Dispatcher: d})
	assert.ErrorIs(t, err, ErrNoAssembler)

	_, err = NewSubscriber(SubscriberConfig{Conn: conn, Assembler: a})
	assert.ErrorIs(t, err, ErrNoDispatcher)

	s, err := NewSubscriber(SubscriberConfig{Conn: conn, Assembler: a, Dispatcher: d})
	require.NoError(t, err)
	assert.Equal(t, "documents", s.prefix)

	// Stop before Start is a no-op.
	assert.NoError(t, s.Stop())
}

func TestSubscriberRoutesMessagesToAssembler(t *testing.T) {
	list := run.NewList()
	a := NewAssembler(list, nil)
	d := NewDispatcher(16, nil)

	s, err := NewSubscriber(SubscriberConfig{
		Conn:       new(nats.Conn),
		Assembler:  a,
		Dispatcher: d,
	})
	require.NoError(t, err)

	// Deliver documents the way the NATS client would, with the document
	// type as the last subject token.
	s.handle(&nats.Msg{Subject: "documents.start", Data: []byte(`{"uid": "run-1", "scan_id": 5}`)})
	s.handle(&nats.Msg{Subject: "documents.descriptor", Data: []byte(`{
		"uid": "desc-1", "run_start": "run-1", "name": "primary",
		"data_keys": {"det": {}}
	}`)})
	s.handle(&nats.Msg{Subject: "documents.event", Data: []byte(`{
		"descriptor": "desc-1", "data": {"det": 5.5}
	}`)})
	s.handle(&nats.Msg{Subject: "documents.stop", Data: []byte(`{"uid": "stop-1", "run_start": "run-1"}`)})

	// An unknown document type is logged and skipped, never fatal.
	s.handle(&nats.Msg{Subject: "documents.flyer", Data: []byte(`{}`)})

	// Draining the dispatcher guarantees every document was consumed.
	d.Close()

	require.Equal(t, 1, list.Len())
	r := list.At(0)
	assert.Equal(t, "run-1", run.UID(r))
	assert.False(t, run.IsLiveAndNotCompleted(r))
	stream, ok := r.Stream("primary")
	require.True(t, ok)
	col, ok := stream.Column("det")
	require.True(t, ok)
	assert.Equal(t, []float64{5.5}, col.Data())
}

func TestSubscriberDropsMessagesAfterDispatcherClose(t *testing.T) {
	list := run.NewList()
	a := NewAssembler(list, nil)
	d := NewDispatcher(1, nil)
	d.Close()

	s, err := NewSubscriber(SubscriberConfig{
		Conn:       new(nats.Conn),
		Assembler:  a,
		Dispatcher: d,
	})
	require.NoError(t, err)

	s.handle(&nats.Msg{Subject: "documents.start", Data: []byte(`{"uid": "late"}`)})

	assert.Equal(t, 0, list.Len())
}
