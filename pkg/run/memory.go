package run

import (
	"fmt"

	"github.com/helioworks/Spectra/pkg/array"
)

// InMemoryRun is a Run assembled incrementally from acquisition documents.
// The ingest layer creates one per start document, grows its streams as
// descriptor and event documents arrive, and completes it on the stop
// document. It also serves as the standard test double for the models.
//
// InMemoryRun is not safe for concurrent use; the ingest dispatcher
// serializes all mutation onto one goroutine.
type InMemoryRun struct {
	start   map[string]interface{}
	stop    map[string]interface{}
	streams map[string]*MemoryStream
	order   []string
	events  *Events
}

// NewInMemoryRun creates a live run from a start document. The document must
// contain a non-empty "uid" entry.
func NewInMemoryRun(start map[string]interface{}) (*InMemoryRun, error) {
	uid, _ := start["uid"].(string)
	if uid == "" {
		return nil, fmt.Errorf("start document has no uid")
	}
	return &InMemoryRun{
		start:   start,
		streams: make(map[string]*MemoryStream),
		events:  NewEvents(),
	}, nil
}

// Metadata implements Run.
func (r *InMemoryRun) Metadata() Metadata {
	return Metadata{Start: r.start, Stop: r.stop}
}

// Streams implements Run. Names are returned in arrival order.
func (r *InMemoryRun) Streams() []string {
	return append([]string(nil), r.order...)
}

// Stream implements Run.
func (r *InMemoryRun) Stream(name string) (Stream, bool) {
	s, ok := r.streams[name]
	return s, ok
}

// Events implements Run.
func (r *InMemoryRun) Events() *Events { return r.events }

// AddStream declares a new stream with the given field names and fires
// NewStream. Declaring a stream that already exists returns the existing one
// without firing again.
func (r *InMemoryRun) AddStream(name string, fields []string) *MemoryStream {
	if s, ok := r.streams[name]; ok {
		return s
	}
	s := &MemoryStream{
		name:    name,
		columns: make(map[string][]float64, len(fields)),
		fields:  append([]string(nil), fields...),
	}
	for _, f := range fields {
		s.columns[f] = nil
	}
	r.streams[name] = s
	r.order = append(r.order, name)
	r.events.NewStream.Emit(StreamAdded{Run: r, Name: name})
	return s
}

// AppendData appends one point per field to the named stream. Unknown streams
// and unknown fields are an error: the descriptor defines the schema.
func (r *InMemoryRun) AppendData(stream string, point map[string]float64) error {
	s, ok := r.streams[stream]
	if !ok {
		return fmt.Errorf("unknown stream %q", stream)
	}
	for field, v := range point {
		if _, ok := s.columns[field]; !ok {
			return fmt.Errorf("unknown field %q in stream %q", field, stream)
		}
		s.columns[field] = append(s.columns[field], v)
	}
	return nil
}

// Complete records the stop document and fires Completed. Completing an
// already-completed run is a no-op.
func (r *InMemoryRun) Complete(stop map[string]interface{}) {
	if r.stop != nil {
		return
	}
	if stop == nil {
		stop = map[string]interface{}{}
	}
	r.stop = stop
	r.events.Completed.Emit(Completed{Run: r})
}

// MemoryStream is the Stream implementation backing InMemoryRun.
type MemoryStream struct {
	name    string
	fields  []string
	columns map[string][]float64
}

// Name implements Stream.
func (s *MemoryStream) Name() string { return s.name }

// Fields implements Stream. Order matches the descriptor document.
func (s *MemoryStream) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Column implements Stream. The returned array shares storage with the
// stream's growing buffer.
func (s *MemoryStream) Column(field string) (*array.NDArray, bool) {
	col, ok := s.columns[field]
	if !ok {
		return nil, false
	}
	return array.FromSlice(col), true
}

// SetColumn replaces a field's data wholesale. Used by tests and by callers
// that load complete runs rather than streaming points.
func (s *MemoryStream) SetColumn(field string, values []float64) {
	if _, ok := s.columns[field]; !ok {
		s.fields = append(s.fields, field)
	}
	s.columns[field] = values
}
