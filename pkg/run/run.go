// Package run defines the contract for experiment runs consumed by the plot
// models, along with an ordered evented collection of runs and an in-memory
// implementation assembled from acquisition documents.
//
// A Run is a handle to one experiment's data: start/stop metadata plus a set
// of named streams that arrive independently while the run is live. Models
// hold non-owning references and key their bookkeeping by the run's uid.
package run

import (
	"github.com/helioworks/Spectra/pkg/array"
	"github.com/helioworks/Spectra/pkg/events"
)

// Run is the read side of one experiment's acquired data.
type Run interface {
	// Metadata returns the run's start and stop documents. Start always
	// carries a "uid" entry; Stop is nil while the run is still acquiring.
	Metadata() Metadata

	// Streams returns the names of the streams currently available.
	Streams() []string

	// Stream returns the named stream, if it has arrived yet.
	Stream(name string) (Stream, bool)

	// Events returns the run's notification channels. The same value is
	// returned on every call so handlers can be unsubscribed by token.
	Events() *Events
}

// Stream is a named, independently-arriving subset of a run's data.
type Stream interface {
	// Name returns the stream name (e.g. "primary", "baseline").
	Name() string

	// Fields returns the field names available in this stream.
	Fields() []string

	// Column returns the accumulated data for one field. For live runs the
	// array grows between calls; callers must not retain it across renders.
	Column(field string) (*array.NDArray, bool)
}

// Metadata holds a run's start and stop documents as loosely-typed maps,
// mirroring the document model of the acquisition system.
type Metadata struct {
	Start map[string]interface{}
	Stop  map[string]interface{}
}

// Events groups a run's notification channels.
type Events struct {
	// NewStream fires with a StreamAdded payload when a stream first
	// becomes available.
	NewStream *events.Emitter

	// Completed fires with a Completed payload when the run finishes.
	Completed *events.Emitter
}

// NewEvents creates an empty event set.
func NewEvents() *Events {
	return &Events{
		NewStream: events.NewEmitter(),
		Completed: events.NewEmitter(),
	}
}

// StreamAdded is the payload emitted on Events.NewStream.
type StreamAdded struct {
	Run  Run
	Name string
}

// Completed is the payload emitted on Events.Completed.
type Completed struct {
	Run Run
}

// UID returns the run's stable unique id from its start document, or "" if
// the metadata is malformed.
func UID(r Run) string {
	if r == nil {
		return ""
	}
	uid, _ := r.Metadata().Start["uid"].(string)
	return uid
}

// IsLiveAndNotCompleted reports whether the run is still acquiring: it has no
// stop document yet.
func IsLiveAndNotCompleted(r Run) bool {
	return r != nil && r.Metadata().Stop == nil
}

// HasStreams reports whether every name in needed is currently available on r.
func HasStreams(r Run, needed []string) bool {
	available := make(map[string]struct{})
	for _, name := range r.Streams() {
		available[name] = struct{}{}
	}
	for _, name := range needed {
		if _, ok := available[name]; !ok {
			return false
		}
	}
	return true
}

// StartString returns a string entry from the start document.
func StartString(r Run, key string) (string, bool) {
	v, ok := r.Metadata().Start[key].(string)
	return v, ok
}

// StartStrings returns a list-of-strings entry from the start document,
// tolerating both []string and []interface{} representations (the latter is
// what JSON decoding produces).
func StartStrings(r Run, key string) ([]string, bool) {
	switch v := r.Metadata().Start[key].(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// StartInts returns a list-of-ints entry from the start document, accepting
// []int, []float64 and []interface{} of numbers.
func StartInts(r Run, key string) ([]int, bool) {
	switch v := r.Metadata().Start[key].(type) {
	case []int:
		return v, true
	case []float64:
		out := make([]int, len(v))
		for i, f := range v {
			out[i] = int(f)
		}
		return out, true
	case []interface{}:
		out := make([]int, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// StartBools returns a list-of-bools entry from the start document.
func StartBools(r Run, key string) ([]bool, bool) {
	switch v := r.Metadata().Start[key].(type) {
	case []bool:
		return v, true
	case []interface{}:
		out := make([]bool, 0, len(v))
		for _, item := range v {
			b, ok := item.(bool)
			if !ok {
				return nil, false
			}
			out = append(out, b)
		}
		return out, true
	}
	return nil, false
}
