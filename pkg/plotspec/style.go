// Package plotspec describes renderable plot content independent of any
// rendering backend. Models create Line and Image elements with deferred
// transforms; a renderer walks the Figure/Axes tree, invokes the transforms
// at draw time, and reacts to list and style events.
package plotspec

import "github.com/helioworks/Spectra/pkg/events"

// Style is a mutable key/value record for element appearance (color,
// linestyle, cmap, clim, extent, ...). Owners mutate it only through Update
// so renderers can observe changes.
type Style struct {
	m map[string]interface{}

	// Updated fires with the partial map that was applied.
	Updated *events.Emitter
}

// NewStyle creates a style seeded with the given values. A nil seed is
// treated as empty.
func NewStyle(seed map[string]interface{}) *Style {
	m := make(map[string]interface{}, len(seed))
	for k, v := range seed {
		m[k] = v
	}
	return &Style{m: m, Updated: events.NewEmitter()}
}

// Update merges partial into the style and fires Updated.
func (s *Style) Update(partial map[string]interface{}) {
	for k, v := range partial {
		s.m[k] = v
	}
	s.Updated.Emit(partial)
}

// Get returns the value for key.
func (s *Style) Get(key string) (interface{}, bool) {
	v, ok := s.m[key]
	return v, ok
}

// GetString returns the value for key if it is a string.
func (s *Style) GetString(key string) (string, bool) {
	v, ok := s.m[key].(string)
	return v, ok
}

// Snapshot returns a copy of the current style values.
func (s *Style) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}
