package plotspec

import (
	"github.com/google/uuid"

	"github.com/helioworks/Spectra/pkg/events"
)

// ElementList is an ordered collection of elements with add/remove
// notifications and id lookup. Removal of an element the caller does not own
// is legitimate (a user may delete a line from the view), so Remove reports
// absence instead of failing.
type ElementList struct {
	items []Element
	byID  map[uuid.UUID]Element

	// Added fires with the Element after it is appended.
	Added *events.Emitter
	// Removed fires with the Element after it is removed.
	Removed *events.Emitter
}

// NewElementList creates an empty element list.
func NewElementList() *ElementList {
	return &ElementList{
		byID:    make(map[uuid.UUID]Element),
		Added:   events.NewEmitter(),
		Removed: events.NewEmitter(),
	}
}

// Len returns the number of elements.
func (l *ElementList) Len() int { return len(l.items) }

// At returns the element at position i.
func (l *ElementList) At(i int) Element { return l.items[i] }

// ByID returns the element with the given id, if present.
func (l *ElementList) ByID(id uuid.UUID) (Element, bool) {
	e, ok := l.byID[id]
	return e, ok
}

// Append adds e to the end of the list and fires Added. Appending an element
// whose id is already present returns false.
func (l *ElementList) Append(e Element) bool {
	if e == nil {
		return false
	}
	if _, ok := l.byID[e.ID()]; ok {
		return false
	}
	l.items = append(l.items, e)
	l.byID[e.ID()] = e
	l.Added.Emit(e)
	return true
}

// Remove deletes the element with the given id and fires Removed. Removing an
// absent id returns false without firing.
func (l *ElementList) Remove(id uuid.UUID) bool {
	e, ok := l.byID[id]
	if !ok {
		return false
	}
	delete(l.byID, id)
	for i, item := range l.items {
		if item.ID() == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}
	l.Removed.Emit(e)
	return true
}

// Clear removes every element, firing Removed for each in order.
func (l *ElementList) Clear() {
	for len(l.items) > 0 {
		l.Remove(l.items[0].ID())
	}
}

// Limits is an ordered pair of axis coordinates. Start maps to the
// low-index edge of the data and End to the high-index edge; Start > End
// means the axis is displayed inverted.
type Limits struct {
	Start float64
	End   float64
}

// Axes is a container for lines and images sharing one coordinate frame.
// Limits are nil until set by a model or by the caller.
type Axes struct {
	Title   string
	XLabel  string
	YLabel  string
	XLimits *Limits
	YLimits *Limits
	Aspect  string

	Lines  *ElementList
	Images *ElementList
}

// NewAxes creates empty axes.
func NewAxes() *Axes {
	return &Axes{
		Lines:  NewElementList(),
		Images: NewElementList(),
	}
}

// Figure is a titled ordered set of axes.
type Figure struct {
	Title string
	Axes  []*Axes
}

// NewFigure creates a figure over the given axes.
func NewFigure(title string, axes ...*Axes) *Figure {
	return &Figure{Title: title, Axes: axes}
}
