package run

import "github.com/helioworks/Spectra/pkg/events"

// ListEvent is the payload emitted on List.Added and List.Removed.
type ListEvent struct {
	Run   Run
	Index int
}

// List is an ordered collection of runs with insertion/removal notifications.
// Insertion order is arrival order. A run appears at most once; appending a
// run already present is a no-op.
//
// List is not safe for concurrent use. All mutation must happen on the single
// controller goroutine (see ingest.Dispatcher).
type List struct {
	items []Run

	// Added fires with a ListEvent after a run is appended.
	Added *events.Emitter
	// Removed fires with a ListEvent after a run is removed. The Index is
	// the position the run occupied before removal.
	Removed *events.Emitter
}

// NewList creates an empty run list.
func NewList() *List {
	return &List{
		Added:   events.NewEmitter(),
		Removed: events.NewEmitter(),
	}
}

// Len returns the number of runs.
func (l *List) Len() int { return len(l.items) }

// At returns the run at position i.
func (l *List) At(i int) Run { return l.items[i] }

// Contains reports whether r is present, compared by uid.
func (l *List) Contains(r Run) bool {
	return l.indexOf(r) >= 0
}

// Append adds r to the end of the list and fires Added. Appending a run that
// is already present returns false without firing.
func (l *List) Append(r Run) bool {
	if r == nil || l.indexOf(r) >= 0 {
		return false
	}
	l.items = append(l.items, r)
	l.Added.Emit(ListEvent{Run: r, Index: len(l.items) - 1})
	return true
}

// Remove deletes r from the list and fires Removed. Removing an absent run
// returns false without firing.
func (l *List) Remove(r Run) bool {
	i := l.indexOf(r)
	if i < 0 {
		return false
	}
	l.Pop(i)
	return true
}

// Pop removes and returns the run at position i, firing Removed.
func (l *List) Pop(i int) Run {
	r := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.Removed.Emit(ListEvent{Run: r, Index: i})
	return r
}

func (l *List) indexOf(r Run) int {
	uid := UID(r)
	for i, item := range l.items {
		if item == r || (uid != "" && UID(item) == uid) {
			return i
		}
	}
	return -1
}
