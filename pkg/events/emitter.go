// Package events provides a small synchronous publish/subscribe primitive.
//
// Emitters dispatch payloads to subscribers in subscription order, on the
// caller's goroutine. There is no buffering and no drop policy: Emit returns
// only after every handler has run. This matches the single-threaded,
// callback-driven model used throughout Spectra — all side effects of a
// notification happen before the notifier regains control.
package events

import "sync"

// Handler receives an event payload. The concrete payload type is defined by
// the emitter's owner (e.g. run.StreamAdded, run.ListEvent).
type Handler func(payload interface{})

// Token identifies a subscription so it can be removed later.
// The zero Token is never issued.
type Token uint64

type subscription struct {
	token   Token
	handler Handler
	once    bool
}

// Emitter is a synchronous, order-preserving event source.
//
// Handlers may call Subscribe or Unsubscribe on the same emitter from inside
// a dispatch; the change takes effect for the next Emit, not the current one.
// A handler removed mid-dispatch by an earlier handler is still skipped.
type Emitter struct {
	mu   sync.Mutex
	next Token
	subs []subscription
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe registers a handler and returns a token for later removal.
func (e *Emitter) Subscribe(h Handler) Token {
	return e.add(h, false)
}

// Once registers a handler that is removed automatically after its first
// invocation. The returned token may still be used to cancel the
// subscription before it fires.
func (e *Emitter) Once(h Handler) Token {
	return e.add(h, true)
}

func (e *Emitter) add(h Handler, once bool) Token {
	if h == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	tok := e.next
	e.subs = append(e.subs, subscription{token: tok, handler: h, once: once})
	return tok
}

// Unsubscribe removes the subscription identified by tok. Removing an unknown
// or already-removed token is a no-op.
func (e *Emitter) Unsubscribe(tok Token) {
	if tok == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subs {
		if s.token == tok {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers payload to every current subscriber, in subscription order.
// One-shot subscriptions are removed before their handler runs, so a handler
// that re-emits cannot fire itself twice.
func (e *Emitter) Emit(payload interface{}) {
	e.mu.Lock()
	// Snapshot so handlers can mutate the subscriber list safely.
	snapshot := make([]subscription, len(e.subs))
	copy(snapshot, e.subs)
	e.mu.Unlock()

	for _, s := range snapshot {
		if !e.alive(s.token) {
			// Removed by an earlier handler in this same dispatch.
			continue
		}
		if s.once {
			e.Unsubscribe(s.token)
		}
		s.handler(payload)
	}
}

// HasSubscribers reports whether at least one subscription is registered.
func (e *Emitter) HasSubscribers() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs) > 0
}

func (e *Emitter) alive(tok Token) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.subs {
		if s.token == tok {
			return true
		}
	}
	return false
}
