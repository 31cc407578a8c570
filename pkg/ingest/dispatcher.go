package ingest

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrDispatcherClosed indicates a dispatch after Close.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Dispatcher marshals work from arbitrary goroutines onto a single loop
// goroutine, in submission order. Runs, their registries, and the plot models
// are single-threaded; transports deliver messages on their own goroutines
// and cross onto the model thread here.
type Dispatcher struct {
	logger *zap.Logger
	work   chan func()
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher and starts its loop goroutine. buffer
// bounds the queue; submitters block when it is full.
func NewDispatcher(buffer int, logger *zap.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger: logger,
		work:   make(chan func(), buffer),
		done:   make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for fn := range d.work {
		fn()
	}
}

// Dispatch enqueues fn for execution on the loop goroutine. It blocks when
// the queue is full and returns ErrDispatcherClosed after Close.
func (d *Dispatcher) Dispatch(fn func()) error {
	// The read lock is held across the send so Close cannot close the
	// channel under an in-flight submitter.
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	d.work <- fn
	return nil
}

// Close stops accepting work and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.work)
	}
	d.mu.Unlock()

	<-d.done
	d.logger.Debug("dispatcher drained")
}
