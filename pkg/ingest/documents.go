// Package ingest assembles in-memory runs from acquisition document streams.
//
// An acquisition session emits four JSON document types: a start document
// opens a run, descriptor documents declare its streams and their fields,
// event documents append one point per field, and a stop document completes
// the run. The Assembler consumes those documents and maintains a run.List
// that plot models can subscribe to.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/helioworks/Spectra/pkg/run"
)

// Document type names, matched against the last NATS subject token.
const (
	DocStart      = "start"
	DocDescriptor = "descriptor"
	DocEvent      = "event"
	DocStop       = "stop"
)

var (
	// ErrUnknownDocument indicates a document name outside the four types.
	ErrUnknownDocument = errors.New("unknown document type")

	// ErrUnknownRun indicates a descriptor or stop referencing a start
	// document that was never seen.
	ErrUnknownRun = errors.New("document references unknown run")

	// ErrUnknownDescriptor indicates an event referencing a descriptor that
	// was never seen.
	ErrUnknownDescriptor = errors.New("event references unknown descriptor")
)

type descriptorDoc struct {
	UID      string                     `json:"uid"`
	RunStart string                     `json:"run_start"`
	Name     string                     `json:"name"`
	DataKeys map[string]json.RawMessage `json:"data_keys"`
}

type eventDoc struct {
	Descriptor string                 `json:"descriptor"`
	SeqNum     int                    `json:"seq_num"`
	Data       map[string]interface{} `json:"data"`
}

type stopDoc struct {
	RunStart string `json:"run_start"`
}

// streamRef ties a descriptor uid to the run and stream it declared.
type streamRef struct {
	run    *run.InMemoryRun
	stream string
}

// Assembler consumes acquisition documents and materializes them as
// InMemoryRuns on a run.List. It is not safe for concurrent use; feed it
// from a single goroutine, typically via a Dispatcher.
type Assembler struct {
	logger      *zap.Logger
	runs        *run.List
	byUID       map[string]*run.InMemoryRun
	descriptors map[string]streamRef
}

// NewAssembler creates an assembler appending runs to the given list.
func NewAssembler(runs *run.List, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		logger:      logger,
		runs:        runs,
		byUID:       make(map[string]*run.InMemoryRun),
		descriptors: make(map[string]streamRef),
	}
}

// Consume applies one document. name selects the document type; payload is
// the raw JSON document.
func (a *Assembler) Consume(name string, payload []byte) error {
	switch name {
	case DocStart:
		return a.consumeStart(payload)
	case DocDescriptor:
		return a.consumeDescriptor(payload)
	case DocEvent:
		return a.consumeEvent(payload)
	case DocStop:
		return a.consumeStop(payload)
	}
	return fmt.Errorf("%w: %q", ErrUnknownDocument, name)
}

func (a *Assembler) consumeStart(payload []byte) error {
	var start map[string]interface{}
	if err := json.Unmarshal(payload, &start); err != nil {
		return fmt.Errorf("bad start document: %w", err)
	}
	r, err := run.NewInMemoryRun(start)
	if err != nil {
		return err
	}
	uid := run.UID(r)
	if _, ok := a.byUID[uid]; ok {
		a.logger.Warn("duplicate start document ignored", zap.String("run_uid", uid))
		return nil
	}
	a.byUID[uid] = r
	a.runs.Append(r)
	a.logger.Info("run started", zap.String("run_uid", uid))
	return nil
}

func (a *Assembler) consumeDescriptor(payload []byte) error {
	var d descriptorDoc
	if err := json.Unmarshal(payload, &d); err != nil {
		return fmt.Errorf("bad descriptor document: %w", err)
	}
	r, ok := a.byUID[d.RunStart]
	if !ok {
		return fmt.Errorf("%w: descriptor %q for run %q", ErrUnknownRun, d.UID, d.RunStart)
	}

	// Upstream sources disagree about Unicode composition of field names;
	// normalize to NFC so expressions always see one spelling. Field order
	// is sorted: JSON objects carry none.
	fields := make([]string, 0, len(d.DataKeys))
	for f := range d.DataKeys {
		fields = append(fields, norm.NFC.String(f))
	}
	sort.Strings(fields)

	r.AddStream(d.Name, fields)
	a.descriptors[d.UID] = streamRef{run: r, stream: d.Name}
	a.logger.Debug("stream declared",
		zap.String("run_uid", d.RunStart),
		zap.String("stream", d.Name),
		zap.Strings("fields", fields))
	return nil
}

func (a *Assembler) consumeEvent(payload []byte) error {
	var e eventDoc
	if err := json.Unmarshal(payload, &e); err != nil {
		return fmt.Errorf("bad event document: %w", err)
	}
	ref, ok := a.descriptors[e.Descriptor]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDescriptor, e.Descriptor)
	}

	point := make(map[string]float64, len(e.Data))
	for field, v := range e.Data {
		f, ok := v.(float64)
		if !ok {
			// Non-numeric readings (strings, arrays) are not plottable
			// columns; skip them rather than failing the whole event.
			a.logger.Debug("skipping non-numeric field",
				zap.String("stream", ref.stream), zap.String("field", field))
			continue
		}
		point[norm.NFC.String(field)] = f
	}
	return ref.run.AppendData(ref.stream, point)
}

func (a *Assembler) consumeStop(payload []byte) error {
	var s stopDoc
	if err := json.Unmarshal(payload, &s); err != nil {
		return fmt.Errorf("bad stop document: %w", err)
	}
	r, ok := a.byUID[s.RunStart]
	if !ok {
		return fmt.Errorf("%w: stop for run %q", ErrUnknownRun, s.RunStart)
	}

	var stop map[string]interface{}
	if err := json.Unmarshal(payload, &stop); err != nil {
		return fmt.Errorf("bad stop document: %w", err)
	}
	r.Complete(stop)
	a.logger.Info("run completed", zap.String("run_uid", s.RunStart))
	return nil
}
