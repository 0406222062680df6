package pvts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/protoview/protoview/internal/model"
)

// ErrKindMismatch is returned when an event's protocol block does not match
// its kind.
var ErrKindMismatch = errors.New("pvts: protocol block does not match event kind")

type startRecord struct {
	Version string      `json:"pvts"`
	Type    string      `json:"type"`
	TraceID string      `json:"trace_id"`
	TS      time.Time   `json:"ts"`
	Capture CaptureInfo `json:"capture"`
	Tool    ToolInfo    `json:"tool"`
}

type eventRecord struct {
	Version string `json:"pvts"`
	Type    string `json:"type"`
	TraceID string `json:"trace_id"`
	*model.Event
}

type endRecord struct {
	Version string    `json:"pvts"`
	Type    string    `json:"type"`
	TraceID string    `json:"trace_id"`
	TS      time.Time `json:"ts"`
	Stats   Stats     `json:"stats"`
}

// Stats summarizes an emitted trace.
type Stats struct {
	Events int64 `json:"events"`
}

// Writer emits PVTS records to a sink. Safe for use from one goroutine per
// the engine's single-threaded contract; the mutex only guards against a
// misuse that would interleave lines.
type Writer struct {
	mu      sync.Mutex
	enc     *json.Encoder
	traceID string
	events  int64
}

// NewWriter creates a Writer emitting records tagged with traceID.
func NewWriter(w io.Writer, traceID string) *Writer {
	enc := json.NewEncoder(w)
	// Payload data is read by humans; keep < and > literal.
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc, traceID: traceID}
}

// TraceID returns the trace id carried on every record.
func (w *Writer) TraceID() string { return w.traceID }

// Events returns the number of event records written so far.
func (w *Writer) Events() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events
}

// WriteTraceStart emits the opening record.
func (w *Writer) WriteTraceStart(capture CaptureInfo, toolVersion string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(startRecord{
		Version: Version,
		Type:    "trace_start",
		TraceID: w.traceID,
		TS:      time.Now().UTC(),
		Capture: capture,
		Tool:    ToolInfo{Name: ToolName, Version: toolVersion},
	})
}

// Emit writes one event record. It validates that the populated protocol
// block matches the event kind, handling every kind exhaustively.
func (w *Writer) Emit(ev *model.Event) error {
	if err := validate(ev); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(eventRecord{
		Version: Version,
		Type:    "event",
		TraceID: w.traceID,
		Event:   ev,
	}); err != nil {
		return err
	}
	w.events++
	return nil
}

// WriteTraceEnd emits the closing record carrying the final event count.
func (w *Writer) WriteTraceEnd() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(endRecord{
		Version: Version,
		Type:    "trace_end",
		TraceID: w.traceID,
		TS:      time.Now().UTC(),
		Stats:   Stats{Events: w.events},
	})
}

func validate(ev *model.Event) error {
	var want bool
	switch ev.Kind {
	case model.KindHTTPRequest, model.KindHTTPResponse:
		want = ev.Proto.HTTP != nil && ev.Proto.SSE == nil && ev.Proto.Multipart == nil
	case model.KindSSEEvent:
		want = ev.Proto.SSE != nil && ev.Proto.HTTP == nil && ev.Proto.Multipart == nil
	case model.KindMultipartPart:
		want = ev.Proto.Multipart != nil && ev.Proto.HTTP == nil && ev.Proto.SSE == nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrKindMismatch, ev.Kind)
	}
	if !want {
		return fmt.Errorf("%w: %s", ErrKindMismatch, ev.Kind)
	}
	return nil
}
