// Package correlate pairs dissected HTTP frames into a linked event trace.
//
// The engine is a single-threaded state machine: it consumes one decoded row
// at a time, pairs responses to requests per TCP stream in strict FIFO order
// (HTTP/1.x pipelining semantics), derives SSE and multipart sub-events from
// response bodies, and emits every event through an Emitter. It owns the
// event-id and sequence counters and the pending-request queues exclusively;
// there is no package-level mutable state.
package correlate

import (
	"fmt"
	"strings"

	"github.com/protoview/protoview/internal/model"
	"github.com/protoview/protoview/pkg/classify"
	"github.com/protoview/protoview/pkg/dissect"
	"github.com/protoview/protoview/pkg/multipart"
	"github.com/protoview/protoview/pkg/sse"
)

// Emitter receives events in emission order. The engine assigns sequence
// numbers immediately before calling Emit, so a failed Emit aborts the run
// rather than leaving a gap.
type Emitter interface {
	Emit(ev *model.Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev *model.Event) error

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev *model.Event) error { return f(ev) }

// Config holds engine options.
type Config struct {
	// DisplayBinaryPayload embeds binary-classified bodies verbatim
	// instead of redacting them to a placeholder.
	DisplayBinaryPayload bool
}

// pendingRequest is an unmatched request awaiting its response.
type pendingRequest struct {
	requestID string
	rootID    string
}

// Engine correlates rows into events.
type Engine struct {
	cfg     Config
	emitter Emitter

	nextID  int
	nextSeq int64

	// pending holds one FIFO queue of unmatched requests per usable
	// stream id. Rows without a usable id never touch these queues.
	pending map[int][]pendingRequest
}

// New creates an engine emitting through emitter.
func New(cfg Config, emitter Emitter) *Engine {
	return &Engine{
		cfg:     cfg,
		emitter: emitter,
		nextID:  1,
		pending: make(map[int][]pendingRequest),
	}
}

// PendingRequests returns the number of requests still awaiting a response.
// Unmatched requests are never expired; they simply remain pending.
func (e *Engine) PendingRequests() int {
	n := 0
	for _, q := range e.pending {
		n += len(q)
	}
	return n
}

// ProcessRow handles one decoded frame. Frames that are neither request nor
// response are skipped silently.
func (e *Engine) ProcessRow(rec *dissect.Record) error {
	switch {
	case rec.IsRequest():
		return e.processRequest(rec)
	case rec.IsResponse():
		return e.processResponse(rec)
	}
	return nil
}

func (e *Engine) processRequest(rec *dissect.Record) error {
	id := e.newID()

	headers := parseHeaderBlock(rec.ReqLines)
	// Some captures omit Host from the extracted request lines even though
	// the dissector supplied it as its own field.
	if rec.Host != "" && !hasHeader(headers, "Host") {
		headers = append([]model.Header{{Name: "Host", Value: rec.Host}}, headers...)
	}

	ev := &model.Event{
		ID:      id,
		TS:      rec.Time,
		Kind:    model.KindHTTPRequest,
		Summary: strings.TrimSpace(rec.Method + " " + rec.URI),
		Conn:    connection(rec),
		Src:     endpoint(rec.SrcHost, rec.SrcPort),
		Dst:     endpoint(rec.DstHost, rec.DstPort),
		Proto: model.Proto{
			HTTP: &model.HTTPInfo{
				Version: defaultStr(rec.ReqVersion, "1.1"),
				Headers: headers,
				Method:  rec.Method,
				Target:  defaultStr(rec.URI, "/"),
			},
		},
	}

	if err := e.emit(ev); err != nil {
		return err
	}

	if rec.StreamOK {
		e.pending[rec.Stream] = append(e.pending[rec.Stream], pendingRequest{requestID: id, rootID: id})
	}
	return nil
}

func (e *Engine) processResponse(rec *dissect.Record) error {
	id := e.newID()

	headers := parseHeaderBlock(rec.RespLines)

	var inResponseTo, root string
	if rec.StreamOK {
		if q := e.pending[rec.Stream]; len(q) > 0 {
			pr := q[0]
			e.pending[rec.Stream] = q[1:]
			inResponseTo = pr.requestID
			root = pr.rootID
		}
	}

	ctNorm := classify.Normalize(rec.ContentType)
	kind := classify.Classify(rec.ContentType)
	redacted := classify.Redact(kind, e.cfg.DisplayBinaryPayload)

	payload := &model.Payload{
		Mime:      strings.TrimSpace(rec.ContentType),
		Encoding:  encoding(rec.ContentEncoding),
		SizeBytes: rec.ContentLength,
	}
	if rec.Body != "" {
		if redacted {
			payload.Data = classify.BinaryPlaceholder
			payload.Truncated = true
		} else {
			payload.Data = rec.Body
		}
	}

	status := rec.Status
	reason := rec.RespPhrase

	ev := &model.Event{
		ID:      id,
		TS:      rec.Time,
		Kind:    model.KindHTTPResponse,
		Summary: strings.TrimSpace(rec.RespCode + " " + ctNorm),
		Conn:    connection(rec),
		Src:     endpoint(rec.SrcHost, rec.SrcPort),
		Dst:     endpoint(rec.DstHost, rec.DstPort),
		Proto: model.Proto{
			HTTP: &model.HTTPInfo{
				Version: defaultStr(rec.RespVersion, "1.1"),
				Headers: headers,
				Status:  &status,
				Reason:  &reason,
			},
		},
		Payload: payload,
	}
	if inResponseTo != "" || root != "" {
		ev.Links = &model.Links{InResponseTo: inResponseTo, Root: root}
	}

	if err := e.emit(ev); err != nil {
		return err
	}

	if ctNorm == classify.EventStream && rec.Body != "" && !redacted {
		if err := e.emitSSEChildren(rec, id, root); err != nil {
			return err
		}
	}

	if strings.HasPrefix(ctNorm, "multipart/") && rec.Body != "" {
		if boundary := multipart.ExtractBoundary(rec.ContentType); boundary != "" {
			if err := e.emitMultipartChildren(rec, id, root, boundary); err != nil {
				return err
			}
		}
		// No boundary token: the response event stands alone.
	}

	return nil
}

func (e *Engine) emitSSEChildren(rec *dissect.Record, parentID, root string) error {
	for _, s := range sse.Extract(rec.Body) {
		name := s.Event
		if name == "" {
			name = "message"
		}

		ev := &model.Event{
			ID:      e.newID(),
			TS:      rec.Time, // no finer-grained time is observable
			Kind:    model.KindSSEEvent,
			Summary: "SSE " + name,
			Conn:    childConnection(rec),
			Src:     endpoint(rec.SrcHost, rec.SrcPort),
			Dst:     endpoint(rec.DstHost, rec.DstPort),
			Links:   &model.Links{Parent: parentID, Root: root},
			Proto: model.Proto{
				SSE: &model.SSEInfo{Event: s.Event, ID: s.ID, RetryMS: s.RetryMS},
			},
			Payload: &model.Payload{
				Mime:     classify.EventStream,
				Encoding: "identity",
				Data:     s.Data,
			},
		}
		if err := e.emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) emitMultipartChildren(rec *dissect.Record, parentID, root, boundary string) error {
	for idx, part := range multipart.Split(rec.Body, boundary) {
		partCT := part.ContentType()
		partKind := classify.Classify(partCT)

		size := int64(len(part.Body))
		payload := &model.Payload{
			Mime:      strings.TrimSpace(partCT),
			Encoding:  "identity",
			SizeBytes: &size,
		}
		if part.Body != "" {
			if classify.Redact(partKind, e.cfg.DisplayBinaryPayload) {
				payload.Data = classify.BinaryPlaceholder
				payload.Truncated = true
			} else {
				payload.Data = part.Body
			}
		}

		ev := &model.Event{
			ID:      e.newID(),
			TS:      rec.Time,
			Kind:    model.KindMultipartPart,
			Summary: strings.TrimSpace(fmt.Sprintf("part[%d] %s", idx, classify.Normalize(partCT))),
			Conn:    childConnection(rec),
			Src:     endpoint(rec.SrcHost, rec.SrcPort),
			Dst:     endpoint(rec.DstHost, rec.DstPort),
			Links:   &model.Links{Parent: parentID, Root: root},
			Proto: model.Proto{
				Multipart: &model.MultipartInfo{
					Boundary:    boundary,
					PartIndex:   idx,
					PartHeaders: part.Headers,
				},
			},
			Payload: payload,
		}
		if err := e.emit(ev); err != nil {
			return err
		}
	}
	return nil
}

// emit assigns the sequence number and hands the event to the emitter.
// Sequences are assigned exactly once per event in write order, so a
// response always sequences below its own sub-events.
func (e *Engine) emit(ev *model.Event) error {
	ev.Seq = e.nextSeq
	e.nextSeq++
	return e.emitter.Emit(ev)
}

func (e *Engine) newID() string {
	id := fmt.Sprintf("m%06d", e.nextID)
	e.nextID++
	return id
}

func connection(rec *dissect.Record) model.Connection {
	return model.Connection{
		Transport: "tcp",
		Stream:    displayStream(rec),
		FiveTuple: &model.FiveTuple{
			Src: endpoint(rec.SrcHost, rec.SrcPort),
			Dst: endpoint(rec.DstHost, rec.DstPort),
		},
	}
}

// childConnection omits the five-tuple; sub-events inherit their parent's
// endpoints.
func childConnection(rec *dissect.Record) model.Connection {
	return model.Connection{Transport: "tcp", Stream: displayStream(rec)}
}

func displayStream(rec *dissect.Record) int {
	if rec.StreamOK {
		return rec.Stream
	}
	return 0
}

func endpoint(host string, port int) model.Endpoint {
	return model.Endpoint{Host: host, Port: port}
}

func encoding(raw string) string {
	if raw == "" {
		return "identity"
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
