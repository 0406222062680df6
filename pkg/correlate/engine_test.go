package correlate

import (
	"testing"
	"time"

	"github.com/protoview/protoview/internal/model"
	"github.com/protoview/protoview/pkg/classify"
	"github.com/protoview/protoview/pkg/dissect"
)

// collector records emitted events in order.
type collector struct {
	events []*model.Event
}

func (c *collector) Emit(ev *model.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func newTestEngine(displayBinary bool) (*Engine, *collector) {
	c := &collector{}
	return New(Config{DisplayBinaryPayload: displayBinary}, c), c
}

func request(stream int, method, uri string) *dissect.Record {
	return &dissect.Record{
		Time:     time.Unix(1700000000, 0).UTC(),
		Stream:   stream,
		StreamOK: true,
		SrcHost:  "10.0.0.1", SrcPort: 50000,
		DstHost: "10.0.0.2", DstPort: 8080,
		Method: method, URI: uri, ReqVersion: "HTTP/1.1",
	}
}

func response(stream int, code, contentType, body string) *dissect.Record {
	return &dissect.Record{
		Time:     time.Unix(1700000001, 0).UTC(),
		Stream:   stream,
		StreamOK: true,
		SrcHost:  "10.0.0.2", SrcPort: 8080,
		DstHost: "10.0.0.1", DstPort: 50000,
		RespCode: code, Status: 200, RespPhrase: "OK", RespVersion: "HTTP/1.1",
		ContentType: contentType, Body: body,
	}
}

func process(t *testing.T, e *Engine, recs ...*dissect.Record) {
	t.Helper()
	for _, r := range recs {
		if err := e.ProcessRow(r); err != nil {
			t.Fatalf("ProcessRow: %v", err)
		}
	}
}

func TestEngine_FIFOPairing(t *testing.T) {
	e, c := newTestEngine(false)
	process(t, e,
		request(7, "GET", "/a"),
		request(7, "GET", "/b"),
		response(7, "200", "text/plain", "A"),
		response(7, "200", "text/plain", "B"),
	)

	if len(c.events) != 4 {
		t.Fatalf("got %d events, want 4", len(c.events))
	}
	r1, r2 := c.events[2], c.events[3]
	if r1.Links == nil || r1.Links.InResponseTo != "m000001" {
		t.Errorf("first response linked to %+v, want m000001", r1.Links)
	}
	if r2.Links == nil || r2.Links.InResponseTo != "m000002" {
		t.Errorf("second response linked to %+v, want m000002", r2.Links)
	}
	if r1.Links.Root != "m000001" || r2.Links.Root != "m000002" {
		t.Errorf("roots = %q, %q", r1.Links.Root, r2.Links.Root)
	}
	if e.PendingRequests() != 0 {
		t.Errorf("PendingRequests = %d, want 0", e.PendingRequests())
	}
}

func TestEngine_StreamsIsolated(t *testing.T) {
	e, c := newTestEngine(false)
	process(t, e,
		request(1, "GET", "/one"),
		request(2, "GET", "/two"),
		response(2, "200", "text/plain", ""),
	)

	resp := c.events[2]
	if resp.Links == nil || resp.Links.InResponseTo != "m000002" {
		t.Errorf("response paired to %+v, want the stream-2 request m000002", resp.Links)
	}
	if e.PendingRequests() != 1 {
		t.Errorf("PendingRequests = %d, want 1 (stream 1 still open)", e.PendingRequests())
	}
}

func TestEngine_UnmatchedResponseHasNoLinks(t *testing.T) {
	e, c := newTestEngine(false)
	process(t, e, response(9, "502", "text/html", "<html>bad gateway</html>"))

	if len(c.events) != 1 {
		t.Fatalf("got %d events, want 1", len(c.events))
	}
	if c.events[0].Links != nil {
		t.Errorf("unmatched response carries links: %+v", c.events[0].Links)
	}
}

func TestEngine_UnusableStreamNeverPairs(t *testing.T) {
	req := request(0, "GET", "/x")
	req.StreamOK = false
	resp := response(0, "200", "text/plain", "hi")
	resp.StreamOK = false

	e, c := newTestEngine(false)
	process(t, e, req, resp)

	if len(c.events) != 2 {
		t.Fatalf("got %d events, want 2", len(c.events))
	}
	if c.events[1].Links != nil {
		t.Errorf("response on unusable stream paired: %+v", c.events[1].Links)
	}
	if e.PendingRequests() != 0 {
		t.Errorf("PendingRequests = %d, want 0 (unusable streams never enqueue)", e.PendingRequests())
	}
	for _, ev := range c.events {
		if ev.Conn.Stream != 0 {
			t.Errorf("display stream = %d, want 0", ev.Conn.Stream)
		}
	}
}

func TestEngine_SequencesGapless(t *testing.T) {
	e, c := newTestEngine(false)
	process(t, e,
		request(1, "GET", "/stream"),
		response(1, "200", "text/event-stream", "data: a\n\ndata: b\n\n"),
	)

	// request, response, two SSE children
	if len(c.events) != 4 {
		t.Fatalf("got %d events, want 4", len(c.events))
	}
	for i, ev := range c.events {
		if ev.Seq != int64(i) {
			t.Errorf("event %d has seq %d, want %d", i, ev.Seq, i)
		}
	}
	if c.events[3].ID != "m000004" {
		t.Errorf("last id = %q, want m000004", c.events[3].ID)
	}
}

func TestEngine_SSEChildren(t *testing.T) {
	e, c := newTestEngine(false)
	process(t, e,
		request(1, "GET", "/events"),
		response(1, "200", "text/event-stream", "event: tick\nid: 7\ndata: hello\n\ndata: plain\n\n"),
	)

	if len(c.events) != 4 {
		t.Fatalf("got %d events, want 4", len(c.events))
	}
	respID := c.events[1].ID

	first := c.events[2]
	if first.Kind != model.KindSSEEvent {
		t.Fatalf("kind = %v, want sse_event", first.Kind)
	}
	if first.Links == nil || first.Links.Parent != respID || first.Links.Root != "m000001" {
		t.Errorf("links = %+v, want parent %s root m000001", first.Links, respID)
	}
	if first.Summary != "SSE tick" {
		t.Errorf("summary = %q, want SSE tick", first.Summary)
	}
	if first.Proto.SSE == nil || first.Proto.SSE.ID != "7" {
		t.Errorf("sse info = %+v", first.Proto.SSE)
	}
	if first.Conn.FiveTuple != nil {
		t.Error("sub-event should not repeat the five-tuple")
	}

	second := c.events[3]
	if second.Summary != "SSE message" {
		t.Errorf("unnamed event summary = %q, want SSE message", second.Summary)
	}
	if second.Payload == nil || second.Payload.Data != "plain" {
		t.Errorf("payload = %+v", second.Payload)
	}
}

func TestEngine_MultipartChildren(t *testing.T) {
	body := "--b\nContent-Type: text/plain\n\nhello\n--b\nContent-Type: application/octet-stream\n\n\x00\x01\n--b--"
	e, c := newTestEngine(false)
	process(t, e,
		request(1, "POST", "/upload"),
		response(1, "200", `multipart/mixed; boundary=b`, body),
	)

	if len(c.events) != 4 {
		t.Fatalf("got %d events, want 4", len(c.events))
	}

	p0, p1 := c.events[2], c.events[3]
	if p0.Kind != model.KindMultipartPart || p1.Kind != model.KindMultipartPart {
		t.Fatalf("kinds = %v, %v", p0.Kind, p1.Kind)
	}
	if p0.Proto.Multipart.PartIndex != 0 || p1.Proto.Multipart.PartIndex != 1 {
		t.Errorf("part indexes = %d, %d", p0.Proto.Multipart.PartIndex, p1.Proto.Multipart.PartIndex)
	}
	if p0.Proto.Multipart.Boundary != "b" {
		t.Errorf("boundary = %q", p0.Proto.Multipart.Boundary)
	}
	if p0.Payload.Data != "hello" {
		t.Errorf("text part data = %q", p0.Payload.Data)
	}
	if p1.Payload.Data != classify.BinaryPlaceholder || !p1.Payload.Truncated {
		t.Errorf("binary part not redacted: %+v", p1.Payload)
	}
	if p0.Summary != "part[0] text/plain" {
		t.Errorf("summary = %q", p0.Summary)
	}
}

func TestEngine_MultipartNoBoundaryNoChildren(t *testing.T) {
	e, c := newTestEngine(false)
	process(t, e, response(1, "200", "multipart/mixed", "--x\n\ndata\n--x--"))

	if len(c.events) != 1 {
		t.Errorf("got %d events, want just the response", len(c.events))
	}
}

func TestEngine_BinaryRedaction(t *testing.T) {
	e, c := newTestEngine(false)
	process(t, e, response(1, "200", "application/octet-stream", "\x00\x01\x02"))

	p := c.events[0].Payload
	if p.Data != classify.BinaryPlaceholder {
		t.Errorf("data = %q, want placeholder", p.Data)
	}
	if !p.Truncated {
		t.Error("redacted payload must be marked truncated")
	}

	e2, c2 := newTestEngine(true)
	process(t, e2, response(1, "200", "application/octet-stream", "\x00\x01\x02"))
	if p := c2.events[0].Payload; p.Data != "\x00\x01\x02" || p.Truncated {
		t.Errorf("display-binary payload = %+v, want raw bytes untruncated", p)
	}
}

func TestEngine_RedactedBodySkipsSSE(t *testing.T) {
	// text/event-stream is text, so build the redacted case artificially
	// via a binary type that still has an SSE-shaped body.
	e, c := newTestEngine(false)
	process(t, e, response(1, "200", "application/octet-stream", "data: x\n\n"))
	if len(c.events) != 1 {
		t.Errorf("got %d events, want 1 (no SSE children from redacted body)", len(c.events))
	}
}

func TestEngine_SyntheticHostHeader(t *testing.T) {
	req := request(1, "GET", "/")
	req.Host = "api.example.test"
	req.ReqLines = "GET / HTTP/1.1\r\nAccept: */*\r\n"

	e, c := newTestEngine(false)
	process(t, e, req)

	h := c.events[0].Proto.HTTP.Headers
	if len(h) != 2 {
		t.Fatalf("got %d headers, want 2", len(h))
	}
	if h[0].Name != "Host" || h[0].Value != "api.example.test" {
		t.Errorf("first header = %+v, want synthesized Host", h[0])
	}
}

func TestEngine_HostNotDuplicated(t *testing.T) {
	req := request(1, "GET", "/")
	req.Host = "api.example.test"
	req.ReqLines = "GET / HTTP/1.1\r\nHost: api.example.test\r\nAccept: */*\r\n"

	e, c := newTestEngine(false)
	process(t, e, req)

	count := 0
	for _, h := range c.events[0].Proto.HTTP.Headers {
		if h.Name == "Host" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Host appears %d times, want 1", count)
	}
}

func TestEngine_RequestDefaults(t *testing.T) {
	req := &dissect.Record{Time: time.Now().UTC(), StreamOK: true, Method: "GET"}
	e, c := newTestEngine(false)
	process(t, e, req)

	http := c.events[0].Proto.HTTP
	if http.Version != "1.1" {
		t.Errorf("version = %q, want default 1.1", http.Version)
	}
	if http.Target != "/" {
		t.Errorf("target = %q, want default /", http.Target)
	}
}

func TestEngine_NonHTTPRowSkipped(t *testing.T) {
	e, c := newTestEngine(false)
	process(t, e, &dissect.Record{Time: time.Now().UTC()})
	if len(c.events) != 0 {
		t.Errorf("got %d events, want 0", len(c.events))
	}
}
