// Package model defines the core data structures of the PVTS event stream.
package model

import (
	"encoding/json"
	"time"
)

// Kind identifies the variant of a trace event.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindHTTPRequest
	KindHTTPResponse
	KindSSEEvent
	KindMultipartPart
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindHTTPRequest:
		return "http_request"
	case KindHTTPResponse:
		return "http_response"
	case KindSSEEvent:
		return "sse_event"
	case KindMultipartPart:
		return "multipart_part"
	default:
		return "unknown"
	}
}

// ParseKind parses a wire kind name.
func ParseKind(s string) Kind {
	switch s {
	case "http_request":
		return KindHTTPRequest
	case "http_response":
		return KindHTTPResponse
	case "sse_event":
		return KindSSEEvent
	case "multipart_part":
		return KindMultipartPart
	default:
		return KindUnknown
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire kind name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = ParseKind(s)
	return nil
}

// Endpoint is one side of a connection as observed on the wire.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Name string `json:"name,omitempty"`
}

// FiveTuple identifies the two sides of a TCP byte stream.
type FiveTuple struct {
	Src Endpoint `json:"src"`
	Dst Endpoint `json:"dst"`
}

// Connection identifies the ordered byte stream an event was observed on.
// Sub-events omit the five-tuple; they inherit their parent's endpoints.
type Connection struct {
	Transport string     `json:"transport"`
	Stream    int        `json:"stream"`
	FiveTuple *FiveTuple `json:"five_tuple,omitempty"`
}

// Links relates an event to the events it derives from. A response links to
// the request it answers; sub-events link to their parent response and to the
// root request the chain traces back to.
type Links struct {
	Parent       string `json:"parent,omitempty"`
	Root         string `json:"root,omitempty"`
	InResponseTo string `json:"in_response_to,omitempty"`
}

// Empty reports whether no linkage is present.
func (l *Links) Empty() bool {
	return l == nil || (l.Parent == "" && l.Root == "" && l.InResponseTo == "")
}

// Header is a single protocol header as captured.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Payload carries a captured body. Truncated is true only when the body was
// classified binary and redacted; Data then holds a placeholder, not content.
type Payload struct {
	Mime      string `json:"mime,omitempty"`
	Encoding  string `json:"encoding"`
	SizeBytes *int64 `json:"size_bytes,omitempty"`
	Data      string `json:"data"`
	Truncated bool   `json:"truncated"`
}

// HTTPInfo is the protocol block for http_request and http_response events.
// Method/Target are set for requests, Status/Reason for responses.
type HTTPInfo struct {
	Version string   `json:"version"`
	Headers []Header `json:"headers"`
	Method  string   `json:"method,omitempty"`
	Target  string   `json:"target,omitempty"`
	Status  *int     `json:"status,omitempty"`
	Reason  *string  `json:"reason,omitempty"`
}

// SSEInfo is the protocol block for sse_event events.
type SSEInfo struct {
	Event   string `json:"event,omitempty"`
	ID      string `json:"id,omitempty"`
	RetryMS *int64 `json:"retry_ms,omitempty"`
}

// MultipartInfo is the protocol block for multipart_part events.
type MultipartInfo struct {
	Boundary    string   `json:"boundary"`
	PartIndex   int      `json:"part_index"`
	PartHeaders []Header `json:"part_headers"`
}

// Proto holds the kind-specific protocol block. Exactly one field is set;
// the trace writer enforces that the populated block matches the event kind.
type Proto struct {
	HTTP      *HTTPInfo      `json:"http,omitempty"`
	SSE       *SSEInfo       `json:"sse,omitempty"`
	Multipart *MultipartInfo `json:"multipart,omitempty"`
}

// Event is the atomic emitted unit of a trace.
type Event struct {
	ID      string     `json:"id"`
	TS      time.Time  `json:"ts"`
	Seq     int64      `json:"seq"`
	Kind    Kind       `json:"kind"`
	Summary string     `json:"summary"`
	Conn    Connection `json:"conn"`
	Src     Endpoint   `json:"src"`
	Dst     Endpoint   `json:"dst"`
	Links   *Links     `json:"links,omitempty"`
	Proto   Proto      `json:"proto"`
	Payload *Payload   `json:"payload,omitempty"`
}
