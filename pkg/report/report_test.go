package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/protoview/protoview/pkg/dissect"
)

func intp(v int64) *int64 { return &v }

func TestStats_Observe(t *testing.T) {
	s := NewStats()

	s.Observe(&dissect.Record{Method: "GET", URI: "/a"})
	s.Observe(&dissect.Record{Method: "GET", URI: "/a", ContentLength: intp(10)})
	s.Observe(&dissect.Record{RespCode: "200", ContentType: "application/json; charset=utf-8", ContentLength: intp(120)})
	s.Observe(&dissect.Record{RespCode: "200", ContentType: "text/event-stream"})
	s.Observe(&dissect.Record{RespCode: "200", ContentType: "multipart/mixed; boundary=b", ContentEncoding: "GZIP"})

	if s.Requests != 2 {
		t.Errorf("Requests = %d, want 2", s.Requests)
	}
	if s.Responses != 3 {
		t.Errorf("Responses = %d, want 3", s.Responses)
	}
	if s.SSEResponses != 1 {
		t.Errorf("SSEResponses = %d, want 1", s.SSEResponses)
	}
	if s.MultipartResponses != 1 {
		t.Errorf("MultipartResponses = %d, want 1", s.MultipartResponses)
	}
	if s.ContentTypes["application/json"] != 1 {
		t.Errorf("ContentTypes = %v", s.ContentTypes)
	}
	if s.ContentEncodings["gzip"] != 1 {
		t.Errorf("ContentEncodings = %v, want lowercased gzip", s.ContentEncodings)
	}
	if s.EndpointCounts["GET /a"] != 2 {
		t.Errorf("EndpointCounts = %v", s.EndpointCounts)
	}
	if s.EndpointBytes["GET /a"] != 10 {
		t.Errorf("EndpointBytes = %v, want request bytes only", s.EndpointBytes)
	}
	if len(s.ContentLengths) != 2 {
		t.Errorf("ContentLengths = %v, want 2 observations", s.ContentLengths)
	}
}

func TestStats_Sizes(t *testing.T) {
	s := NewStats()
	if _, ok := s.Sizes(); ok {
		t.Error("Sizes() on empty stats should report !ok")
	}

	for _, v := range []int64{5, 1, 3} {
		s.ContentLengths = append(s.ContentLengths, v)
	}
	sum, ok := s.Sizes()
	if !ok {
		t.Fatal("Sizes() = !ok")
	}
	if sum.Count != 3 || sum.Min != 1 || sum.Max != 5 || sum.Total != 9 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.P50 != 3 {
		t.Errorf("P50 = %d, want 3", sum.P50)
	}
	// With fewer than 10 observations the upper percentiles fall back to max.
	if sum.P90 != 5 || sum.P99 != 5 {
		t.Errorf("P90/P99 = %d/%d, want 5/5", sum.P90, sum.P99)
	}
}

func TestRank_OrderAndCap(t *testing.T) {
	m := map[string]int{"a": 2, "b": 5, "c": 2, "d": 1}
	got := rank(m, 3)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].Key != "b" {
		t.Errorf("top entry = %s, want b", got[0].Key)
	}
	// Ties break on key ascending.
	if got[1].Key != "a" || got[2].Key != "c" {
		t.Errorf("tie order = %s, %s, want a, c", got[1].Key, got[2].Key)
	}
}

func TestRender_Smoke(t *testing.T) {
	s := NewStats()
	s.Observe(&dissect.Record{Method: "GET", URI: "/a"})
	s.Observe(&dissect.Record{RespCode: "200", ContentType: "application/json", ContentLength: intp(64)})

	var buf bytes.Buffer
	s.Render(&buf)
	out := buf.String()

	for _, want := range []string{
		"HTTP requests:  1",
		"HTTP responses: 1",
		"application/json",
		"GET /a",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
