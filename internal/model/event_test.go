package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestKindRoundTrip(t *testing.T) {
	kinds := []Kind{KindHTTPRequest, KindHTTPResponse, KindSSEEvent, KindMultipartPart}
	for _, k := range kinds {
		if got := ParseKind(k.String()); got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if KindUnknown.String() != "unknown" {
		t.Errorf("KindUnknown.String() = %q", KindUnknown.String())
	}
	if ParseKind("bogus") != KindUnknown {
		t.Error("unknown names must parse to KindUnknown")
	}
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(KindSSEEvent)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"sse_event"` {
		t.Errorf("marshaled = %s", b)
	}

	var k Kind
	if err := json.Unmarshal([]byte(`"multipart_part"`), &k); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if k != KindMultipartPart {
		t.Errorf("k = %v, want KindMultipartPart", k)
	}
}

func TestEventJSON_OptionalFields(t *testing.T) {
	ev := Event{
		ID:   "m000001",
		TS:   time.Unix(1700000000, 0).UTC(),
		Kind: KindHTTPRequest,
		Conn: Connection{Transport: "tcp", Stream: 2},
		Proto: Proto{
			HTTP: &HTTPInfo{Version: "1.1", Headers: []Header{}, Method: "GET", Target: "/"},
		},
	}

	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(b)

	for _, absent := range []string{`"links"`, `"payload"`, `"five_tuple"`, `"status"`, `"reason"`, `"sse"`, `"multipart"`} {
		if strings.Contains(s, absent) {
			t.Errorf("marshaled event contains %s: %s", absent, s)
		}
	}
	if !strings.Contains(s, `"headers":[]`) {
		t.Errorf("empty headers must marshal as [], got %s", s)
	}
}

func TestLinksEmpty(t *testing.T) {
	var nilLinks *Links
	if !nilLinks.Empty() {
		t.Error("nil links should be empty")
	}
	if !(&Links{}).Empty() {
		t.Error("zero links should be empty")
	}
	if (&Links{Root: "m000001"}).Empty() {
		t.Error("links with root are not empty")
	}
}
