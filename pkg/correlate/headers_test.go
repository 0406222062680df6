package correlate

import "testing"

func TestParseHeaderBlock(t *testing.T) {
	block := "GET /api HTTP/1.1\r\nHost: example.test\r\nAccept: */*\r\nX-Empty:\r\n\r\n"
	headers := parseHeaderBlock(block)

	if len(headers) != 3 {
		t.Fatalf("got %d headers, want 3", len(headers))
	}
	if headers[0].Name != "Host" || headers[0].Value != "example.test" {
		t.Errorf("first header = %+v", headers[0])
	}
	if headers[2].Name != "X-Empty" || headers[2].Value != "" {
		t.Errorf("empty-value header = %+v", headers[2])
	}
}

func TestParseHeaderBlock_FirstLineSkipped(t *testing.T) {
	headers := parseHeaderBlock("HTTP/1.1 200 OK")
	if len(headers) != 0 {
		t.Errorf("status line alone should yield no headers, got %v", headers)
	}
}

func TestParseHeaderBlock_EmptyInput(t *testing.T) {
	headers := parseHeaderBlock("")
	if headers == nil {
		t.Fatal("must return a non-nil slice so JSON marshals []")
	}
	if len(headers) != 0 {
		t.Errorf("got %d headers, want 0", len(headers))
	}
}

func TestHasHeader(t *testing.T) {
	headers := parseHeaderBlock("GET / HTTP/1.1\nhost: x\n")
	if !hasHeader(headers, "Host") {
		t.Error("hasHeader must match case-insensitively")
	}
	if hasHeader(headers, "Accept") {
		t.Error("hasHeader matched a missing header")
	}
}
