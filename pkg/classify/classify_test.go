package classify

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"application/json; charset=utf-8", "application/json"},
		{"  TEXT/HTML ", "text/html"},
		{"multipart/mixed; boundary=abc", "multipart/mixed"},
		{"", ""},
		{";", ""},
	}

	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		mediaType string
		expected  Kind
	}{
		{"text/plain", Text},
		{"text/html; charset=utf-8", Text},
		{"application/json", Text},
		{"Application/JSON; charset=UTF-8", Text},
		{"application/ld+json", Text},
		{"application/schema+json", Text},
		{"application/problem+json", Text},
		{"application/atom+xml", Text},
		{"application/xml", Text},
		{"text/event-stream", Text},
		{"application/x-www-form-urlencoded", Text},
		{"application/octet-stream", Binary},
		{"image/png", Binary},
		{"application/grpc", Binary},
		{"multipart/mixed", Binary},
		{"", Unknown},
		{"   ", Unknown},
	}

	for _, tt := range tests {
		got := Classify(tt.mediaType)
		if got != tt.expected {
			t.Errorf("Classify(%q) = %v, want %v", tt.mediaType, got, tt.expected)
		}
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		kind          Kind
		displayBinary bool
		expected      bool
	}{
		{Binary, false, true},
		{Binary, true, false},
		{Text, false, false},
		{Text, true, false},
		{Unknown, false, false},
	}

	for _, tt := range tests {
		got := Redact(tt.kind, tt.displayBinary)
		if got != tt.expected {
			t.Errorf("Redact(%v, %v) = %v, want %v", tt.kind, tt.displayBinary, got, tt.expected)
		}
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{Unknown, Text, Binary} {
		if got := ParseKind(k.String()); got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if got := ParseKind("garbage"); got != Unknown {
		t.Errorf("ParseKind(garbage) = %v, want Unknown", got)
	}
}
