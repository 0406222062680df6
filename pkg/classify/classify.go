// Package classify decides whether a captured payload is text-ish or
// binary-ish from its declared media type, and whether it must be redacted.
// The classification is a pure function of the normalized media type.
package classify

import "strings"

// Kind is the payload classification.
type Kind uint8

const (
	Unknown Kind = iota
	Text
	Binary
)

// String returns the classification name.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// ParseKind parses a classification name.
func ParseKind(s string) Kind {
	switch strings.ToLower(s) {
	case "text":
		return Text
	case "binary":
		return Binary
	default:
		return Unknown
	}
}

// BinaryPlaceholder replaces a redacted binary body. It is a fixed string,
// never partial content.
const BinaryPlaceholder = "<<binary payload omitted (use --display-binary-payload)>>"

// EventStream is the media type that triggers SSE sub-event extraction.
const EventStream = "text/event-stream"

// Normalize lowercases a media type and strips parameters.
// "application/json; charset=utf-8" -> "application/json".
func Normalize(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// Classify reports whether the media type names a text-ish payload.
// The rule set is intentionally small and honest: everything not recognized
// as text is treated as binary.
func Classify(mediaType string) Kind {
	mt := Normalize(mediaType)
	if mt == "" {
		return Unknown
	}
	if strings.HasPrefix(mt, "text/") {
		return Text
	}
	switch mt {
	case "application/json", "application/ld+json", "application/schema+json":
		return Text
	case EventStream:
		return Text
	case "application/xml", "text/xml":
		return Text
	case "application/x-www-form-urlencoded":
		return Text
	}
	if strings.HasSuffix(mt, "+json") || strings.HasSuffix(mt, "+xml") {
		return Text
	}
	return Binary
}

// Redact reports whether a body of the given classification must be replaced
// by BinaryPlaceholder. Only binary bodies are redacted, and only while the
// binary-display toggle is off.
func Redact(k Kind, displayBinary bool) bool {
	return k == Binary && !displayBinary
}
