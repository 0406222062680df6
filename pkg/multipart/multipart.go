// Package multipart splits a captured multipart response body into its parts.
//
// This is a best-effort textual parser over what the dissector reassembled.
// It is not expected to correctly split parts whose content collides with the
// boundary token; the strict stdlib mime/multipart reader rejects the lossy,
// partially captured bodies this package has to accept.
package multipart

import (
	"regexp"
	"strings"

	"github.com/protoview/protoview/internal/model"
)

// Part is one body part: its headers and trimmed body text.
type Part struct {
	Headers []model.Header
	Body    string
}

var boundaryRe = regexp.MustCompile(`(?i)boundary="?([^";]+)"?`)

// ExtractBoundary pulls the multipart boundary token out of a raw
// Content-Type header value. Returns "" when no boundary parameter exists.
func ExtractBoundary(contentType string) string {
	if contentType == "" {
		return ""
	}
	m := boundaryRe.FindStringSubmatch(contentType)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Split divides body on the literal "--boundary" delimiter and returns the
// retained parts in order. Empty chunks, the bare "--" remainder and the
// closing "--boundary--" marker are skipped.
func Split(body, boundary string) []Part {
	delim := "--" + boundary
	endDelim := delim + "--"

	var parts []Part
	for _, chunk := range strings.Split(body, delim) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" || chunk == "--" || chunk == endDelim {
			continue
		}
		if strings.HasPrefix(chunk, "--") {
			// terminal marker
			continue
		}

		head, bdy := splitHead(chunk)

		headers := make([]model.Header, 0, 4)
		for _, ln := range strings.Split(strings.ReplaceAll(head, "\r\n", "\n"), "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" {
				continue
			}
			name, value, ok := strings.Cut(ln, ":")
			if !ok {
				continue
			}
			headers = append(headers, model.Header{
				Name:  strings.TrimSpace(name),
				Value: strings.TrimLeft(value, " \t"),
			})
		}

		parts = append(parts, Part{
			Headers: headers,
			Body:    strings.Trim(bdy, "\r\n"),
		})
	}
	return parts
}

// splitHead separates a chunk into header block and body at the first blank
// line. A chunk with no blank-line separator is all body.
func splitHead(chunk string) (head, body string) {
	if h, b, ok := strings.Cut(chunk, "\r\n\r\n"); ok {
		return h, b
	}
	if h, b, ok := strings.Cut(chunk, "\n\n"); ok {
		return h, b
	}
	return "", chunk
}

// ContentType returns the part's own Content-Type header value, or "".
func (p Part) ContentType() string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, "Content-Type") {
			return h.Value
		}
	}
	return ""
}
