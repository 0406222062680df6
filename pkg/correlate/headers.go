package correlate

import (
	"strings"

	"github.com/protoview/protoview/internal/model"
)

// parseHeaderBlock parses HTTP headers out of the dissector's raw
// request/status line block. The first line is the request or status line
// and is skipped; remaining "Name: Value" lines become headers, blank and
// colonless lines are ignored.
func parseHeaderBlock(lines string) []model.Header {
	headers := make([]model.Header, 0, 8)
	if lines == "" {
		return headers
	}
	raw := strings.Split(strings.ReplaceAll(lines, "\r\n", "\n"), "\n")
	for i, ln := range raw {
		ln = strings.TrimRight(ln, "\r")
		if i == 0 {
			continue
		}
		if strings.TrimSpace(ln) == "" {
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
	return headers
}

// hasHeader reports whether a header with the given name is present,
// case-insensitively.
func hasHeader(headers []model.Header, name string) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}
