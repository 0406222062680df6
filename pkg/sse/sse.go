// Package sse segments a captured text/event-stream response body into the
// individual events it carries.
package sse

import (
	"strconv"
	"strings"
)

// Event is one Server-Sent Event reconstructed from the wire format.
type Event struct {
	// Event is the event type; last "event:" line wins.
	Event string

	// ID is the event id; last "id:" line wins.
	ID string

	// RetryMS is the reconnect delay in milliseconds, when a numeric
	// "retry:" line was present.
	RetryMS *int64

	// Data joins every "data:" line's value with a newline, in order,
	// reconstructing multi-line data per the wire format.
	Data string
}

// Extract parses SSE events from a captured response body.
//
// Framing: events are separated by blank lines; comment lines (leading ':')
// and lines without a ':' separator are ignored. A block is kept only if it
// produced non-empty data or at least one of event/id/retry.
func Extract(body string) []Event {
	txt := strings.ReplaceAll(body, "\r\n", "\n")
	blocks := strings.Split(txt, "\n\n")

	var out []Event
	for _, blk := range blocks {
		blk = strings.Trim(blk, "\n")
		if strings.TrimSpace(blk) == "" {
			continue
		}

		var ev Event
		var dataLines []string
		for _, ln := range strings.Split(blk, "\n") {
			if ln == "" || strings.HasPrefix(ln, ":") {
				continue
			}
			k, v, ok := strings.Cut(ln, ":")
			if !ok {
				continue
			}
			k = strings.TrimSpace(k)
			v = strings.TrimLeft(v, " \t")
			switch k {
			case "event":
				ev.Event = v
			case "id":
				ev.ID = v
			case "retry":
				if ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
					ev.RetryMS = &ms
				}
			case "data":
				dataLines = append(dataLines, v)
			}
		}
		ev.Data = strings.Join(dataLines, "\n")

		if ev.Data != "" || ev.Event != "" || ev.ID != "" || ev.RetryMS != nil {
			out = append(out, ev)
		}
	}
	return out
}
