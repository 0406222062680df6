// Package pvts emits the ProtoView Trace Stream: a framed, versioned JSONL
// record stream. One trace_start record, one record per event, one trace_end
// record. Each line is a self-contained JSON document and the stream is
// append-only, so a consumer can begin processing before the producer
// finishes.
package pvts

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Version is the PVTS format version carried on every record.
const Version = "0.1"

// ToolName identifies the producer in trace_start records.
const ToolName = "protoview"

// NewTraceID generates a run-unique trace id. The UTC stamp keeps ids
// lexically sortable across runs; the uuid fragment keeps two runs within
// the same second from colliding.
func NewTraceID() string {
	stamp := time.Now().UTC().Format("20060102T150405Z")
	frag := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return "pvts-" + stamp + "-" + frag
}

// CaptureInfo describes the originating capture in trace_start.
type CaptureInfo struct {
	File   string `json:"file"`
	Format string `json:"format"`
}

// ToolInfo identifies the producing tool in trace_start.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DescribeCapture builds the trace_start capture block for an input path.
func DescribeCapture(inputPath string) CaptureInfo {
	format := "pcap"
	if strings.HasSuffix(strings.ToLower(inputPath), ".pcapng") {
		format = "pcapng"
	}
	return CaptureInfo{File: filepath.Base(inputPath), Format: format}
}
