package dissect

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is one dissected frame with every field typed and defaulted.
// A short or malformed row decodes into zero values; it never errors.
type Record struct {
	// Time is the frame capture time. Falls back to the decode time when
	// the epoch field is unparseable.
	Time time.Time

	// Stream is the dissector-assigned TCP stream id. StreamOK is false
	// when no usable id was supplied; such rows are displayed as stream 0
	// but are excluded from request/response pairing entirely, so frames
	// from unrelated connections can never be cross-paired through a
	// shared fallback bucket.
	Stream   int
	StreamOK bool

	SrcHost string
	SrcPort int
	DstHost string
	DstPort int

	Method     string
	URI        string
	ReqVersion string
	Host       string
	ReqLines   string

	RespCode    string
	Status      int
	RespPhrase  string
	RespVersion string
	RespLines   string

	ContentType     string
	ContentLength   *int64
	ContentEncoding string
	Body            string
}

// IsRequest reports whether the frame carries an HTTP request.
func (r *Record) IsRequest() bool { return r.Method != "" }

// IsResponse reports whether the frame carries an HTTP response. A frame
// with both request and response fields set decodes as a request only.
func (r *Record) IsResponse() bool { return !r.IsRequest() && r.RespCode != "" }

// Decode turns one raw tshark row into a Record. Rows shorter than the
// schema are padded with empty fields; integer fields accept a decimal value
// or a comma-separated list of which only the first element is used, and an
// unparseable value decodes as absent rather than failing the row.
func Decode(row []string) Record {
	g := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var rec Record

	rec.Time = parseEpoch(g(fieldTimeEpoch))

	if v, ok := safeInt(g(fieldTCPStream)); ok && v >= 0 {
		rec.Stream = int(v)
		rec.StreamOK = true
	}

	rec.SrcHost = defaultStr(g(fieldIPSrc), "0.0.0.0")
	rec.SrcPort = intOrZero(g(fieldSrcPort))
	rec.DstHost = defaultStr(g(fieldIPDst), "0.0.0.0")
	rec.DstPort = intOrZero(g(fieldDstPort))

	rec.Method = g(fieldReqMethod)
	rec.URI = g(fieldReqURI)
	rec.ReqVersion = g(fieldReqVersion)
	rec.Host = g(fieldHost)
	rec.ReqLines = g(fieldReqLines)

	rec.RespCode = g(fieldRespCode)
	rec.Status = intOrZero(rec.RespCode)
	rec.RespPhrase = g(fieldRespPhrase)
	rec.RespVersion = g(fieldRespVersion)
	rec.RespLines = g(fieldRespLines)

	rec.ContentType = g(fieldContentType)
	if v, ok := safeInt(g(fieldContentLength)); ok {
		rec.ContentLength = &v
	}
	rec.ContentEncoding = g(fieldContentEncoding)
	rec.Body = g(fieldFileData)

	return rec
}

// safeInt parses a decimal field. tshark may emit multiple values separated
// by commas even with occurrence=f; only the first element is used.
func safeInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func intOrZero(s string) int {
	v, ok := safeInt(s)
	if !ok {
		return 0
	}
	return int(v)
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// parseEpoch converts frame.time_epoch (fractional seconds) to a UTC time.
func parseEpoch(s string) time.Time {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Now().UTC()
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
