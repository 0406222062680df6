// Package report accumulates dry-run statistics over dissected rows and
// renders a preflight summary. It is simple accumulation: nothing here
// feeds back into trace emission.
package report

import (
	"sort"
	"strings"

	"github.com/protoview/protoview/pkg/classify"
	"github.com/protoview/protoview/pkg/dissect"
)

// topN caps every ranked report section.
const topN = 15

// Stats accumulates dry-run observations.
type Stats struct {
	Requests           int
	Responses          int
	SSEResponses       int
	MultipartResponses int

	// ContentLengths collects observed Content-Length values; capture
	// truncation makes body length itself an unreliable size proxy.
	ContentLengths []int64

	PayloadKinds     map[string]int
	ContentTypes     map[string]int
	ContentEncodings map[string]int

	EndpointCounts map[string]int
	EndpointBytes  map[string]int64
}

// NewStats returns empty statistics.
func NewStats() *Stats {
	return &Stats{
		PayloadKinds:     make(map[string]int),
		ContentTypes:     make(map[string]int),
		ContentEncodings: make(map[string]int),
		EndpointCounts:   make(map[string]int),
		EndpointBytes:    make(map[string]int64),
	}
}

// Observe folds one dissected row into the statistics.
func (s *Stats) Observe(rec *dissect.Record) {
	endpoint := strings.TrimSpace(rec.Method + " " + rec.URI)

	if rec.IsRequest() {
		s.Requests++
		s.EndpointCounts[endpoint]++
	}
	if rec.RespCode != "" {
		s.Responses++
	}

	ctNorm := classify.Normalize(rec.ContentType)
	if ctNorm != "" {
		s.ContentTypes[ctNorm]++
		s.PayloadKinds[classify.Classify(ctNorm).String()]++

		if ctNorm == classify.EventStream {
			s.SSEResponses++
		}
		if strings.HasPrefix(ctNorm, "multipart/") {
			s.MultipartResponses++
		}
	}

	if rec.ContentEncoding != "" {
		s.ContentEncodings[strings.ToLower(strings.TrimSpace(rec.ContentEncoding))]++
	}

	if rec.ContentLength != nil {
		s.ContentLengths = append(s.ContentLengths, *rec.ContentLength)
		if rec.IsRequest() {
			s.EndpointBytes[endpoint] += *rec.ContentLength
		}
	}
}

// SizeSummary holds the Content-Length distribution.
type SizeSummary struct {
	Count int
	Total int64
	Min   int64
	P50   int64
	P90   int64
	P99   int64
	Max   int64
}

// Sizes summarizes the observed Content-Length values; ok is false when
// none were observed (common for chunked or streaming responses).
func (s *Stats) Sizes() (SizeSummary, bool) {
	if len(s.ContentLengths) == 0 {
		return SizeSummary{}, false
	}
	vals := make([]int64, len(s.ContentLengths))
	copy(vals, s.ContentLengths)
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })

	sum := SizeSummary{
		Count: len(vals),
		Min:   vals[0],
		Max:   vals[len(vals)-1],
		P50:   vals[len(vals)/2],
		P90:   vals[len(vals)-1],
		P99:   vals[len(vals)-1],
	}
	if len(vals) >= 10 {
		sum.P90 = vals[len(vals)*9/10-1]
	}
	if len(vals) >= 100 {
		sum.P99 = vals[len(vals)*99/100-1]
	}
	for _, v := range vals {
		sum.Total += v
	}
	return sum, true
}

// ranked is a counter entry ordered by count descending, key ascending.
type ranked struct {
	Key   string
	Count int64
}

func rank(m map[string]int, n int) []ranked {
	out := make([]ranked, 0, len(m))
	for k, v := range m {
		out = append(out, ranked{k, int64(v)})
	}
	return topRanked(out, n)
}

func rank64(m map[string]int64, n int) []ranked {
	out := make([]ranked, 0, len(m))
	for k, v := range m {
		out = append(out, ranked{k, v})
	}
	return topRanked(out, n)
}

func topRanked(out []ranked, n int) []ranked {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
