package report

import (
	"fmt"
	"io"

	"github.com/protoview/protoview/pkg/tui"
)

// Render writes the dry-run report. Sectioned and scannable, no tables.
func (s *Stats) Render(w io.Writer) {
	fmt.Fprintln(w, tui.TitleStyle.Render("protoview analyze --dry-run report"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.Section("HTTP summary"))
	fmt.Fprintf(w, "- HTTP requests:  %d\n", s.Requests)
	fmt.Fprintf(w, "- HTTP responses: %d\n", s.Responses)
	if s.Responses > 0 {
		fmt.Fprintf(w, "- SSE responses (Content-Type: text/event-stream): %d (%s)\n", s.SSEResponses, pct(s.SSEResponses, s.Responses))
		fmt.Fprintf(w, "- Multipart responses (Content-Type: multipart/*): %d (%s)\n", s.MultipartResponses, pct(s.MultipartResponses, s.Responses))
	} else {
		fmt.Fprintf(w, "- SSE responses (Content-Type: text/event-stream): %d\n", s.SSEResponses)
		fmt.Fprintf(w, "- Multipart responses (Content-Type: multipart/*): %d\n", s.MultipartResponses)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.Section("Payload size observations (best-effort)"))
	if sizes, ok := s.Sizes(); ok {
		fmt.Fprintln(w, "- Source: primarily the HTTP Content-Length header (may be absent for chunked/SSE/streaming).")
		fmt.Fprintf(w, "- Observed Content-Length values: %d\n", sizes.Count)
		fmt.Fprintf(w, "- Total bytes (sum of observed Content-Length): %d\n", sizes.Total)
		fmt.Fprintf(w, "- Min / p50 / p90 / p99 / max: %d / %d / %d / %d / %d\n", sizes.Min, sizes.P50, sizes.P90, sizes.P99, sizes.Max)
	} else {
		fmt.Fprintln(w, "- No Content-Length values were observed (common for chunked or streaming responses).")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.Section("Payload kind (heuristic via Content-Type)"))
	renderCounts(w, rank(s.PayloadKinds, 0), "No payload classifications available.")

	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.Section("Top Content-Types (normalized)"))
	renderCounts(w, rank(s.ContentTypes, topN), "No Content-Type headers observed.")

	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.Section("Content-Encoding (compression hints)"))
	renderCounts(w, rank(s.ContentEncodings, topN), "No Content-Encoding headers observed.")

	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.Section("Top endpoints by count (request method + target)"))
	renderCounts(w, rank(s.EndpointCounts, topN), "No request endpoints observed.")

	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.Section("Top endpoints by bytes (best-effort)"))
	if ranked := rank64(s.EndpointBytes, topN); len(ranked) > 0 {
		for _, r := range ranked {
			fmt.Fprintf(w, "- %s: %d bytes (from Content-Length when present)\n", r.Key, r.Count)
		}
	} else {
		fmt.Fprintln(w, "- No endpoint byte totals available (requires Content-Length observations).")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.Section("Notes"))
	fmt.Fprintln(w, tui.MutedStyle.Render("- This report is derived from tshark dissectors and may not reflect exact application payload bytes in all cases."))
	fmt.Fprintln(w, tui.MutedStyle.Render("- Streaming responses (SSE) often have no Content-Length; they can still be large over time."))
	fmt.Fprintln(w, tui.MutedStyle.Render("- Decompression is not performed in dry-run; Content-Encoding is reported as a hint only."))
}

func renderCounts(w io.Writer, ranked []ranked, emptyMsg string) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, "- "+emptyMsg)
		return
	}
	for _, r := range ranked {
		fmt.Fprintf(w, "- %s: %d\n", r.Key, r.Count)
	}
}

func pct(part, whole int) string {
	if whole <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", 100.0*float64(part)/float64(whole))
}
