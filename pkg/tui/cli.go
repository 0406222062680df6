// Package tui provides the styled CLI output surface: shared lipgloss
// styles, progress display, and the post-run report.
package tui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	AccentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(muted)
	SuccessStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// Section renders a report section heading.
func Section(title string) string {
	return AccentStyle.Render("▸ " + title)
}

// ClearLine clears the current terminal line (after progress output).
func ClearLine() {
	fmt.Fprint(os.Stderr, "\r\033[K")
}

// SpoolProgress returns a byte-count progress bar for spooling a capture
// stream of unknown length.
func SpoolProgress(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// RunReport summarizes an analyze run for the operator.
type RunReport struct {
	TraceID         string
	Events          int64
	PendingRequests int
	Duration        time.Duration
	Output          string
}

// PrintRunReport renders a short post-run summary to w (normally stderr, so
// the PVTS stream on stdout stays clean).
func PrintRunReport(w io.Writer, r RunReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, SuccessStyle.Render("✓ trace complete"))
	fmt.Fprintf(w, "  %s %s\n", MutedStyle.Render("trace:"), TitleStyle.Render(r.TraceID))
	fmt.Fprintf(w, "  %s %d\n", MutedStyle.Render("events:"), r.Events)
	if r.PendingRequests > 0 {
		fmt.Fprintf(w, "  %s %d\n", MutedStyle.Render("requests left unmatched:"), r.PendingRequests)
	}
	fmt.Fprintf(w, "  %s %s\n", MutedStyle.Render("elapsed:"), r.Duration.Round(time.Millisecond))
	if r.Output != "" && r.Output != "-" {
		fmt.Fprintf(w, "  %s %s\n", MutedStyle.Render("output:"), r.Output)
	}
}
