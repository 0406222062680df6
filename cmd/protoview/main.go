// protoview - HTTP trace correlation for packet captures
// Dissects captures with tshark, pairs requests and responses per TCP
// stream, and emits a PVTS JSONL trace stream.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/protoview/protoview/pkg/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	verbose bool
)

// exitError carries an explicit process exit code out of a RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := 2
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
			if ee.err == nil {
				os.Exit(code)
			}
		}
		fmt.Fprintf(os.Stderr, "protoview: %v\n", err)
		os.Exit(code)
	}
}

var rootCmd = &cobra.Command{
	Use:   "protoview",
	Short: "protoview - HTTP trace correlation for packet captures",
	Long: `protoview turns packet captures of HTTP traffic into a correlated
JSONL trace stream (PVTS). It pairs requests with responses per TCP
stream, derives SSE and multipart sub-events, and classifies payloads.

Typical use:
  protoview capture 8080 > app.pcapng       (in one terminal)
  protoview analyze -i app.pcapng -o app.pvts.jsonl`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
}

// cfg returns the merged configuration.
func cfg() *config.Config {
	return config.Global().Get()
}

// vlog returns a diagnostic sink honoring --verbose.
func vlog() func(string) {
	if !verbose {
		return nil
	}
	return func(msg string) {
		fmt.Fprintln(os.Stderr, "protoview: "+msg)
	}
}
