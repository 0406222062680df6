package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/protoview/protoview/pkg/hooks"
	"github.com/protoview/protoview/pkg/watch"
)

var (
	watchInput  string
	watchOutput string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-analyze a capture file whenever it changes",
	Long: `Watch a capture file and re-run analysis each time it settles after a
change. Useful against a rotating capture written by dumpcap -b or a
file being appended by tcpdump.

Each run rewrites the output trace from scratch.

Examples:
  protoview watch -i app.pcapng
  protoview watch -i app.pcapng -o app.pvts.jsonl`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchInput, "input", "i", "", "Capture file to watch (required)")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Trace output path (default: derived from input)")
	watchCmd.Flags().BoolVar(&analyzeDisplayBinary, "display-binary-payload", false, "Embed binary payload bytes instead of the redaction placeholder")
	watchCmd.MarkFlagRequired("input")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchInput == "-" {
		return &exitError{code: 2, err: errors.New("watch needs a file path, not stdin")}
	}
	if _, err := os.Stat(watchInput); err != nil {
		return &exitError{code: 2, err: fmt.Errorf("input file does not exist: %s", watchInput)}
	}
	if !cmd.Flags().Changed("display-binary-payload") {
		analyzeDisplayBinary = cfg().Analyze.DisplayBinaryPayload
	}

	output := watchOutput
	if output == "" {
		output = derivedTracePath(watchInput)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	mgr := hooks.NewManager()
	analyzeOnce := func(path string) error {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		return runAnalyze(ctx, path, output, f, mgr)
	}

	// First pass before watching so the trace exists immediately.
	if err := analyzeOnce(watchInput); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "protoview: watching %s -> %s\n", watchInput, output)

	w, err := watch.New(cfg().Watch.Debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	w.OnChange = func(path string) error {
		fmt.Fprintf(os.Stderr, "protoview: capture changed, re-analyzing\n")
		return analyzeOnce(path)
	}
	w.OnError = func(path string, err error) {
		mgr.RunError(err, "watch")
		fmt.Fprintf(os.Stderr, "protoview: watch error: %v\n", err)
	}

	if err := w.Watch(watchInput); err != nil {
		return err
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// derivedTracePath maps app.pcapng to app.pvts.jsonl.
func derivedTracePath(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".pvts.jsonl"
}
