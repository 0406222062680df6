package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/protoview/protoview/internal/model"
	"github.com/protoview/protoview/pkg/correlate"
	"github.com/protoview/protoview/pkg/dissect"
	"github.com/protoview/protoview/pkg/hooks"
	"github.com/protoview/protoview/pkg/pvts"
	"github.com/protoview/protoview/pkg/report"
	"github.com/protoview/protoview/pkg/telemetry"
	"github.com/protoview/protoview/pkg/tui"
	"github.com/protoview/protoview/pkg/util"
)

var (
	analyzeInput         string
	analyzeOutput        string
	analyzeDryRun        bool
	analyzeDisplayBinary bool
	analyzePVTSVersion   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Correlate a capture into a PVTS trace stream",
	Long: `Dissect a capture file with tshark, pair HTTP requests with responses
per TCP stream, derive SSE and multipart sub-events, and emit the trace
as PVTS JSONL.

Reading from stdin spools the capture to a temporary file first; tshark
needs a seekable input.

Examples:
  protoview analyze -i app.pcapng -o app.pvts.jsonl
  protoview analyze -i app.pcapng --dry-run
  protoview capture 8080 | protoview analyze -i - -o app.pvts.jsonl`,
	RunE: runAnalyzeCmd,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "-", "Capture file path ('-' for stdin)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "-", "Trace output path ('-' for stdout)")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "Print a preflight report instead of emitting a trace")
	analyzeCmd.Flags().BoolVar(&analyzeDisplayBinary, "display-binary-payload", false, "Embed binary payload bytes instead of the redaction placeholder")
	analyzeCmd.Flags().BoolVar(&analyzePVTSVersion, "pvts-version", false, "Print the PVTS format version and exit")
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	if analyzePVTSVersion {
		fmt.Println(pvts.Version)
		return nil
	}
	if analyzeDryRun && cmd.Flags().Changed("output") {
		return &exitError{code: 2, err: errors.New("--output cannot be combined with --dry-run")}
	}
	if !cmd.Flags().Changed("display-binary-payload") {
		analyzeDisplayBinary = cfg().Analyze.DisplayBinaryPayload
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

	inputPath := analyzeInput
	if inputPath == "-" || inputPath == "" {
		bar := tui.SpoolProgress("spooling capture from stdin")
		path, cleanup, err := util.SpoolToTempFile(os.Stdin, bar)
		bar.Finish()
		tui.ClearLine()
		if err != nil {
			return err
		}
		defer cleanup()
		inputPath = path
	} else if _, err := os.Stat(inputPath); err != nil {
		return &exitError{code: 2, err: fmt.Errorf("input file does not exist: %s", inputPath)}
	}

	if analyzeDryRun {
		return runDryRun(ctx, inputPath)
	}

	out := io.Writer(os.Stdout)
	if analyzeOutput != "-" && analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	mgr := hooks.NewManager()
	return runAnalyze(ctx, inputPath, analyzeOutput, out, mgr)
}

// runAnalyze performs one correlation pass over inputPath, writing the
// trace to out. Shared between analyze and watch.
func runAnalyze(ctx context.Context, inputPath, outputName string, out io.Writer, mgr *hooks.Manager) error {
	tcfg := cfg().Telemetry
	if tcfg.Enabled {
		otlp := telemetry.DefaultConfig(version)
		if tcfg.Endpoint != "" {
			otlp.Endpoint = tcfg.Endpoint
		}
		shutdown, err := telemetry.Init(ctx, otlp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "protoview: telemetry disabled: %v\n", err)
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				shutdown(sctx)
			}()
		}
	}
	ctx, span := telemetry.StartAnalyzeSpan(ctx, inputPath)

	src, err := dissect.NewSource(dissect.Config{
		TsharkPath: cfg().Analyze.Tshark,
		Verbose:    vlog(),
	})
	if err != nil {
		if errors.Is(err, dissect.ErrTsharkNotFound) {
			err = &exitError{code: 127, err: fmt.Errorf("%w (install wireshark/tshark)", err)}
		}
		telemetry.EndAnalyzeSpan(span, "", 0, err)
		return err
	}

	start := time.Now()
	writer := pvts.NewWriter(out, pvts.NewTraceID())

	engine := correlate.New(
		correlate.Config{DisplayBinaryPayload: analyzeDisplayBinary},
		correlate.EmitterFunc(func(ev *model.Event) error {
			keep, err := mgr.RunPreEvent(ev)
			if err != nil {
				return err
			}
			if !keep {
				return nil
			}
			return writer.Emit(ev)
		}),
	)

	if err := writer.WriteTraceStart(pvts.DescribeCapture(inputPath), version); err != nil {
		telemetry.EndAnalyzeSpan(span, writer.TraceID(), 0, err)
		return err
	}

	err = src.Rows(ctx, inputPath, func(row []string) error {
		rec := dissect.Decode(row)
		return engine.ProcessRow(&rec)
	})
	if err != nil {
		mgr.RunError(err, "dissect")
		telemetry.EndAnalyzeSpan(span, writer.TraceID(), writer.Events(), err)
		return err
	}

	if err := writer.WriteTraceEnd(); err != nil {
		telemetry.EndAnalyzeSpan(span, writer.TraceID(), writer.Events(), err)
		return err
	}

	elapsed := time.Since(start)
	sum := hooks.Summary{
		TraceID:         writer.TraceID(),
		CaptureFile:     inputPath,
		Events:          writer.Events(),
		PendingRequests: engine.PendingRequests(),
		Duration:        elapsed,
	}
	if err := mgr.RunPostTrace(sum); err != nil {
		telemetry.EndAnalyzeSpan(span, writer.TraceID(), writer.Events(), err)
		return err
	}
	telemetry.EndAnalyzeSpan(span, writer.TraceID(), writer.Events(), nil)

	if verbose {
		tui.PrintRunReport(os.Stderr, tui.RunReport{
			TraceID:         sum.TraceID,
			Events:          sum.Events,
			PendingRequests: sum.PendingRequests,
			Duration:        sum.Duration,
			Output:          outputName,
		})
	}
	return nil
}

// runDryRun scans the capture and prints the preflight report.
func runDryRun(ctx context.Context, inputPath string) error {
	src, err := dissect.NewSource(dissect.Config{
		TsharkPath: cfg().Analyze.Tshark,
		Verbose:    vlog(),
	})
	if err != nil {
		if errors.Is(err, dissect.ErrTsharkNotFound) {
			return &exitError{code: 127, err: fmt.Errorf("%w (install wireshark/tshark)", err)}
		}
		return err
	}

	stats := report.NewStats()
	err = src.Rows(ctx, inputPath, func(row []string) error {
		rec := dissect.Decode(row)
		stats.Observe(&rec)
		return nil
	})
	if err != nil {
		return err
	}

	stats.Render(os.Stdout)
	return nil
}
