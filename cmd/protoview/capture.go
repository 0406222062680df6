package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/protoview/protoview/pkg/capture"
)

var (
	captureInterface string
	captureOutput    string
)

var captureCmd = &cobra.Command{
	Use:   "capture PORT...",
	Short: "Capture TCP traffic on the given ports with dumpcap",
	Long: `Spawn dumpcap with a BPF filter restricted to the given TCP ports and
stream the capture to the output file (or stdout).

Signals are forwarded to dumpcap so an interrupted capture is still
finalized and readable.

Examples:
  protoview capture 8080 -o app.pcapng
  protoview capture 8080 8443 > app.pcapng`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVar(&captureInterface, "interface", "", "Capture interface (default from config, normally lo)")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "-", "Capture output path ('-' for stdout)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	ports := make([]int, 0, len(args))
	for _, a := range args {
		p, err := strconv.Atoi(a)
		if err != nil {
			return &exitError{code: 2, err: fmt.Errorf("invalid port %q", a)}
		}
		if err := capture.ValidatePort(p); err != nil {
			return &exitError{code: 2, err: err}
		}
		ports = append(ports, p)
	}

	if captureOutput == "-" || captureOutput == "" {
		if stat, _ := os.Stdout.Stat(); stat != nil && stat.Mode()&os.ModeCharDevice != 0 {
			return &exitError{code: 2, err: errors.New("refusing to write binary capture to a terminal; redirect stdout or pass --output")}
		}
	}

	iface := captureInterface
	if iface == "" {
		iface = cfg().Capture.Interface
	}

	runner, err := capture.Start(capture.Config{
		Interface:   iface,
		Ports:       ports,
		Output:      captureOutput,
		DumpcapPath: cfg().Capture.Dumpcap,
		Verbose:     vlog(),
	})
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrDumpcapNotFound):
			return &exitError{code: 127, err: fmt.Errorf("%w (install wireshark/dumpcap)", err)}
		case errors.Is(err, capture.ErrDumpcapPermission):
			return &exitError{code: 126, err: fmt.Errorf("%w (grant capture privileges, e.g. setcap or the wireshark group)", err)}
		default:
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		runner.Shutdown(sig)
	}()

	code, err := runner.Wait()
	signal.Stop(sigCh)
	if code != 0 {
		// An interrupted capture exits nonzero even when the file is
		// fine; pass dumpcap's code through without extra noise.
		return &exitError{code: code}
	}
	return err
}
