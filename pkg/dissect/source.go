package dissect

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Config holds row source configuration.
type Config struct {
	// TsharkPath overrides PATH lookup when set.
	TsharkPath string

	// DisplayFilter defaults to DisplayFilter.
	DisplayFilter string

	// Fields defaults to Fields.
	Fields []string

	// Verbose receives diagnostic lines when set.
	Verbose func(string)
}

// Source streams dissected field rows out of a capture file by running
// tshark over it. Rows arrive in frame order; the source trusts tshark's
// ordering and field extraction.
type Source struct {
	cfg Config
}

// NewSource resolves tshark and returns a row source.
func NewSource(cfg Config) (*Source, error) {
	if cfg.TsharkPath == "" {
		path, err := exec.LookPath("tshark")
		if err != nil {
			return nil, ErrTsharkNotFound
		}
		cfg.TsharkPath = path
	}
	if cfg.DisplayFilter == "" {
		cfg.DisplayFilter = DisplayFilter
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = Fields
	}
	return &Source{cfg: cfg}, nil
}

// Rows runs tshark over inputPath and calls fn once per matching frame, in
// frame order, with the raw tab-separated field values. fn returning an
// error stops the stream. A nonzero tshark exit surfaces as a single fatal
// error wrapping ErrDissector with tshark's stderr text.
func (s *Source) Rows(ctx context.Context, inputPath string, fn func(row []string) error) error {
	args := []string{
		"-r", inputPath,
		"-Y", s.cfg.DisplayFilter,
		"-T", "fields",
		"-E", "separator=\t",
		"-E", "occurrence=f",
	}
	for _, f := range s.cfg.Fields {
		args = append(args, "-e", f)
	}

	// The command runs under the errgroup's context: a row callback error
	// cancels it, which kills tshark. Without that, a tshark blocked
	// writing to the no-longer-drained stdout pipe would never exit and
	// the run would hang instead of surfacing the error.
	g, gctx := errgroup.WithContext(ctx)

	cmd := exec.CommandContext(gctx, s.cfg.TsharkPath, args...)
	if s.cfg.Verbose != nil {
		s.cfg.Verbose("exec: " + cmd.String())
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("dissect: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("dissect: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("dissect: start tshark: %w", err)
	}

	var stderrText strings.Builder

	g.Go(func() error {
		// Body fields can make rows far larger than a Scanner token,
		// so read whole lines with a Reader.
		reader := bufio.NewReaderSize(stdout, 256*1024)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				row := strings.Split(strings.TrimRight(line, "\n"), "\t")
				if ferr := fn(row); ferr != nil {
					return ferr
				}
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("dissect: read tshark output: %w", err)
			}
		}
	})
	g.Go(func() error {
		b, _ := io.ReadAll(stderr)
		stderrText.Write(b)
		return nil
	})

	readErr := g.Wait()
	waitErr := cmd.Wait()

	if readErr != nil {
		return readErr
	}
	if waitErr != nil {
		diag := strings.TrimSpace(stderrText.String())
		if diag != "" {
			return fmt.Errorf("%w: %v\n%s", ErrDissector, waitErr, diag)
		}
		return fmt.Errorf("%w: %v", ErrDissector, waitErr)
	}
	return nil
}
