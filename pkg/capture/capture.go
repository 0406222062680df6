// Package capture supervises the external dumpcap process that writes the
// capture container. protoview never captures packets itself; it builds the
// filter, spawns dumpcap, and forwards termination signals so dumpcap can
// flush and finalize its own output.
package capture

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrDumpcapNotFound is returned when dumpcap is not on PATH.
	ErrDumpcapNotFound = errors.New("capture: dumpcap not found on PATH (install wireshark/tshark; dumpcap is included)")

	// ErrDumpcapPermission is returned when dumpcap exists but cannot be
	// executed. On many systems dumpcap is executable only by the
	// wireshark group.
	ErrDumpcapPermission = errors.New("capture: cannot execute dumpcap")

	// ErrInvalidPort is returned for ports outside 1..65535.
	ErrInvalidPort = errors.New("capture: port must be 1..65535")
)

// Grace periods of the escalating shutdown: forwarded signal, then SIGTERM,
// then SIGKILL.
const (
	signalGrace = 3 * time.Second
	termGrace   = 2 * time.Second
)

// ValidatePort checks a TCP port value.
func ValidatePort(p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, p)
	}
	return nil
}

// BuildBPF builds the capture filter for a set of TCP ports:
// "tcp and (port 5173 or port 8080)".
func BuildBPF(ports []int) string {
	ors := make([]string, len(ports))
	for i, p := range ports {
		ors[i] = "port " + strconv.Itoa(p)
	}
	return "tcp and (" + strings.Join(ors, " or ") + ")"
}

// Config holds capture configuration.
type Config struct {
	// Interface is the capture interface; defaults to loopback.
	Interface string

	// Ports are the TCP ports to capture on.
	Ports []int

	// Output is the dumpcap -w destination; "-" means stdout.
	Output string

	// DumpcapPath overrides PATH lookup when set.
	DumpcapPath string

	// Verbose receives diagnostic lines when set.
	Verbose func(string)
}

// Runner is a started dumpcap process.
type Runner struct {
	cmd     *exec.Cmd
	verbose func(string)

	done chan struct{}
	err  error
}

// Start validates the config and spawns dumpcap.
func Start(cfg Config) (*Runner, error) {
	if len(cfg.Ports) == 0 {
		return nil, errors.New("capture: at least one port is required")
	}
	for _, p := range cfg.Ports {
		if err := ValidatePort(p); err != nil {
			return nil, err
		}
	}

	iface := cfg.Interface
	if iface == "" {
		iface = "lo"
	}
	out := cfg.Output
	if out == "" || out == "stdout" {
		out = "-"
	}

	path := cfg.DumpcapPath
	if path == "" {
		p, err := exec.LookPath("dumpcap")
		if err != nil {
			return nil, ErrDumpcapNotFound
		}
		path = p
	}

	bpf := BuildBPF(cfg.Ports)
	cmd := exec.Command(path, "-i", iface, "-f", bpf, "-w", out)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	vlog := cfg.Verbose
	if vlog == nil {
		vlog = func(string) {}
	}
	vlog("bpf filter: " + bpf)
	vlog("exec: " + cmd.String())

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrDumpcapNotFound
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrDumpcapPermission, err)
		}
		return nil, fmt.Errorf("capture: start dumpcap: %w", err)
	}

	r := &Runner{cmd: cmd, verbose: vlog, done: make(chan struct{})}
	go func() {
		r.err = cmd.Wait()
		close(r.done)
	}()
	return r, nil
}

// Wait blocks until dumpcap exits and returns its exit code.
func (r *Runner) Wait() (int, error) {
	<-r.done
	return exitCode(r.err), r.err
}

// Shutdown forwards sig to dumpcap and escalates: bounded wait, SIGTERM,
// bounded wait, SIGKILL. It lets dumpcap flush and finalize the capture
// before this process exits.
func (r *Runner) Shutdown(sig os.Signal) {
	r.verbose(fmt.Sprintf("received signal: %v; forwarding to dumpcap for graceful shutdown...", sig))

	s, ok := sig.(syscall.Signal)
	if !ok {
		s = syscall.SIGTERM
	}
	if r.signal(s) {
		return
	}

	select {
	case <-r.done:
		return
	case <-time.After(signalGrace):
	}

	r.verbose("dumpcap did not exit in time; escalating to SIGTERM...")
	if r.signal(syscall.SIGTERM) {
		return
	}

	select {
	case <-r.done:
		return
	case <-time.After(termGrace):
	}

	r.verbose("dumpcap still running; escalating to SIGKILL...")
	r.signal(syscall.SIGKILL)
	<-r.done
}

// signal sends s to dumpcap; true means the process is already gone.
func (r *Runner) signal(s syscall.Signal) bool {
	select {
	case <-r.done:
		return true
	default:
	}
	if err := r.cmd.Process.Signal(s); err != nil {
		return true
	}
	return false
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return 1
}
