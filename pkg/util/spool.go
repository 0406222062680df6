// Package util provides small file plumbing helpers.
package util

import (
	"fmt"
	"io"
	"os"
)

// SpoolToTempFile copies r into a temporary capture file and returns its
// path. The dissector wants a seekable file, not a pipe. progress, when
// non-nil, receives the copied bytes as well (e.g. a progress bar).
// The caller must invoke cleanup when done.
func SpoolToTempFile(r io.Reader, progress io.Writer) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "protoview-*.pcapng")
	if err != nil {
		return "", nil, fmt.Errorf("util: create temp capture file: %w", err)
	}
	path = f.Name()
	cleanup = func() { os.Remove(path) }

	dst := io.Writer(f)
	if progress != nil {
		dst = io.MultiWriter(f, progress)
	}

	if _, err := io.Copy(dst, r); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("util: spool capture stream: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("util: close temp capture file: %w", err)
	}
	return path, cleanup, nil
}
