package dissect

import "errors"

var (
	// ErrTsharkNotFound is returned when tshark is not on PATH.
	ErrTsharkNotFound = errors.New("dissect: tshark not found on PATH (install tshark, the Wireshark CLI)")

	// ErrDissector is returned when tshark exits nonzero. The wrapping
	// error carries tshark's own diagnostic text.
	ErrDissector = errors.New("dissect: tshark failed")
)
