package internal

import "strings"

// Mode is the capability tag a Backend, Filter or Handler declares once.
// It tells which of the two method sets (blocking or non-blocking) may be used.
type Mode uint8

const (
	// ModeBlocking allows calls that run to completion on the caller's goroutine.
	ModeBlocking Mode = 1 << iota

	// ModeNonBlocking allows calls that return a Future and finish on another goroutine.
	ModeNonBlocking

	// ModeBoth is a convenience for components that support either form.
	ModeBoth = ModeBlocking | ModeNonBlocking
)

// Blocking reports whether the blocking method set is supported.
func (m Mode) Blocking() bool {
	return m&ModeBlocking != 0
}

// NonBlocking reports whether the non-blocking method set is supported.
func (m Mode) NonBlocking() bool {
	return m&ModeNonBlocking != 0
}

func (m Mode) String() string {
	var parts []string
	if m.Blocking() {
		parts = append(parts, "blocking")
	}
	if m.NonBlocking() {
		parts = append(parts, "non-blocking")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
