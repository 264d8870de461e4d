// Package errtag implements the error taxonomy of spec.md §7: every error
// that crosses a layer boundary is tagged with a Kind so that the
// coordinator can decide, per spec.md §7's propagation policy, whether to
// prompt, count-and-continue, or abort.
package errtag

import (
	"errors"
	"fmt"
)

// Kind classifies an error without prescribing its wording.
type Kind int

const (
	// Misuse is library misuse: invalid argument or invalid state (e.g.
	// using a terminated stream).
	Misuse Kind = iota
	// Range is a range/validation error: data outside expected bounds,
	// malformed header.
	Range
	// Memory is memory exhaustion.
	Memory
	// UserAbort means the user answered "no" to a pause.
	UserAbort
	// Data is detected corruption (CRC, signature, inconsistent names).
	Data
	// Feature means the requested combination of options is unsupported.
	Feature
	// System is an OS-level error, refined by SystemKind.
	System
	// Script means a hook returned an error.
	Script
	// Cancel is cooperative cancellation; see CancelImmediate.
	Cancel
	// Bug is impossible control flow; always fatal.
	Bug
)

func (k Kind) String() string {
	switch k {
	case Misuse:
		return "misuse"
	case Range:
		return "range"
	case Memory:
		return "memory"
	case UserAbort:
		return "user-abort"
	case Data:
		return "data"
	case Feature:
		return "feature"
	case System:
		return "system"
	case Script:
		return "script"
	case Cancel:
		return "cancel"
	case Bug:
		return "bug"
	default:
		return "unknown"
	}
}

// SystemKind refines System errors, matching the distinctions spec.md §7
// requires: a missing slice is not the same failure as a permission
// error, and callers branch on the difference (prompt for the former,
// abort outright for the latter).
type SystemKind int

const (
	SystemOther SystemKind = iota
	IOExist                // target already exists
	IOAbsent               // target (e.g. a slice) is missing
	IOAccess               // permission denied
	IOROFS                 // read-only file system
)

// Error is the taxonomy-tagged error wrapper used throughout the engine.
type Error struct {
	Kind    Kind
	System  SystemKind // meaningful only when Kind == System
	Cancel  CancelInfo // meaningful only when Kind == Cancel
	Message string
	Err     error
}

// CancelInfo carries the attributes spec.md §5/§7 require of a
// thread-cancel error: whether it is immediate, a caller-defined flag,
// and an optional numeric attribute (e.g. how many entries remained).
type CancelInfo struct {
	Immediate bool
	Flag      string
	Attribute uint64
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a tagged error with no wrapped cause.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

// Wrap tags err with a Kind, preserving it for errors.Unwrap/errors.Is.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Message: msg, Err: err}
}

// System builds a System-kind error refined by sk.
func System(sk SystemKind, msg string, err error) *Error {
	return &Error{Kind: System, System: sk, Message: msg, Err: err}
}

// NewCancel builds a Cancel-kind error carrying the cancellation context.
func NewCancel(info CancelInfo, msg string) *Error {
	return &Error{Kind: Cancel, Cancel: info, Message: msg}
}

// KindOf returns the tagged Kind of err if it (or something it wraps) is
// an *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is tagged with Kind k.
func Is(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}
