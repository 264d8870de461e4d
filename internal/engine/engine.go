// Package engine implements the coordinator of spec.md §4.7: the single
// front-end that opens a pile for reading, writes a new archive, or
// drives merge/isolate/repair, mediating between a filesystem
// collaborator and the layered stream stack.
package engine

import (
	"io"
	"time"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/sar"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// UserInteraction is the collaborator of spec.md §6.2: message/pause/
// prompt plumbing the coordinator calls into, never implemented here
// (out of scope per spec.md §1 — CLI/localized strings are external).
type UserInteraction interface {
	Message(text string)
	Pause(text string) bool
	GetString(prompt string, echo bool) (string, error)
	GetSecret(prompt string) (string, error)
}

// FSEntryKind mirrors the subset of catalogue.Kind a filesystem scan can
// produce (EoD, HardLinkRef and Mirage never come directly from disk).
type FSEntryKind = catalogue.Kind

// FilesystemBackup is the feeder collaborator of spec.md §6.2, scanning
// the real filesystem in pre-order during Create.
type FilesystemBackup interface {
	ResetRead(rootPath string) error
	// Read returns the next entry in pre-order (catalogue.EoD closes a
	// directory), io.EOF once the scan is exhausted.
	Read() (catalogue.Entry, error)
	SkipReadToParentDir()
}

// FilesystemRestore is the sink collaborator used by Extract. body is nil
// for entries with no payload (directories, devices, ...); otherwise it
// is bounded to exactly the entry's stored byte count. path holds the
// entry's parent directory names, root-relative, letting a real
// filesystem sink reconstruct the full path without tracking EoD
// boundaries itself (Extract already walks them for Selection).
type FilesystemRestore interface {
	Write(path []string, e catalogue.Entry, body io.Reader) error
}

// FilesystemDiff is the sink collaborator used by Diff; it mirrors
// FilesystemRestore but compares instead of writing.
type FilesystemDiff interface {
	Compare(path []string, e catalogue.Entry, body io.Reader, fields CompareFields) (bool, error)
}

// CompareFields selects which metadata fields Diff checks, per spec.md
// §4.7.
type CompareFields struct {
	MTime       bool
	IgnoreOwner bool
	InodeType   bool
	All         bool
}

// HookSubstitution is the substitution map passed to external hook
// execution, per spec.md §6.2.
type HookSubstitution struct {
	ParentPath string // %p
	Basename   string // %b
	SliceNum   uint64 // %n
	SliceNumPadded string // %N
	Extension  string // %e
	Context    sar.HookContext // %c
	URL        string // %u
}

// Statistics accumulates the per-operation counters of spec.md §4.7.
type Statistics struct {
	Treated    uint64
	Skipped    uint64
	Ignored    uint64
	Moved      uint64
	Overwritten uint64
	TooOld     uint64
	Errored    uint64
	Deleted    uint64
	HardLinks  uint64
	EATreated  uint64
	FSATreated uint64
	Bytes      uint64
}

// CancelMode selects immediate vs. delayed cancellation, per spec.md §5.
type CancelMode int

const (
	CancelNone CancelMode = iota
	CancelImmediate
	CancelDelayed
)

// Cancellation is the cooperative cancellation token of spec.md §5: a
// worker checks it at entry boundaries, after a slice completes, and at
// the top of each read loop.
type Cancellation struct {
	requested CancelMode
	blocked   bool
	attribute uint64
}

// Request asks for cancellation in the given mode. A delayed request
// made while blocked is held, and Check does not report it until Unblock.
func (c *Cancellation) Request(mode CancelMode) {
	c.requested = mode
}

// Block prevents delayed cancellation from firing until Unblock.
func (c *Cancellation) Block()   { c.blocked = true }
func (c *Cancellation) Unblock() { c.blocked = false }

// Check returns the currently pending mode, ignoring a delayed request
// while blocked (immediate requests are never suppressed).
func (c *Cancellation) Check() CancelMode {
	if c.blocked && c.requested == CancelDelayed {
		return CancelNone
	}
	return c.requested
}

// Coordinator is the archive-engine front-end of spec.md §4.7. It owns
// the catalogue and the currently open Pile, and mediates every
// operation below.
type Coordinator struct {
	UI        UserInteraction
	Pile      *stream.Pile
	Catalogue *catalogue.Catalogue
	Cancel    Cancellation
	Stats     Statistics

	// CatalogueOffset is set by Create to the position the catalogue was
	// written at, letting a later Open use by-the-end access.
	CatalogueOffset infinint.Int

	// Isolated is set by Open when the first slice's data_name does not
	// match the loaded catalogue's data_name (spec.md §3/§8 invariant 5):
	// Extract, Diff and Test all refuse to run while this is true.
	Isolated bool

	sliceReader *sar.Reader
	sliceWriter *sar.Writer
}

// summaryIsolatedNote is the stable message spec.md §6.3 assigns to
// `summary` output when layer1.data_name != catalogue.data_name.
const summaryIsolatedNote = "This archive only contains the contents of another archive..."

// Option configures a Coordinator at construction, mirroring the
// teacher's functional-option style (options.go / writer.go's
// WriterOption).
type Option func(*Coordinator)

// WithUserInteraction installs the collaborator used for messages,
// pauses and prompts.
func WithUserInteraction(ui UserInteraction) Option {
	return func(co *Coordinator) { co.UI = ui }
}

// New returns an empty Coordinator ready to Open or Create an archive.
func New(opts ...Option) *Coordinator {
	co := &Coordinator{}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

func now() time.Time { return time.Now().UTC() }
