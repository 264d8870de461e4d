// Package stream implements the layered I/O stack (spec.md §4.1-§4.5):
// the Stream interface every layer implements, and the concrete layers
// themselves (slice multiplexing, cipher, scrambler, escape marks,
// compression, caching, threaded offload, memory). Layers
// compose into a Pile.
package stream

import (
	"io"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// Direction distinguishes a forward skip from a backward one for the
// Skippable query.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Stream is the narrow interface every layer in a Pile implements,
// matching spec.md §4.1. A Stream is read-only, write-only or
// read-write; a layer that does not support one direction returns a
// Misuse-tagged error for it.
type Stream interface {
	// Read behaves like io.Reader but may only return a short read at
	// EOF, never spuriously.
	Read(buf []byte) (int, error)
	// Write writes all of buf or fails; partial writes are never
	// reported as success.
	Write(buf []byte) (int, error)

	// Skip moves the stream to an absolute position. ok is false if the
	// position is out of range for a read-only stream.
	Skip(pos infinint.Int) (bool, error)
	// SkipRelative moves by a signed delta from the current position.
	SkipRelative(delta int64) (bool, error)
	// SkipToEOF moves to the current logical end of the stream.
	SkipToEOF() (bool, error)
	// Position reports the current logical position.
	Position() infinint.Int

	// Skippable reports, cheaply, whether a skip of the given magnitude
	// in the given direction can be done without a large sequential
	// read (e.g. without decompressing intervening data).
	Skippable(dir Direction, amount infinint.Int) bool
	// ReadAhead is an advisory hint; layers that cannot honor it treat
	// it as a no-op.
	ReadAhead(amount infinint.Int)

	// SyncWrite flushes buffered writes of this layer into the next one
	// down. The layers in this package then pass the call on to their
	// lower layer, so the flush continues down the pile (Compress with
	// no open writer returns without passing it on).
	SyncWrite() error
	// FlushRead drops any pending read-ahead buffers, propagating the
	// flush down through lower layers.
	FlushRead() error
	// Terminate finalizes the layer. It is idempotent; after it
	// returns, Read/Write are a programming error (Misuse).
	Terminate() error
}

// Contextual is implemented by layers that want to react to the pile
// announcing a broad mode change (e.g. "now reading sequentially",
// "dirty/repair mode"), per SPEC_FULL.md's entrepot/contextual
// supplement grounded on original_source's contextual.hpp.
type Contextual interface {
	SetContext(status string)
}

// Labelled is implemented by layers that can report the role label they
// were registered under in a Pile, used for lookup (spec.md §4.2).
type Labelled interface {
	Label() string
}

var (
	// ErrTerminated is returned by Read/Write on a layer that has
	// already had Terminate called on it.
	ErrTerminated = errtag.New(errtag.Misuse, "this archive is not exploitable: stream has been terminated")
	// ErrReadOnly is returned by Write on a read-only layer.
	ErrReadOnly = errtag.New(errtag.Misuse, "stream opened read-only")
	// ErrWriteOnly is returned by Read on a write-only layer.
	ErrWriteOnly = errtag.New(errtag.Misuse, "stream opened write-only")
)

// base implements the bookkeeping common to every layer: termination
// state and generation of the Misuse errors above. Concrete layers embed
// base and check base.checkAlive() at the top of Read/Write.
type base struct {
	terminated bool
}

func (b *base) checkAlive() error {
	if b.terminated {
		return ErrTerminated
	}
	return nil
}

func (b *base) markTerminated() {
	b.terminated = true
}

// Closer-compatible adaptor: many layers want to expose themselves as an
// io.Reader/io.Writer to code outside this package (e.g. compression
// libraries). AsReader/AsWriter below wrap a Stream accordingly.

type streamReader struct{ s Stream }

func (r streamReader) Read(p []byte) (int, error) { return r.s.Read(p) }

type streamWriter struct{ s Stream }

func (w streamWriter) Write(p []byte) (int, error) { return w.s.Write(p) }

// AsReader adapts a Stream to io.Reader.
func AsReader(s Stream) io.Reader { return streamReader{s} }

// AsWriter adapts a Stream to io.Writer.
func AsWriter(s Stream) io.Writer { return streamWriter{s} }
