package stream

import (
	"bytes"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// MarkKind distinguishes the escape-mark types of spec.md §4.4.
type MarkKind byte

const (
	MarkCatalogueStart MarkKind = iota + 1
	MarkFileStart
	MarkEAStart
	MarkFSAStart
	MarkDeltaSigStart
	MarkDirty
	markNotAMark // internal: escape for payload bytes that look like a mark
)

// marker is the rare byte pattern that introduces an escape sequence in
// the stream; chosen, as in the original design, to be statistically
// unlikely to occur in compressed/encrypted payload.
var marker = []byte{0xFE, 0xDA, 0x00, 0xDA, 0xFE}

// Escape is the escape-mark layer of spec.md §4.4: it writes and reads
// out-of-band marker sequences so that sequential reads (without a prior
// catalogue) and per-file delimiting (for repair) are possible. It is
// only present in the pile when tape-marks are enabled.
type Escape struct {
	base
	lower      Stream
	unjumpable map[MarkKind]bool
	// readBuf holds bytes already pulled from lower but not yet delivered
	// to a caller: Read stops short the instant it spots a marker inside
	// a chunk it read ahead, and the marker plus everything after it in
	// that chunk is pushed back here so SkipToNextMark (or a later Read)
	// resumes from exactly that point instead of skipping past it.
	readBuf bytes.Buffer
	pos     int64
}

// NewEscape wraps lower with escape-mark framing.
func NewEscape(lower Stream) *Escape {
	return &Escape{lower: lower, unjumpable: make(map[MarkKind]bool)}
}

// AddUnjumpableMark marks kind as one whose sequential scan must stop at
// it regardless of any filter in effect (spec.md §4.4).
func (e *Escape) AddUnjumpableMark(kind MarkKind) {
	e.unjumpable[kind] = true
}

// WriteMark emits an escape mark of the given kind at the current write
// position.
func (e *Escape) WriteMark(kind MarkKind) error {
	if _, err := e.lower.Write(marker); err != nil {
		return err
	}
	_, err := e.lower.Write([]byte{byte(kind)})
	return err
}

// writePayload writes p to lower, preceding every literal occurrence of
// the marker sequence in p with the marker and markNotAMark, so a reader
// does not mistake payload bytes for a real mark.
func (e *Escape) writePayload(p []byte) (int, error) {
	if !bytes.Contains(p, marker) {
		return e.lower.Write(p)
	}
	var out bytes.Buffer
	rest := p
	for {
		idx := bytes.Index(rest, marker)
		if idx < 0 {
			out.Write(rest)
			break
		}
		out.Write(rest[:idx])
		out.Write(marker)
		out.WriteByte(byte(markNotAMark))
		out.Write(rest[idx : idx+len(marker)])
		rest = rest[idx+len(marker):]
	}
	n, err := e.lower.Write(out.Bytes())
	if err != nil {
		return 0, err
	}
	_ = n
	return len(p), nil
}

func (e *Escape) Write(p []byte) (int, error) {
	if err := e.checkAlive(); err != nil {
		return 0, err
	}
	n, err := e.writePayload(p)
	e.pos += int64(n)
	return n, err
}

// readRaw serves p from readBuf first (bytes a previous Read pushed back
// after stopping at a marker), falling through to lower once readBuf is
// drained.
func (e *Escape) readRaw(p []byte) (int, error) {
	if e.readBuf.Len() > 0 {
		return e.readBuf.Read(p)
	}
	return e.lower.Read(p)
}

// readByte reads exactly one byte via readRaw, retrying on zero-length
// non-error reads the way io.ReadFull would.
func (e *Escape) readByte() (byte, error) {
	var b [1]byte
	for {
		n, err := e.readRaw(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// Read returns the bytes read before the first marker sequence in the
// chunk it pulls. Any marker occurrence, a real mark or a markNotAMark
// escape alike, ends the Read short; Read strips and interprets nothing,
// and a Read whose chunk starts at a marker returns 0. SkipToNextMark
// consumes marks. Everything from the marker onward in the chunk just read is
// pushed back into readBuf rather than discarded, so a caller reading
// again later (or calling SkipToNextMark) does not lose those bytes.
func (e *Escape) Read(p []byte) (int, error) {
	if err := e.checkAlive(); err != nil {
		return 0, err
	}
	raw := make([]byte, len(p))
	n, err := e.readRaw(raw)
	if n == 0 {
		return 0, err
	}

	if idx := bytes.Index(raw[:n], marker); idx >= 0 {
		e.readBuf.Write(raw[idx:n])
		e.pos += int64(idx)
		return idx, nil
	}

	copy(p, raw[:n])
	e.pos += int64(n)
	return n, err
}

// SkipToNextMark scans forward until a mark of kind is found (or any
// mark, if kind == 0), consuming bytes as it goes, and returns the kind
// actually found. A mark registered with AddUnjumpableMark also ends the
// scan, whatever kind was asked for. A sliding window (rather than fixed-size chunk reads)
// means a marker split across whatever Read previously pushed back into
// readBuf is still recognized.
func (e *Escape) SkipToNextMark(kind MarkKind) (MarkKind, error) {
	window := make([]byte, 0, len(marker))
	for {
		b, err := e.readByte()
		if err != nil {
			return 0, err
		}
		window = append(window, b)
		if len(window) > len(marker) {
			window = window[1:]
		}
		if len(window) < len(marker) || !bytes.Equal(window, marker) {
			continue
		}
		kb, err := e.readByte()
		if err != nil {
			return 0, err
		}
		found := MarkKind(kb)
		if found == markNotAMark {
			window = window[:0]
			continue // literal payload bytes, not a real mark
		}
		if kind == 0 || found == kind || e.unjumpable[found] {
			return found, nil
		}
		window = window[:0]
	}
}

func (e *Escape) Skip(pos infinint.Int) (bool, error) { return e.lower.Skip(pos) }
func (e *Escape) SkipRelative(delta int64) (bool, error) {
	return e.lower.SkipRelative(delta)
}
func (e *Escape) SkipToEOF() (bool, error)   { return e.lower.SkipToEOF() }
func (e *Escape) Position() infinint.Int     { return infinint.New(uint64(e.pos)) }
func (e *Escape) Skippable(d Direction, a infinint.Int) bool {
	// marks must be scanned sequentially, so escape layers are never
	// cheaply skippable other than a no-op skip of zero.
	return a.IsZero()
}
func (e *Escape) ReadAhead(infinint.Int) {}
func (e *Escape) SyncWrite() error       { return e.lower.SyncWrite() }
func (e *Escape) FlushRead() error {
	e.readBuf.Reset()
	return e.lower.FlushRead()
}

func (e *Escape) Terminate() error {
	if e.terminated {
		return nil
	}
	e.markTerminated()
	return e.lower.Terminate()
}

var errNoSuchMark = errtag.New(errtag.Data, "escape mark not found before end of stream")
