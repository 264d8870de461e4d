package sar

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
)

// HookContext values substituted for %c in the hook command template,
// per spec.md §6.2.
type HookContext string

const (
	HookInit      HookContext = "INIT"
	HookOp        HookContext = "OP"
	HookLastSlice HookContext = "LAST_SLICE"
)

// Hook is called between slices (and at open/close) so a caller can run
// an external command with the %p/%b/%n/%N/%e/%c/%u substitutions of
// spec.md §6.2. The substitution map itself is built by the caller
// (out of scope per spec.md §1); Hook only receives the already-built
// command line.
type Hook func(ctx HookContext, sliceNum uint64) error

// Pause is called between slices when the writer is configured to wait
// for user confirmation before starting the next one; returning false
// aborts the operation (a UserAbort error, per spec.md §7).
type Pause func(sliceNum uint64) bool

// PromptForMissingSlice is called by the reader when a slice file cannot
// be found; returning false means the user refused to supply it (the
// *user abort* path of Scenario D in spec.md §8).
type PromptForMissingSlice func(sliceNum uint64, name string) bool

// WriterOptions configures a Writer.
type WriterOptions struct {
	Entrepot     Entrepot
	Naming       Naming
	Layout       *Layout
	InternalName label.Label
	DataName     label.Label
	Perm         os.FileMode
	AllowOver    bool
	WarnOver     bool
	Hook         Hook
	Pause        Pause
	HeaderMin    int64 // MinHeaderSize(), injected for testability
}

// Writer implements stream.Stream (duck-typed; sar does not import
// stream to avoid a cycle, the pile wraps *Writer directly) over N
// physical slice files, per spec.md §4.3's write contract.
type Writer struct {
	opt WriterOptions

	num        uint64
	cur        io.WriteCloser
	curWritten int64 // bytes of payload written to the current slice
	limit      int64 // payload capacity of the current slice
	pos        int64 // absolute payload position written so far
	terminated bool
}

// NewWriter opens slice 1 and writes its header.
func NewWriter(opt WriterOptions) (*Writer, error) {
	w := &Writer{opt: opt}
	if err := w.openSlice(1, opt.Layout.FirstSize.Unstack()); err != nil {
		return nil, err
	}
	if opt.Hook != nil {
		if err := opt.Hook(HookInit, 1); err != nil {
			return nil, errtag.Wrap(errtag.Script, "init hook failed", err)
		}
	}
	return w, nil
}

func (w *Writer) openSlice(n uint64, payloadLimit uint64) error {
	name := w.opt.Naming.Name(n)
	f, err := w.opt.Entrepot.Create(name, w.opt.AllowOver, permOrDefault(w.opt.Perm))
	if err != nil {
		return err
	}
	h := &Header{
		InternalName: w.opt.InternalName,
		Ext:          ExtTLV,
		SliceSize:    w.opt.Layout.OtherSize,
	}
	if n == 1 {
		h.FirstSliceSize = w.opt.Layout.FirstSize
	}
	if !w.opt.DataName.IsCleared() {
		h.DataName = w.opt.DataName
		h.HasDataName = true
	}
	if _, err := h.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	w.num = n
	w.cur = f
	w.curWritten = 0
	w.limit = int64(payloadLimit) - 1 // reserve one byte for the trailer flag
	if w.limit < 1 {
		f.Close()
		return ErrInvalidLayout
	}
	return nil
}

func permOrDefault(p os.FileMode) os.FileMode {
	if p == 0 {
		return 0640
	}
	return p
}

// Write implements stream.Stream.
func (w *Writer) Write(p []byte) (int, error) {
	if w.terminated {
		return 0, errtag.New(errtag.Misuse, "slice writer already terminated")
	}
	total := 0
	for len(p) > 0 {
		room := w.limit - w.curWritten
		if room <= 0 {
			if err := w.closeSlice(FlagNonTerminal); err != nil {
				return total, err
			}
			if w.opt.Pause != nil && !w.opt.Pause(w.num+1) {
				return total, errtag.New(errtag.UserAbort, "user declined to continue to the next slice")
			}
			if err := w.openSlice(w.num+1, w.opt.Layout.OtherSize.Unstack()); err != nil {
				return total, err
			}
			if w.opt.Hook != nil {
				if err := w.opt.Hook(HookOp, w.num); err != nil {
					return total, errtag.Wrap(errtag.Script, "between-slice hook failed", err)
				}
			}
			continue
		}
		n := int64(len(p))
		if n > room {
			n = room
		}
		written, err := w.cur.Write(p[:n])
		total += written
		w.curWritten += int64(written)
		w.pos += int64(written)
		p = p[written:]
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (w *Writer) closeSlice(flag TrailerFlag) error {
	if _, err := w.cur.Write([]byte{byte(flag)}); err != nil {
		return err
	}
	return w.cur.Close()
}

// Terminate closes the writer, tagging the final slice terminal.
func (w *Writer) Terminate() error {
	if w.terminated {
		return nil
	}
	w.terminated = true
	if err := w.closeSlice(FlagTerminal); err != nil {
		return err
	}
	if w.opt.Hook != nil {
		if err := w.opt.Hook(HookLastSlice, w.num); err != nil {
			return errtag.Wrap(errtag.Script, "last-slice hook failed", err)
		}
	}
	return nil
}

func (w *Writer) Position() infinint.Int { return infinint.New(uint64(w.pos)) }

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	Entrepot     Entrepot
	Naming       Naming
	Layout       *Layout // may be nil until the first header is read
	Lax          bool
	OnMissing    PromptForMissingSlice
}

// Reader implements read-side access over N physical slice files, per
// spec.md §4.3's read contract.
type Reader struct {
	opt          ReaderOptions
	num          uint64
	cur          io.ReadCloser
	curSeeker    io.Seeker
	internalName label.Label
	haveName     bool
	dataName     label.Label
	haveDataName bool
	pos          int64
	terminated   bool
	layout       *Layout

	// curLimit/curRead bound the current slice's payload: the physical
	// file carries one more byte after curLimit (the trailer flag) that
	// must never be handed to the caller as data, per spec.md §4.3.
	curLimit int64
	curRead  int64
}

// NewReader opens slice 1 and validates its header, establishing the
// layout for the rest of the archive.
func NewReader(opt ReaderOptions) (*Reader, error) {
	r := &Reader{opt: opt, layout: opt.Layout}
	if err := r.openSlice(1); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) openSlice(n uint64) error {
	name := r.opt.Naming.Name(n)
	f, err := r.opt.Entrepot.Open(name)
	if err != nil {
		if errtag.Is(err, errtag.System) && r.opt.OnMissing != nil {
			if r.opt.OnMissing(n, name) {
				// caller placed the slice where expected; retry once.
				f, err = r.opt.Entrepot.Open(name)
			}
		}
		if err != nil {
			if r.opt.Lax {
				return r.openLaxPlaceholder(n)
			}
			return errtag.New(errtag.UserAbort, fmt.Sprintf("slice %q unavailable and user declined to provide it", name))
		}
	}
	fsSize, statErr := r.opt.Entrepot.Stat(name)
	if statErr != nil {
		fsSize = 0
	}
	hdr, err := ReadHeader(f, fsSize)
	if err != nil {
		if r.opt.Lax {
			return r.openLaxPlaceholder(n)
		}
		return err
	}
	if r.haveName && hdr.InternalName != r.internalName {
		if !r.opt.Lax {
			return errtag.New(errtag.Data, "slice internal_name does not match the first slice seen")
		}
	}
	if !r.haveName {
		r.internalName = hdr.InternalName
		r.haveName = true
	}
	if hdr.HasDataName && !r.haveDataName {
		r.dataName = hdr.DataName
		r.haveDataName = true
	}
	if r.layout == nil {
		first := hdr.FirstSliceSize
		if first.IsZero() {
			first = hdr.SliceSize
		}
		r.layout, _ = NewLayout(first, hdr.SliceSize)
	}
	r.num = n
	r.cur = f
	r.curSeeker = nil
	if s, ok := f.(io.Seeker); ok {
		r.curSeeker = s
	}
	r.curRead = 0
	r.curLimit = 0
	if r.layout != nil {
		capacity := r.layout.OtherSize.Unstack()
		if n == 1 {
			capacity = r.layout.FirstSize.Unstack()
		}
		if capacity > 0 {
			r.curLimit = int64(capacity) - 1
		}
	}
	// A slice file shorter than its capacity (the last one) holds fewer
	// payload bytes: those between the header and the trailer byte.
	if hdr.Ext == ExtTLV && fsSize > 0 {
		if hdrLen, err := hdr.WriteTo(io.Discard); err == nil && fsSize > hdrLen {
			if avail := fsSize - hdrLen - 1; avail < r.curLimit {
				r.curLimit = avail
			}
		}
	}
	return nil
}

func (r *Reader) openLaxPlaceholder(n uint64) error {
	// lax mode: synthesize zeroed data for the remainder of this slice so
	// the overall sequence can proceed with warnings, per spec.md §7. No
	// real trailer flag is available, so the placeholder never runs out
	// on its own; the caller (Skip/Terminate) bounds how much it reads.
	r.num = n
	r.cur = io.NopCloser(zeroReader{})
	r.curSeeker = nil
	r.curRead = 0
	r.curLimit = math.MaxInt64
	return nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// Read implements stream.Stream. The last byte of every physical slice
// is the trailer flag, never payload (spec.md §3/§4.3): Read stops one
// byte short of the slice's capacity, then consults that flag to decide
// whether to open the next slice or end the stream.
func (r *Reader) Read(p []byte) (int, error) {
	if r.terminated {
		return 0, errtag.New(errtag.Misuse, "slice reader already terminated")
	}
	if r.curRead >= r.curLimit {
		return r.crossSliceBoundary(p)
	}
	room := r.curLimit - r.curRead
	if int64(len(p)) > room {
		p = p[:room]
	}
	n, err := r.cur.Read(p)
	r.pos += int64(n)
	r.curRead += int64(n)
	return n, err
}

// crossSliceBoundary is called once a slice's payload has been fully
// consumed: it reads the one-byte trailer flag and either opens the next
// slice (non_terminal) or ends the stream (terminal), per spec.md §4.3's
// read contract.
func (r *Reader) crossSliceBoundary(p []byte) (int, error) {
	flag, err := r.readTrailerFlag()
	if err != nil {
		return 0, err
	}
	switch flag {
	case FlagTerminal:
		return 0, io.EOF
	case FlagNonTerminal, FlagLocatedAtEndOfSlice:
		if err := r.openSlice(r.num + 1); err != nil {
			return 0, err
		}
		return r.Read(p)
	default:
		return 0, errtag.New(errtag.Data, fmt.Sprintf("unrecognized slice trailer flag %q", byte(flag)))
	}
}

// readTrailerFlag consumes the flag byte immediately following this
// slice's payload. located_at_end_of_slice (spec.md §4.3) means that
// inline byte is a placeholder and the real flag is the true last byte
// of the physical file; that variant requires seek support.
func (r *Reader) readTrailerFlag() (TrailerFlag, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r.cur, buf[:]); err != nil {
		return 0, err
	}
	flag := TrailerFlag(buf[0])
	if flag != FlagLocatedAtEndOfSlice || r.curSeeker == nil {
		return flag, nil
	}
	if _, err := r.curSeeker.Seek(-1, io.SeekEnd); err != nil {
		return 0, err
	}
	if _, err := io.ReadFull(r.cur, buf[:]); err != nil {
		return 0, err
	}
	return TrailerFlag(buf[0]), nil
}

func (r *Reader) Layout() *Layout { return r.layout }

// DataName returns the archive's data_name as carried by the first
// slice header read, and whether one was present at all (legacy headers
// without a TLV list carry none), per spec.md §3/§6.1.
func (r *Reader) DataName() (label.Label, bool) { return r.dataName, r.haveDataName }

// InternalName returns the internal_name validated across every slice
// opened so far.
func (r *Reader) InternalName() label.Label { return r.internalName }

func (r *Reader) Position() infinint.Int { return infinint.New(uint64(r.pos)) }

// Skip seeks to an absolute payload offset, translating it through the
// layout and, if necessary, switching slice files.
func (r *Reader) Skip(pos infinint.Int) (bool, error) {
	if r.layout == nil {
		return false, errtag.New(errtag.Misuse, "slice layout not yet established")
	}
	n, off := r.layout.Locate(pos)
	if n != r.num {
		if err := r.openSlice(n); err != nil {
			return false, err
		}
	}
	if r.curSeeker == nil {
		return false, errtag.New(errtag.Feature, "underlying slice does not support seeking")
	}
	if _, err := r.curSeeker.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	if _, err := ReadHeader(r.cur, 0); err != nil {
		return false, err
	}
	headerSize, err := r.curSeeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	if _, err := r.curSeeker.Seek(headerSize+int64(off.Unstack()), io.SeekStart); err != nil {
		return false, err
	}
	r.pos = int64(pos.Unstack())
	r.curRead = int64(off.Unstack())
	return true, nil
}

func (r *Reader) Terminate() error {
	if r.terminated {
		return nil
	}
	r.terminated = true
	if r.cur != nil {
		return r.cur.Close()
	}
	return nil
}
