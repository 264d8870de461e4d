package engine

import (
	"io"
	"os"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
	"github.com/Edrusb/DAR-sub001/internal/sar"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// ArchiveParams bundles the per-archive settings that determine how a
// Pile is assembled, bottom to top: slice, thread (write) or cache
// (read), cipher or scrambler, escape, compression.
type ArchiveParams struct {
	Path      string // directory holding the slice files
	Basename  string
	Extension string
	MinDigits int

	FirstSliceSize infinint.Int // zero means "unlimited", a single slice
	OtherSliceSize infinint.Int

	Cipher    stream.CipherAlgo
	Key       []byte
	IV        []byte
	Scramble  bool
	ScrambleKey []byte

	TapeMarks bool // enables the Escape layer

	Compression     stream.CompressAlgo
	CompressionLevel int
	CompressBlockSize int

	Threaded    bool
	ThreadDepth int

	CacheBlockSize int

	InternalName label.Label
	DataName     label.Label
	Perm         uint32
	AllowOver    bool
	WarnOver     bool

	// CatalogueOffset, when non-zero, is the top-of-pile position the
	// catalogue was written at by a prior Create, enabling by-the-end
	// Open without an escape-mark scan.
	CatalogueOffset infinint.Int
	Hook         sar.Hook
	Pause        sar.Pause
}

// seekToBody positions the pile so that reading top yields exactly the
// decompressed/decrypted bytes of the File entry stored at f.Offset: it
// seeks the UNCOMPRESSED-labeled layer (the one immediately below
// compression, whose position space offsets are recorded in, per
// writeFileBody) to f.Offset, then flushes any cached decompressor state
// on top so the next Read re-synchronizes against the new position. The
// returned reader is bounded to the entry's OriginalSize, the number of
// decompressed bytes the frame holds, since StoredSize instead counts
// compressed bytes and isn't meaningful to a reader above compression.
func seekToBody(pile *stream.Pile, top stream.Stream, f *catalogue.File) (io.Reader, error) {
	uncompressed, ok := pile.ByLabel(stream.LabelUncompressed)
	if !ok {
		uncompressed = top
	}
	if _, err := uncompressed.Skip(f.Offset); err != nil {
		return nil, err
	}
	if uncompressed != top {
		if err := top.FlushRead(); err != nil {
			return nil, err
		}
	}
	return io.LimitReader(stream.AsReader(top), int64(f.OriginalSize.Unstack())), nil
}

// rawLayer returns the layer a body's bytes should be read from or
// written to without touching compression: the ESCAPE layer when tape
// marks are in use (since its position space is what escape-driven
// offsets are recorded in), falling back to the UNCOMPRESSED-labeled
// layer otherwise. Both sit at the same point in the pile — immediately
// below compression — so either is a correct raw pass-through point for
// Repair and Reslice, which must move already-compressed bytes verbatim
// (spec.md §4.7). Both sit above the cipher layer: bytes read through
// them are already decrypted, and bytes written through them are
// encrypted by the destination pile's own cipher layer.
func rawLayer(pile *stream.Pile) stream.Stream {
	if esc, ok := pile.ByLabel("ESCAPE"); ok {
		return esc
	}
	if u, ok := pile.ByLabel(stream.LabelUncompressed); ok {
		return u
	}
	return pile.Top()
}

// copyRawBody moves storedSize raw bytes — already compressed, never
// decompressed here — from src positioned at srcOffset to dst's
// current write position, returning the offset they were written at.
// Used by Repair and Reslice, neither of which may decompress or
// recompress a file body (spec.md §4.7's "reusing the original bodies").
func copyRawBody(src, dst stream.Stream, srcOffset infinint.Int, storedSize uint64) (infinint.Int, error) {
	if _, err := src.Skip(srcOffset); err != nil {
		return infinint.Int{}, err
	}
	dstOffset := dst.Position()
	if _, err := io.CopyN(stream.AsWriter(dst), stream.AsReader(src), int64(storedSize)); err != nil {
		return infinint.Int{}, err
	}
	return dstOffset, nil
}

func (p ArchiveParams) naming() sar.Naming {
	return sar.Naming{Basename: p.Basename, Extension: p.Extension, MinDigits: p.MinDigits}
}

func (p ArchiveParams) layout() (*sar.Layout, error) {
	first := p.FirstSliceSize
	other := p.OtherSliceSize
	if first.IsZero() {
		first = infinint.New(1 << 40) // "unlimited", per spec.md §3's single-slice default
	}
	if other.IsZero() {
		other = first
	}
	return sar.NewLayout(first, other)
}

// buildWritePile assembles the full write-side Pile for an archive
// opened with p, layering cipher/scrambler/escape/compression above the
// slice writer in the order spec.md §4.2 describes, bottom to top.
// The slice Writer is pushed as the bottom layer, so Pile.Close
// terminates it with the rest; it is also returned for direct use.
func buildWritePile(p ArchiveParams) (*stream.Pile, *sar.Writer, error) {
	ent := sar.NewLocalEntrepot(p.Path)
	lay, err := p.layout()
	if err != nil {
		return nil, nil, err
	}
	sw, err := sar.NewWriter(sar.WriterOptions{
		Entrepot:     ent,
		Naming:       p.naming(),
		Layout:       lay,
		InternalName: p.InternalName,
		DataName:     p.DataName,
		Perm:         os.FileMode(p.Perm),
		AllowOver:    p.AllowOver,
		WarnOver:     p.WarnOver,
		Hook:         p.Hook,
		Pause:        p.Pause,
	})
	if err != nil {
		return nil, nil, err
	}

	pile := stream.NewPile()
	var top stream.Stream = stream.NewSliceWriter(sw)
	pile.Push("SLICE", top)

	if p.Threaded {
		top = stream.NewThread(top, p.ThreadDepth)
		pile.Push("THREAD", top)
	}
	if p.Scramble {
		top = stream.NewScrambler(top, p.ScrambleKey)
		pile.Push("SCRAMBLER", top)
	} else if p.Cipher != stream.CipherNone {
		c, err := stream.NewCipher(top, p.Cipher, p.Key, p.IV, 16)
		if err != nil {
			return nil, nil, err
		}
		top = c
		pile.Push("CIPHER", top)
	} else {
		pile.Push(stream.LabelUncyphered, top)
	}
	if p.TapeMarks {
		esc := stream.NewEscape(top)
		esc.AddUnjumpableMark(stream.MarkFileStart)
		esc.AddUnjumpableMark(stream.MarkCatalogueStart)
		top = esc
		pile.Push("ESCAPE", top)
	}
	// UNCOMPRESSED names the layer immediately below compression, per
	// spec.md §4.2's pile diagram — registered whether or not compression
	// is actually enabled, so a file body's Offset can always be recorded
	// in this layer's position space rather than the (non-seekable, once
	// compression runs) position the Compress layer itself reports.
	pile.Push(stream.LabelUncompressed, top)
	if p.Compression != stream.CompressNone {
		comp, err := stream.NewCompress(top, p.Compression, p.CompressionLevel, p.CompressBlockSize)
		if err != nil {
			return nil, nil, err
		}
		top = comp
		pile.Push("COMPRESS", top)
	}
	pile.Push(stream.LabelLevel1, top)
	return pile, sw, nil
}

// buildReadPile mirrors buildWritePile for the read side.
func buildReadPile(p ArchiveParams, onMissing sar.PromptForMissingSlice, lax bool) (*stream.Pile, *sar.Reader, error) {
	ent := sar.NewLocalEntrepot(p.Path)
	sr, err := sar.NewReader(sar.ReaderOptions{
		Entrepot:  ent,
		Naming:    p.naming(),
		Lax:       lax,
		OnMissing: onMissing,
	})
	if err != nil {
		return nil, nil, err
	}

	pile := stream.NewPile()
	var top stream.Stream = stream.NewSliceReader(sr)
	pile.Push("SLICE", top)

	if p.CacheBlockSize > 0 {
		top = stream.NewCache(top, p.CacheBlockSize)
		pile.Push("CACHE", top)
	}
	if p.Scramble {
		top = stream.NewScrambler(top, p.ScrambleKey)
		pile.Push("SCRAMBLER", top)
	} else if p.Cipher != stream.CipherNone {
		c, err := stream.NewCipher(top, p.Cipher, p.Key, p.IV, 16)
		if err != nil {
			return nil, nil, err
		}
		top = c
		pile.Push("CIPHER", top)
	} else {
		pile.Push(stream.LabelUncyphered, top)
	}
	var esc *stream.Escape
	if p.TapeMarks {
		esc = stream.NewEscape(top)
		top = esc
		pile.Push("ESCAPE", top)
	}
	pile.Push(stream.LabelUncompressed, top)
	if p.Compression != stream.CompressNone {
		comp, err := stream.NewCompress(top, p.Compression, p.CompressionLevel, p.CompressBlockSize)
		if err != nil {
			return nil, nil, err
		}
		top = comp
		pile.Push("COMPRESS", top)
	}
	pile.Push(stream.LabelLevel1, top)
	return pile, sr, nil
}
