// Package sar implements the slice format: slice header/trailer I/O, the
// slice locator (offset <-> (slice, in-slice offset) translation), slice
// file naming, and the entrepot abstraction that decouples "where slices
// live" from the slice layer itself. Named after the original's own
// on-disk term for this concern (src/libdar/sar.cpp): "sauvegarde
// automatique répartie", automatically split backup.
package sar

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
	"github.com/Edrusb/DAR-sub001/internal/tlv"
)

// Magic is the fixed 4-byte archive signature, spec.md §6.1.
const Magic uint32 = 0x0000007B

// ExtTag distinguishes how a slice header carries its size information
// (spec.md §3/§4.3): legacy formats fall back to filesystem size.
type ExtTag byte

const (
	ExtNone ExtTag = 'N' // legacy: no size info, derive from file system size
	ExtSize ExtTag = 'S' // legacy: first slice carries other-slices' size
	ExtTLV  ExtTag = 'T' // current: full TLV list
)

// TrailerFlag is the one-byte tail on each slice.
type TrailerFlag byte

const (
	FlagTerminal           TrailerFlag = 'T'
	FlagNonTerminal        TrailerFlag = 'N'
	FlagLocatedAtEndOfSlice TrailerFlag = 'L'
)

// TLV types recognized in a current-format slice header, spec.md §6.1.
const (
	TLVSize      uint16 = 1
	TLVFirstSize uint16 = 2
	TLVDataName  uint16 = 3
	TLVReserved  uint16 = 65535
)

// Header is the parsed form of a slice header.
type Header struct {
	Magic        uint32
	InternalName label.Label
	Flag         byte // pre-trailer placeholder byte, spec.md §3
	Ext          ExtTag

	// Populated from the TLV list on current-format headers, or derived
	// from file-system size on legacy ones.
	SliceSize      infinint.Int
	FirstSliceSize infinint.Int // zero means "same as SliceSize"
	DataName       label.Label
	HasDataName    bool
}

// WriteTo serializes a current-format (ExtTLV) header to w.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	var total int64
	if err := binary.Write(w, binary.BigEndian, Magic); err != nil {
		return total, err
	}
	total += 4
	if _, err := w.Write(h.InternalName.Bytes()); err != nil {
		return total, err
	}
	total += int64(label.Size)
	if _, err := w.Write([]byte{h.Flag}); err != nil {
		return total, err
	}
	total++
	if _, err := w.Write([]byte{byte(ExtTLV)}); err != nil {
		return total, err
	}
	total++

	var list tlv.List
	list = append(list, tlv.New(TLVSize, h.SliceSize.Bytes()))
	if !h.FirstSliceSize.IsZero() {
		list = append(list, tlv.New(TLVFirstSize, h.FirstSliceSize.Bytes()))
	}
	if h.HasDataName {
		list = append(list, tlv.New(TLVDataName, h.DataName.Bytes()))
	}
	n, err := list.WriteTo(w)
	total += n
	return total, err
}

// ReadHeader parses a slice header from r. fsSize is the on-disk size of
// the slice file this header came from, used to derive sizes for legacy
// (ExtNone/ExtSize) formats per spec.md §4.3's size-calibration rules.
func ReadHeader(r io.Reader, fsSize int64) (*Header, error) {
	h := &Header{}
	if err := binary.Read(r, binary.BigEndian, &h.Magic); err != nil {
		return nil, err
	}
	if h.Magic != Magic {
		return nil, errtag.New(errtag.Range, fmt.Sprintf("bad slice magic %#x", h.Magic))
	}
	var nameBuf [label.Size]byte
	if _, err := io.ReadFull(r, nameBuf[:]); err != nil {
		return nil, err
	}
	h.InternalName = label.FromBytes(nameBuf[:])

	var flagByte [1]byte
	if _, err := io.ReadFull(r, flagByte[:]); err != nil {
		return nil, err
	}
	h.Flag = flagByte[0]

	var extByte [1]byte
	if _, err := io.ReadFull(r, extByte[:]); err != nil {
		return nil, err
	}
	h.Ext = ExtTag(extByte[0])

	switch h.Ext {
	case ExtTLV:
		list, err := tlv.ReadList(r)
		if err != nil {
			return nil, err
		}
		if rec, ok := list.Find(TLVSize); ok {
			h.SliceSize = bigintFromTLV(rec)
		} else {
			return nil, errtag.New(errtag.Range, "slice header missing size TLV")
		}
		if rec, ok := list.Find(TLVFirstSize); ok {
			h.FirstSliceSize = bigintFromTLV(rec)
		}
		if rec, ok := list.Find(TLVDataName); ok {
			h.DataName = label.FromBytes(rec.Value)
			h.HasDataName = true
		}
		for _, rec := range list {
			switch rec.Type {
			case TLVSize, TLVFirstSize, TLVDataName, TLVReserved:
			default:
				// Unknown types prompt the user per spec.md §6.1; the
				// engine layer owns user interaction, so here we tag the
				// condition for the caller to decide.
				return nil, errtag.New(errtag.Range, fmt.Sprintf("unknown slice header TLV type %d", rec.Type))
			}
		}
	case ExtSize:
		// legacy: this slice's header doesn't carry its own size; the
		// caller derives it from fsSize, and (first slice only) the
		// "other slices' size" is stored in this same TLV-less header by
		// convention of older dar versions, recorded by a bare infinint
		// that follows immediately.
		other, err := infinint.Decode(r)
		if err != nil {
			return nil, err
		}
		h.FirstSliceSize = infinint.New(uint64(fsSize))
		h.SliceSize = other
	case ExtNone:
		h.SliceSize = infinint.New(uint64(fsSize))
	default:
		return nil, errtag.New(errtag.Range, fmt.Sprintf("unrecognized slice header extension tag %q", byte(h.Ext)))
	}

	return h, nil
}

func bigintFromTLV(rec tlv.TLV) infinint.Int {
	// TLV values embed an infinint in its own self-delimiting form; reuse
	// the decoder directly against the stored bytes.
	v, err := infinint.Decode(byteReaderOf(rec.Value))
	if err != nil {
		return infinint.New(0)
	}
	return v
}

type byteReader struct {
	b []byte
	i int
}

func byteReaderOf(b []byte) io.Reader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.i >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.i:])
	r.i += n
	return n, nil
}

// MinHeaderSize is the smallest possible on-disk header size (magic +
// label + flag + ext + minimal TLV list), the header_min of spec.md §3's
// slice-size invariant (first_size >= header_min+1, other_size >= header_min+1).
func MinHeaderSize() int64 {
	// magic(4) + label(10) + flag(1) + ext(1) + TLV count (2: the infinint
	// encoding of 1) + one size TLV: type(2) + length(4) + a 1-byte
	// infinint value (only zero encodes in one byte)
	return 4 + int64(label.Size) + 1 + 1 + 2 + 6 + 1
}
