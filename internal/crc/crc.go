// Package crc implements the per-block CRC used to protect archive bodies,
// delta signatures and catalogue trailers. The CRC width grows with the
// size of the data it protects, as required by spec.md §3: large bodies
// get larger CRCs so the false-negative probability stays bounded
// regardless of file size.
package crc

import (
	"errors"
	"hash/crc32"
	"hash/crc64"
)

// ErrMismatch is returned by Compare when two CRC values of matching
// width disagree; ErrSizeMismatch when their widths differ (comparing
// CRCs computed over differently-sized regions is a programming error).
var (
	ErrMismatch     = errors.New("crc: checksum mismatch")
	ErrSizeMismatch = errors.New("crc: width mismatch between CRC values")
)

// Width is the byte width of a CRC value.
type Width int

const (
	Width4  Width = 4
	Width8  Width = 8
	Width16 Width = 16
)

// sizeClass derives the CRC width from the size (in bytes) of the
// protected region: small regions get a 4-byte CRC32, larger ones widen
// to a concatenation of independent CRC64 lanes. This is the "log-derived
// size class" spec.md §3 calls for, without inventing a new checksum
// algorithm: only stdlib hash/crc32 and hash/crc64 polynomials are used,
// chained when more width is needed.
func sizeClass(protectedLen uint64) Width {
	switch {
	case protectedLen < 1<<20: // < 1 MiB
		return Width4
	case protectedLen < 1<<34: // < 16 GiB
		return Width8
	default:
		return Width16
	}
}

var (
	tableCRC32     = crc32.MakeTable(crc32.IEEE)
	tableCRC64ISO  = crc64.MakeTable(crc64.ISO)
	tableCRC64ECMA = crc64.MakeTable(crc64.ECMA)
)

// CRC is a checksum value of a given Width, built incrementally via
// Update. Width4 is a single CRC32/IEEE lane; Width8 is a single
// CRC64/ISO lane; Width16 is that CRC64/ISO lane plus a second,
// independent CRC64/ECMA lane so large
// regions get proportionally more protection, per spec.md §3.
type CRC struct {
	width Width
	c32   uint32
	c64a  uint64
	c64b  uint64
}

// New returns a fresh, zero-valued CRC sized for protecting a region of
// protectedLen bytes.
func New(protectedLen uint64) *CRC {
	return &CRC{width: sizeClass(protectedLen)}
}

// NewOfWidth returns a fresh, zero-valued CRC of an explicit width (used
// when reading a CRC back from disk, where the width was recorded
// alongside the protected length rather than recomputed).
func NewOfWidth(w Width) *CRC {
	return &CRC{width: w}
}

// Update folds data into the running digest. CRC values are normally
// built via a single Update call over the full region, but incremental
// use (streaming through a layer) is supported by calling Update
// repeatedly before a final Dump()/Equal().
func (c *CRC) Update(data []byte) {
	switch c.width {
	case Width4:
		c.c32 = crc32.Update(c.c32, tableCRC32, data)
	case Width8:
		c.c64a = crc64.Update(c.c64a, tableCRC64ISO, data)
	case Width16:
		c.c64a = crc64.Update(c.c64a, tableCRC64ISO, data)
		c.c64b = crc64.Update(c.c64b, tableCRC64ECMA, data)
	}
}

// Sum computes a CRC over the whole of data in one call.
func Sum(data []byte) *CRC {
	c := New(uint64(len(data)))
	c.Update(data)
	return c
}

// Equal reports whether c and o carry the same width and value.
func (c *CRC) Equal(o *CRC) bool {
	return c.width == o.width && c.c32 == o.c32 && c.c64a == o.c64a && c.c64b == o.c64b
}

// Compare returns ErrMismatch if the two CRCs differ in value, or
// ErrSizeMismatch if they differ in width.
func Compare(a, b *CRC) error {
	if a.width != b.width {
		return ErrSizeMismatch
	}
	if !a.Equal(b) {
		return ErrMismatch
	}
	return nil
}

// Width reports the byte width of c.
func (c *CRC) Width() Width {
	return c.width
}

// Dump serializes c to its on-disk bytes (fixed width, no framing; the
// width itself must be known from context, typically from the protected
// region's recorded size).
func (c *CRC) Dump() []byte {
	out := make([]byte, int(c.width))
	switch c.width {
	case Width4:
		putUint32(out, c.c32)
	case Width8:
		putUint64(out, c.c64a)
	case Width16:
		putUint64(out[:8], c.c64a)
		putUint64(out[8:], c.c64b)
	}
	return out
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> uint(56-8*i))
	}
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// Load parses a CRC back from exactly len(buf) bytes.
func Load(buf []byte) (*CRC, error) {
	w := Width(len(buf))
	c := &CRC{width: w}
	switch w {
	case Width4:
		c.c32 = getUint32(buf)
	case Width8:
		c.c64a = getUint64(buf)
	case Width16:
		c.c64a = getUint64(buf[:8])
		c.c64b = getUint64(buf[8:])
	default:
		return nil, errors.New("crc: unsupported width")
	}
	return c, nil
}
