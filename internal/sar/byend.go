package sar

import (
	"encoding/binary"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
)

// trailerCopyMarker identifies the duplicated header footer appended at
// the end of a slice, so a by-the-end reader can locate and validate it
// without scanning forward through the whole slice first, per spec.md
// §4.3's "by-the-end open".
//
// On-disk footer layout, written after the trailer flag byte:
//
//	<header-copy bytes> <4-byte length of header-copy, BE> <4-byte marker>
var trailerCopyMarker = [4]byte{'D', 'A', 'R', 'T'}

// WriteTrailerCopy appends the by-the-end footer (a duplicated copy of
// h) to w.
func WriteTrailerCopy(w io.Writer, h *Header) (int64, error) {
	var buf countingBuffer
	if _, err := h.WriteTo(&buf); err != nil {
		return 0, err
	}
	var total int64
	if _, err := w.Write(buf.data); err != nil {
		return total, err
	}
	total += int64(len(buf.data))

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(buf.data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return total, err
	}
	total += 4

	if _, err := w.Write(trailerCopyMarker[:]); err != nil {
		return total, err
	}
	total += int64(len(trailerCopyMarker))
	return total, nil
}

type countingBuffer struct{ data []byte }

func (c *countingBuffer) Write(p []byte) (int, error) {
	c.data = append(c.data, p...)
	return len(p), nil
}

// OpenByEnd reads the duplicated header from the tail footer of a slice
// file reachable through rs.
func OpenByEnd(rs io.ReadSeeker) (*Header, error) {
	fileEnd, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	const footerFixedLen = 4 + 4 // length field + marker
	if fileEnd < footerFixedLen {
		return nil, errtag.New(errtag.Range, "slice too small to contain a trailer header copy")
	}

	if _, err := rs.Seek(-footerFixedLen, io.SeekEnd); err != nil {
		return nil, err
	}
	var tail [footerFixedLen]byte
	if _, err := io.ReadFull(rs, tail[:]); err != nil {
		return nil, err
	}
	copyLen := int64(binary.BigEndian.Uint32(tail[:4]))
	var marker [4]byte
	copy(marker[:], tail[4:])
	if marker != trailerCopyMarker {
		return nil, errtag.New(errtag.Data, "trailer header copy marker not found")
	}

	headerStart := fileEnd - footerFixedLen - copyLen
	if headerStart < 0 {
		return nil, errtag.New(errtag.Range, "trailer header copy length is inconsistent with slice size")
	}
	if _, err := rs.Seek(headerStart, io.SeekStart); err != nil {
		return nil, err
	}
	limited := io.LimitReader(rs, copyLen)
	return ReadHeader(limited, fileEnd)
}
