// Package tlv implements the type-length-value records used in slice
// headers and header-version records: a 16-bit type tag followed by an
// opaque byte value, and lists of such records prefixed by an infinint
// count.
package tlv

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// TLV is a single type-length-value record.
type TLV struct {
	Type  uint16
	Value []byte
}

// New builds a TLV carrying an arbitrary byte value.
func New(t uint16, value []byte) TLV {
	return TLV{Type: t, Value: append([]byte(nil), value...)}
}

// WriteTo writes t's wire form: type (u16 BE), length (u32 BE), value.
func (t TLV) WriteTo(w io.Writer) (int64, error) {
	var hdr [6]byte
	binary.BigEndian.PutUint16(hdr[0:2], t.Type)
	binary.BigEndian.PutUint32(hdr[2:6], uint32(len(t.Value)))
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := w.Write(t.Value); err != nil {
		return int64(len(hdr)), err
	}
	return int64(len(hdr) + len(t.Value)), nil
}

// ReadFrom parses a single TLV from r.
func ReadFrom(r io.Reader) (TLV, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return TLV{}, err
	}
	typ := binary.BigEndian.Uint16(hdr[0:2])
	n := binary.BigEndian.Uint32(hdr[2:6])
	value := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, value); err != nil {
			return TLV{}, err
		}
	}
	return TLV{Type: typ, Value: value}, nil
}

// List is a bigint count followed by that many TLVs, per spec.md §3.
type List []TLV

// WriteTo serializes the list: infinint count, then each TLV in order.
func (l List) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n := infinint.New(uint64(len(l)))
	if err := n.EncodeTo(w); err != nil {
		return total, err
	}
	total += int64(len(n.Bytes()))
	for _, rec := range l {
		written, err := rec.WriteTo(w)
		total += written
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadList parses a List from r.
func ReadList(r io.Reader) (List, error) {
	count, err := infinint.Decode(r)
	if err != nil {
		return nil, err
	}
	n := count.Unstack()
	out := make(List, 0, n)
	for i := uint64(0); i < n; i++ {
		rec, err := ReadFrom(r)
		if err != nil {
			return nil, fmt.Errorf("tlv: reading record %d/%d: %w", i, n, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Find returns the first TLV of the requested type and true, or the zero
// value and false.
func (l List) Find(t uint16) (TLV, bool) {
	for _, rec := range l {
		if rec.Type == t {
			return rec, true
		}
	}
	return TLV{}, false
}
