package sar

import (
	"bytes"
	"testing"

	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
	"github.com/Edrusb/DAR-sub001/internal/tlv"
)

func TestHeaderRoundTripTLV(t *testing.T) {
	h := &Header{
		InternalName: label.MustGenerate(),
		Flag:         0,
		Ext:          ExtTLV,
		SliceSize:    infinint.New(4096),
	}
	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ReadHeader(&buf, int64(buf.Len()))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.Magic != Magic {
		t.Fatalf("magic = %#x, want %#x", got.Magic, Magic)
	}
	if !got.InternalName.Equal(h.InternalName) {
		t.Fatal("internal_name did not round trip")
	}
	if got.SliceSize.Unstack() != 4096 {
		t.Fatalf("slice size = %d, want 4096", got.SliceSize.Unstack())
	}
	if got.HasDataName {
		t.Fatal("no data_name TLV was written, HasDataName should be false")
	}
}

func TestHeaderRoundTripWithFirstSizeAndDataName(t *testing.T) {
	h := &Header{
		InternalName:   label.MustGenerate(),
		Ext:            ExtTLV,
		SliceSize:      infinint.New(1000),
		FirstSliceSize: infinint.New(2000),
		DataName:       label.MustGenerate(),
		HasDataName:    true,
	}
	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ReadHeader(&buf, int64(buf.Len()))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.FirstSliceSize.Unstack() != 2000 {
		t.Fatalf("first_slice_size = %d, want 2000", got.FirstSliceSize.Unstack())
	}
	if !got.HasDataName || !got.DataName.Equal(h.DataName) {
		t.Fatal("data_name did not round trip")
	}
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	if _, err := ReadHeader(buf, 4); err == nil {
		t.Fatal("a bad magic number should be rejected")
	}
}

func TestHeaderLegacyExtNoneDerivesFromFileSize(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0x7B}) // magic
	var name [label.Size]byte
	buf.Write(name[:])
	buf.Write([]byte{'T', byte(ExtNone)})
	const fsSize = 123456
	got, err := ReadHeader(&buf, fsSize)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.SliceSize.Unstack() != fsSize {
		t.Fatalf("legacy extension_none size = %d, want %d derived from file-system size", got.SliceSize.Unstack(), uint64(fsSize))
	}
}

func TestHeaderUnknownTLVTypeErrors(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0x7B})
	var name [label.Size]byte
	buf.Write(name[:])
	buf.Write([]byte{'T', byte(ExtTLV)})
	list := tlv.List{tlv.New(TLVSize, infinint.New(10).Bytes()), tlv.New(9999, []byte{0})}
	list.WriteTo(&buf)
	if _, err := ReadHeader(&buf, int64(buf.Len())); err == nil {
		t.Fatal("an unrecognized TLV type should be rejected, per spec.md §6.1")
	}
}
