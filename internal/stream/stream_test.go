package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// TestPileByLabelSearchesTopDown exercises Pile's label bookkeeping
// (spec.md §4.2): ByLabel must find the nearest layer under a given
// label, searching from the top.
func TestPileByLabelSearchesTopDown(t *testing.T) {
	p := NewPile()
	bottom := NewMemory()
	p.Push("SLICE", bottom)
	p.Push(LabelUncompressed, bottom)

	got, ok := p.ByLabel(LabelUncompressed)
	require.True(t, ok)
	assert.Same(t, bottom, got)

	_, ok = p.ByLabel("NO-SUCH-LABEL")
	assert.False(t, ok)
}

// TestEscapeWriteReadMarkRoundTrip exercises the escape-mark layer of
// spec.md §4.4: a written mark must be found by SkipToNextMark, and
// payload bytes around it must read back unchanged.
func TestEscapeWriteReadMarkRoundTrip(t *testing.T) {
	mem := NewMemory()
	w := NewEscape(mem)

	_, err := w.Write([]byte("before-mark"))
	require.NoError(t, err)
	require.NoError(t, w.WriteMark(MarkFileStart))
	_, err = w.Write([]byte("after-mark"))
	require.NoError(t, err)

	r := NewEscape(NewMemoryFrom(mem.Bytes()))
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "before-mark", string(buf[:n]))

	kind, err := r.SkipToNextMark(0)
	require.NoError(t, err)
	assert.Equal(t, MarkFileStart, kind)

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "after-mark", string(buf[:n]))
}

// TestCompressGZipRoundTrip exercises the compression layer over an
// in-memory bottom layer: data written through Compress and synced must
// read back identically through a fresh Compress wrapping the same
// bytes, per spec.md §4.4.
func TestCompressGZipRoundTrip(t *testing.T) {
	mem := NewMemory()
	w, err := NewCompress(mem, CompressGZip, 0, 0)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("squash-compress-round-trip "), 50)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.SyncWrite())

	r, err := NewCompress(NewMemoryFrom(mem.Bytes()), CompressGZip, 0, 0)
	require.NoError(t, err)
	got, err := io.ReadAll(AsReader(r))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// TestCompressUnavailableAlgoIsFeatureError checks that an algorithm with
// no registered encoder (bzip2, lzo, lz4 — see compress.go's doc
// comment) fails construction rather than silently falling back to a
// different algorithm.
func TestCompressUnavailableAlgoIsFeatureError(t *testing.T) {
	_, err := NewCompress(NewMemory(), CompressBZip2, 0, 0)
	assert.Error(t, err)
	assert.True(t, errtag.Is(err, errtag.Feature))
}

// TestCipherAES256RoundTrip exercises the CTR-mode cipher layer: bytes
// written under one key/IV must read back identically when a fresh
// Cipher layer is opened with the same key/IV, per spec.md §4.4.
func TestCipherAES256RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	iv := bytes.Repeat([]byte{0x24}, 16)

	mem := NewMemory()
	w, err := NewCipher(mem, CipherAES256, key, iv, 8)
	require.NoError(t, err)
	payload := []byte("a secret archive body, padded out a bit further for realism")
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Terminate()) // appends the elastic buffer

	r, err := NewCipher(NewMemoryFrom(mem.Bytes()), CipherAES256, key, iv, 8)
	require.NoError(t, err)
	got := make([]byte, len(payload))
	_, err = io.ReadFull(AsReader(r), got)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// TestCipherReseekAfterSkip exercises CTR mode's random-access property
// (spec.md §4.4): seeking to an arbitrary byte offset and reading from
// there must reproduce the same bytes a from-the-start read would have
// produced at that offset.
func TestCipherReseekAfterSkip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 32)
	iv := bytes.Repeat([]byte{0x22}, 16)

	mem := NewMemory()
	w, err := NewCipher(mem, CipherAES256, key, iv, 0)
	require.NoError(t, err)
	payload := bytes.Repeat([]byte("0123456789"), 10) // 100 bytes, crosses several AES blocks
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.SyncWrite())

	r, err := NewCipher(NewMemoryFrom(mem.Bytes()), CipherAES256, key, iv, 0)
	require.NoError(t, err)
	ok, err := r.Skip(infinint.New(37))
	require.NoError(t, err)
	require.True(t, ok)

	got := make([]byte, len(payload)-37)
	_, err = io.ReadFull(AsReader(r), got)
	require.NoError(t, err)
	assert.Equal(t, payload[37:], got)
}

// TestPileCloseTerminatesTopToBottom checks that Close returns no error
// over a Compress layer on a Memory layer and that the bottom Memory
// ends up terminated; the order of the Terminate calls is not observed.
func TestPileCloseTerminatesTopToBottom(t *testing.T) {
	mem := NewMemory()
	p := NewPile()
	p.Push("SLICE", mem)
	comp, err := NewCompress(mem, CompressGZip, 0, 0)
	require.NoError(t, err)
	p.Push("COMPRESS", comp)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, func() error { _, err := mem.Read(nil); return err }(), ErrTerminated)
}
