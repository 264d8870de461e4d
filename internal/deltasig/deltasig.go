// Package deltasig implements the binary delta signature record attached
// to a catalogue file entry in "delta" saved-status: a rolling-checksum
// signature of a base file plus the CRCs needed to validate a patch
// applied against it, per spec.md §3 and §4.8.
//
// No rsync-style rolling-hash library appears anywhere in the example
// corpus, so the weak/strong checksum pair below is hand-rolled on top of
// internal/crc rather than imported; see DESIGN.md for the justification.
package deltasig

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/crc"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// ErrCorrupted is returned when a re-checked CRC over a delta signature's
// payload does not match the recorded value, surfacing the stable message
// spec.md §6.3 names: "CRC error met while reading delta signature: data
// corruption."
var ErrCorrupted = errors.New("dar: CRC error met while reading delta signature: data corruption")

// BlockLen is the default signature block length; the source file is cut
// into blocks of this size and each block contributes one Block to the
// Signature.
const BlockLen = 2048

// Block is one rolling/strong checksum pair over one fixed-size chunk of
// the base file.
type Block struct {
	Weak   uint32 // Adler32-style rolling checksum
	Strong []byte // strong checksum: the crc.Sum dump of the block (width derived from its length)
}

// Signature is the full per-file delta signature payload: one Block per
// BlockLen-sized chunk of the base file it was computed over.
type Signature struct {
	BlockLen int
	Blocks   []Block
}

// Record is the catalogue-level delta signature record described in
// spec.md §3: a CRC of the base file, the signature's size/offset
// bookkeeping, and the CRC of the file that results once a patch is
// applied.
type Record struct {
	PatchBaseCRC   *crc.CRC
	SignatureSize  infinint.Int
	SignatureOffset infinint.Int // valid only in direct-access mode, when SignatureSize > 0
	BlockLen       int
	Payload        *Signature // lazily materialized; may be nil until Load
	PatchResultCRC *crc.CRC
}

// rollingWeak computes the Adler32-style rolling checksum librsync-family
// tools use for the weak signature half: a = (1 + sum(bytes)) mod M,
// b = (n + sum((n-i)*bytes[i])) mod M for i = 0..n-1, combined as b<<16 | a.
func rollingWeak(data []byte) uint32 {
	const mod = 65521
	var a, b uint32 = 1, 0
	for _, c := range data {
		a = (a + uint32(c)) % mod
		b = (b + a) % mod
	}
	return b<<16 | a
}

// Compute builds a Signature over the entirety of r, cut into blockLen
// chunks (the last possibly shorter).
func Compute(r io.Reader, blockLen int) (*Signature, error) {
	if blockLen <= 0 {
		blockLen = BlockLen
	}
	sig := &Signature{BlockLen: blockLen}
	buf := make([]byte, blockLen)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			chunk := buf[:n]
			strong := crc.Sum(chunk).Dump()
			sig.Blocks = append(sig.Blocks, Block{Weak: rollingWeak(chunk), Strong: strong})
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return sig, nil
}

// WriteTo serializes sig: blockLen (u32 BE), block count (infinint), then
// each block's weak checksum (u32 BE) and length-prefixed strong hash.
func (sig *Signature) WriteTo(w io.Writer) (int64, error) {
	var total int64
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(sig.BlockLen))
	if _, err := w.Write(hdr[:]); err != nil {
		return total, err
	}
	total += 4

	count := infinint.New(uint64(len(sig.Blocks)))
	if err := count.EncodeTo(w); err != nil {
		return total, err
	}
	total += int64(len(count.Bytes()))

	for _, blk := range sig.Blocks {
		var weakBuf [4]byte
		binary.BigEndian.PutUint32(weakBuf[:], blk.Weak)
		if _, err := w.Write(weakBuf[:]); err != nil {
			return total, err
		}
		total += 4
		var lenBuf [1]byte
		lenBuf[0] = byte(len(blk.Strong))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return total, err
		}
		total++
		if _, err := w.Write(blk.Strong); err != nil {
			return total, err
		}
		total += int64(len(blk.Strong))
	}
	return total, nil
}

// ReadSignature parses a Signature previously written by WriteTo.
func ReadSignature(r io.Reader) (*Signature, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	sig := &Signature{BlockLen: int(binary.BigEndian.Uint32(hdr[:]))}

	count, err := infinint.Decode(r)
	if err != nil {
		return nil, err
	}
	n := count.Unstack()
	sig.Blocks = make([]Block, 0, n)
	for i := uint64(0); i < n; i++ {
		var weakBuf [4]byte
		if _, err := io.ReadFull(r, weakBuf[:]); err != nil {
			return nil, err
		}
		var lenBuf [1]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, err
		}
		strong := make([]byte, lenBuf[0])
		if _, err := io.ReadFull(r, strong); err != nil {
			return nil, err
		}
		sig.Blocks = append(sig.Blocks, Block{Weak: binary.BigEndian.Uint32(weakBuf[:]), Strong: strong})
	}
	return sig, nil
}

// Match finds the signature block whose weak checksum equals weak,
// returning its index and whether strong equals that block's recorded
// strong hash (a full rsync-style patcher would use this to decide
// whether a byte run at the rolling window's current position matches a
// base-file block).
func (sig *Signature) Match(weak uint32, strong []byte) (int, bool) {
	for i, blk := range sig.Blocks {
		if blk.Weak != weak {
			continue
		}
		if len(blk.Strong) != len(strong) {
			continue
		}
		match := true
		for j := range strong {
			if strong[j] != blk.Strong[j] {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return -1, false
}

// VerifyPatchResult recomputes the CRC of reconstructed and compares it
// against rec.PatchResultCRC, returning ErrCorrupted on mismatch.
func (rec *Record) VerifyPatchResult(reconstructed []byte) error {
	got := crc.Sum(reconstructed)
	if err := crc.Compare(rec.PatchResultCRC, got); err != nil {
		return ErrCorrupted
	}
	return nil
}

// WriteSequential serializes rec in the sequential (in-line) on-disk
// layout of spec.md §4.8: base_CRC | sig_size | sig_block_len | sig_bytes
// | sig_crc | result_CRC.
func (rec *Record) WriteSequential(w io.Writer) error {
	if _, err := w.Write(rec.PatchBaseCRC.Dump()); err != nil {
		return err
	}
	if err := rec.SignatureSize.EncodeTo(w); err != nil {
		return err
	}
	if rec.Payload == nil {
		return errors.New("deltasig: sequential write requires a materialized payload")
	}
	var payload countingWriter
	if _, err := rec.Payload.WriteTo(&payload); err != nil {
		return err
	}
	sigCRC := crc.Sum(payload.data)
	if _, err := w.Write(payload.data); err != nil {
		return err
	}
	if _, err := w.Write(sigCRC.Dump()); err != nil {
		return err
	}
	_, err := w.Write(rec.PatchResultCRC.Dump())
	return err
}

type countingWriter struct{ data []byte }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.data = append(c.data, p...)
	return len(p), nil
}

// ReadSequential parses the sequential layout written by WriteSequential.
// crcWidth is the width recorded for base/result CRCs (carried by the
// caller from the owning entry's recorded sizes, per spec.md §3).
func ReadSequential(r io.Reader, crcWidth crc.Width) (*Record, error) {
	baseBuf := make([]byte, int(crcWidth))
	if _, err := io.ReadFull(r, baseBuf); err != nil {
		return nil, err
	}
	baseCRC, err := crc.Load(baseBuf)
	if err != nil {
		return nil, err
	}

	sigSize, err := infinint.Decode(r)
	if err != nil {
		return nil, err
	}

	sig, err := ReadSignature(r)
	if err != nil {
		return nil, err
	}

	var encoded countingWriter
	if _, err := sig.WriteTo(&encoded); err != nil {
		return nil, err
	}
	sigCRCBuf := make([]byte, int(crc.New(uint64(len(encoded.data))).Width()))
	if _, err := io.ReadFull(r, sigCRCBuf); err != nil {
		return nil, err
	}
	sigCRC, err := crc.Load(sigCRCBuf)
	if err != nil {
		return nil, err
	}
	if err := crc.Compare(sigCRC, crc.Sum(encoded.data)); err != nil {
		return nil, ErrCorrupted
	}

	resultBuf := make([]byte, int(crcWidth))
	if _, err := io.ReadFull(r, resultBuf); err != nil {
		return nil, err
	}
	resultCRC, err := crc.Load(resultBuf)
	if err != nil {
		return nil, err
	}

	return &Record{
		PatchBaseCRC:   baseCRC,
		SignatureSize:  sigSize,
		BlockLen:       sig.BlockLen,
		Payload:        sig,
		PatchResultCRC: resultCRC,
	}, nil
}

// WriteDirect serializes rec's catalogue-resident part only (spec.md
// §4.8's direct mode): base_CRC | sig_size | sig_offset | result_CRC. The
// signature payload itself (sig_block_len | sig_bytes | sig_crc) is
// written separately into the archive body at SignatureOffset by the
// caller, which is why direct mode supports lazily dropping Payload.
func (rec *Record) WriteDirect(w io.Writer) error {
	if _, err := w.Write(rec.PatchBaseCRC.Dump()); err != nil {
		return err
	}
	if err := rec.SignatureSize.EncodeTo(w); err != nil {
		return err
	}
	if !rec.SignatureSize.IsZero() {
		if err := rec.SignatureOffset.EncodeTo(w); err != nil {
			return err
		}
	}
	_, err := w.Write(rec.PatchResultCRC.Dump())
	return err
}

// ReadDirect parses the catalogue-resident part written by WriteDirect.
func ReadDirect(r io.Reader, crcWidth crc.Width) (*Record, error) {
	baseBuf := make([]byte, int(crcWidth))
	if _, err := io.ReadFull(r, baseBuf); err != nil {
		return nil, err
	}
	baseCRC, err := crc.Load(baseBuf)
	if err != nil {
		return nil, err
	}

	sigSize, err := infinint.Decode(r)
	if err != nil {
		return nil, err
	}

	rec := &Record{PatchBaseCRC: baseCRC, SignatureSize: sigSize}
	if !sigSize.IsZero() {
		offset, err := infinint.Decode(r)
		if err != nil {
			return nil, err
		}
		rec.SignatureOffset = offset
	}

	resultBuf := make([]byte, int(crcWidth))
	if _, err := io.ReadFull(r, resultBuf); err != nil {
		return nil, err
	}
	resultCRC, err := crc.Load(resultBuf)
	if err != nil {
		return nil, err
	}
	rec.PatchResultCRC = resultCRC
	return rec, nil
}

// Drop releases rec's materialized payload (direct mode only, matching
// spec.md §4.8's "may be dropped and re-fetched on demand").
func (rec *Record) Drop() {
	rec.Payload = nil
}

// Fetch re-reads rec's payload from the archive body at SignatureOffset
// via a caller-supplied random-access opener, re-materializing it after a
// Drop.
func (rec *Record) Fetch(open func(offset infinint.Int) (io.Reader, error)) error {
	if rec.Payload != nil {
		return nil
	}
	r, err := open(rec.SignatureOffset)
	if err != nil {
		return err
	}
	sig, err := ReadSignature(r)
	if err != nil {
		return err
	}
	rec.Payload = sig
	return nil
}
