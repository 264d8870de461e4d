package catalogue

import (
	"encoding/binary"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/crc"
	"github.com/Edrusb/DAR-sub001/internal/deltasig"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// WriteTo serializes c as a pre-order traversal of its tree, per
// spec.md §4.6: each entry begins with its one-byte signature; an EoD
// signature closes each directory. Hard-linked inodes write their full
// body only on first occurrence, tagging it with an étiquette that later
// HardLinkRef occurrences reference by number alone.
func (c *Catalogue) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	written := make(map[uint64]bool)
	cur := c.NewSequentialCursor()
	for {
		e, err := cur.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cw.n, err
		}
		if err := writeEntry(cw, e, written); err != nil {
			return cw.n, err
		}
	}
	// The cursor's own final Next() call already yielded the EoD closing
	// the synthetic root, written above like any other entry.
	return cw.n, nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeEntry(w io.Writer, e Entry, written map[uint64]bool) error {
	switch v := e.(type) {
	case eod:
		_, err := w.Write([]byte{encodeSignature(KindEoD, Saved)})
		return err
	case *Directory:
		if _, err := w.Write([]byte{encodeSignature(KindDirectory, Saved)}); err != nil {
			return err
		}
		return v.M.writeTo(w)
	case *File:
		return writeFile(w, v)
	case *Symlink:
		if _, err := w.Write([]byte{encodeSignature(KindSymlink, v.Saved)}); err != nil {
			return err
		}
		if err := v.M.writeTo(w); err != nil {
			return err
		}
		return writeString(w, v.Target)
	case *CharDevice:
		if _, err := w.Write([]byte{encodeSignature(KindCharDevice, v.Saved)}); err != nil {
			return err
		}
		if err := v.M.writeTo(w); err != nil {
			return err
		}
		return writeMajorMinor(w, v.Major, v.Minor)
	case *BlockDevice:
		if _, err := w.Write([]byte{encodeSignature(KindBlockDevice, v.Saved)}); err != nil {
			return err
		}
		if err := v.M.writeTo(w); err != nil {
			return err
		}
		return writeMajorMinor(w, v.Major, v.Minor)
	case *Pipe:
		if _, err := w.Write([]byte{encodeSignature(KindPipe, v.Saved)}); err != nil {
			return err
		}
		return v.M.writeTo(w)
	case *Socket:
		if _, err := w.Write([]byte{encodeSignature(KindSocket, v.Saved)}); err != nil {
			return err
		}
		return v.M.writeTo(w)
	case *Deleted:
		if _, err := w.Write([]byte{encodeSignature(KindDeleted, Saved)}); err != nil {
			return err
		}
		return v.M.writeTo(w)
	case *HardLinkRef:
		return writeHardLinkRef(w, v, written)
	case *Ignored, *IgnoredDir:
		// never serialized, per spec.md §3.
		return nil
	}
	return nil
}

func writeMajorMinor(w io.Writer, major, minor uint32) error {
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[0:4], major)
	binary.BigEndian.PutUint32(buf[4:8], minor)
	_, err := w.Write(buf[:])
	return err
}

func readMajorMinor(r io.Reader) (uint32, uint32, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint32(buf[0:4]), binary.BigEndian.Uint32(buf[4:8]), nil
}

func writeFile(w io.Writer, f *File) error {
	base := f.Saved
	if base == Delta || base == InodeOnly || base == Removed {
		base = Saved
	}
	if _, err := w.Write([]byte{encodeSignature(KindFile, base), extraStatusByte(f.Saved)}); err != nil {
		return err
	}
	if err := f.M.writeTo(w); err != nil {
		return err
	}
	if f.Saved == Removed {
		return nil
	}
	if err := f.OriginalSize.EncodeTo(w); err != nil {
		return err
	}
	if f.Saved != Saved && f.Saved != Delta {
		return nil // not_saved/inode_only/fake carry no body description
	}
	if err := f.Offset.EncodeTo(w); err != nil {
		return err
	}
	if err := f.StoredSize.EncodeTo(w); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(f.CompressionUsed)}); err != nil {
		return err
	}
	if err := writeCRC(w, f.CRC); err != nil {
		return err
	}
	hasDelta := f.Delta != nil
	var deltaFlag [1]byte
	if hasDelta {
		deltaFlag[0] = 1
	}
	if _, err := w.Write(deltaFlag[:]); err != nil {
		return err
	}
	if hasDelta {
		return f.Delta.WriteDirect(w)
	}
	return nil
}

func writeCRC(w io.Writer, c *crc.CRC) error {
	if c == nil {
		_, err := w.Write([]byte{0})
		return err
	}
	dump := c.Dump()
	if _, err := w.Write([]byte{byte(len(dump))}); err != nil {
		return err
	}
	_, err := w.Write(dump)
	return err
}

func readCRC(r io.Reader) (*crc.CRC, error) {
	var lenBuf [1]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	if lenBuf[0] == 0 {
		return nil, nil
	}
	buf := make([]byte, lenBuf[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return crc.Load(buf)
}

func writeHardLinkRef(w io.Writer, h *HardLinkRef, written map[uint64]bool) error {
	if _, err := w.Write([]byte{encodeSignature(KindHardLinkRef, Saved)}); err != nil {
		return err
	}
	if err := h.M.writeTo(w); err != nil {
		return err
	}
	tag := infinint.New(h.Holder.Tag)
	if err := tag.EncodeTo(w); err != nil {
		return err
	}
	isFirst := !written[h.Holder.Tag]
	var flag [1]byte
	if isFirst {
		flag[0] = 1
	}
	if _, err := w.Write(flag[:]); err != nil {
		return err
	}
	if !isFirst {
		return nil
	}
	written[h.Holder.Tag] = true
	return writeEntry(w, h.Holder.Inode, written)
}

// ReadCatalogue parses a full catalogue previously written by WriteTo.
func ReadCatalogue(r io.Reader, dataName label.Label) (*Catalogue, error) {
	c := New(dataName)
	root, err := readDirectoryBody(r, c, &c.Root.M)
	if err != nil {
		return nil, err
	}
	c.Root = root
	return c, nil
}

// readDirectoryBody reads children until an EoD signature closes this
// directory, returning a Directory whose Meta is left for the caller to
// fill (the root's synthetic Meta is empty).
func readDirectoryBody(r io.Reader, c *Catalogue, m *Meta) (*Directory, error) {
	dir := &Directory{M: *m}
	for {
		var sigBuf [1]byte
		if _, err := io.ReadFull(r, sigBuf[:]); err != nil {
			return nil, err
		}
		kind, saved := decodeSignature(sigBuf[0])
		if kind == KindEoD {
			return dir, nil
		}
		e, err := readEntry(r, kind, saved, c)
		if err != nil {
			return nil, err
		}
		dir.Add(e)
		c.Stats.account(e)
	}
}

func readEntry(r io.Reader, kind Kind, saved SavedStatus, c *Catalogue) (Entry, error) {
	switch kind {
	case KindDirectory:
		m, err := readMeta(r)
		if err != nil {
			return nil, err
		}
		return readDirectoryBody(r, c, &m)
	case KindFile:
		return readFile(r, saved)
	case KindSymlink:
		m, err := readMeta(r)
		if err != nil {
			return nil, err
		}
		target, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &Symlink{M: m, Saved: saved, Target: target}, nil
	case KindCharDevice, KindBlockDevice:
		m, err := readMeta(r)
		if err != nil {
			return nil, err
		}
		major, minor, err := readMajorMinor(r)
		if err != nil {
			return nil, err
		}
		if kind == KindCharDevice {
			return &CharDevice{M: m, Saved: saved, Major: major, Minor: minor}, nil
		}
		return &BlockDevice{M: m, Saved: saved, Major: major, Minor: minor}, nil
	case KindPipe:
		m, err := readMeta(r)
		if err != nil {
			return nil, err
		}
		return &Pipe{M: m, Saved: saved}, nil
	case KindSocket:
		m, err := readMeta(r)
		if err != nil {
			return nil, err
		}
		return &Socket{M: m, Saved: saved}, nil
	case KindDeleted:
		m, err := readMeta(r)
		if err != nil {
			return nil, err
		}
		return &Deleted{M: m}, nil
	case KindHardLinkRef:
		return readHardLinkRef(r, c)
	default:
		return nil, errUnknownSignature
	}
}

func readFile(r io.Reader, baseSaved SavedStatus) (Entry, error) {
	var extra [1]byte
	if _, err := io.ReadFull(r, extra[:]); err != nil {
		return nil, err
	}
	saved := fileExtraStatus(baseSaved, extra[0])
	m, err := readMeta(r)
	if err != nil {
		return nil, err
	}
	f := &File{M: m, Saved: saved, Source: SourceArchive}
	if saved == Removed {
		return f, nil
	}
	origSize, err := infinint.Decode(r)
	if err != nil {
		return nil, err
	}
	f.OriginalSize = origSize
	if saved != Saved && saved != Delta {
		return f, nil
	}
	if f.Offset, err = infinint.Decode(r); err != nil {
		return nil, err
	}
	if f.StoredSize, err = infinint.Decode(r); err != nil {
		return nil, err
	}
	var algo [1]byte
	if _, err := io.ReadFull(r, algo[:]); err != nil {
		return nil, err
	}
	f.CompressionUsed = stream.CompressAlgo(algo[0])
	if f.CRC, err = readCRC(r); err != nil {
		return nil, err
	}
	var deltaFlag [1]byte
	if _, err := io.ReadFull(r, deltaFlag[:]); err != nil {
		return nil, err
	}
	if deltaFlag[0] == 1 {
		crcWidth := crc.Width4
		if f.CRC != nil {
			crcWidth = f.CRC.Width()
		}
		rec, err := deltasig.ReadDirect(r, crcWidth)
		if err != nil {
			return nil, err
		}
		f.Delta = rec
	}
	return f, nil
}

func readHardLinkRef(r io.Reader, c *Catalogue) (Entry, error) {
	m, err := readMeta(r)
	if err != nil {
		return nil, err
	}
	tagInt, err := infinint.Decode(r)
	if err != nil {
		return nil, err
	}
	tag := tagInt.Unstack()
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, err
	}
	if flag[0] == 0 {
		h, ok := c.HolderByTag(tag)
		if !ok {
			return nil, errDanglingTag
		}
		return &HardLinkRef{M: m, Holder: h.Ref()}, nil
	}
	var sigBuf [1]byte
	if _, err := io.ReadFull(r, sigBuf[:]); err != nil {
		return nil, err
	}
	kind, saved := decodeSignature(sigBuf[0])
	inode, err := readEntry(r, kind, saved, c)
	if err != nil {
		return nil, err
	}
	h := &InodeHolder{Tag: tag, Inode: inode}
	c.registerHolder(h)
	return &HardLinkRef{M: m, Holder: h.Ref()}, nil
}
