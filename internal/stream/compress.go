package stream

import (
	"bufio"
	"compress/gzip"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// CompressAlgo selects the compression algorithm, per spec.md §4.4's set
// {none, gzip, bzip2, lzo, xz, zstd, lz4}.
type CompressAlgo int

const (
	CompressNone CompressAlgo = iota
	CompressGZip
	CompressBZip2
	CompressLZO
	CompressXZ
	CompressZSTD
	CompressLZ4
)

// CompressBZip2, CompressLZO and CompressLZ4 are recognized values (for
// reading archives that name them) but carry no compRegistry entry: the
// corpus has no bzip2/lzo/lz4 *encoder* (compress/bzip2 in the standard
// library is decode-only, and none of the examples import an lzo or lz4
// package), so NewCompress on these returns a Feature error rather than
// silently substituting a different algorithm.

// compHandler mirrors the registry pattern of the teacher's comp.go /
// comp_xz.go / comp_zstd.go: one handler per algorithm, each wiring a
// real compression library. Registered at init() time per algorithm so
// unsupported algorithms fail with a Feature error rather than a panic.
type compHandler struct {
	newWriter func(w io.Writer, level int) (io.WriteCloser, error)
	newReader func(r io.Reader) (io.ReadCloser, error)
}

var compRegistry = map[CompressAlgo]*compHandler{}

func registerComp(algo CompressAlgo, h *compHandler) {
	compRegistry[algo] = h
}

func init() {
	registerComp(CompressNone, &compHandler{
		newWriter: func(w io.Writer, _ int) (io.WriteCloser, error) {
			return nopWriteCloser{w}, nil
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	})

	registerComp(CompressGZip, &compHandler{
		newWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			if level <= 0 {
				level = gzip.DefaultCompression
			}
			return gzip.NewWriterLevel(w, level)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	})

	registerComp(CompressXZ, &compHandler{
		newWriter: func(w io.Writer, _ int) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			rc, err := xz.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.NopCloser(rc), nil
		},
	})

	registerComp(CompressZSTD, &compHandler{
		newWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			opts := []zstd.EOption{}
			if level > 0 {
				opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
			}
			return zstd.NewWriter(w, opts...)
		},
		newReader: func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
	})
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Compress is the compression layer. sync_write ends the current
// compressed frame so that downstream offsets are stable, as required by
// spec.md §4.4 to let the catalogue record a body's length precisely.
type Compress struct {
	base
	lower     Stream
	algo      CompressAlgo
	level     int
	blockSize int // recorded from NewCompress; not applied

	writer io.WriteCloser
	reader *bufio.Reader
	rc     io.ReadCloser
	pos    int64
}

// NewCompress wraps lower with algo at the given level (1-9, except zstd
// which permits higher). blockSize is recorded but not applied: output is
// one compressed stream per SyncWrite frame, whatever its length.
func NewCompress(lower Stream, algo CompressAlgo, level, blockSize int) (*Compress, error) {
	if _, ok := compRegistry[algo]; !ok {
		return nil, errtag.New(errtag.Feature, "compression algorithm not available in this build")
	}
	return &Compress{lower: lower, algo: algo, level: level, blockSize: blockSize}, nil
}

func (c *Compress) ensureWriter() error {
	if c.writer != nil {
		return nil
	}
	h := compRegistry[c.algo]
	w, err := h.newWriter(AsWriter(c.lower), c.level)
	if err != nil {
		return err
	}
	c.writer = w
	return nil
}

func (c *Compress) ensureReader() error {
	if c.rc != nil {
		return nil
	}
	h := compRegistry[c.algo]
	rc, err := h.newReader(AsReader(c.lower))
	if err != nil {
		return err
	}
	c.rc = rc
	c.reader = bufio.NewReader(rc)
	return nil
}

func (c *Compress) Write(p []byte) (int, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	if err := c.ensureWriter(); err != nil {
		return 0, err
	}
	n, err := c.writer.Write(p)
	c.pos += int64(n)
	return n, err
}

func (c *Compress) Read(p []byte) (int, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	if err := c.ensureReader(); err != nil {
		return 0, err
	}
	n, err := c.reader.Read(p)
	c.pos += int64(n)
	return n, err
}

// SyncWrite closes the current compressed frame (flushing any
// algorithm-internal buffering) and, for streams that support resuming a
// fresh frame on the same underlying writer, prepares for the next one.
// This is what lets a file body end at a cleanly recoverable boundary.
func (c *Compress) SyncWrite() error {
	if c.writer == nil {
		return nil
	}
	if err := c.writer.Close(); err != nil {
		return err
	}
	c.writer = nil
	return c.lower.SyncWrite()
}

func (c *Compress) Skip(pos infinint.Int) (bool, error) {
	// Compressed offsets are not linearly addressable; skipping within a
	// compressed frame requires decompressing from its start. Only
	// skipping to a frame boundary (handled by the caller via SyncWrite
	// discipline) is cheap, so report inability here and let callers
	// re-open the layer at the new lower-layer offset instead.
	return false, errtag.New(errtag.Feature, "random access within a compressed frame is not supported")
}

func (c *Compress) SkipRelative(delta int64) (bool, error) {
	if delta == 0 {
		return true, nil
	}
	return false, errtag.New(errtag.Feature, "random access within a compressed frame is not supported")
}

func (c *Compress) SkipToEOF() (bool, error) {
	return c.lower.SkipToEOF()
}

func (c *Compress) Position() infinint.Int { return infinint.New(uint64(c.pos)) }

func (c *Compress) Skippable(Direction, infinint.Int) bool { return false }
func (c *Compress) ReadAhead(infinint.Int)                 {}

func (c *Compress) FlushRead() error {
	c.rc = nil
	c.reader = nil
	return c.lower.FlushRead()
}

func (c *Compress) Terminate() error {
	if c.terminated {
		return nil
	}
	c.markTerminated()
	if c.writer != nil {
		if err := c.writer.Close(); err != nil {
			return err
		}
	}
	if c.rc != nil {
		_ = c.rc.Close()
	}
	return c.lower.Terminate()
}
