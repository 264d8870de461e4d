package stream

import (
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/sar"
)

// SliceWriter adapts *sar.Writer to the Stream interface, filling in the
// operations the narrower sar.Writer doesn't need to know about (pile
// plumbing like read-ahead hints and sync semantics that only matter
// once a layer sits inside a Pile).
type SliceWriter struct {
	w *sar.Writer
}

// NewSliceWriter wraps w for use as the bottom-of-pile layer.
func NewSliceWriter(w *sar.Writer) *SliceWriter { return &SliceWriter{w: w} }

func (s *SliceWriter) Read(p []byte) (int, error) { return 0, ErrWriteOnly }
func (s *SliceWriter) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *SliceWriter) Skip(infinint.Int) (bool, error)         { return false, ErrReadOnly }
func (s *SliceWriter) SkipRelative(int64) (bool, error)        { return false, ErrReadOnly }
func (s *SliceWriter) SkipToEOF() (bool, error)                { return true, nil }
func (s *SliceWriter) Position() infinint.Int                  { return s.w.Position() }
func (s *SliceWriter) Skippable(Direction, infinint.Int) bool  { return false }
func (s *SliceWriter) ReadAhead(infinint.Int)                  {}
func (s *SliceWriter) SyncWrite() error                        { return nil }
func (s *SliceWriter) FlushRead() error                        { return nil }
func (s *SliceWriter) Terminate() error                        { return s.w.Terminate() }

// SliceReader adapts *sar.Reader to the Stream interface.
type SliceReader struct {
	r *sar.Reader
}

// NewSliceReader wraps r for use as the bottom-of-pile layer.
func NewSliceReader(r *sar.Reader) *SliceReader { return &SliceReader{r: r} }

func (s *SliceReader) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s *SliceReader) Write(p []byte) (int, error) { return 0, ErrReadOnly }
func (s *SliceReader) Skip(pos infinint.Int) (bool, error) { return s.r.Skip(pos) }
func (s *SliceReader) SkipRelative(delta int64) (bool, error) {
	cur := s.r.Position().Unstack()
	return s.r.Skip(infinint.New(uint64(int64(cur) + delta)))
}
func (s *SliceReader) SkipToEOF() (bool, error)               { return false, ErrReadOnly }
func (s *SliceReader) Position() infinint.Int                 { return s.r.Position() }
func (s *SliceReader) Skippable(Direction, infinint.Int) bool { return s.r.Layout() != nil }
func (s *SliceReader) ReadAhead(infinint.Int)                 {}
func (s *SliceReader) SyncWrite() error                       { return nil }
func (s *SliceReader) FlushRead() error                       { return nil }
func (s *SliceReader) Terminate() error                       { return s.r.Terminate() }
