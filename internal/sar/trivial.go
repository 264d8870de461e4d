package sar

import "github.com/Edrusb/DAR-sub001/internal/infinint"

// unlimitedSliceSize is used by the trivial (single-slice) layer: a
// payload capacity effectively large enough that no second slice is ever
// opened in practice. The trivial layer exists purely to skip the
// multi-slice bookkeeping when the caller knows up front there will only
// ever be one slice (spec.md §2's "trivial (single) slice layer").
var unlimitedSliceSize = infinint.New(^uint64(0) >> 1)

// NewTrivialWriter opens a single-slice writer: the returned Writer
// behaves exactly like a multi-slice Writer configured with a Layout
// that will never fill, so Terminate always tags slice 1 terminal.
func NewTrivialWriter(opt WriterOptions) (*Writer, error) {
	opt.Layout = &Layout{FirstSize: unlimitedSliceSize, OtherSize: unlimitedSliceSize}
	return NewWriter(opt)
}

// NewTrivialReader opens a single-slice reader.
func NewTrivialReader(opt ReaderOptions) (*Reader, error) {
	return NewReader(opt)
}
