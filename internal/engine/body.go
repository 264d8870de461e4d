package engine

import (
	"io"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
)

// ReadFileBody returns the full decompressed, decrypted bytes of f, per
// the same seekToBody path Extract/Diff/Test use. Random-access readers
// (the FUSE view in internal/fuseview) have no cheaper option: a
// compressed frame only supports forward decoding, so any byte range
// within a file requires decoding it from the start at least once.
func (co *Coordinator) ReadFileBody(f *catalogue.File) ([]byte, error) {
	if co.Pile == nil {
		return nil, errNotOpen
	}
	if co.Isolated {
		return nil, errIsolated
	}
	r, err := seekToBody(co.Pile, co.Pile.Top(), f)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
