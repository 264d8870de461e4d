package engine

import (
	"io"

	"github.com/Edrusb/DAR-sub001/internal/sar"
)

// ListFormat selects a List rendering, per spec.md §4.7.
type ListFormat int

const (
	ListPlain ListFormat = iota
	ListTree
	ListXML
)

// List writes the open archive's catalogue to w in the requested format,
// annotating entries with their owning slice when the archive's Layout
// is known.
func (co *Coordinator) List(w io.Writer, format ListFormat) error {
	if co.Catalogue == nil {
		return errNotOpen
	}
	var layout *sar.Layout
	if co.sliceReader != nil {
		layout = co.sliceReader.Layout()
	}
	switch format {
	case ListTree:
		return co.Catalogue.ListTree(w, layout)
	case ListXML:
		return co.Catalogue.ListXML(w, layout)
	default:
		return co.Catalogue.ListPlain(w, layout)
	}
}
