package engine

import (
	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// ResliceOptions configures re-slicing an existing archive under a new
// slice layout without touching a single body byte, per SPEC_FULL.md §3's
// dar_xform-equivalent operation. Source must already be open (a prior
// Coordinator.Open); Output's FirstSliceSize/OtherSliceSize/naming
// describe the new layout, everything else (cipher, compression,
// data_name) carries over unchanged.
type ResliceOptions struct {
	Output ArchiveParams
}

// Reslice copies Source's catalogue and every file body verbatim into a
// freshly sliced archive. Because the copy happens at the raw layer —
// below compression, above the cipher layers that decrypt on read and
// re-encrypt on write —
// re-slicing can never be observed by Extract/Diff/Test: the data_name
// and every body's bytes are identical to the source, only the slice
// boundaries differ.
func (co *Coordinator) Reslice(opt ResliceOptions) (*catalogue.Catalogue, error) {
	if co.Catalogue == nil || co.Pile == nil {
		return nil, errNotOpen
	}
	srcCat := co.Catalogue
	srcPile := co.Pile

	dstPile, sw, err := buildWritePile(opt.Output)
	if err != nil {
		return nil, err
	}

	srcRaw := rawLayer(srcPile)
	dstRaw := rawLayer(dstPile)
	top := dstPile.Top()
	var dstEsc *stream.Escape
	if e, ok := dstPile.ByLabel("ESCAPE"); ok {
		dstEsc = e.(*stream.Escape)
	}

	if err := repairCopyBodies(srcCat.Root, srcRaw, dstRaw, dstEsc); err != nil {
		dstPile.Close()
		return nil, err
	}
	srcPile.Close()

	if dstEsc != nil {
		if err := dstEsc.WriteMark(stream.MarkCatalogueStart); err != nil {
			dstPile.Close()
			return nil, err
		}
	}
	dataName := opt.Output.DataName
	if dataName.IsCleared() {
		dataName = srcCat.DataName
	}
	out := catalogue.New(dataName)
	out.Root = srcCat.Root
	out.Stats = srcCat.Stats
	catalogueOffset := top.Position()
	if _, err := out.WriteTo(top); err != nil {
		dstPile.Close()
		return nil, err
	}
	if err := dstPile.Close(); err != nil {
		return nil, err
	}

	co.Pile = dstPile
	co.sliceWriter = sw
	co.Catalogue = out
	co.CatalogueOffset = catalogueOffset
	return out, nil
}
