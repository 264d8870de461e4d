package engine

import (
	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// RepairOptions configures rebuilding a usable archive out of one whose
// trailing catalogue is missing or damaged, per spec.md §4.7's Repair
// operation.
type RepairOptions struct {
	Source ArchiveParams // must have TapeMarks set; opened sequentially
	Output ArchiveParams
}

// Repair opens Source by scanning its escape marks — the same path
// openSequential takes, never trusting a by-the-end catalogue position —
// then rewrites Output as a fresh archive carrying the reconstructed
// tree, copying every file's body byte-for-byte from Source without
// decompressing it (Source's cipher layer decrypts it and Output's
// re-encrypts it). It is the one operation allowed to read
// an otherwise-isolated or truncated archive: a damaged catalogue is
// exactly the case Repair exists for.
func (co *Coordinator) Repair(opt RepairOptions) (*catalogue.Catalogue, error) {
	srcPile, sr, err := buildReadPile(opt.Source, nil, true)
	if err != nil {
		return nil, err
	}
	defer srcPile.Close()
	co.sliceReader = sr

	escStream, ok := srcPile.ByLabel("ESCAPE")
	if !ok {
		return nil, errtag.New(errtag.Feature, "archive carries no tape marks to repair from")
	}
	esc := escStream.(*stream.Escape)
	sc := catalogue.NewStreamingCatalogue(esc, opt.Source.DataName)
	srcCat, err := sc.Drain()
	if err != nil {
		return nil, err
	}

	dstPile, sw, err := buildWritePile(opt.Output)
	if err != nil {
		return nil, err
	}
	co.Pile = dstPile
	co.sliceWriter = sw

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

	if dstEsc != nil {
		if err := dstEsc.WriteMark(stream.MarkCatalogueStart); err != nil {
			dstPile.Close()
			return nil, err
		}
	}
	co.CatalogueOffset = top.Position()
	out := catalogue.New(opt.Output.DataName)
	out.Root = srcCat.Root
	out.Stats = srcCat.Stats
	if _, err := out.WriteTo(top); err != nil {
		dstPile.Close()
		return nil, err
	}
	if err := dstPile.Close(); err != nil {
		return nil, err
	}
	co.Catalogue = out
	return out, nil
}

// repairCopyBodies walks dir, moving every Saved or Delta File's stored
// bytes from srcRaw to dstRaw unchanged (still compressed) and
// rewriting Offset to the new position. StoredSize,
// CompressionUsed, CRC and Delta all describe bytes that never move, so
// none of them need recomputing.
func repairCopyBodies(dir *catalogue.Directory, srcRaw, dstRaw stream.Stream, dstEsc *stream.Escape) error {
	for _, child := range dir.Children {
		switch v := child.(type) {
		case *catalogue.Directory:
			if err := repairCopyBodies(v, srcRaw, dstRaw, dstEsc); err != nil {
				return err
			}
		case *catalogue.File:
			if v.Saved != catalogue.Saved && v.Saved != catalogue.Delta {
				continue
			}
			if dstEsc != nil {
				if err := dstEsc.WriteMark(stream.MarkFileStart); err != nil {
					return err
				}
			}
			newOffset, err := copyRawBody(srcRaw, dstRaw, v.Offset, v.StoredSize.Unstack())
			if err != nil {
				return err
			}
			v.Offset = newOffset
		}
	}
	return nil
}
