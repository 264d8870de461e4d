package engine

import (
	"bytes"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/crc"
	"github.com/Edrusb/DAR-sub001/internal/deltasig"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// MergeOptions configures combining two already-open reference archives
// into a new one, per spec.md §4.7's Merge operation. Left and Right
// must each have an open Pile and loaded Catalogue (the result of a
// prior Open); either may be nil, meaning "this side contributes nothing"
// (a one-sided merge is just a filtered copy).
type MergeOptions struct {
	Left, Right   *Coordinator
	Policy        catalogue.CritAction
	// KeepCompressed makes catalogue.Merge keep the left entry when both
	// sides hold a File with compatible compression, and turns
	// RecomputeDelta off. Bodies are still read back decompressed and
	// written again through Output's compression layer; stored
	// compressed bytes are not copied as they are.
	KeepCompressed bool
	RecomputeDelta catalogue.DeltaMask
	Output         ArchiveParams
}

// Merge combines opt.Left and opt.Right's catalogues under opt.Policy and
// writes the result as a new archive, copying each surviving File's body
// from whichever side's Pile it was sourced from. Merging an archive
// with itself under PreservePolicy reproduces it byte-for-byte in
// listing, per spec.md §8's merge round-trip law.
func (co *Coordinator) Merge(opt MergeOptions) (*catalogue.Catalogue, error) {
	if opt.Left == nil && opt.Right == nil {
		return nil, errNoReference
	}
	var leftCat, rightCat *catalogue.Catalogue
	owner := make(map[*catalogue.File]*Coordinator)
	if opt.Left != nil {
		leftCat = opt.Left.Catalogue
		recordOwner(leftCat, opt.Left, owner)
	} else {
		leftCat = catalogue.New(opt.Right.Catalogue.DataName)
	}
	if opt.Right != nil {
		rightCat = opt.Right.Catalogue
		recordOwner(rightCat, opt.Right, owner)
	} else {
		rightCat = catalogue.New(opt.Left.Catalogue.DataName)
	}

	policy := opt.Policy
	if policy == nil {
		policy = catalogue.PreservePolicy()
	}
	merged := catalogue.Merge(leftCat, rightCat, policy, opt.KeepCompressed)

	dataName := opt.Output.DataName
	if dataName.IsCleared() {
		dataName = merged.DataName
	}
	pile, sw, err := buildWritePile(opt.Output)
	if err != nil {
		return nil, err
	}
	co.Pile = pile
	co.sliceWriter = sw
	top := pile.Top()
	uncompressed, _ := pile.ByLabel(stream.LabelUncompressed)
	var escLayer *stream.Escape
	if e, ok := pile.ByLabel("ESCAPE"); ok {
		escLayer = e.(*stream.Escape)
	}

	if err := copyMergedBodies(merged.Root, owner, top, uncompressed, escLayer, opt.Output.Compression, opt.RecomputeDelta, opt.KeepCompressed); err != nil {
		pile.Close()
		return nil, err
	}

	if escLayer != nil {
		if err := escLayer.WriteMark(stream.MarkCatalogueStart); err != nil {
			pile.Close()
			return nil, err
		}
	}
	co.CatalogueOffset = top.Position()
	out := catalogue.New(dataName)
	out.Root = merged.Root
	out.Stats = merged.Stats
	if _, err := out.WriteTo(top); err != nil {
		pile.Close()
		return nil, err
	}
	if err := pile.Close(); err != nil {
		return nil, err
	}
	co.Catalogue = out
	return out, nil
}

func recordOwner(cat *catalogue.Catalogue, co *Coordinator, owner map[*catalogue.File]*Coordinator) {
	if cat == nil {
		return
	}
	cur := cat.NewSequentialCursor()
	for {
		e, err := cur.Next()
		if err != nil {
			return
		}
		if f, ok := e.(*catalogue.File); ok {
			owner[f] = co
		}
	}
}

// copyMergedBodies walks the merged tree, rewriting each Saved/Delta
// File's Offset to its position in the new archive and copying its
// bytes from whichever Coordinator originally owned it (by pointer
// identity — catalogue.Merge never copies File values, only selects
// which side's pointer survives).
func copyMergedBodies(dir *catalogue.Directory, owner map[*catalogue.File]*Coordinator, top, uncompressed stream.Stream, esc *stream.Escape, outAlgo stream.CompressAlgo, recomputeDelta catalogue.DeltaMask, keepCompressed bool) error {
	for _, child := range dir.Children {
		switch v := child.(type) {
		case *catalogue.Directory:
			if err := copyMergedBodies(v, owner, top, uncompressed, esc, outAlgo, recomputeDelta, keepCompressed); err != nil {
				return err
			}
		case *catalogue.File:
			if v.Saved != catalogue.Saved && v.Saved != catalogue.Delta {
				continue
			}
			src, ok := owner[v]
			if !ok || src.Pile == nil {
				continue
			}
			srcTop := src.Pile.Top()
			body, err := seekToBody(src.Pile, srcTop, v)
			if err != nil {
				return err
			}
			data, err := io.ReadAll(body)
			if err != nil {
				return err
			}
			if esc != nil {
				if err := esc.WriteMark(stream.MarkFileStart); err != nil {
					return err
				}
			}
			v.Offset = uncompressed.Position()
			if _, err := top.Write(data); err != nil {
				return err
			}
			if err := top.SyncWrite(); err != nil {
				return err
			}
			v.StoredSize = infinint.New(uncompressed.Position().Unstack() - v.Offset.Unstack())
			v.CompressionUsed = outAlgo
			if v.CRC == nil {
				v.CRC = crc.Sum(data)
			}
			// recompute the delta signature, rather than reusing v.Delta
			// verbatim, when requested and not keep-compressed (spec.md
			// §4.6 treats the two as mutually exclusive: keep-compressed
			// never re-reads the plaintext this needs).
			if !keepCompressed && recomputeDelta != nil && recomputeDelta(v.M.Name) {
				if sig, err := deltasig.Compute(bytes.NewReader(data), deltasig.BlockLen); err == nil {
					v.Delta = &deltasig.Record{
						PatchBaseCRC:   v.CRC,
						BlockLen:       deltasig.BlockLen,
						Payload:        sig,
						PatchResultCRC: v.CRC,
					}
				}
			}
		}
	}
	return nil
}
