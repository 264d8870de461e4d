package engine

import (
	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/deltasig"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// IsolateOptions configures writing a catalogue-only archive, per
// spec.md §4.7's Isolate operation.
type IsolateOptions struct {
	Archive ArchiveParams
	// Mask, when non-nil, selects which File entries get a refreshed
	// delta signature via RecomputeDelta; entries it rejects, or all
	// entries when Mask is nil and RecomputeDelta is nil, keep their
	// existing signature byte-identical.
	Mask           catalogue.DeltaMask
	RecomputeDelta func(name string, base *deltasig.Record) (*deltasig.Record, error)
}

// Isolate writes a new archive holding only co.Catalogue: the data
// pointers already in the catalogue (Offset/StoredSize into the
// *original* archive) are retained as-is, but the new archive's first
// layer gets a data_name that differs from the catalogue's — the on-disk
// signal of spec.md §3/§8 invariant 5 that marks this as an isolated
// catalogue from which no data extraction can be performed. Open
// rejects extraction from the result with errIsolated before any other
// operation is attempted.
func (co *Coordinator) Isolate(opt IsolateOptions) error {
	if co.Catalogue == nil {
		return errNotOpen
	}

	archiveDataName := co.Catalogue.DataName
	isolatedDataName := archiveDataName
	isolatedDataName.InvertFirstByte()
	opt.Archive.DataName = isolatedDataName

	out := catalogue.New(archiveDataName)
	out.Root = co.Catalogue.Root
	out.Stats = co.Catalogue.Stats
	out.InPlacePath = co.Catalogue.InPlacePath
	if opt.RecomputeDelta != nil {
		if err := out.TransferDeltaSignatures(co.Catalogue, opt.Mask, opt.RecomputeDelta); err != nil {
			return err
		}
	}

	pile, sw, err := buildWritePile(opt.Archive)
	if err != nil {
		return err
	}
	co.Pile = pile
	co.sliceWriter = sw
	top := pile.Top()

	if esc, ok := pile.ByLabel("ESCAPE"); ok {
		if err := esc.(*stream.Escape).WriteMark(stream.MarkCatalogueStart); err != nil {
			pile.Close()
			return err
		}
	}
	co.CatalogueOffset = top.Position()
	if _, err := out.WriteTo(top); err != nil {
		pile.Close()
		return err
	}
	return pile.Close()
}
