package engine

import (
	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/sar"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// OpenOptions configures opening an existing archive for read, per
// spec.md §4.7.
type OpenOptions struct {
	Archive   ArchiveParams
	OnMissing sar.PromptForMissingSlice
	Lax       bool
	// Sequential forces a tape-mark scan even when CatalogueOffset is
	// known (cmd/dar's test subcommand sets it).
	Sequential bool
}

// Open reads an archive's catalogue, leaving co ready for
// Extract/Diff/List, per spec.md §4.6/§4.7.
//
// Two access paths exist, mirroring the real trade-off spec.md §4.6
// describes: "by-the-end" jumps straight to a known catalogue position
// (opt.Archive.CatalogueOffset, recorded by a prior Create) without
// reading the file bodies first; the escape-mark scan instead walks
// forward from the start, locating file bodies as their MarkFileStart
// marks are found, and needs no prior knowledge of the catalogue's
// position. An archive written without tape marks and without a known
// CatalogueOffset cannot be opened at all outside of Create's own
// process — recorded as a Feature error rather than guessed at.
func (co *Coordinator) Open(opt OpenOptions) error {
	pile, sr, err := buildReadPile(opt.Archive, opt.OnMissing, opt.Lax)
	if err != nil {
		return err
	}
	co.Pile = pile
	co.sliceReader = sr

	if !opt.Sequential && !opt.Archive.CatalogueOffset.IsZero() {
		top := pile.Top()
		if _, err := top.Skip(opt.Archive.CatalogueOffset); err == nil {
			if cat, err := catalogue.ReadCatalogue(stream.AsReader(top), opt.Archive.DataName); err == nil {
				co.Catalogue = cat
				co.markIsolated()
				return nil
			}
		}
	}
	if err := co.openSequential(opt.Archive); err != nil {
		return err
	}
	co.markIsolated()
	return nil
}

// markIsolated records whether the just-loaded catalogue's data_name
// disagrees with the first slice header's, per spec.md §3's definition
// of an isolated catalogue. Legacy headers carrying no data_name TLV at
// all are never treated as isolated (there is nothing to disagree with).
func (co *Coordinator) markIsolated() {
	if co.sliceReader == nil || co.Catalogue == nil {
		return
	}
	dn, ok := co.sliceReader.DataName()
	if !ok {
		return
	}
	co.Isolated = !dn.Equal(co.Catalogue.DataName)
}

// openSequential drains the escape-mark layer, the path taken for
// archives without a known by-the-end catalogue position (pipes,
// removable media not fully written), per spec.md §4.6.
func (co *Coordinator) openSequential(p ArchiveParams) error {
	escStream, ok := co.Pile.ByLabel("ESCAPE")
	if !ok {
		return errtag.New(errtag.Feature, "archive has no recorded catalogue position and no tape marks to scan for one")
	}
	esc := escStream.(*stream.Escape)
	sc := catalogue.NewStreamingCatalogue(esc, p.DataName)
	cat, err := sc.Drain()
	if err != nil {
		return err
	}
	co.Catalogue = cat
	return nil
}
