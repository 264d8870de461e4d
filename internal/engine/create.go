package engine

import (
	"bytes"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/crc"
	"github.com/Edrusb/DAR-sub001/internal/deltasig"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// CreateOptions configures a backup, per spec.md §4.7's Create operation.
type CreateOptions struct {
	Archive ArchiveParams
	// Reference, when non-nil, makes this a differential backup: entries
	// unchanged since Reference are recorded NotSaved instead of Saved.
	Reference *catalogue.Catalogue
	ComputeDelta bool // attach a delta signature to every saved regular file
	Fetch        func(path string) (io.ReadCloser, error)
}

// Create performs a full or differential backup, reading entries from fs
// in pre-order and writing their bodies into a freshly opened Pile, per
// spec.md §4.7.
func (co *Coordinator) Create(fs FilesystemBackup, opt CreateOptions) (*catalogue.Catalogue, error) {
	pile, sw, err := buildWritePile(opt.Archive)
	if err != nil {
		return nil, err
	}
	co.Pile = pile
	co.sliceWriter = sw

	dataName := opt.Archive.DataName
	if dataName.IsCleared() {
		dataName = label.MustGenerate()
	}
	cat := catalogue.New(dataName)
	co.Catalogue = cat

	top := pile.Top()
	var escLayer *stream.Escape
	if e, ok := pile.ByLabel("ESCAPE"); ok {
		escLayer = e.(*stream.Escape)
	}
	uncompressed, _ := pile.ByLabel(stream.LabelUncompressed)

	if err := fs.ResetRead(""); err != nil {
		pile.Close()
		return nil, err
	}

	// cancelledWithRef records a delayed cancellation (spec.md §5) that hit
	// a differential backup: the scan stops right there and
	// UpdateAbsentWith backfills the rest of the tree from Reference
	// below, rather than continuing to walk fs just to learn names the
	// reference already has.
	cancelledWithRef := false

	var path []string
	for {
		mode := co.Cancel.Check()
		if mode == CancelImmediate {
			pile.Close()
			return nil, errCancelled
		}
		if mode == CancelDelayed && opt.Reference != nil {
			cancelledWithRef = true
			break
		}

		e, err := fs.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			co.Stats.Errored++
			continue
		}
		if e.Kind() == catalogue.KindEoD {
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
			continue
		}

		if opt.Reference != nil {
			applyDifferentialStatus(e, opt.Reference, path)
		}

		// A delayed cancellation with no Reference to backfill from still
		// has to finish the scan, so the catalogue stays a complete
		// description of the tree (spec.md §8 Scenario C): it just stops
		// fetching and writing bodies from here on.
		if f, ok := e.(*catalogue.File); ok && f.Saved == catalogue.Saved {
			if mode == CancelDelayed {
				f.Saved = catalogue.NotSaved
			} else if err := co.writeFileBody(f, opt, escLayer, top, uncompressed); err != nil {
				co.Stats.Errored++
				f.Saved = catalogue.NotSaved
			} else {
				co.Stats.Bytes += f.OriginalSize.Unstack()
			}
		}

		if err := cat.Insert(path, e); err != nil {
			pile.Close()
			return nil, err
		}
		co.Stats.Treated++

		if _, isDir := e.(*catalogue.Directory); isDir {
			path = append(path, e.Meta().Name)
		}
	}

	if cancelledWithRef {
		cat.UpdateAbsentWith(opt.Reference)
	}
	if opt.Reference != nil {
		// Names present in Reference that the scan never produced an
		// entry for at all (removed from the filesystem since) still need
		// a record,
		// per spec.md §4.6's update_destroyed_with.
		cat.UpdateDestroyedWith(opt.Reference)
	}

	if escLayer != nil {
		if err := escLayer.WriteMark(stream.MarkCatalogueStart); err != nil {
			pile.Close()
			return nil, err
		}
	}
	co.CatalogueOffset = top.Position()
	if _, err := cat.WriteTo(top); err != nil {
		pile.Close()
		return nil, err
	}
	if err := pile.Close(); err != nil {
		return nil, err
	}
	return cat, nil
}

// writeFileBody streams one file's content through top (which may run it
// through compression/cipher/escape layers) and records its Offset in
// uncompressed's position space — the layer immediately below
// compression, per spec.md §4.2 — rather than top's own, since a
// compression layer's position is not meaningful for later random
// access (internal/stream.Compress.Skip refuses mid-frame seeks). A
// trailing SyncWrite closes the current compressed frame so the next
// file (or the catalogue itself) starts at a position a later Extract
// can seek straight to.
func (co *Coordinator) writeFileBody(f *catalogue.File, opt CreateOptions, esc *stream.Escape, top, uncompressed stream.Stream) error {
	rc, err := opt.Fetch(f.FSPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	f.OriginalSize = infinint.New(uint64(len(data)))
	sum := crc.Sum(data)
	f.CRC = sum

	if esc != nil {
		if err := esc.WriteMark(stream.MarkFileStart); err != nil {
			return err
		}
	}
	f.Offset = uncompressed.Position()
	if _, err := top.Write(data); err != nil {
		return err
	}
	if err := top.SyncWrite(); err != nil {
		return err
	}
	f.StoredSize = infinint.New(uncompressed.Position().Unstack() - f.Offset.Unstack())
	f.CompressionUsed = opt.Archive.Compression
	f.Source = catalogue.SourceArchive

	if opt.ComputeDelta {
		sig, err := deltasig.Compute(bytes.NewReader(data), deltasig.BlockLen)
		if err == nil {
			f.Delta = &deltasig.Record{
				PatchBaseCRC:   sum,
				BlockLen:       deltasig.BlockLen,
				Payload:        sig,
				PatchResultCRC: sum,
			}
		}
	}
	return nil
}

// applyDifferentialStatus demotes e to NotSaved when an entry of the same
// name/path already exists, unchanged, in reference, per spec.md §4.7's
// differential-backup comparison ("same size, same mtime" by default).
func applyDifferentialStatus(e catalogue.Entry, reference *catalogue.Catalogue, path []string) {
	f, ok := e.(*catalogue.File)
	if !ok {
		return
	}
	prior, found := reference.Lookup(path, f.M.Name)
	if !found {
		return
	}
	pf, ok := prior.(*catalogue.File)
	if !ok {
		return
	}
	if pf.M.MTime.Equal(f.M.MTime) && pf.OriginalSize.Unstack() == f.OriginalSize.Unstack() {
		f.Saved = catalogue.NotSaved
	}
}
