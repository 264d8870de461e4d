package catalogue

import "github.com/Edrusb/DAR-sub001/internal/deltasig"

// UpdateDestroyedWith implements update_destroyed_with (spec.md §4.6):
// for every entry present in ref but absent here, append a Deleted
// marker with the same name, recursing into directories present on both
// sides. Returns the count of markers added. Idempotent: a second call
// against the same ref finds the previously-added Deleted markers via
// name lookup and adds nothing further.
func (c *Catalogue) UpdateDestroyedWith(ref *Catalogue) int {
	return updateDestroyedDir(c.Root, ref.Root)
}

func updateDestroyedDir(cur, ref *Directory) int {
	count := 0
	for _, refChild := range ref.Children {
		name := refChild.Meta().Name
		cand := cur.Find(name)
		if cand == nil {
			cur.Add(&Deleted{M: Meta{Name: name}})
			count++
			continue
		}
		refDir, isRefDir := refChild.(*Directory)
		curDir, isCurDir := cand.(*Directory)
		if isRefDir && isCurDir {
			count += updateDestroyedDir(curDir, refDir)
		}
	}
	return count
}

// UpdateAbsentWith implements update_absent_with (spec.md §4.6): for
// every entry present in ref but absent here, clone it as not_saved
// (demoting EA/FSA status per the rules below) and insert it, recursing
// into the whole subtree for directories that didn't exist at all here.
// Used when a backup is cancelled so the catalogue still fully describes
// files that were never visited.
func (c *Catalogue) UpdateAbsentWith(ref *Catalogue) int {
	return updateAbsentDir(c.Root, ref.Root)
}

func updateAbsentDir(cur, ref *Directory) int {
	count := 0
	for _, refChild := range ref.Children {
		name := refChild.Meta().Name
		cand := cur.Find(name)
		if cand == nil {
			clone := cloneAsNotSaved(refChild)
			cur.Add(clone)
			count++
			if cloneDir, ok := clone.(*Directory); ok {
				if refDir, ok2 := refChild.(*Directory); ok2 {
					count += populateNotSavedSubtree(cloneDir, refDir)
				}
			}
			continue
		}
		refDir, isRefDir := refChild.(*Directory)
		curDir, isCurDir := cand.(*Directory)
		if isRefDir && isCurDir {
			count += updateAbsentDir(curDir, refDir)
		}
	}
	return count
}

// populateNotSavedSubtree recursively clones every descendant of ref (a
// directory discovered to be entirely absent) as not_saved, since the
// whole subtree was never visited either.
func populateNotSavedSubtree(cur, ref *Directory) int {
	count := 0
	for _, refChild := range ref.Children {
		clone := cloneAsNotSaved(refChild)
		cur.Add(clone)
		count++
		if cloneDir, ok := clone.(*Directory); ok {
			if refDir, ok2 := refChild.(*Directory); ok2 {
				count += populateNotSavedSubtree(cloneDir, refDir)
			}
		}
	}
	return count
}

func demoteEA(ea EAStatus) EAStatus {
	switch ea {
	case EAFull:
		return EAPartial
	case EAFake:
		return EAFake
	default:
		return ea
	}
}

func cloneAsNotSaved(e Entry) Entry {
	switch v := e.(type) {
	case *Directory:
		m := v.M
		m.EA = demoteEA(m.EA)
		return &Directory{M: m}
	case *File:
		m := v.M
		m.EA = demoteEA(m.EA)
		return &File{M: m, Saved: NotSaved, Source: SourceArchive, OriginalSize: v.OriginalSize}
	case *Symlink:
		m := v.M
		m.EA = demoteEA(m.EA)
		return &Symlink{M: m, Saved: NotSaved, Target: v.Target}
	case *CharDevice:
		m := v.M
		m.EA = demoteEA(m.EA)
		return &CharDevice{M: m, Saved: NotSaved, Major: v.Major, Minor: v.Minor}
	case *BlockDevice:
		m := v.M
		m.EA = demoteEA(m.EA)
		return &BlockDevice{M: m, Saved: NotSaved, Major: v.Major, Minor: v.Minor}
	case *Pipe:
		m := v.M
		m.EA = demoteEA(m.EA)
		return &Pipe{M: m, Saved: NotSaved}
	case *Socket:
		m := v.M
		m.EA = demoteEA(m.EA)
		return &Socket{M: m, Saved: NotSaved}
	case *Deleted:
		m := v.M
		return &Deleted{M: m}
	case *HardLinkRef:
		return &HardLinkRef{M: v.M, Holder: v.Holder.Ref()}
	default:
		return e
	}
}

// DeltaMask decides, per entry name, whether transfer_delta_signatures
// should (re)compute a delta signature for it.
type DeltaMask func(name string) bool

// TransferDeltaSignatures implements transfer_delta_signatures (spec.md
// §4.6): for every File entry selected by mask, either reuses the
// matching entry's delta record from ref verbatim, or calls recompute to
// produce a fresh one (e.g. because the archive being written uses a
// different compression block size), and embeds the result into c's
// corresponding File entry.
func (c *Catalogue) TransferDeltaSignatures(ref *Catalogue, mask DeltaMask, recompute func(name string, base *deltasig.Record) (*deltasig.Record, error)) error {
	return transferDeltaDir(c.Root, ref.Root, mask, recompute)
}

func transferDeltaDir(cur, ref *Directory, mask DeltaMask, recompute func(string, *deltasig.Record) (*deltasig.Record, error)) error {
	for _, curChild := range cur.Children {
		name := curChild.Meta().Name
		refChild := ref.Find(name)
		if refChild == nil {
			continue
		}
		if curDir, ok := curChild.(*Directory); ok {
			if refDir, ok2 := refChild.(*Directory); ok2 {
				if err := transferDeltaDir(curDir, refDir, mask, recompute); err != nil {
					return err
				}
			}
			continue
		}
		curFile, ok := curChild.(*File)
		if !ok || mask == nil || !mask(name) {
			continue
		}
		refFile, ok := refChild.(*File)
		if !ok || refFile.Delta == nil {
			continue
		}
		if recompute == nil {
			curFile.Delta = refFile.Delta
			continue
		}
		rec, err := recompute(name, refFile.Delta)
		if err != nil {
			return err
		}
		curFile.Delta = rec
	}
	return nil
}
