package engine

import (
	"io"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
)

// ExtractOptions configures a restore, per spec.md §4.7's Extract
// operation.
type ExtractOptions struct {
	Archive ArchiveParams
	// Selection, when non-nil, restricts extraction to entries for which
	// it returns true; nil means "everything saved".
	Selection func(path []string, e catalogue.Entry) bool
	InPlace   bool // restore ownership/permissions as recorded, not the invoker's
}

// Extract walks the already-open archive's catalogue in pre-order,
// restoring each Saved entry's body through dst, per spec.md §4.7.
func (co *Coordinator) Extract(dst FilesystemRestore, opt ExtractOptions) error {
	if co.Catalogue == nil || co.Pile == nil {
		return errNotOpen
	}
	if co.Isolated {
		return errIsolated
	}
	top := co.Pile.Top()
	cur := co.Catalogue.NewSequentialCursor()
	var path []string
	for {
		if co.Cancel.Check() == CancelImmediate {
			return errCancelled
		}
		e, err := cur.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if e.Kind() == catalogue.KindEoD {
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
			continue
		}
		if opt.Selection != nil && !opt.Selection(path, e) {
			co.Stats.Skipped++
			if _, isDir := e.(*catalogue.Directory); isDir {
				cur.SkipReadToParentDir()
			}
			continue
		}

		var body io.Reader
		if f, ok := e.(*catalogue.File); ok && (f.Saved == catalogue.Saved || f.Saved == catalogue.Delta) {
			b, err := seekToBody(co.Pile, top, f)
			if err != nil {
				co.Stats.Errored++
				continue
			}
			body = b
		}
		if err := dst.Write(path, e, body); err != nil {
			co.Stats.Errored++
			continue
		}
		co.Stats.Treated++
		if f, ok := e.(*catalogue.File); ok {
			co.Stats.Bytes += f.OriginalSize.Unstack()
		}
		if _, isDir := e.(*catalogue.Directory); isDir {
			path = append(path, e.Meta().Name)
		}

		// A delayed cancellation (spec.md §5) lets the entry just restored
		// finish, then stops before starting another rather than aborting
		// mid-entry the way an immediate cancellation does.
		if co.Cancel.Check() == CancelDelayed {
			return nil
		}
	}
}
