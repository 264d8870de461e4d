package engine

import (
	"io"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
)

// DiffOptions configures a comparison against the live filesystem, per
// spec.md §4.7's Diff operation.
type DiffOptions struct {
	Archive   ArchiveParams
	Selection func(path []string, e catalogue.Entry) bool
	Fields    CompareFields
}

// DiffResult counts how many entries matched and mismatched.
type DiffResult struct {
	Matched    uint64
	Mismatched []string
}

// Diff walks the open archive's catalogue, calling dst.Compare for every
// selected entry and collecting mismatches, per spec.md §4.7.
func (co *Coordinator) Diff(dst FilesystemDiff, opt DiffOptions) (*DiffResult, error) {
	if co.Catalogue == nil || co.Pile == nil {
		return nil, errNotOpen
	}
	if co.Isolated {
		return nil, errIsolated
	}
	res := &DiffResult{}
	top := co.Pile.Top()
	cur := co.Catalogue.NewSequentialCursor()
	var path []string
	for {
		if co.Cancel.Check() == CancelImmediate {
			return res, errCancelled
		}
		e, err := cur.Next()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, err
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
			if b, err := seekToBody(co.Pile, top, f); err == nil {
				body = b
			}
		}
		ok, err := dst.Compare(path, e, body, opt.Fields)
		if err != nil {
			co.Stats.Errored++
			continue
		}
		co.Stats.Treated++
		if ok {
			res.Matched++
		} else {
			res.Mismatched = append(res.Mismatched, joinPath(path, e.Meta()))
		}
		if _, isDir := e.(*catalogue.Directory); isDir {
			path = append(path, e.Meta().Name)
		}

		// A delayed cancellation (spec.md §5) lets the entry just compared
		// finish, then stops before starting another rather than aborting
		// mid-entry the way an immediate cancellation does.
		if co.Cancel.Check() == CancelDelayed {
			return res, nil
		}
	}
}

func joinPath(path []string, m *catalogue.Meta) string {
	out := ""
	for _, c := range path {
		out += c + "/"
	}
	if m != nil {
		out += m.Name
	}
	return out
}
