package engine

import (
	"io"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/crc"
)

// TestOptions configures a Test pass, per spec.md §4.7's Test operation.
type TestOptions struct {
	Selection func(path []string, e catalogue.Entry) bool
}

// Test walks the open archive like Extract but discards every body,
// checking each Saved or Delta file's decompressed bytes against its
// recorded CRC rather than writing them anywhere. It is also the
// operation that, run against a sequentially opened archive, forces the
// whole catalogue to be read (Open's sequential path already drains the
// full tree; Test simply then walks it), per spec.md §4.7.
func (co *Coordinator) Test(opt TestOptions) (*Statistics, error) {
	if co.Catalogue == nil || co.Pile == nil {
		return nil, errNotOpen
	}
	if co.Isolated {
		return nil, errIsolated
	}
	top := co.Pile.Top()
	cur := co.Catalogue.NewSequentialCursor()
	var path []string
	for {
		if co.Cancel.Check() == CancelImmediate {
			return &co.Stats, errCancelled
		}
		e, err := cur.Next()
		if err == io.EOF {
			return &co.Stats, nil
		}
		if err != nil {
			return &co.Stats, err
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

		f, ok := e.(*catalogue.File)
		if !ok || (f.Saved != catalogue.Saved && f.Saved != catalogue.Delta) {
			co.Stats.Treated++
			if _, isDir := e.(*catalogue.Directory); isDir {
				path = append(path, e.Meta().Name)
			}
			if co.Cancel.Check() == CancelDelayed {
				return &co.Stats, nil
			}
			continue
		}
		body, err := seekToBody(co.Pile, top, f)
		if err != nil {
			co.Stats.Errored++
			continue
		}
		data, err := io.ReadAll(body)
		if err != nil {
			co.Stats.Errored++
			continue
		}
		if f.CRC != nil {
			if err := crc.Compare(crc.Sum(data), f.CRC); err != nil {
				co.Stats.Errored++
				continue
			}
		}
		co.Stats.Treated++
		co.Stats.Bytes += uint64(len(data))

		// A delayed cancellation (spec.md §5) lets the file just checked
		// finish, then stops before starting another rather than aborting
		// mid-entry the way an immediate cancellation does.
		if co.Cancel.Check() == CancelDelayed {
			return &co.Stats, nil
		}
	}
}
