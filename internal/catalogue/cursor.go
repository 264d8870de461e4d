package catalogue

import "io"

// eod is the singleton End-of-Directory sentinel entry a sequential or
// subtree cursor emits to close each directory level, per spec.md §4.6.
type eod struct{}

func (eod) Kind() Kind   { return KindEoD }
func (eod) Meta() *Meta  { return nil }

// EoD is the shared End-of-Directory sentinel value.
var EoD Entry = eod{}

type frame struct {
	dir *Directory
	idx int
}

// SequentialCursor walks a Catalogue in pre-order, exactly as it is
// serialized on disk: each Directory is followed eventually by an EoD
// once all its children have been visited, per spec.md §4.6.
type SequentialCursor struct {
	root  *Directory
	stack []frame
	done  bool
}

// NewSequentialCursor returns a cursor positioned at the start of c.
func (c *Catalogue) NewSequentialCursor() *SequentialCursor {
	sc := &SequentialCursor{root: c.Root}
	sc.Reset()
	return sc
}

// Reset repositions the cursor at the beginning of the traversal.
func (sc *SequentialCursor) Reset() {
	sc.stack = []frame{{dir: sc.root, idx: 0}}
	sc.done = false
}

// Next returns the next entry in pre-order, EoD when a directory closes,
// or io.EOF once the whole tree (including the implicit root close) has
// been walked.
func (sc *SequentialCursor) Next() (Entry, error) {
	if sc.done {
		return nil, io.EOF
	}
	for len(sc.stack) > 0 {
		top := &sc.stack[len(sc.stack)-1]
		if top.idx >= len(top.dir.Children) {
			sc.stack = sc.stack[:len(sc.stack)-1]
			if len(sc.stack) == 0 {
				sc.done = true
			}
			return EoD, nil
		}
		child := top.dir.Children[top.idx]
		top.idx++
		if sub, ok := child.(*Directory); ok {
			sc.stack = append(sc.stack, frame{dir: sub, idx: 0})
		}
		return child, nil
	}
	sc.done = true
	return nil, io.EOF
}

// SkipReadToParentDir discards the remainder of the innermost open
// directory, positioning the cursor as if that directory's EoD had just
// been read. This is the "sequential read cursor" escape hatch of
// spec.md §4.6, used when a caller wants to skip an uninteresting
// subtree without visiting every descendant.
func (sc *SequentialCursor) SkipReadToParentDir() {
	if len(sc.stack) == 0 {
		return
	}
	sc.stack = sc.stack[:len(sc.stack)-1]
	if len(sc.stack) == 0 {
		sc.done = true
	}
}

// SubtreeCursor walks only the path from the catalogue root down to one
// target entry, descending through the intervening directories and then
// emitting one EoD per directory level entered as it unwinds — "emitting
// synthetic EoDs to return to root even when the path is a single file",
// per spec.md §4.6.
type SubtreeCursor struct {
	items []Entry
	idx   int
}

// NewSubtreeCursor builds a cursor over the path dirPath+name (dirPath is
// the sequence of parent directory names from the root).
func (c *Catalogue) NewSubtreeCursor(dirPath []string, name string) (*SubtreeCursor, error) {
	var items []Entry
	dir := c.Root
	var ancestors []*Directory
	for _, comp := range dirPath {
		child := dir.Find(comp)
		sub, ok := child.(*Directory)
		if !ok {
			return nil, errNotFound(comp)
		}
		items = append(items, sub)
		ancestors = append(ancestors, sub)
		dir = sub
	}
	target := dir.Find(name)
	if target == nil {
		return nil, errNotFound(name)
	}
	items = append(items, target)
	if sub, ok := target.(*Directory); ok {
		items = append(items, flattenSubtree(sub)...)
		items = append(items, EoD) // close target itself
	}
	for range ancestors {
		items = append(items, EoD) // unwind ancestors back to root
	}
	return &SubtreeCursor{items: items}, nil
}

func flattenSubtree(d *Directory) []Entry {
	var out []Entry
	for _, child := range d.Children {
		out = append(out, child)
		if sub, ok := child.(*Directory); ok {
			out = append(out, flattenSubtree(sub)...)
			out = append(out, EoD)
		}
	}
	return out
}

// Next returns the next entry, or io.EOF once exhausted.
func (sc *SubtreeCursor) Next() (Entry, error) {
	if sc.idx >= len(sc.items) {
		return nil, io.EOF
	}
	e := sc.items[sc.idx]
	sc.idx++
	return e, nil
}

type notFoundError string

func (e notFoundError) Error() string { return "catalogue: entry not found: " + string(e) }

func errNotFound(name string) error { return notFoundError(name) }
