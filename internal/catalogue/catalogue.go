// Package catalogue implements the hierarchical directory of archive
// entries: its tree representation, on-disk serialization, traversal
// cursors, merge overlay and placement operations, per spec.md §3 and
// §4.6.
package catalogue

import (
	"errors"

	"github.com/Edrusb/DAR-sub001/internal/label"
)

// Catalogue is the in-memory tree plus the bookkeeping the coordinator
// needs: the archive's data_name, running Stats, an optional restore
// in-place root path, and the early-release flag of spec.md §4.6.
type Catalogue struct {
	Root         *Directory
	DataName     label.Label
	Stats        Stats
	InPlacePath  string
	EarlyRelease bool

	nextTag uint64
	holders map[uint64]*InodeHolder
}

// New returns an empty catalogue rooted at a synthetic top-level
// Directory, stamped with dataName.
func New(dataName label.Label) *Catalogue {
	return &Catalogue{
		Root:     &Directory{},
		DataName: dataName,
		holders:  make(map[uint64]*InodeHolder),
	}
}

// NewHolder allocates a fresh InodeHolder wrapping inode, tagging it with
// the next unused étiquette.
func (c *Catalogue) NewHolder(inode Entry) *InodeHolder {
	c.nextTag++
	h := &InodeHolder{Tag: c.nextTag, Inode: inode, refCount: 0}
	c.holders[h.Tag] = h
	return h
}

// HolderByTag returns the holder registered under tag, for deduplicating
// subsequent HardLinkRef occurrences read off the stream.
func (c *Catalogue) HolderByTag(tag uint64) (*InodeHolder, bool) {
	h, ok := c.holders[tag]
	return h, ok
}

// registerHolder records h under its own tag (used on read, where the
// tag is assigned by the writer rather than by NewHolder).
func (c *Catalogue) registerHolder(h *InodeHolder) {
	c.holders[h.Tag] = h
	if h.Tag >= c.nextTag {
		c.nextTag = h.Tag
	}
}

// Insert walks dirPath (parent directory names, root-relative) creating
// directories as needed, and appends e as the last child of the final
// directory. It is the API filesystem_backup-style feeders use to build
// a catalogue incrementally while scanning in pre-order.
func (c *Catalogue) Insert(dirPath []string, e Entry) error {
	dir := c.Root
	for _, name := range dirPath {
		child := dir.Find(name)
		if child == nil {
			return errors.New("catalogue: parent directory not found: " + name)
		}
		sub, ok := child.(*Directory)
		if !ok {
			return errors.New("catalogue: parent path component is not a directory: " + name)
		}
		dir = sub
	}
	dir.Add(e)
	c.Stats.account(e)
	if dir != c.Root {
		c.markAncestorsChanged(dirPath)
	}
	return nil
}

// markAncestorsChanged flags every directory along dirPath (root
// included) as changed, implementing the "recursive-has-changed"
// propagation of spec.md §3.
func (c *Catalogue) markAncestorsChanged(dirPath []string) {
	dir := c.Root
	dir.MarkChanged()
	for _, name := range dirPath {
		child := dir.Find(name)
		sub, ok := child.(*Directory)
		if !ok {
			return
		}
		sub.MarkChanged()
		dir = sub
	}
}

// Lookup resolves dirPath (parent directories) plus a final name to its
// Entry, implementing the "pointed lookup by name" of spec.md §4.6.
func (c *Catalogue) Lookup(dirPath []string, name string) (Entry, bool) {
	dir := c.Root
	for _, comp := range dirPath {
		child := dir.Find(comp)
		sub, ok := child.(*Directory)
		if !ok {
			return nil, false
		}
		dir = sub
	}
	e := dir.Find(name)
	return e, e != nil
}
