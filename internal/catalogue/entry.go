package catalogue

import (
	"github.com/Edrusb/DAR-sub001/internal/crc"
	"github.com/Edrusb/DAR-sub001/internal/deltasig"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// Entry is the tagged-variant catalogue entry of spec.md §3: every
// concrete type below implements it, and a type switch on Kind() is the
// idiomatic replacement for the source's deep class hierarchy (per
// spec.md §9's design note).
type Entry interface {
	Kind() Kind
	Meta() *Meta
}

// Directory is a named entry with an ordered list of children; it
// exclusively owns them (spec.md §3's ownership semantics).
type Directory struct {
	M        Meta
	Children []Entry

	// recursiveChanged propagates "has this subtree changed" status
	// upward without a second tree walk, per spec.md §3.
	recursiveChanged bool
}

func (d *Directory) Kind() Kind { return KindDirectory }
func (d *Directory) Meta() *Meta { return &d.M }

// MarkChanged flags d (and, transitively, every ancestor visited via
// Catalogue.markAncestorsChanged) as containing at least one change.
func (d *Directory) MarkChanged() { d.recursiveChanged = true }

// HasChanged reports whether d or any descendant was marked changed.
func (d *Directory) HasChanged() bool { return d.recursiveChanged }

// Add appends child to d's children, in traversal order.
func (d *Directory) Add(child Entry) { d.Children = append(d.Children, child) }

// Find returns the direct child named name, or nil.
func (d *Directory) Find(name string) Entry {
	for _, c := range d.Children {
		if m := c.Meta(); m != nil && m.Name == name {
			return c
		}
	}
	return nil
}

// FileSource distinguishes where a File's body lives.
type FileSource int

const (
	SourceFilesystem FileSource = iota // body not yet written to an archive; read from disk on demand
	SourceArchive                      // body recorded at Offset within the owning archive
)

// File is a regular-file entry: metadata plus either a filesystem source
// (pending write) or an archive-resident body description.
type File struct {
	M     Meta
	Saved SavedStatus
	Source FileSource

	// filesystem-backed fields (SourceFilesystem)
	FSPath string

	// archive-backed fields (SourceArchive), per spec.md §3
	Offset          infinint.Int
	StoredSize      infinint.Int
	OriginalSize    infinint.Int
	CompressionUsed stream.CompressAlgo
	CRC             *crc.CRC

	// Delta is non-nil when Saved == Delta, or more generally whenever a
	// delta signature was recorded for this entry (spec.md §3).
	Delta *deltasig.Record
}

func (f *File) Kind() Kind  { return KindFile }
func (f *File) Meta() *Meta { return &f.M }

// fileExtraStatus refines the signature byte's coarse saved/not_saved/
// fake encoding with the richer SavedStatus range File entries need; see
// encodeSignature's doc comment.
func fileExtraStatus(base SavedStatus, extra byte) SavedStatus {
	switch extra {
	case 1:
		return Delta
	case 2:
		return InodeOnly
	case 3:
		return Removed
	default:
		return base
	}
}

func extraStatusByte(s SavedStatus) byte {
	switch s {
	case Delta:
		return 1
	case InodeOnly:
		return 2
	case Removed:
		return 3
	default:
		return 0
	}
}

// Symlink is a symbolic-link entry.
type Symlink struct {
	M      Meta
	Saved  SavedStatus
	Target string
}

func (s *Symlink) Kind() Kind  { return KindSymlink }
func (s *Symlink) Meta() *Meta { return &s.M }

// CharDevice and BlockDevice carry the unpacked major/minor device
// number; internal/fsadapter packs/unpacks it against the real st_rdev
// via golang.org/x/sys/unix's Major/Minor/Mkdev at the OS boundary.
type CharDevice struct {
	M            Meta
	Saved        SavedStatus
	Major, Minor uint32
}

func (c *CharDevice) Kind() Kind  { return KindCharDevice }
func (c *CharDevice) Meta() *Meta { return &c.M }

type BlockDevice struct {
	M            Meta
	Saved        SavedStatus
	Major, Minor uint32
}

func (b *BlockDevice) Kind() Kind  { return KindBlockDevice }
func (b *BlockDevice) Meta() *Meta { return &b.M }

type Pipe struct {
	M     Meta
	Saved SavedStatus
}

func (p *Pipe) Kind() Kind  { return KindPipe }
func (p *Pipe) Meta() *Meta { return &p.M }

type Socket struct {
	M     Meta
	Saved SavedStatus
}

func (s *Socket) Kind() Kind  { return KindSocket }
func (s *Socket) Meta() *Meta { return &s.M }

// Deleted marks an entry removed since a reference catalogue, per
// update_destroyed_with.
type Deleted struct {
	M Meta
}

func (d *Deleted) Kind() Kind  { return KindDeleted }
func (d *Deleted) Meta() *Meta { return &d.M }

// InodeHolder is the reference-counted "mirage/étoile" owner of a
// hard-linked inode, per spec.md §3. Several HardLinkRef entries share
// one holder; it is destroyed when the last reference goes away.
type InodeHolder struct {
	Tag      uint64 // étiquette: dedup key on read
	Inode    Entry  // the real entry (File, Symlink, ...) data
	refCount int
}

// Ref increments the holder's reference count and returns it.
func (h *InodeHolder) Ref() *InodeHolder {
	h.refCount++
	return h
}

// Unref decrements the reference count; the caller drops the holder once
// this returns true.
func (h *InodeHolder) Unref() bool {
	h.refCount--
	return h.refCount <= 0
}

// HardLinkRef is a named reference to a shared InodeHolder.
type HardLinkRef struct {
	M      Meta
	Holder *InodeHolder
}

func (h *HardLinkRef) Kind() Kind  { return KindHardLinkRef }
func (h *HardLinkRef) Meta() *Meta { return &h.M }

// Ignored and IgnoredDir are present only in the in-memory tree (e.g. to
// remember a user exclusion across a differential backup); neither is
// ever serialized.
type Ignored struct{ M Meta }

func (i *Ignored) Kind() Kind  { return KindIgnored }
func (i *Ignored) Meta() *Meta { return &i.M }

type IgnoredDir struct {
	M        Meta
	Children []Entry
}

func (i *IgnoredDir) Kind() Kind  { return KindIgnoredDir }
func (i *IgnoredDir) Meta() *Meta { return &i.M }
