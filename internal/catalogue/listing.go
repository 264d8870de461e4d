package catalogue

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/Edrusb/DAR-sub001/internal/sar"
)

// ListEntry is one flattened row of a catalogue listing, per spec.md
// §4.6: name, type, size, saved-status, and an optional slice-location
// column derived from the owning archive's slice Layout.
type ListEntry struct {
	Path   string
	Kind   Kind
	Saved  SavedStatus
	Size   uint64
	Depth  int
	Slice  uint64 // 0 when not applicable (directories, or layout not supplied)
}

// flatten walks c in pre-order, building one ListEntry per non-EoD
// entry. layout may be nil, in which case Slice is always left at 0.
func (c *Catalogue) flatten(layout *sar.Layout) []ListEntry {
	var out []ListEntry
	var walk func(dir *Directory, prefix string, depth int)
	walk = func(dir *Directory, prefix string, depth int) {
		for _, child := range dir.Children {
			m := child.Meta()
			if m == nil {
				continue
			}
			path := m.Name
			if prefix != "" {
				path = prefix + "/" + m.Name
			}
			entry := ListEntry{Path: path, Kind: child.Kind(), Depth: depth}
			switch v := child.(type) {
			case *File:
				entry.Saved = v.Saved
				entry.Size = v.OriginalSize.Unstack()
				if layout != nil && v.Source == SourceArchive && v.Saved == Saved {
					n, _ := layout.Locate(v.Offset)
					entry.Slice = n
				}
			case *Symlink:
				entry.Saved = v.Saved
			case *CharDevice:
				entry.Saved = v.Saved
			case *BlockDevice:
				entry.Saved = v.Saved
			case *Pipe:
				entry.Saved = v.Saved
			case *Socket:
				entry.Saved = v.Saved
			case *HardLinkRef:
				entry.Saved = Saved
			}
			out = append(out, entry)
			if sub, ok := child.(*Directory); ok {
				walk(sub, path, depth+1)
			}
		}
	}
	walk(c.Root, "", 0)
	return out
}

func kindLabel(k Kind) string {
	switch k {
	case KindDirectory:
		return "dir"
	case KindFile:
		return "file"
	case KindSymlink:
		return "symlink"
	case KindCharDevice:
		return "chardev"
	case KindBlockDevice:
		return "blockdev"
	case KindPipe:
		return "pipe"
	case KindSocket:
		return "socket"
	case KindDeleted:
		return "deleted"
	case KindHardLinkRef:
		return "hardlink"
	default:
		return "?"
	}
}

func savedLabel(s SavedStatus) string {
	switch s {
	case Saved:
		return "saved"
	case NotSaved:
		return "not_saved"
	case Fake:
		return "fake"
	case Delta:
		return "delta"
	case InodeOnly:
		return "inode_only"
	case Removed:
		return "removed"
	default:
		return "?"
	}
}

// ListPlain writes one line per entry: type, saved-status, size,
// optional slice number, path.
func (c *Catalogue) ListPlain(w io.Writer, layout *sar.Layout) error {
	for _, e := range c.flatten(layout) {
		var slice string
		if e.Slice != 0 {
			slice = fmt.Sprintf(" [slice %d]", e.Slice)
		}
		if _, err := fmt.Fprintf(w, "%-8s %-10s %10d%s %s\n", kindLabel(e.Kind), savedLabel(e.Saved), e.Size, slice, e.Path); err != nil {
			return err
		}
	}
	return nil
}

// ListTree writes an indented tree view.
func (c *Catalogue) ListTree(w io.Writer, layout *sar.Layout) error {
	for _, e := range c.flatten(layout) {
		base := e.Path
		if idx := strings.LastIndex(base, "/"); idx >= 0 {
			base = base[idx+1:]
		}
		indent := strings.Repeat("  ", e.Depth)
		if _, err := fmt.Fprintf(w, "%s%s [%s, %s]\n", indent, base, kindLabel(e.Kind), savedLabel(e.Saved)); err != nil {
			return err
		}
	}
	return nil
}

type xmlEntry struct {
	XMLName xml.Name `xml:"entry"`
	Path    string   `xml:"path,attr"`
	Type    string   `xml:"type,attr"`
	Saved   string   `xml:"saved,attr"`
	Size    uint64   `xml:"size,attr"`
	Slice   uint64   `xml:"slice,attr,omitempty"`
}

type xmlListing struct {
	XMLName xml.Name   `xml:"catalogue"`
	Entries []xmlEntry `xml:"entry"`
}

// ListXML writes an XML listing. No third-party XML library appears
// anywhere in the example corpus, so this uses the standard library's
// encoding/xml rather than inventing a dependency; see DESIGN.md.
func (c *Catalogue) ListXML(w io.Writer, layout *sar.Layout) error {
	doc := xmlListing{}
	for _, e := range c.flatten(layout) {
		doc.Entries = append(doc.Entries, xmlEntry{
			Path:  e.Path,
			Type:  kindLabel(e.Kind),
			Saved: savedLabel(e.Saved),
			Size:  e.Size,
			Slice: e.Slice,
		})
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}
