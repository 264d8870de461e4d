// Package fuseview exposes an already-open archive's catalogue as a
// read-only FUSE mount, the adaptation SPEC_FULL.md §2 calls for of the
// teacher's inode_fuse.go: that file wired a squashfs image's on-disk
// inode table into go-fuse's low-level fuse.RawFileSystem hooks
// (Lookup/Open/OpenDir/ReadDir). Here the backing store is a
// catalogue.Catalogue rather than a squashfs superblock, and go-fuse's
// higher-level fs package (InodeEmbedder/NodeLookuper/NodeReaddirer)
// replaces the raw hooks — but the shape is the same library serving the
// same purpose: mount a read-only archive tree.
package fuseview

import (
	"context"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
)

// BodyReader reads a File entry's full body; satisfied by
// *engine.Coordinator.ReadFileBody.
type BodyReader interface {
	ReadFileBody(f *catalogue.File) ([]byte, error)
}

// node is one FUSE inode: either a Directory or a File from the
// catalogue tree it wraps.
type node struct {
	fs.Inode
	entry catalogue.Entry
	co    BodyReader

	mu   sync.Mutex
	data []byte // File bodies are decoded once on first Open and cached here
}

var _ fs.InodeEmbedder = (*node)(nil)
var _ fs.NodeLookuper = (*node)(nil)
var _ fs.NodeReaddirer = (*node)(nil)
var _ fs.NodeOpener = (*node)(nil)
var _ fs.NodeReader = (*node)(nil)
var _ fs.NodeGetattrer = (*node)(nil)
var _ fs.NodeReadlinker = (*node)(nil)

// Root builds the root directory node for Mount, wrapping cat's top-level
// Directory; co supplies file bodies on demand.
func Root(cat *catalogue.Catalogue, co BodyReader) fs.InodeEmbedder {
	return &node{entry: cat.Root, co: co}
}

// Mount starts serving cat read-only at mountpoint and returns the
// running server; the caller waits on it for unmount. Mount sets no
// kernel cache options itself; file opens return fuse.FOPEN_KEEP_CACHE
// (mirroring the teacher's choice: archive contents never change once
// opened).
func Mount(mountpoint string, cat *catalogue.Catalogue, co BodyReader) (*fuse.Server, error) {
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     "dar",
			Name:       "darfs",
			AllowOther: false,
		},
	}
	return fs.Mount(mountpoint, Root(cat, co), opts)
}

func (n *node) dir() (*catalogue.Directory, bool) {
	d, ok := n.entry.(*catalogue.Directory)
	return d, ok
}

func (n *node) attrFor(e catalogue.Entry, out *fuse.Attr) {
	switch v := e.(type) {
	case *catalogue.Directory:
		out.Mode = syscall.S_IFDIR | 0755
		out.Nlink = 2
	case *catalogue.File:
		out.Mode = syscall.S_IFREG | 0644
		out.Size = v.OriginalSize.Unstack()
		out.Nlink = 1
	case *catalogue.Symlink:
		out.Mode = syscall.S_IFLNK | 0777
		out.Nlink = 1
	default:
		out.Mode = syscall.S_IFREG | 0644
	}
	if m := e.Meta(); m != nil {
		out.Mtime = uint64(m.MTime.Unix())
	}
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	n.attrFor(n.entry, &out.Attr)
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	d, ok := n.dir()
	if !ok {
		return nil, syscall.ENOTDIR
	}
	child := d.Find(name)
	if child == nil {
		return nil, syscall.ENOENT
	}
	n.attrFor(child, &out.Attr)
	childNode := &node{entry: child, co: n.co}
	mode := uint32(fuse.S_IFREG)
	if _, isDir := child.(*catalogue.Directory); isDir {
		mode = fuse.S_IFDIR
	}
	return n.NewInode(ctx, childNode, fs.StableAttr{Mode: mode}), 0
}

type dirStream struct {
	entries []fuse.DirEntry
	pos     int
}

func (s *dirStream) HasNext() bool { return s.pos < len(s.entries) }
func (s *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	e := s.entries[s.pos]
	s.pos++
	return e, 0
}
func (s *dirStream) Close() {}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	d, ok := n.dir()
	if !ok {
		return nil, syscall.ENOTDIR
	}
	entries := make([]fuse.DirEntry, 0, len(d.Children))
	for _, c := range d.Children {
		m := c.Meta()
		if m == nil {
			continue
		}
		mode := uint32(fuse.S_IFREG)
		if _, isDir := c.(*catalogue.Directory); isDir {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: m.Name, Mode: mode})
	}
	return &dirStream{entries: entries}, 0
}

// Open decodes a file's full body once, per ReadFileBody's doc comment:
// the archive's compression frame only decodes forward, so a random-read
// client is served from an in-memory copy rather than re-seeking per
// request.
func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	f, ok := n.entry.(*catalogue.File)
	if !ok {
		return nil, 0, syscall.EISDIR
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.data == nil {
		if f.Saved != catalogue.Saved && f.Saved != catalogue.Delta {
			n.data = []byte{}
		} else {
			data, err := n.co.ReadFileBody(f)
			if err != nil {
				return nil, 0, syscall.EIO
			}
			n.data = data
		}
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n.mu.Lock()
	data := n.data
	n.mu.Unlock()
	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return fuse.ReadResultData(data[off:end]), 0
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	s, ok := n.entry.(*catalogue.Symlink)
	if !ok {
		return nil, syscall.EINVAL
	}
	return []byte(s.Target), 0
}

