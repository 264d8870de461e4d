// Package fsadapter implements engine.FilesystemBackup,
// engine.FilesystemRestore and engine.FilesystemDiff against the real
// operating system filesystem, the missing piece between internal/engine
// and cmd/dar. It walks with fs.WalkDir the way the teacher's writer.go
// does for building a squashfs image from a source tree (writer.go's
// Add is documented as "compatible with fs.WalkDirFunc"); here the walk
// instead feeds entries one at a time through the pre-order
// FilesystemBackup.Read contract Create expects.
package fsadapter

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/engine"
	"golang.org/x/sys/unix"
)

var (
	_ engine.FilesystemBackup  = (*OS)(nil)
	_ engine.FilesystemRestore = (*OS)(nil)
	_ engine.FilesystemDiff    = (*OS)(nil)
)

// step is one pending pre-order item: either a real entry or a closing
// EoD for a directory already returned.
type step struct {
	entry catalogue.Entry
	path  []string // directory path the entry belongs under, root-relative
}

// OS implements engine.FilesystemBackup/FilesystemRestore/FilesystemDiff
// rooted at Root.
type OS struct {
	Root string

	queue []step
	pos   int
}

// ResetRead walks Root (rootPath is accepted for interface compatibility
// but ignored: Root is fixed at construction, matching the teacher's
// SetSourceFS/Add split between configuring the source and walking it)
// and buffers the full pre-order entry sequence, EoD markers included.
func (o *OS) ResetRead(rootPath string) error {
	o.queue = o.queue[:0]
	o.pos = 0
	var open []string // rel paths of directories returned but not yet closed
	err := filepath.WalkDir(o.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(o.Root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		parent := splitParent(rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		for len(open) > 0 && open[len(open)-1] != filepath.Dir(rel) {
			open = open[:len(open)-1]
			o.queue = append(o.queue, step{entry: catalogue.EoD})
		}
		e := entryFromInfo(p, d.Name(), info)
		o.queue = append(o.queue, step{entry: e, path: parent})
		if d.IsDir() {
			open = append(open, rel)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for range open {
		o.queue = append(o.queue, step{entry: catalogue.EoD})
	}
	return nil
}

// Read returns the next buffered entry, io.EOF once exhausted.
func (o *OS) Read() (catalogue.Entry, error) {
	if o.pos >= len(o.queue) {
		return nil, io.EOF
	}
	e := o.queue[o.pos].entry
	o.pos++
	return e, nil
}

// SkipReadToParentDir discards the remainder of the directory just
// opened, skipping forward to (and past) its matching EoD.
func (o *OS) SkipReadToParentDir() {
	depth := 1
	for o.pos < len(o.queue) {
		e := o.queue[o.pos].entry
		o.pos++
		if e.Kind() == catalogue.KindEoD {
			depth--
			if depth == 0 {
				return
			}
			continue
		}
		if _, isDir := e.(*catalogue.Directory); isDir {
			depth++
		}
	}
}

func splitParent(rel string) []string {
	dir := filepath.Dir(rel)
	if dir == "." {
		return nil
	}
	return strings.Split(dir, string(filepath.Separator))
}

func entryFromInfo(fullPath, name string, info fs.FileInfo) catalogue.Entry {
	m := catalogue.Meta{
		Name:  name,
		Perm:  uint32(info.Mode().Perm()),
		MTime: info.ModTime(),
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		m.UID = st.Uid
		m.GID = st.Gid
		m.CTime = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	switch {
	case info.IsDir():
		return &catalogue.Directory{M: m}
	case info.Mode()&os.ModeSymlink != 0:
		target, _ := os.Readlink(fullPath)
		return &catalogue.Symlink{M: m, Saved: catalogue.Saved, Target: target}
	case info.Mode()&os.ModeCharDevice != 0:
		maj, min := rdevOf(info)
		return &catalogue.CharDevice{M: m, Saved: catalogue.Saved, Major: maj, Minor: min}
	case info.Mode()&os.ModeDevice != 0:
		maj, min := rdevOf(info)
		return &catalogue.BlockDevice{M: m, Saved: catalogue.Saved, Major: maj, Minor: min}
	case info.Mode()&os.ModeNamedPipe != 0:
		return &catalogue.Pipe{M: m, Saved: catalogue.Saved}
	case info.Mode()&os.ModeSocket != 0:
		return &catalogue.Socket{M: m, Saved: catalogue.Saved}
	default:
		return &catalogue.File{
			M:      m,
			Saved:  catalogue.Saved,
			Source: catalogue.SourceFilesystem,
			FSPath: fullPath,
		}
	}
}

// rdevOf unpacks a device node's raw st_rdev with golang.org/x/sys/unix's
// Major/Minor, per entry.go's CharDevice/BlockDevice doc comment.
func rdevOf(info fs.FileInfo) (major, minor uint32) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	dev := uint64(st.Rdev)
	return uint32(unix.Major(dev)), uint32(unix.Minor(dev))
}

// Fetch opens path for reading, the CreateOptions.Fetch collaborator
// Create calls for every Saved regular file.
func Fetch(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// targetPath joins o.Root, the archive-relative parent path and the
// entry's own name into a real filesystem path.
func (o *OS) targetPath(path []string, name string) string {
	parts := append([]string{o.Root}, path...)
	parts = append(parts, name)
	return filepath.Join(parts...)
}

// Write restores e under o.Root at path, the engine.FilesystemRestore
// contract Extract drives.
func (o *OS) Write(path []string, e catalogue.Entry, body io.Reader) error {
	m := e.Meta()
	if m == nil {
		return nil
	}
	target := o.targetPath(path, m.Name)
	switch v := e.(type) {
	case *catalogue.Directory:
		return os.MkdirAll(target, os.FileMode(m.Perm)|0700)
	case *catalogue.Symlink:
		_ = os.Remove(target)
		return os.Symlink(v.Target, target)
	case *catalogue.File:
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(m.Perm)|0600)
		if err != nil {
			return err
		}
		defer f.Close()
		if body != nil {
			if _, err := io.Copy(f, body); err != nil {
				return err
			}
		}
		return os.Chtimes(target, m.MTime, m.MTime)
	case *catalogue.CharDevice:
		_ = os.Remove(target)
		dev := unix.Mkdev(v.Major, v.Minor)
		return unix.Mknod(target, unix.S_IFCHR|uint32(m.Perm), int(dev))
	case *catalogue.BlockDevice:
		_ = os.Remove(target)
		dev := unix.Mkdev(v.Major, v.Minor)
		return unix.Mknod(target, unix.S_IFBLK|uint32(m.Perm), int(dev))
	case *catalogue.Pipe:
		_ = os.Remove(target)
		return unix.Mkfifo(target, uint32(m.Perm))
	case *catalogue.Socket:
		_ = os.Remove(target)
		return unix.Mknod(target, unix.S_IFSOCK|uint32(m.Perm), 0)
	default:
		return nil
	}
}

// Compare checks an archive entry against the corresponding on-disk
// file at path, the engine.FilesystemDiff contract Diff drives. Only the
// fields requested by fields are consulted, per spec.md §4.7's
// configurable comparison fields (mtime, ignore_owner, inode_type, all).
func (o *OS) Compare(path []string, e catalogue.Entry, body io.Reader, fields engine.CompareFields) (bool, error) {
	m := e.Meta()
	if m == nil {
		return true, nil
	}
	target := o.targetPath(path, m.Name)
	info, err := os.Lstat(target)
	if err != nil {
		return false, nil
	}
	f, ok := e.(*catalogue.File)
	if !ok {
		return true, nil
	}
	if info.Size() != int64(f.OriginalSize.Unstack()) {
		return false, nil
	}
	if (fields.MTime || fields.All) && !info.ModTime().Equal(m.MTime) {
		return false, nil
	}
	if (fields.InodeType || fields.All) && info.Mode().IsRegular() != (f != nil) {
		return false, nil
	}
	if fields.All || !fields.IgnoreOwner {
		if st, ok := info.Sys().(*syscall.Stat_t); ok && (st.Uid != m.UID || st.Gid != m.GID) {
			return false, nil
		}
	}
	return true, nil
}
