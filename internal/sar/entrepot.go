package sar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
)

// Entrepot decouples "where slices live" from the slice layer, grounded
// on original_source's entrepot.hpp/entrepot_local.hpp split (spec.md's
// distillation folds this into "the slice layer" but the original keeps
// it as its own collaborator so a remote/cloud entrepot can be swapped
// in without touching slice framing logic).
type Entrepot interface {
	// Open opens name for reading.
	Open(name string) (io.ReadCloser, error)
	// Create opens name for writing. If the file exists and overwrite is
	// false, an IOExist system error is returned.
	Create(name string, overwrite bool, perm os.FileMode) (io.WriteCloser, error)
	// Stat returns the size of name in bytes.
	Stat(name string) (int64, error)
	// Remove deletes name; used by repair/abort cleanup.
	Remove(name string) error
}

// LocalEntrepot is the only Entrepot implementation required by spec.md:
// slices as ordinary files under a root directory, optionally forcing
// ownership/permission the way entrepot_local.hpp's constructor does.
type LocalEntrepot struct {
	Root      string
	ForceUID  int // -1 = don't force
	ForceGID  int // -1 = don't force
}

// NewLocalEntrepot returns an Entrepot rooted at dir.
func NewLocalEntrepot(dir string) *LocalEntrepot {
	return &LocalEntrepot{Root: dir, ForceUID: -1, ForceGID: -1}
}

func (e *LocalEntrepot) path(name string) string {
	return filepath.Join(e.Root, name)
}

func (e *LocalEntrepot) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(e.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errtag.System(errtag.IOAbsent, fmt.Sprintf("slice %q is missing", name), err)
		}
		if os.IsPermission(err) {
			return nil, errtag.System(errtag.IOAccess, fmt.Sprintf("cannot open slice %q", name), err)
		}
		return nil, errtag.System(errtag.SystemOther, fmt.Sprintf("opening slice %q", name), err)
	}
	return f, nil
}

func (e *LocalEntrepot) Create(name string, overwrite bool, perm os.FileMode) (io.WriteCloser, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(e.path(name), flags, perm)
	if err != nil {
		if os.IsExist(err) {
			return nil, errtag.System(errtag.IOExist, fmt.Sprintf("slice %q already exists", name), err)
		}
		if os.IsPermission(err) {
			return nil, errtag.System(errtag.IOAccess, fmt.Sprintf("cannot create slice %q", name), err)
		}
		return nil, errtag.System(errtag.SystemOther, fmt.Sprintf("creating slice %q", name), err)
	}
	if e.ForceUID >= 0 || e.ForceGID >= 0 {
		uid, gid := e.ForceUID, e.ForceGID
		if uid < 0 {
			uid = os.Getuid()
		}
		if gid < 0 {
			gid = os.Getgid()
		}
		_ = os.Chown(e.path(name), uid, gid)
	}
	return f, nil
}

func (e *LocalEntrepot) Stat(name string) (int64, error) {
	fi, err := os.Stat(e.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errtag.System(errtag.IOAbsent, fmt.Sprintf("slice %q is missing", name), err)
		}
		return 0, errtag.System(errtag.SystemOther, fmt.Sprintf("stat slice %q", name), err)
	}
	return fi.Size(), nil
}

func (e *LocalEntrepot) Remove(name string) error {
	if err := os.Remove(e.path(name)); err != nil && !os.IsNotExist(err) {
		return errtag.System(errtag.SystemOther, fmt.Sprintf("removing slice %q", name), err)
	}
	return nil
}

// Naming builds and parses slice file names: a shared basename, a
// zero-padded slice number (min-digits configurable) and an extension,
// per spec.md §3.
type Naming struct {
	Basename  string
	Extension string
	MinDigits int
}

// Name returns the on-disk file name for slice number n.
func (nm Naming) Name(n uint64) string {
	digits := nm.MinDigits
	if digits <= 0 {
		digits = 1
	}
	return fmt.Sprintf("%s.%0*d.%s", nm.Basename, digits, n, nm.Extension)
}
