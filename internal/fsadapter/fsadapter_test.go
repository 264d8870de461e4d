package fsadapter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
)

func TestResetReadWalksPreOrderWithEoD(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("hi"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	o := &OS{Root: root}
	if err := o.ResetRead(root); err != nil {
		t.Fatalf("ResetRead: %v", err)
	}

	var sawDir, sawFile, sawEoD bool
	for {
		e, err := o.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		switch v := e.(type) {
		case *catalogue.Directory:
			sawDir = v.M.Name == "sub"
		case *catalogue.File:
			sawFile = v.M.Name == "a.txt"
		default:
			if e.Kind() == catalogue.KindEoD {
				sawEoD = true
			}
		}
	}
	if !sawDir || !sawFile || !sawEoD {
		t.Fatalf("walk missed an expected entry: dir=%v file=%v eod=%v", sawDir, sawFile, sawEoD)
	}
}

func TestWriteRestoresFileDirectoryAndSymlink(t *testing.T) {
	root := t.TempDir()
	o := &OS{Root: root}

	if err := o.Write(nil, &catalogue.Directory{M: catalogue.Meta{Name: "out", Perm: 0755}}, nil); err != nil {
		t.Fatalf("Write directory: %v", err)
	}
	body := bytes.NewReader([]byte("payload"))
	if err := o.Write([]string{"out"}, &catalogue.File{M: catalogue.Meta{Name: "f.txt", Perm: 0644}}, body); err != nil {
		t.Fatalf("Write file: %v", err)
	}
	if err := o.Write([]string{"out"}, &catalogue.Symlink{M: catalogue.Meta{Name: "l"}, Target: "f.txt"}, nil); err != nil {
		t.Fatalf("Write symlink: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "out", "f.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("restored file contents = %q, want %q", got, "payload")
	}
	target, err := os.Readlink(filepath.Join(root, "out", "l"))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "f.txt" {
		t.Fatalf("symlink target = %q, want %q", target, "f.txt")
	}
}
