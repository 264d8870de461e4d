package sar

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
)

// memEntrepot is an in-memory Entrepot used by tests in place of
// LocalEntrepot, so slice writer/reader round trips don't touch disk.
type memEntrepot struct {
	files map[string]*bytes.Buffer
}

func newMemEntrepot() *memEntrepot {
	return &memEntrepot{files: make(map[string]*bytes.Buffer)}
}

type memWriteCloser struct{ *bytes.Buffer }

func (memWriteCloser) Close() error { return nil }

func (e *memEntrepot) Open(name string) (io.ReadCloser, error) {
	buf, ok := e.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

func (e *memEntrepot) Create(name string, overwrite bool, perm os.FileMode) (io.WriteCloser, error) {
	if _, exists := e.files[name]; exists && !overwrite {
		return nil, os.ErrExist
	}
	buf := &bytes.Buffer{}
	e.files[name] = buf
	return memWriteCloser{buf}, nil
}

func (e *memEntrepot) Stat(name string) (int64, error) {
	buf, ok := e.files[name]
	if !ok {
		return 0, os.ErrNotExist
	}
	return int64(buf.Len()), nil
}

func (e *memEntrepot) Remove(name string) error {
	delete(e.files, name)
	return nil
}

func TestWriterReaderRoundTripSingleSlice(t *testing.T) {
	ent := newMemEntrepot()
	layout, err := NewLayout(infinint.New(4096), infinint.New(4096))
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	internalName := label.MustGenerate()
	w, err := NewWriter(WriterOptions{
		Entrepot:     ent,
		Naming:       Naming{Basename: "test", Extension: "dar", MinDigits: 1},
		Layout:       layout,
		InternalName: internalName,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	payload := bytes.Repeat([]byte("A"), 100)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	r, err := NewReader(ReaderOptions{
		Entrepot: ent,
		Naming:   Naming{Basename: "test", Extension: "dar", MinDigits: 1},
	})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
	}
	if !r.InternalName().Equal(internalName) {
		t.Fatal("internal_name did not survive the round trip")
	}
}

// TestWriterReaderRoundTripMultiSlice exercises spec.md §8 invariant 4:
// exactly one slice carries the terminal flag, the rest non_terminal, and
// spec.md Scenario A's basic multi-slice shape.
func TestWriterReaderRoundTripMultiSlice(t *testing.T) {
	ent := newMemEntrepot()
	layout, err := NewLayout(infinint.New(50), infinint.New(50))
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	w, err := NewWriter(WriterOptions{
		Entrepot:     ent,
		Naming:       Naming{Basename: "arc", Extension: "dar", MinDigits: 1},
		Layout:       layout,
		InternalName: label.MustGenerate(),
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	payload := bytes.Repeat([]byte("x"), 500)
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if len(ent.files) < 2 {
		t.Fatalf("expected multiple slices, got %d", len(ent.files))
	}

	terminalCount := 0
	for _, buf := range ent.files {
		flag := buf.Bytes()[buf.Len()-1]
		switch TrailerFlag(flag) {
		case FlagTerminal:
			terminalCount++
		case FlagNonTerminal:
		default:
			t.Fatalf("unexpected trailer flag %q", flag)
		}
	}
	if terminalCount != 1 {
		t.Fatalf("expected exactly one terminal slice, got %d", terminalCount)
	}

	r, err := NewReader(ReaderOptions{
		Entrepot: ent,
		Naming:   Naming{Basename: "arc", Extension: "dar", MinDigits: 1},
	})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("multi-slice round trip did not reproduce the payload")
	}
}

func TestWriterRefusesOverwriteWithoutAllowOver(t *testing.T) {
	ent := newMemEntrepot()
	layout, _ := NewLayout(infinint.New(4096), infinint.New(4096))
	opts := WriterOptions{
		Entrepot:     ent,
		Naming:       Naming{Basename: "test", Extension: "dar", MinDigits: 1},
		Layout:       layout,
		InternalName: label.MustGenerate(),
	}
	w1, err := NewWriter(opts)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	w1.Terminate()

	if _, err := NewWriter(opts); err == nil {
		t.Fatal("creating a second writer over the same slice names without AllowOver should fail")
	}
}
