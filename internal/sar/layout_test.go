package sar

import (
	"testing"

	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// TestLayoutBijection exercises spec.md §8 invariant 3: for every logical
// offset p <= total_payload, (slice,offset) = Locate(p) and
// p = Relocate(slice,offset).
func TestLayoutBijection(t *testing.T) {
	l, err := NewLayout(infinint.New(100), infinint.New(40))
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	total := uint64(100 + 40*5)
	for p := uint64(0); p < total; p++ {
		n, off := l.Locate(infinint.New(p))
		back := l.Relocate(n, off)
		if back.Unstack() != p {
			t.Fatalf("Relocate(Locate(%d))=%d, want %d", p, back.Unstack(), p)
		}
	}
}

func TestLayoutFirstSliceBoundary(t *testing.T) {
	// Capacity 10 reserves 1 trailer byte, leaving a 9-byte payload per slice.
	l, err := NewLayout(infinint.New(10), infinint.New(10))
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	n, off := l.Locate(infinint.New(8))
	if n != 1 || off.Unstack() != 8 {
		t.Fatalf("last byte of slice 1: got slice=%d off=%d", n, off.Unstack())
	}
	n, off = l.Locate(infinint.New(9))
	if n != 2 || off.Unstack() != 0 {
		t.Fatalf("first byte of slice 2: got slice=%d off=%d", n, off.Unstack())
	}
}

func TestLayoutUniformCollapse(t *testing.T) {
	// "First slice size equal to slice size collapses to the uniform
	// case" (spec.md §8 boundary behavior).
	l, err := NewLayout(infinint.New(50), infinint.New(50))
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	// Capacity 50 reserves 1 trailer byte, so each slice carries a 49-byte payload.
	for p := uint64(0); p < 200; p += 7 {
		n, off := l.Locate(infinint.New(p))
		want := p/49 + 1
		if n != want {
			t.Fatalf("uniform layout Locate(%d): slice=%d want %d (off=%d)", p, n, want, off.Unstack())
		}
	}
}

func TestNewLayoutRejectsZero(t *testing.T) {
	if _, err := NewLayout(infinint.New(0), infinint.New(10)); err == nil {
		t.Fatal("zero first-slice payload size should be rejected")
	}
	if _, err := NewLayout(infinint.New(10), infinint.New(0)); err == nil {
		t.Fatal("zero other-slice payload size should be rejected")
	}
}

func TestSlicesSpanned(t *testing.T) {
	l, err := NewLayout(infinint.New(100), infinint.New(40))
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	if n := l.SlicesSpanned(infinint.New(0), infinint.New(0)); n != 1 {
		t.Fatalf("zero-length region should span exactly 1 slice, got %d", n)
	}
	if n := l.SlicesSpanned(infinint.New(90), infinint.New(20)); n != 2 {
		t.Fatalf("region crossing slice 1/2 boundary: got %d slices, want 2", n)
	}
}
