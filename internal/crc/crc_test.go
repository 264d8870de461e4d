package crc

import "testing"

func TestSizeClasses(t *testing.T) {
	if New(10).Width() != Width4 {
		t.Fatal("small region should get Width4")
	}
	if New(1 << 30).Width() != Width8 {
		t.Fatal("medium region should get Width8")
	}
	if New(1 << 40).Width() != Width16 {
		t.Fatal("huge region should get Width16")
	}
}

func TestDumpLoadRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	c := Sum(data)
	dump := c.Dump()
	loaded, err := Load(dump)
	if err != nil {
		t.Fatal(err)
	}
	if err := Compare(c, loaded); err != nil {
		t.Fatalf("round trip mismatch: %v", err)
	}
}

func TestIncrementalMatchesWhole(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	whole := Sum(data)

	inc := New(uint64(len(data)))
	inc.Update(data[:10])
	inc.Update(data[10:])

	if err := Compare(whole, inc); err != nil {
		t.Fatalf("incremental mismatch: %v", err)
	}
}

func TestMismatchDetected(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hellp"))
	if err := Compare(a, b); err != ErrMismatch {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestWidthMismatch(t *testing.T) {
	a := NewOfWidth(Width4)
	b := NewOfWidth(Width8)
	if err := Compare(a, b); err != ErrSizeMismatch {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}
