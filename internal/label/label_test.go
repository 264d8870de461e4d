package label

import (
	"bytes"
	"testing"
)

func TestClearAndIsCleared(t *testing.T) {
	l := MustGenerate()
	if l.IsCleared() {
		t.Fatal("a freshly generated label should not be cleared")
	}
	l.Clear()
	if !l.IsCleared() {
		t.Fatal("Clear should zero the label")
	}
}

func TestEqual(t *testing.T) {
	a := MustGenerate()
	b := a
	if !a.Equal(b) {
		t.Fatal("copies of the same label should compare equal")
	}
	b.InvertFirstByte()
	if a.Equal(b) {
		t.Fatal("InvertFirstByte should force inequality")
	}
}

func TestInvertFirstByteIsStable(t *testing.T) {
	a := MustGenerate()
	b := a
	b.InvertFirstByte()
	b.InvertFirstByte()
	if !a.Equal(b) {
		t.Fatal("inverting twice should return to the original value")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	a := MustGenerate()
	got := FromBytes(a.Bytes())
	if !a.Equal(got) {
		t.Fatal("FromBytes(a.Bytes()) should reproduce a")
	}
}

func TestGenerateFromDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, Size)
	l, err := GenerateFrom(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("GenerateFrom: %v", err)
	}
	if !bytes.Equal(l.Bytes(), seed) {
		t.Fatalf("GenerateFrom should read exactly Size bytes verbatim, got %x", l.Bytes())
	}
}

func TestGenerateUnique(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Equal(b) {
		t.Fatal("two independently generated labels should not collide")
	}
}
