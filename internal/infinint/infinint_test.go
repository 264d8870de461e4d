package infinint

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 254, 255, 256, 65535, 1 << 20, ^uint64(0)}
	for _, c := range cases {
		n := New(c)
		buf := bytes.NewReader(n.Bytes())
		got, err := Decode(buf)
		if err != nil {
			t.Fatalf("decode(%d): %v", c, err)
		}
		if Cmp(got, n) != 0 {
			t.Errorf("round trip %d: got %s", c, got)
		}
		if got.Unstack() != c {
			t.Errorf("unstack %d: got %d", c, got.Unstack())
		}
	}
}

func TestNoLeadingZero(t *testing.T) {
	n := New(0)
	b := n.Bytes()
	if len(b) != 1 || b[0] != 0 {
		t.Fatalf("zero should encode as a single length byte, got %x", b)
	}
}

func TestArith(t *testing.T) {
	a := New(1000)
	b := New(42)
	if Add(a, b).Unstack() != 1042 {
		t.Fatal("add")
	}
	s, err := Sub(a, b)
	if err != nil || s.Unstack() != 958 {
		t.Fatal("sub", err)
	}
	if _, err := Sub(b, a); err != ErrNegative {
		t.Fatal("expected ErrNegative")
	}
	if Mul(a, New(2)).Unstack() != 2000 {
		t.Fatal("mul")
	}
	q, m := DivMod(a, New(3))
	if q.Unstack() != 333 || m.Unstack() != 1 {
		t.Fatal("divmod")
	}
}

func TestKnownSize(t *testing.T) {
	n := New(300)
	b, err := n.KnownSize(4)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 4 {
		t.Fatal("size")
	}
	got := FromKnownSize(b)
	if got.Unstack() != 300 {
		t.Fatal("round trip known size")
	}
	if _, err := New(1 << 40).KnownSize(2); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestLargeMultiByteLength(t *testing.T) {
	// value requiring > 255 magnitude bytes, exercises the unary length marker
	big := Lsh(New(1), 255*8+3)
	buf := big.Bytes()
	got, err := Decode(bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	if Cmp(got, big) != 0 {
		t.Fatal("round trip large value")
	}
}
