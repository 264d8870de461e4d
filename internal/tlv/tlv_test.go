package tlv

import (
	"bytes"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	rec := New(42, []byte("payload"))
	var buf bytes.Buffer
	if _, err := rec.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != rec.Type || !bytes.Equal(got.Value, rec.Value) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, rec)
	}
}

func TestListRoundTrip(t *testing.T) {
	l := List{
		New(1, []byte{1, 2, 3}),
		New(2, nil),
		New(3, []byte("data_name-ish")),
	}
	var buf bytes.Buffer
	if _, err := l.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadList(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(l) {
		t.Fatalf("expected %d records, got %d", len(l), len(got))
	}
	for i := range l {
		if got[i].Type != l[i].Type || !bytes.Equal(got[i].Value, l[i].Value) {
			t.Fatalf("record %d mismatch", i)
		}
	}
}

func TestFind(t *testing.T) {
	l := List{New(1, []byte("a")), New(2, []byte("b"))}
	rec, ok := l.Find(2)
	if !ok || string(rec.Value) != "b" {
		t.Fatal("find failed")
	}
	if _, ok := l.Find(99); ok {
		t.Fatal("expected not found")
	}
}
