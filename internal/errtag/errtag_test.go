package errtag

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndKindOf(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Data, "CRC error met while reading delta signature", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable via errors.Is")
	}
	k, ok := KindOf(err)
	if !ok || k != Data {
		t.Fatalf("expected Data kind, got %v ok=%v", k, ok)
	}
	if !Is(err, Data) {
		t.Fatal("Is should match")
	}
	if Is(err, Feature) {
		t.Fatal("Is should not match a different kind")
	}
}

func TestWrappedThroughFmt(t *testing.T) {
	inner := New(Misuse, "stream already terminated")
	outer := fmt.Errorf("extract: %w", inner)
	k, ok := KindOf(outer)
	if !ok || k != Misuse {
		t.Fatalf("expected to find Misuse through fmt.Errorf wrapping, got %v ok=%v", k, ok)
	}
}

func TestCancelInfo(t *testing.T) {
	err := NewCancel(CancelInfo{Immediate: true, Flag: "user", Attribute: 4}, "cancelled")
	if err.Kind != Cancel || !err.Cancel.Immediate || err.Cancel.Attribute != 4 {
		t.Fatal("cancel info not preserved")
	}
}
