// Package label implements the fixed-length opaque identity tag used to
// tell archives apart: internal_name (new per physical archive) and
// data_name (follows the data across re-slicing and isolation).
package label

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"
)

// Size is the fixed on-disk width of a label, per spec.md §3.
const Size = 10

// Label is a fixed 10-byte identity tag.
type Label [Size]byte

// Clear zeroes l in place.
func (l *Label) Clear() {
	*l = Label{}
}

// IsCleared reports whether l is the all-zero label.
func (l Label) IsCleared() bool {
	return l == Label{}
}

// Equal reports whether l and o hold the same bytes.
func (l Label) Equal(o Label) bool {
	return l == o
}

// InvertFirstByte flips all eight bits of the first byte, a cheap way to
// force a label to compare unequal to another while remaining stable and
// reproducible (used when an isolated catalogue must carry a data_name
// guaranteed different from its own internal_name).
func (l *Label) InvertFirstByte() {
	l[0] ^= 0xFF
}

// Generate returns a fresh random label. The corpus carries
// github.com/google/uuid (gcsfuse, rclone, distri all require it); rather
// than hand-roll a CSPRNG wrapper around crypto/rand, a v4 UUID is drawn
// and its first Size bytes kept. Bytes 6 and 8 of a v4 UUID carry fixed
// version/variant bits and both fall inside the 10 bytes kept, so those
// two bytes are not uniformly random.
func Generate() (Label, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return Label{}, err
	}
	var l Label
	copy(l[:], u[:Size])
	return l, nil
}

// GenerateFrom reads Size random bytes directly from r (used in tests to
// get deterministic labels).
func GenerateFrom(r io.Reader) (Label, error) {
	var l Label
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return Label{}, err
	}
	return l, nil
}

// MustGenerate panics if randomness is unavailable; only used where the
// caller has no sane error path (e.g. package-level test fixtures).
func MustGenerate() Label {
	l, err := Generate()
	if err != nil {
		// fall back to crypto/rand directly
		var l2 Label
		if _, ferr := io.ReadFull(rand.Reader, l2[:]); ferr != nil {
			panic(ferr)
		}
		return l2
	}
	return l
}

// Bytes returns the wire representation.
func (l Label) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, l[:])
	return b
}

// FromBytes reads a label out of buf, which must be at least Size bytes.
func FromBytes(buf []byte) Label {
	var l Label
	copy(l[:], buf)
	return l
}
