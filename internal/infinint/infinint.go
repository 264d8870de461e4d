// Package infinint implements an arbitrary-precision non-negative integer,
// used pervasively across the archive engine for offsets, sizes and counts
// that must never silently overflow a fixed-width type.
package infinint

import (
	"errors"
	"io"
	"math/big"
)

// ErrNegative is returned whenever an operation would produce a negative
// result; infinint only ever holds non-negative values.
var ErrNegative = errors.New("infinint: negative result")

// Int is an arbitrary-precision non-negative integer. The zero value is 0.
//
// There is no third-party big-integer library in the example corpus, and
// math/big is the standard library's dedicated type for exactly this job,
// so arithmetic is delegated to it rather than hand-rolled.
type Int struct {
	v big.Int
}

// New returns an Int with the value of n.
func New(n uint64) Int {
	var i Int
	i.v.SetUint64(n)
	return i
}

// FromBigInt wraps b, which must be non-negative.
func FromBigInt(b *big.Int) (Int, error) {
	if b.Sign() < 0 {
		return Int{}, ErrNegative
	}
	var i Int
	i.v.Set(b)
	return i, nil
}

func (a Int) clone() Int {
	var r Int
	r.v.Set(&a.v)
	return r
}

// Add returns a+b.
func Add(a, b Int) Int {
	r := a.clone()
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a-b. Returns ErrNegative if b > a.
func Sub(a, b Int) (Int, error) {
	if a.v.Cmp(&b.v) < 0 {
		return Int{}, ErrNegative
	}
	r := a.clone()
	r.v.Sub(&a.v, &b.v)
	return r, nil
}

// Mul returns a*b.
func Mul(a, b Int) Int {
	r := a.clone()
	r.v.Mul(&a.v, &b.v)
	return r
}

// DivMod returns (a/b, a%b). Panics on division by zero, mirroring big.Int.
func DivMod(a, b Int) (Int, Int) {
	var q, m Int
	q.v.DivMod(&a.v, &b.v, &m.v)
	return q, m
}

// Cmp returns -1, 0 or +1 as a<b, a==b, a>b.
func Cmp(a, b Int) int {
	return a.v.Cmp(&b.v)
}

// IsZero reports whether a is 0.
func (a Int) IsZero() bool {
	return a.v.Sign() == 0
}

// And, Or, Xor implement bitwise operations over the two's-complement-free
// unsigned magnitude, matching the semantics spec.md §3 asks for.
func And(a, b Int) Int {
	r := a.clone()
	r.v.And(&a.v, &b.v)
	return r
}

func Or(a, b Int) Int {
	r := a.clone()
	r.v.Or(&a.v, &b.v)
	return r
}

func Xor(a, b Int) Int {
	r := a.clone()
	r.v.Xor(&a.v, &b.v)
	return r
}

// Lsh and Rsh shift by a fixed bit count.
func Lsh(a Int, bits uint) Int {
	r := a.clone()
	r.v.Lsh(&a.v, bits)
	return r
}

func Rsh(a Int, bits uint) Int {
	r := a.clone()
	r.v.Rsh(&a.v, bits)
	return r
}

// Unstack performs a lossy conversion into a fixed-width uint64. Values that
// do not fit are truncated to math.MaxUint64, matching the "lossy unstack"
// operation named in spec.md §3.
func (a Int) Unstack() uint64 {
	if a.v.IsUint64() {
		return a.v.Uint64()
	}
	return ^uint64(0)
}

// magnitude returns the canonical big-endian byte representation: no
// leading zero byte, empty slice for zero.
func (a Int) magnitude() []byte {
	return a.v.Bytes()
}

// Bytes serializes a in the self-delimiting wire format used throughout
// the archive: a unary-coded length marker (one 0xFF byte per full 255
// bytes of magnitude, followed by one terminating byte holding the
// remainder length, 0-254) followed by the big-endian magnitude itself.
// This is the concrete scheme backing spec.md §3's "length-prefixing
// unary marker followed by big-endian magnitude bytes" description.
func (a Int) Bytes() []byte {
	m := a.magnitude()
	l := len(m)
	out := make([]byte, 0, l+l/255+2)
	for l >= 255 {
		out = append(out, 0xFF)
		l -= 255
	}
	out = append(out, byte(l))
	out = append(out, m...)
	return out
}

// KnownSize serializes a into exactly n bytes, big-endian, zero-padded on
// the left. It is used where the caller already knows the field width (for
// example a fixed crypto-block count) and does not want the self-delimiting
// framing. An error is returned if a does not fit in n bytes.
func (a Int) KnownSize(n int) ([]byte, error) {
	m := a.magnitude()
	if len(m) > n {
		return nil, errors.New("infinint: value does not fit in requested size")
	}
	out := make([]byte, n)
	copy(out[n-len(m):], m)
	return out, nil
}

// FromKnownSize parses a fixed-width big-endian buffer into an Int.
func FromKnownSize(buf []byte) Int {
	var i Int
	i.v.SetBytes(buf)
	return i
}

// Decode reads a self-delimiting Bytes()-encoded Int from r.
func Decode(r io.Reader) (Int, error) {
	var one [1]byte
	length := 0
	for {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			return Int{}, err
		}
		length += int(one[0])
		if one[0] != 0xFF {
			break
		}
	}
	m := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, m); err != nil {
			return Int{}, err
		}
	}
	var i Int
	i.v.SetBytes(m)
	return i, nil
}

// EncodeTo writes the self-delimiting form of a to w.
func (a Int) EncodeTo(w io.Writer) error {
	_, err := w.Write(a.Bytes())
	return err
}

func (a Int) String() string {
	return a.v.String()
}
