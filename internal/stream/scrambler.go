package stream

import (
	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// Scrambler implements the trivial XOR-with-passkey obfuscation kept for
// format compatibility (spec.md §4.4: "kept for format compatibility").
// It is not a real cipher; it exists only so archives written by older
// tooling remain readable.
type Scrambler struct {
	base
	lower Stream
	key   []byte
}

// NewScrambler wraps lower, XOR-ing every byte against key (repeated
// cyclically). An empty key is a Misuse error at construction time by
// convention of the caller; this type does not itself validate it so
// that tests can exercise the identity case deliberately.
func NewScrambler(lower Stream, key []byte) *Scrambler {
	return &Scrambler{lower: lower, key: key}
}

func (s *Scrambler) xor(dst, src []byte, startOffset int64) {
	if len(s.key) == 0 {
		copy(dst, src)
		return
	}
	klen := int64(len(s.key))
	for i := range src {
		k := s.key[(startOffset+int64(i))%klen]
		dst[i] = src[i] ^ k
	}
}

func (s *Scrambler) Read(p []byte) (int, error) {
	if err := s.checkAlive(); err != nil {
		return 0, err
	}
	offset := int64(s.lower.Position().Unstack())
	n, err := s.lower.Read(p)
	if n > 0 {
		s.xor(p[:n], p[:n], offset)
	}
	return n, err
}

func (s *Scrambler) Write(p []byte) (int, error) {
	if err := s.checkAlive(); err != nil {
		return 0, err
	}
	offset := int64(s.lower.Position().Unstack())
	out := make([]byte, len(p))
	s.xor(out, p, offset)
	return s.lower.Write(out)
}

func (s *Scrambler) Skip(pos infinint.Int) (bool, error)          { return s.lower.Skip(pos) }
func (s *Scrambler) SkipRelative(delta int64) (bool, error)       { return s.lower.SkipRelative(delta) }
func (s *Scrambler) SkipToEOF() (bool, error)                     { return s.lower.SkipToEOF() }
func (s *Scrambler) Position() infinint.Int                       { return s.lower.Position() }
func (s *Scrambler) Skippable(d Direction, a infinint.Int) bool   { return s.lower.Skippable(d, a) }
func (s *Scrambler) ReadAhead(a infinint.Int)                     { s.lower.ReadAhead(a) }
func (s *Scrambler) SyncWrite() error                             { return s.lower.SyncWrite() }
func (s *Scrambler) FlushRead() error                             { return s.lower.FlushRead() }

func (s *Scrambler) Terminate() error {
	if s.terminated {
		return nil
	}
	s.markTerminated()
	return s.lower.Terminate()
}
