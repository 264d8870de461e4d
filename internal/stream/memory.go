package stream

import (
	"io"

	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// Memory is an in-memory Stream, used as the bottom layer in tests and as
// the scratch buffer for small objects (e.g. the duplicated trailer
// header) that do not warrant touching disk. It mirrors the role of the
// original's memory_file.
type Memory struct {
	base
	buf []byte
	pos int64
}

// NewMemory returns an empty, read-write Memory stream.
func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryFrom wraps existing bytes for reading.
func NewMemoryFrom(data []byte) *Memory {
	return &Memory{buf: append([]byte(nil), data...)}
}

// Bytes returns the current contents.
func (m *Memory) Bytes() []byte {
	return append([]byte(nil), m.buf...)
}

func (m *Memory) Read(p []byte) (int, error) {
	if err := m.checkAlive(); err != nil {
		return 0, err
	}
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *Memory) Write(p []byte) (int, error) {
	if err := m.checkAlive(); err != nil {
		return 0, err
	}
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *Memory) Skip(pos infinint.Int) (bool, error) {
	p := int64(pos.Unstack())
	if p < 0 || p > int64(len(m.buf)) {
		return false, nil
	}
	m.pos = p
	return true, nil
}

func (m *Memory) SkipRelative(delta int64) (bool, error) {
	return m.Skip(infinint.New(uint64(m.pos + delta)))
}

func (m *Memory) SkipToEOF() (bool, error) {
	m.pos = int64(len(m.buf))
	return true, nil
}

func (m *Memory) Position() infinint.Int {
	return infinint.New(uint64(m.pos))
}

func (m *Memory) Skippable(Direction, infinint.Int) bool { return true }
func (m *Memory) ReadAhead(infinint.Int)                 {}
func (m *Memory) SyncWrite() error                       { return nil }
func (m *Memory) FlushRead() error                       { return nil }

func (m *Memory) Terminate() error {
	m.markTerminated()
	return nil
}
