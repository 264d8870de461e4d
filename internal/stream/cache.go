package stream

import (
	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// Cache wraps a lower Stream with a single read-ahead buffer, grounded on
// the block-buffered reading idiom of the teacher's tableReader
// (squashfs tablereader.go): pull one block at a time from the lower
// layer and serve Read calls out of it, only touching the lower layer
// again once the buffer is exhausted.
type Cache struct {
	base
	lower     Stream
	blockSize int
	buf       []byte
	bufOff    int // read offset within buf
}

// NewCache wraps lower with a read buffer of blockSize bytes.
func NewCache(lower Stream, blockSize int) *Cache {
	if blockSize <= 0 {
		blockSize = 32 * 1024
	}
	return &Cache{lower: lower, blockSize: blockSize}
}

func (c *Cache) fill() error {
	if c.bufOff < len(c.buf) {
		return nil
	}
	buf := make([]byte, c.blockSize)
	n, err := c.lower.Read(buf)
	if n == 0 {
		return err
	}
	c.buf = buf[:n]
	c.bufOff = 0
	return nil
}

func (c *Cache) Read(p []byte) (int, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	if err := c.fill(); err != nil && c.bufOff >= len(c.buf) {
		return 0, err
	}
	n := copy(p, c.buf[c.bufOff:])
	c.bufOff += n
	return n, nil
}

func (c *Cache) Write(p []byte) (int, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	return c.lower.Write(p)
}

func (c *Cache) Skip(pos infinint.Int) (bool, error) {
	c.buf, c.bufOff = nil, 0
	return c.lower.Skip(pos)
}

func (c *Cache) SkipRelative(delta int64) (bool, error) {
	c.buf, c.bufOff = nil, 0
	return c.lower.SkipRelative(delta)
}

func (c *Cache) SkipToEOF() (bool, error) {
	c.buf, c.bufOff = nil, 0
	return c.lower.SkipToEOF()
}

func (c *Cache) Position() infinint.Int {
	unread := len(c.buf) - c.bufOff
	pos := c.lower.Position()
	if unread <= 0 {
		return pos
	}
	// the lower layer has already served bytes we are still holding
	// buffered; report the logical position as if they weren't read yet.
	back, err := infinint.Sub(pos, infinint.New(uint64(unread)))
	if err != nil {
		return pos
	}
	return back
}

func (c *Cache) Skippable(dir Direction, amount infinint.Int) bool {
	return c.lower.Skippable(dir, amount)
}

func (c *Cache) ReadAhead(amount infinint.Int) {
	c.lower.ReadAhead(amount)
}

func (c *Cache) SyncWrite() error {
	return c.lower.SyncWrite()
}

func (c *Cache) FlushRead() error {
	c.buf, c.bufOff = nil, 0
	return c.lower.FlushRead()
}

func (c *Cache) Terminate() error {
	if c.terminated {
		return nil
	}
	c.markTerminated()
	return c.lower.Terminate()
}
