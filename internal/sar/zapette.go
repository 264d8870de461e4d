package sar

import (
	"encoding/binary"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/errtag"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
)

// ZapetteOrder is a special-order selector for a size==0 request, per
// spec.md §6.4.
type ZapetteOrder uint64

const (
	OrderEndOfTransmission ZapetteOrder = 0
	OrderGetFileSize       ZapetteOrder = 1
	OrderChangeContext     ZapetteOrder = 2
	OrderIsOldStartEnd     ZapetteOrder = 3
	OrderGetDataName       ZapetteOrder = 4
	OrderFirstHeaderSize   ZapetteOrder = 5
	OrderOtherHeaderSize   ZapetteOrder = 6
)

// ZapetteRequest is one request frame of the remote-slice wire protocol.
type ZapetteRequest struct {
	Serial uint8
	Offset infinint.Int
	Size   uint16 // 0 => special order, Offset selects it
	Info   string // present only for "special" orders that need it
}

// WriteTo serializes a request: serial | offset(bigint) | size(u16) |
// [info string if special].
func (r ZapetteRequest) WriteTo(w io.Writer) error {
	if _, err := w.Write([]byte{r.Serial}); err != nil {
		return err
	}
	if err := r.Offset.EncodeTo(w); err != nil {
		return err
	}
	var sizeBuf [2]byte
	binary.BigEndian.PutUint16(sizeBuf[:], r.Size)
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return err
	}
	if r.Size == 0 && r.Info != "" {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(r.Info)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, r.Info); err != nil {
			return err
		}
	}
	return nil
}

// ReadZapetteRequest parses a request frame from r. needsInfo tells the
// parser whether to expect a trailing info string, which only certain
// special orders carry (the protocol does not self-describe this; the
// caller knows from context which order string-carrying orders are in
// use).
func ReadZapetteRequest(r io.Reader, needsInfo bool) (ZapetteRequest, error) {
	var serial [1]byte
	if _, err := io.ReadFull(r, serial[:]); err != nil {
		return ZapetteRequest{}, err
	}
	offset, err := infinint.Decode(r)
	if err != nil {
		return ZapetteRequest{}, err
	}
	var sizeBuf [2]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return ZapetteRequest{}, err
	}
	size := binary.BigEndian.Uint16(sizeBuf[:])
	req := ZapetteRequest{Serial: serial[0], Offset: offset, Size: size}
	if size == 0 && needsInfo {
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return ZapetteRequest{}, err
		}
		n := binary.BigEndian.Uint16(lenBuf[:])
		info := make([]byte, n)
		if _, err := io.ReadFull(r, info); err != nil {
			return ZapetteRequest{}, err
		}
		req.Info = string(info)
	}
	return req, nil
}

// ZapetteAnswer is either 'D'|size|bytes or 'I'|bigint, per spec.md §6.4.
type ZapetteAnswer struct {
	IsData bool
	Data   []byte      // valid when IsData
	Value  infinint.Int // valid when !IsData
}

func (a ZapetteAnswer) WriteTo(w io.Writer) error {
	if a.IsData {
		if _, err := w.Write([]byte{'D'}); err != nil {
			return err
		}
		var sizeBuf [2]byte
		binary.BigEndian.PutUint16(sizeBuf[:], uint16(len(a.Data)))
		if _, err := w.Write(sizeBuf[:]); err != nil {
			return err
		}
		_, err := w.Write(a.Data)
		return err
	}
	if _, err := w.Write([]byte{'I'}); err != nil {
		return err
	}
	return a.Value.EncodeTo(w)
}

func ReadZapetteAnswer(r io.Reader) (ZapetteAnswer, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return ZapetteAnswer{}, err
	}
	switch tag[0] {
	case 'D':
		var sizeBuf [2]byte
		if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
			return ZapetteAnswer{}, err
		}
		n := binary.BigEndian.Uint16(sizeBuf[:])
		data := make([]byte, n)
		if _, err := io.ReadFull(r, data); err != nil {
			return ZapetteAnswer{}, err
		}
		return ZapetteAnswer{IsData: true, Data: data}, nil
	case 'I':
		v, err := infinint.Decode(r)
		if err != nil {
			return ZapetteAnswer{}, err
		}
		return ZapetteAnswer{IsData: false, Value: v}, nil
	default:
		return ZapetteAnswer{}, errtag.New(errtag.Data, "unrecognized zapette answer tag")
	}
}

// ZapetteClient issues requests over a pair of byte streams (to the
// slave process) and reads back one answer per request. Answers carry
// no serial number, so no serial check is made and no request is retried.
type ZapetteClient struct {
	w      io.Writer
	r      io.Reader
	serial uint8
}

func NewZapetteClient(w io.Writer, r io.Reader) *ZapetteClient {
	return &ZapetteClient{w: w, r: r}
}

func (c *ZapetteClient) nextSerial() uint8 {
	c.serial++
	return c.serial
}

// call sends req and returns the next answer read. onMismatch is not
// consulted: answers carry no serial to compare against.
func (c *ZapetteClient) call(req ZapetteRequest, onMismatch func(expected, got uint8) bool) (ZapetteAnswer, error) {
	if err := req.WriteTo(c.w); err != nil {
		return ZapetteAnswer{}, err
	}
	for {
		ans, err := ReadZapetteAnswer(c.r)
		if err != nil {
			return ZapetteAnswer{}, err
		}
		return ans, nil
	}
}

// GetFileSize issues OrderGetFileSize.
func (c *ZapetteClient) GetFileSize() (infinint.Int, error) {
	req := ZapetteRequest{Serial: c.nextSerial(), Offset: infinint.New(uint64(OrderGetFileSize)), Size: 0}
	ans, err := c.call(req, nil)
	if err != nil {
		return infinint.Int{}, err
	}
	return ans.Value, nil
}

// GetDataName issues OrderGetDataName.
func (c *ZapetteClient) GetDataName() (label.Label, error) {
	req := ZapetteRequest{Serial: c.nextSerial(), Offset: infinint.New(uint64(OrderGetDataName)), Size: 0}
	ans, err := c.call(req, nil)
	if err != nil {
		return label.Label{}, err
	}
	return label.FromBytes(ans.Data), nil
}

// HeaderSize issues OrderFirstHeaderSize or OrderOtherHeaderSize.
func (c *ZapetteClient) HeaderSize(first bool) (infinint.Int, error) {
	order := OrderOtherHeaderSize
	if first {
		order = OrderFirstHeaderSize
	}
	req := ZapetteRequest{Serial: c.nextSerial(), Offset: infinint.New(uint64(order)), Size: 0}
	ans, err := c.call(req, nil)
	if err != nil {
		return infinint.Int{}, err
	}
	return ans.Value, nil
}

// EndOfTransmission issues OrderEndOfTransmission.
func (c *ZapetteClient) EndOfTransmission() error {
	req := ZapetteRequest{Serial: c.nextSerial(), Offset: infinint.New(uint64(OrderEndOfTransmission)), Size: 0}
	_, err := c.call(req, nil)
	return err
}

// Read issues a data request for size bytes at offset.
func (c *ZapetteClient) Read(offset infinint.Int, size uint16) ([]byte, error) {
	req := ZapetteRequest{Serial: c.nextSerial(), Offset: offset, Size: size}
	ans, err := c.call(req, nil)
	if err != nil {
		return nil, err
	}
	if !ans.IsData {
		return nil, errtag.New(errtag.Data, "expected data answer from zapette read")
	}
	return ans.Data, nil
}
