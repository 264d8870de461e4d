package catalogue

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// Meta holds the filesystem metadata every non-EoD entry carries: name
// plus ownership, permission and timestamp fields used by comparison
// (diff) and listing.
type Meta struct {
	Name  string
	UID   uint32
	GID   uint32
	Perm  uint32 // permission bits only, no type bits (mirrors squashfs's Type.Mode split)
	MTime time.Time
	CTime time.Time
	ATime time.Time

	EA       EAStatus
	FSAValid bool // whether an FSA (filesystem-specific attribute) block follows
}

func (m *Meta) writeTo(w io.Writer) error {
	if err := writeString(w, m.Name); err != nil {
		return err
	}
	var fixed [12]byte
	binary.BigEndian.PutUint32(fixed[0:4], m.UID)
	binary.BigEndian.PutUint32(fixed[4:8], m.GID)
	binary.BigEndian.PutUint32(fixed[8:12], m.Perm)
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}
	for _, t := range []time.Time{m.MTime, m.CTime, m.ATime} {
		if err := writeTime(w, t); err != nil {
			return err
		}
	}
	var flags [1]byte
	flags[0] = byte(m.EA)
	if m.FSAValid {
		flags[0] |= 0x80
	}
	_, err := w.Write(flags[:])
	return err
}

func readMeta(r io.Reader) (Meta, error) {
	var m Meta
	name, err := readString(r)
	if err != nil {
		return m, err
	}
	m.Name = name

	var fixed [12]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return m, err
	}
	m.UID = binary.BigEndian.Uint32(fixed[0:4])
	m.GID = binary.BigEndian.Uint32(fixed[4:8])
	m.Perm = binary.BigEndian.Uint32(fixed[8:12])

	for _, dst := range []*time.Time{&m.MTime, &m.CTime, &m.ATime} {
		t, err := readTime(r)
		if err != nil {
			return m, err
		}
		*dst = t
	}

	var flags [1]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return m, err
	}
	m.EA = EAStatus(flags[0] &^ 0x80)
	m.FSAValid = flags[0]&0x80 != 0
	return m, nil
}

func writeString(w io.Writer, s string) error {
	n := infinint.New(uint64(len(s)))
	if err := n.EncodeTo(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := infinint.Decode(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n.Unstack())
	if len(buf) > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}

func writeTime(w io.Writer, t time.Time) error {
	n := infinint.New(uint64(t.Unix()))
	return n.EncodeTo(w)
}

func readTime(r io.Reader) (time.Time, error) {
	n, err := infinint.Decode(r)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(n.Unstack()), 0).UTC(), nil
}
