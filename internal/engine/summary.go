package engine

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
)

// SummaryFormat selects a Summary rendering, mirroring List's
// ListFormat.
type SummaryFormat int

const (
	SummaryPlain SummaryFormat = iota
	SummaryXML
)

// Summary writes a human- or XML-readable description of the open
// archive — data_name, per-kind entry counts, saved/delta/not-saved
// breakdown, and the isolated-catalogue note of spec.md §6.3 when
// applicable — per spec.md §4.7's summary operation.
func (co *Coordinator) Summary(w io.Writer, format SummaryFormat) error {
	if co.Catalogue == nil {
		return errNotOpen
	}
	s := co.Catalogue.Stats
	switch format {
	case SummaryXML:
		return co.writeSummaryXML(w, s)
	default:
		return co.writeSummaryPlain(w, s)
	}
}

func (co *Coordinator) writeSummaryPlain(w io.Writer, s catalogue.Stats) error {
	if co.Isolated {
		if _, err := fmt.Fprintln(w, summaryIsolatedNote); err != nil {
			return err
		}
	}
	lines := []struct {
		label string
		value uint64
	}{
		{"directories", s.Directories},
		{"files", s.Files},
		{"symlinks", s.Symlinks},
		{"char devices", s.CharDevices},
		{"block devices", s.BlockDevices},
		{"pipes", s.Pipes},
		{"sockets", s.Sockets},
		{"deleted", s.Deleted},
		{"hard links", s.HardLinks},
		{"saved", s.Saved},
		{"not saved", s.NotSaved},
		{"fake", s.Fake},
		{"delta", s.Deltas},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%-14s %10d\n", l.label, l.value); err != nil {
			return err
		}
	}
	return nil
}

type summaryXMLDoc struct {
	XMLName  xml.Name `xml:"summary"`
	Isolated bool     `xml:"isolated,attr,omitempty"`

	Directories  uint64 `xml:"directories"`
	Files        uint64 `xml:"files"`
	Symlinks     uint64 `xml:"symlinks"`
	CharDevices  uint64 `xml:"char_devices"`
	BlockDevices uint64 `xml:"block_devices"`
	Pipes        uint64 `xml:"pipes"`
	Sockets      uint64 `xml:"sockets"`
	Deleted      uint64 `xml:"deleted"`
	HardLinks    uint64 `xml:"hard_links"`

	Saved    uint64 `xml:"saved"`
	NotSaved uint64 `xml:"not_saved"`
	Fake     uint64 `xml:"fake"`
	Deltas   uint64 `xml:"delta"`
}

func (co *Coordinator) writeSummaryXML(w io.Writer, s catalogue.Stats) error {
	doc := summaryXMLDoc{
		Isolated:     co.Isolated,
		Directories:  s.Directories,
		Files:        s.Files,
		Symlinks:     s.Symlinks,
		CharDevices:  s.CharDevices,
		BlockDevices: s.BlockDevices,
		Pipes:        s.Pipes,
		Sockets:      s.Sockets,
		Deleted:      s.Deleted,
		HardLinks:    s.HardLinks,
		Saved:        s.Saved,
		NotSaved:     s.NotSaved,
		Fake:         s.Fake,
		Deltas:       s.Deltas,
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}
