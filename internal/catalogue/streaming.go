package catalogue

import (
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

// StreamingCatalogue is the escape-driven catalogue of spec.md §4.6: when
// sequential read is requested there is no catalogue available up
// front, so file bodies are located as their MarkFileStart escape marks
// are encountered while scanning forward, and the real catalogue (with
// full metadata) is only available once the scan reaches the
// MarkCatalogueStart mark near the end of the archive. The first access
// drains the whole tree; after that, file bodies at recorded positions
// can be read directly off the escape-unencrypted stream without
// rescanning.
type StreamingCatalogue struct {
	esc      *stream.Escape
	dataName label.Label
	cat      *Catalogue
	drained  bool
}

// NewStreamingCatalogue wraps esc, the escape-mark layer positioned at
// the start of an archive body.
func NewStreamingCatalogue(esc *stream.Escape, dataName label.Label) *StreamingCatalogue {
	return &StreamingCatalogue{esc: esc, dataName: dataName}
}

// Drain scans forward consuming escape marks until the catalogue itself
// is reached, then parses it, correlating each Saved File entry (in
// encounter order) with the stream position its MarkFileStart mark was
// found at. Calling Drain again after the first successful call is a
// no-op that returns the same Catalogue.
func (sc *StreamingCatalogue) Drain() (*Catalogue, error) {
	if sc.drained {
		return sc.cat, nil
	}
	var positions []int64
	for {
		kind, err := sc.esc.SkipToNextMark(0)
		if err != nil {
			return nil, err
		}
		if kind == stream.MarkCatalogueStart {
			break
		}
		if kind == stream.MarkFileStart {
			positions = append(positions, int64(sc.esc.Position().Unstack()))
		}
	}
	cat, err := ReadCatalogue(sc.esc, sc.dataName)
	if err != nil {
		return nil, err
	}
	assignStreamPositions(cat.Root, positions, 0)
	sc.cat = cat
	sc.drained = true
	return cat, nil
}

func assignStreamPositions(dir *Directory, positions []int64, idx int) int {
	for _, child := range dir.Children {
		if f, ok := child.(*File); ok && (f.Saved == Saved || f.Saved == Delta) {
			if idx < len(positions) {
				f.Offset = infinint.New(uint64(positions[idx]))
				idx++
			}
		}
		if sub, ok := child.(*Directory); ok {
			idx = assignStreamPositions(sub, positions, idx)
		}
	}
	return idx
}

// WriteFileBody emits a MarkFileStart mark before writing n bytes read
// from body, mirroring the writer side of the same protocol: each file's
// body is preceded by an unjumpable mark so a later sequential reader can
// find it without a catalogue.
func WriteFileBody(esc *stream.Escape, body []byte) error {
	if err := esc.WriteMark(stream.MarkFileStart); err != nil {
		return err
	}
	_, err := esc.Write(body)
	return err
}
