package stream

import "fmt"

// Well-known pile labels, per spec.md §4.2.
const (
	LabelLevel1      = "LEVEL1"
	LabelUncyphered  = "UNCYPHERED"
	LabelClear       = "CLEAR"
	LabelUncompressed = "UNCOMPRESSED"
)

// Pile is an ordered stack of Streams, top receiving application I/O,
// bottom touching the slice/remote transport. It owns every layer it
// holds and tears them down, top to bottom, on Close.
type Pile struct {
	layers []layerEntry
}

type layerEntry struct {
	label string
	s     Stream
}

// NewPile returns an empty pile; layers are added bottom-up via Push.
func NewPile() *Pile {
	return &Pile{}
}

// Push adds a new top layer above whatever was previously on top,
// recording it under label for later lookup. label may be empty if the
// layer is never looked up by role.
func (p *Pile) Push(label string, s Stream) {
	p.layers = append(p.layers, layerEntry{label: label, s: s})
}

// Top returns the current top-of-pile Stream, the one application code
// reads and writes through. It panics if the pile is empty, which is
// always a construction bug.
func (p *Pile) Top() Stream {
	if len(p.layers) == 0 {
		panic("stream: pile has no layers")
	}
	return p.layers[len(p.layers)-1].s
}

// ByLabel finds a layer by the label it was pushed under, searching from
// the top down (the most common query direction: "find my nearest
// cipher/compressor").
func (p *Pile) ByLabel(label string) (Stream, bool) {
	for i := len(p.layers) - 1; i >= 0; i-- {
		if p.layers[i].label == label {
			return p.layers[i].s, true
		}
	}
	return nil, false
}

// FindFromTop returns the first layer (searching top to bottom) for
// which pred returns true.
func (p *Pile) FindFromTop(pred func(Stream) bool) (Stream, bool) {
	for i := len(p.layers) - 1; i >= 0; i-- {
		if pred(p.layers[i].s) {
			return p.layers[i].s, true
		}
	}
	return nil, false
}

// FindFromBottom returns the first layer (searching bottom to top) for
// which pred returns true; used e.g. to find "the slicer" at the base.
func (p *Pile) FindFromBottom(pred func(Stream) bool) (Stream, bool) {
	for i := 0; i < len(p.layers); i++ {
		if pred(p.layers[i].s) {
			return p.layers[i].s, true
		}
	}
	return nil, false
}

// Broadcast calls fn(status) on every layer implementing Contextual, top
// to bottom, matching the "contextual-status broadcast" responsibility
// of spec.md §4.2.
func (p *Pile) Broadcast(status string) {
	for i := len(p.layers) - 1; i >= 0; i-- {
		if c, ok := p.layers[i].s.(Contextual); ok {
			c.SetContext(status)
		}
	}
}

// SyncTop flushes only the top layer, per spec.md §4.2's note that
// sync_write propagates only to the top until a full close is desired.
func (p *Pile) SyncTop() error {
	if len(p.layers) == 0 {
		return nil
	}
	return p.Top().SyncWrite()
}

// Close tears the pile down top-to-bottom: Terminate is called on each
// layer starting from the top, matching spec.md §4.1's contract that a
// layer owning a lower layer must terminate it first when the pile is
// unwound. Errors are collected; the first one is returned but every
// layer is still given a chance to terminate.
func (p *Pile) Close() error {
	var first error
	for i := len(p.layers) - 1; i >= 0; i-- {
		if err := p.layers[i].s.Terminate(); err != nil && first == nil {
			first = fmt.Errorf("stream: terminating layer %q: %w", p.layers[i].label, err)
		}
	}
	return first
}
