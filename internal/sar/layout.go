package sar

import (
	"errors"

	"github.com/Edrusb/DAR-sub001/internal/infinint"
)

// Layout computes the bijection between an absolute archive payload
// offset and a (slice number, in-slice offset) pair, per spec.md §4.3.
// FirstSize/OtherSize are the slice's configured on-disk capacity (the
// same values a Writer is given and that end up in the SliceSize/
// FirstSliceSize TLVs): the *usable payload* of a slice is one byte
// smaller than its capacity, since the last byte of every slice is
// reserved for the trailer flag (spec.md §3's "first_size >= header_min
// + 1, other_size >= header_min + 1" invariant already budgets for it).
type Layout struct {
	FirstSize infinint.Int
	OtherSize infinint.Int
}

// ErrInvalidLayout is returned when FirstSize or OtherSize is too small
// to hold even the one reserved trailer byte, violating spec.md §3's
// slice-size invariant.
var ErrInvalidLayout = errors.New("sar: slice size smaller than minimum header size")

// NewLayout validates and returns a Layout from each slice's configured
// capacity (including the one trailer byte every slice reserves).
func NewLayout(firstCapacity, otherCapacity infinint.Int) (*Layout, error) {
	if firstCapacity.Unstack() < 2 || otherCapacity.Unstack() < 2 {
		return nil, ErrInvalidLayout
	}
	return &Layout{FirstSize: firstCapacity, OtherSize: otherCapacity}, nil
}

// firstPayload and otherPayload are the usable payload byte counts per
// slice, capacity minus the one reserved trailer byte.
func (l *Layout) firstPayload() uint64 { return l.FirstSize.Unstack() - 1 }
func (l *Layout) otherPayload() uint64 { return l.OtherSize.Unstack() - 1 }

// Locate converts an absolute payload offset p into (slice number
// starting at 1, offset within that slice's payload).
func (l *Layout) Locate(p infinint.Int) (sliceNum uint64, inSliceOffset infinint.Int) {
	first := l.firstPayload()
	other := l.otherPayload()
	off := p.Unstack()

	if off < first {
		return 1, infinint.New(off)
	}
	off -= first
	n := off/other + 2 // slices 2..N
	rem := off % other
	return n, infinint.New(rem)
}

// Relocate is the inverse of Locate: given a slice number and an offset
// within that slice's payload, returns the absolute payload offset.
func (l *Layout) Relocate(sliceNum uint64, inSliceOffset infinint.Int) infinint.Int {
	first := l.firstPayload()
	other := l.otherPayload()
	off := inSliceOffset.Unstack()

	if sliceNum == 1 {
		return infinint.New(off)
	}
	return infinint.New(first + (sliceNum-2)*other + off)
}

// SlicesSpanned returns how many slices a payload region of length
// totalLen occupies, starting at payload offset start.
func (l *Layout) SlicesSpanned(start, totalLen infinint.Int) uint64 {
	if totalLen.IsZero() {
		return 1
	}
	end, err := infinint.Sub(infinint.Add(start, totalLen), infinint.New(1))
	if err != nil {
		end = start
	}
	startSlice, _ := l.Locate(start)
	endSlice, _ := l.Locate(end)
	return endSlice - startSlice + 1
}
