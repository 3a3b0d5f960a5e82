// Package liveinterval specializes a LiveRange with a virtual-register
// identity and an optional set of SubRanges: per-lane-mask live ranges
// used to track subregister liveness independently of the interval's
// main (whole-register) range.
package liveinterval

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/liverange/internal/liveerr"
	"github.com/tangzhangming/liverange/internal/liverange"
	"github.com/tangzhangming/liverange/internal/regmeta"
)

// SubRange is a LiveRange keyed by the subset of register lanes it
// describes, linked into its owning LiveInterval's subrange list.
type SubRange struct {
	liverange.LiveRange

	LaneMask regmeta.LaneBitmask
	next     *SubRange
}

// LiveInterval is a LiveRange bound to a specific virtual register, with
// a forward-linked list of SubRanges describing subregister-precise
// liveness when the register is split across lanes.
type LiveInterval struct {
	liverange.LiveRange

	Reg    regmeta.VirtReg
	subs   *SubRange
	weight float32
}

// NewLiveInterval returns an empty interval for reg.
func NewLiveInterval(reg regmeta.VirtReg) *LiveInterval {
	return &LiveInterval{Reg: reg}
}

// Weight returns the interval's current spill weight. This core does not
// compute weights (spill-cost heuristics are out of scope); the field
// exists so an allocator pass built on top of it has somewhere to store
// its own weight without a side table keyed by register.
func (li *LiveInterval) Weight() float32 { return li.weight }

// SetWeight overwrites the interval's spill weight.
func (li *LiveInterval) SetWeight(w float32) { li.weight = w }

// HasSubRanges reports whether li tracks any subranges.
func (li *LiveInterval) HasSubRanges() bool { return li.subs != nil }

// SubRanges returns the subrange list head for forward iteration; there
// is no random access, matching the singly-linked representation the
// design favors for typical register subrange counts of 1-4.
func (li *LiveInterval) SubRanges() *SubRange { return li.subs }

// Next returns the next subrange in the list, or nil at the end.
func (sr *SubRange) Next() *SubRange { return sr.next }

// CreateSubRange links a fresh SubRange with the given lane mask into the
// head of li's subrange list, raising liveerr.LaneMaskConflict if the
// mask overlaps an existing subrange or escapes maxMask.
func (li *LiveInterval) CreateSubRange(laneMask, maxMask regmeta.LaneBitmask) *SubRange {
	if !laneMask.IsSubsetOf(maxMask) {
		liveerr.Raise(liveerr.LaneMaskConflict, "subrange lane mask exceeds the register's maximum lane mask")
	}
	for s := li.subs; s != nil; s = s.next {
		if s.LaneMask.Intersects(laneMask) {
			liveerr.Raise(liveerr.LaneMaskConflict, "subrange lane mask intersects an existing subrange")
		}
	}
	sr := &SubRange{LaneMask: laneMask, next: li.subs}
	li.subs = sr
	return sr
}

// RemoveEmptySubRanges unlinks every subrange with no segments.
func (li *LiveInterval) RemoveEmptySubRanges() {
	prev := (*SubRange)(nil)
	cur := li.subs
	for cur != nil {
		if cur.Empty() {
			if prev == nil {
				li.subs = cur.next
			} else {
				prev.next = cur.next
			}
			cur = cur.next
			continue
		}
		prev = cur
		cur = cur.next
	}
}

// ClearSubRanges discards every subrange.
func (li *LiveInterval) ClearSubRanges() { li.subs = nil }

// VerifySubRanges checks the coverage and disjointness invariants: every
// subrange must be covered by the main range, and lane masks must be
// pairwise disjoint and each a subset of maxMask.
func (li *LiveInterval) VerifySubRanges(maxMask regmeta.LaneBitmask) {
	seen := regmeta.NoLanes
	for s := li.subs; s != nil; s = s.next {
		if !s.LaneMask.IsSubsetOf(maxMask) {
			liveerr.Raise(liveerr.LaneMaskConflict, "subrange lane mask exceeds the register's maximum lane mask")
		}
		if seen.Intersects(s.LaneMask) {
			liveerr.Raise(liveerr.LaneMaskConflict, "subrange lane masks are not pairwise disjoint")
		}
		seen |= s.LaneMask
		if !li.Covers(&s.LiveRange) {
			liveerr.Raise(liveerr.InvalidSegment, "main range does not cover a subrange")
		}
	}
}

// String renders the interval as the register name followed by the main
// range's textual form and then, on the same line and separated by
// spaces, each subrange as L plus its lane mask in four hex digits,
// followed by the subrange's textual form.
func (li *LiveInterval) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%%%d %s", li.Reg, li.LiveRange.String())
	for s := li.subs; s != nil; s = s.next {
		fmt.Fprintf(&b, " L%04X %s", uint32(s.LaneMask), s.LiveRange.String())
	}
	return b.String()
}
