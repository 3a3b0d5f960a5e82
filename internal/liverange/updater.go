package liverange

import (
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// coalescable reports whether a and b, in either order, would merge into
// one segment: they share a value number and their union is contiguous
// (overlapping or touching).
func coalescable(a, b Segment) bool {
	if b.Start.Less(a.Start) {
		a, b = b, a
	}
	return a.VN == b.VN && !a.End.Less(b.Start)
}

// LiveRangeUpdater streams potentially out-of-order segment insertions
// into a LiveRange with amortized near-linear cost, instead of paying an
// O(n) shift on every AddSegment call. It partitions the target's
// segment vector into a merged prefix, a reserved gap, and an unconsumed
// suffix, spilling segments that don't yet fit the gap into a side
// buffer that gets folded back in on Flush.
type LiveRangeUpdater struct {
	lr        *LiveRange
	dirty     bool
	lastStart slotindex.SlotIndex
	writeIdx  int
	readIdx   int
	spills    []Segment
}

// NewLiveRangeUpdater returns an updater targeting lr. lr must not be
// queried or mutated by any other means until Flush is called.
func NewLiveRangeUpdater(lr *LiveRange) *LiveRangeUpdater {
	return &LiveRangeUpdater{lr: lr}
}

func (u *LiveRangeUpdater) mergeSpillsIfRoom() {
	if len(u.spills) == 0 {
		return
	}
	coll := &u.lr.segments
	if u.readIdx-u.writeIdx < len(u.spills) {
		return
	}
	for _, s := range u.spills {
		coll.setAt(u.writeIdx, s)
		u.writeIdx++
	}
	u.spills = u.spills[:0]
}

func (u *LiveRangeUpdater) copyForward() {
	coll := &u.lr.segments
	if u.readIdx != u.writeIdx {
		coll.setAt(u.writeIdx, coll.at(u.readIdx))
	}
	u.writeIdx++
	u.readIdx++
}

// Add inserts seg, which may arrive out of order relative to previous
// calls in the same streak; a new streak (seg.Start before the previous
// call's start) forces an implicit Flush first.
func (u *LiveRangeUpdater) Add(seg Segment) {
	if u.lr.segmentSet != nil {
		u.lr.AddSegmentToSet(seg)
		return
	}
	if u.dirty && seg.Start.Less(u.lastStart) {
		u.Flush()
	}
	u.lastStart = seg.Start
	u.dirty = true

	coll := &u.lr.segments
	if u.readIdx < coll.len() && coll.at(u.readIdx).End.LessEqual(seg.Start) {
		// First try to close the gap between writeIdx and readIdx with
		// spills still held back.
		if u.readIdx != u.writeIdx {
			u.mergeSpillsIfRoom()
		}
		if u.readIdx == u.writeIdx {
			// The gap is fully closed: jump straight to seg.Start via
			// binary search instead of scanning segment by segment.
			idx := coll.find(seg.Start)
			u.readIdx, u.writeIdx = idx, idx
		} else {
			for u.readIdx < coll.len() && coll.at(u.readIdx).End.LessEqual(seg.Start) {
				u.copyForward()
			}
		}
	}

	if u.readIdx < coll.len() {
		r := coll.at(u.readIdx)
		if coalescable(seg, r) {
			if r.ContainsInterval(seg.Start, seg.End) {
				return
			}
			if r.Start.Less(seg.Start) {
				seg.Start = r.Start
			}
			if seg.End.Less(r.End) {
				seg.End = r.End
			}
			u.readIdx++
		}
	}
	for u.readIdx < coll.len() {
		r := coll.at(u.readIdx)
		if !coalescable(seg, r) {
			break
		}
		if seg.End.Less(r.End) {
			seg.End = r.End
		}
		u.readIdx++
	}
	if n := len(u.spills); n > 0 && coalescable(u.spills[n-1], seg) {
		if u.spills[n-1].End.Less(seg.End) {
			u.spills[n-1].End = seg.End
		}
		return
	}
	if u.writeIdx > 0 {
		w := coll.at(u.writeIdx - 1)
		if coalescable(w, seg) {
			if w.End.Less(seg.End) {
				w.End = seg.End
				coll.setAt(u.writeIdx-1, w)
			}
			return
		}
	}
	if u.writeIdx < u.readIdx {
		coll.setAt(u.writeIdx, seg)
		u.writeIdx++
		return
	}
	if u.readIdx == coll.len() {
		coll.insertAtEnd(seg)
		u.writeIdx = coll.len()
		u.readIdx = coll.len()
		return
	}
	u.spills = append(u.spills, seg)
}

// Flush folds any spilled segments back into the gap, closes the gap,
// restores start order (coalescing same-value neighbors that touch or
// overlap), and validates the target's invariants. A second call with no
// intervening Add is a no-op.
func (u *LiveRangeUpdater) Flush() {
	if !u.dirty {
		return
	}
	coll := &u.lr.segments
	gap := u.readIdx - u.writeIdx
	switch {
	case gap < len(u.spills):
		need := len(u.spills) - gap
		for i := 0; i < need; i++ {
			coll.insertAt(u.readIdx, Segment{})
			u.readIdx++
		}
	case gap > len(u.spills):
		coll.removeRange(u.writeIdx+len(u.spills), u.readIdx)
		u.readIdx = u.writeIdx + len(u.spills)
	}
	u.mergeSpillsIfRoom()
	// Spills folded into the gap can sit out of start order relative to
	// segments written after they were held back.
	coll.sortInPlace()
	merged := coll.s[:0]
	for _, s := range coll.s {
		if n := len(merged); n > 0 && coalescable(merged[n-1], s) {
			if merged[n-1].End.Less(s.End) {
				merged[n-1].End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	coll.s = merged
	u.writeIdx = coll.len()
	u.readIdx = coll.len()
	u.dirty = false
	u.lastStart = slotindex.SlotIndex{}
	u.lr.Verify()
}
