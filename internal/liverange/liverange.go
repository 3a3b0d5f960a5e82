// Package liverange implements the segmented live range: an ordered,
// non-overlapping sequence of half-open [start, end) segments over
// SlotIndex positions, each tagged with the value number live across it.
// It is the core query and mutation surface a register allocator builds
// coalescing, splitting, and spilling on top of.
package liverange

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/liverange/internal/liveerr"
	"github.com/tangzhangming/liverange/internal/regmeta"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// LiveRange is an ordered segment list plus the value-number table that
// backs it. See the package doc for the invariants it maintains between
// mutations.
type LiveRange struct {
	segments   orderedSegs
	segmentSet *orderedSegs
	valnos     []*ValueNumber
}

// NewLiveRange returns an empty live range.
func NewLiveRange() *LiveRange {
	return &LiveRange{}
}

// activeColl returns whichever of segments/segmentSet is the authoritative
// collection right now: the staging set while one is open, else the
// ordered vector. Mutation algorithms dispatch through this instead of
// duplicating themselves per backend, mirroring the original's
// compile-time polymorphism over the two CalcLiveRangeUtil instantiations
// with a single shared representation instead (see design notes).
func (lr *LiveRange) activeColl() *orderedSegs {
	if lr.segmentSet != nil {
		return lr.segmentSet
	}
	return &lr.segments
}

// Empty reports whether the live range carries no segments at all, in
// either backend.
func (lr *LiveRange) Empty() bool {
	if lr.segmentSet != nil {
		return lr.segmentSet.empty()
	}
	return lr.segments.empty()
}

// Size returns the number of segments in the authoritative ordered
// vector. Callers must not call this while a segment set is staged.
func (lr *LiveRange) Size() int { return lr.segments.len() }

// Segments returns the live range's segments in order. The slice must not
// be mutated by the caller.
func (lr *LiveRange) Segments() []Segment { return lr.segments.all() }

// NumValNums returns the number of entries in the value-number table.
func (lr *LiveRange) NumValNums() int { return len(lr.valnos) }

// ValNumInfo returns the value number at table index id.
func (lr *LiveRange) ValNumInfo(id int) *ValueNumber {
	if id < 0 || id >= len(lr.valnos) {
		liveerr.Raise(liveerr.StaleVN, fmt.Sprintf("value-number id %d out of range", id))
	}
	return lr.valnos[id]
}

// ValueNumbers returns the live range's value-number table. The slice
// must not be mutated by the caller.
func (lr *LiveRange) ValueNumbers() []*ValueNumber { return lr.valnos }

// NewValue allocates a fresh value number defined at def from alloc and
// appends it to this live range's table.
func (lr *LiveRange) NewValue(def slotindex.SlotIndex, alloc *Allocator) *ValueNumber {
	vn := alloc.newValue(def)
	vn.id = len(lr.valnos)
	lr.valnos = append(lr.valnos, vn)
	return vn
}

// vnBefore returns the value number live immediately before pos, or nil.
// Used by ConnectedVNClasses to find the redefinition a tied or PHI
// value is chained to.
func (lr *LiveRange) vnBefore(pos slotindex.SlotIndex) *ValueNumber {
	i := lr.segments.find(pos.PrevSlot())
	if i >= lr.segments.len() {
		return nil
	}
	s := lr.segments.at(i)
	if s.Contains(pos.PrevSlot()) || s.End.Equal(pos) {
		return s.VN
	}
	return nil
}

// VNBefore returns the value number live immediately before pos (i.e.
// ending exactly at pos, or covering the slot just before it), or nil.
// Used by the connected-component classifier to find the definition a
// tied redef or a PHI predecessor's live-out chains from.
func (lr *LiveRange) VNBefore(pos slotindex.SlotIndex) *ValueNumber {
	return lr.vnBefore(pos)
}

// AdoptValue appends an already-allocated value number (typically moved
// over from another live range during a split) to this range's table
// under a freshly assigned id, and returns that id.
func (lr *LiveRange) AdoptValue(vn *ValueNumber) int {
	vn.id = len(lr.valnos)
	lr.valnos = append(lr.valnos, vn)
	return vn.id
}

// ReplaceSegments replaces the entire primary segment vector. Callers
// (the connected-component distributor, chiefly) are responsible for the
// replacement upholding the ordering and non-overlap invariants;
// Verify can check afterward.
func (lr *LiveRange) ReplaceSegments(segs []Segment) {
	lr.segments.s = segs
}

// ReplaceValues replaces the value-number table with vns, reassigning
// dense ids in order.
func (lr *LiveRange) ReplaceValues(vns []*ValueNumber) {
	for i, vn := range vns {
		vn.id = i
	}
	lr.valnos = vns
}

// Clear empties the live range entirely: no segments, no value numbers,
// no staged segment set. Used when a range is about to be fully
// reconstructed from other state (e.g. rebuilding a main range from the
// union of its subranges after a split).
func (lr *LiveRange) Clear() {
	lr.segments.s = nil
	lr.segmentSet = nil
	lr.valnos = nil
}

func (lr *LiveRange) vnReferenced(vn *ValueNumber) bool {
	for _, s := range lr.segments.all() {
		if s.VN == vn {
			return true
		}
	}
	return false
}

// ---- Queries (4.1.1) ----

// Find returns the first segment s with pos < s.End, and whether one
// exists. O(log n).
func (lr *LiveRange) Find(pos slotindex.SlotIndex) (Segment, bool) {
	i := lr.segments.find(pos)
	if i >= lr.segments.len() {
		return Segment{}, false
	}
	return lr.segments.at(i), true
}

// Contains reports whether pos lies inside some segment.
func (lr *LiveRange) Contains(pos slotindex.SlotIndex) bool {
	s, ok := lr.Find(pos)
	return ok && s.Start.LessEqual(pos)
}

// Overlaps reports whether lr and other share at least one point.
func (lr *LiveRange) Overlaps(other *LiveRange) bool {
	return lr.OverlapsFrom(other, 0)
}

// OverlapsFrom is Overlaps with a caller-supplied starting index into
// other, as an optimization for callers iterating many overlap queries
// against the same other range in order. The caller is responsible for
// the hint being valid (startHint == 0, or other's segment at startHint
// starts no later than lr's first segment); an invalid hint silently
// produces a wrong answer, as in the original.
func (lr *LiveRange) OverlapsFrom(other *LiveRange, startHint int) bool {
	if lr.segments.empty() || other.segments.empty() {
		return false
	}
	i, j := 0, startHint
	for i < lr.segments.len() && j < other.segments.len() {
		a, b := lr.segments.at(i), other.segments.at(j)
		if a.Start.Less(b.End) && b.Start.Less(a.End) {
			return true
		}
		if a.End.LessEqual(b.End) {
			i++
		} else {
			j++
		}
	}
	return false
}

// OverlapsInterval reports whether [start,end) intersects any segment.
func (lr *LiveRange) OverlapsInterval(start, end slotindex.SlotIndex) bool {
	i := lr.segments.find(start)
	if i >= lr.segments.len() {
		return false
	}
	return lr.segments.at(i).Start.Less(end)
}

func maxSlot(a, b slotindex.SlotIndex) slotindex.SlotIndex {
	if a.Less(b) {
		return b
	}
	return a
}

// OverlapsExcludingCoalescable is Overlaps but ignores overlap caused
// solely by a coalescable copy at a block boundary: for each shared point
// def = max(a.Start, b.Start), overlap is reported unless def names a
// non-block-boundary instruction the coalescer pair declares coalescable.
func (lr *LiveRange) OverlapsExcludingCoalescable(other *LiveRange, cp regmeta.CoalescerPair, idx *slotindex.Indexes) bool {
	i, j := 0, 0
	for i < lr.segments.len() && j < other.segments.len() {
		a, b := lr.segments.at(i), other.segments.at(j)
		if a.Start.Less(b.End) && b.Start.Less(a.End) {
			def := maxSlot(a.Start, b.Start)
			if def.IsBlock() {
				return true
			}
			instr := idx.GetInstructionFromIndex(def)
			if instr == nil || !cp.IsCoalescable(instr) {
				return true
			}
		}
		if a.End.LessEqual(b.End) {
			i++
		} else {
			j++
		}
	}
	return false
}

func advanceTo(o *orderedSegs, i int, pos slotindex.SlotIndex) int {
	for i < o.len() && o.at(i).End.LessEqual(pos) {
		i++
	}
	return i
}

// Covers reports whether every point covered by other is also covered by
// lr, following adjacent touching segments of lr to bridge gaps between
// other's segments.
func (lr *LiveRange) Covers(other *LiveRange) bool {
	if other.segments.empty() {
		return true
	}
	i := 0
	for _, os := range other.segments.all() {
		i = advanceTo(&lr.segments, i, os.Start)
		if i >= lr.segments.len() {
			return false
		}
		cur := lr.segments.at(i)
		if !cur.Start.LessEqual(os.Start) {
			return false
		}
		end := cur.End
		for end.Less(os.End) {
			i++
			if i >= lr.segments.len() {
				return false
			}
			nxt := lr.segments.at(i)
			if !nxt.Start.Equal(end) {
				return false
			}
			end = nxt.End
		}
	}
	return true
}

// IsLiveAtIndexes reports whether any slot in slots falls inside a
// segment.
func (lr *LiveRange) IsLiveAtIndexes(slots []slotindex.SlotIndex) bool {
	for _, p := range slots {
		if lr.Contains(p) {
			return true
		}
	}
	return false
}

// ---- Mutations (4.1.2) ----

// CreateDeadDef records a definition at def with no uses, or promotes an
// existing coincident definition to an earlier (early-clobber) slot. def
// must not already be a dead slot.
func (lr *LiveRange) CreateDeadDef(def slotindex.SlotIndex, alloc *Allocator) *ValueNumber {
	if def.IsDead() {
		liveerr.Raise(liveerr.DeadSlotDef, "create_dead_def called with a dead slot")
	}
	coll := lr.activeColl()
	i := coll.find(def)
	if i >= coll.len() {
		vn := lr.NewValue(def, alloc)
		coll.insertAtEnd(NewSegment(def, def.GetDeadSlot(), vn))
		return vn
	}
	s := coll.at(i)
	switch {
	case slotindex.SameInstr(def, s.Start):
		// The smaller slot wins; if def is not earlier, nothing changes.
		if def.Less(s.Start) {
			s.Start = def
			s.VN.Def = def
			coll.setAt(i, s)
		}
		return s.VN
	case def.Less(s.Start):
		vn := lr.NewValue(def, alloc)
		coll.insertAt(i, NewSegment(def, def.GetDeadSlot(), vn))
		return vn
	default:
		liveerr.Raise(liveerr.InvalidSegment, "create_dead_def requested inside an already-live segment")
		return nil
	}
}

// ExtendInBlock extends the segment live on entry to (or defined earlier
// within) the block starting at blockStart so that it reaches use,
// absorbing any subsequent segments of the same value that become
// redundant. It returns the extended value, or nil if no segment of this
// live range reaches blockStart within the same block as use.
func (lr *LiveRange) ExtendInBlock(blockStart, use slotindex.SlotIndex) *ValueNumber {
	coll := lr.activeColl()
	if coll.empty() {
		return nil
	}
	idx := coll.findInsertPos(use.PrevSlot()) - 1
	if idx < 0 {
		return nil
	}
	s := coll.at(idx)
	if !blockStart.Less(s.End) {
		return nil
	}
	vn := s.VN
	newEnd := use
	j := idx + 1
	for j < coll.len() {
		next := coll.at(j)
		if next.VN != vn || use.Less(next.Start) {
			break
		}
		if newEnd.Less(next.End) {
			newEnd = next.End
		}
		j++
	}
	if s.End.Less(newEnd) {
		s.End = newEnd
	}
	if j > idx+1 {
		coll.removeRange(idx+1, j)
	}
	coll.setAt(idx, s)
	return vn
}

// AddSegment inserts seg, merging with any neighbor that shares its value
// number (including pure adjacency) and raising liveerr.OverlapMismatch
// if it would otherwise overlap a neighbor with a different value.
func (lr *LiveRange) AddSegment(seg Segment) {
	coll := lr.activeColl()
	i := coll.findInsertPos(seg.Start)
	if i > 0 {
		left := coll.at(i - 1)
		switch {
		case seg.Start.Less(left.End):
			if left.VN != seg.VN {
				liveerr.Raise(liveerr.OverlapMismatch, "add_segment overlaps a preceding segment with a different value number")
			}
			seg.Start = left.Start
			if !left.End.Less(seg.End) {
				seg.End = left.End
			}
			i--
			coll.removeAt(i)
		case seg.Start.Equal(left.End) && left.VN == seg.VN:
			seg.Start = left.Start
			i--
			coll.removeAt(i)
		}
	}
	for i < coll.len() {
		right := coll.at(i)
		if seg.End.Less(right.Start) {
			break
		}
		if seg.End.Equal(right.Start) {
			if right.VN != seg.VN {
				break
			}
			seg.End = right.End
			coll.removeAt(i)
			continue
		}
		if right.VN != seg.VN {
			liveerr.Raise(liveerr.OverlapMismatch, "add_segment overlaps a following segment with a different value number")
		}
		if right.End.Less(seg.End) {
			coll.removeAt(i)
			continue
		}
		seg.End = right.End
		coll.removeAt(i)
		break
	}
	coll.insertAt(i, seg)
}

// AddSegmentToSet opens (if needed) the staging segment set and inserts
// seg at its start-ordered position, used while segments arrive in
// uncontrolled order during initial liveness construction.
func (lr *LiveRange) AddSegmentToSet(seg Segment) {
	if lr.segmentSet == nil {
		lr.segmentSet = &orderedSegs{}
	}
	lr.segmentSet.insertAt(lr.segmentSet.findInsertPos(seg.Start), seg)
}

// FlushSegmentSet sorts and transfers the staging segment set into the
// primary ordered vector, then discards the set. It raises
// liveerr.AppendPrecondition if the primary vector is already non-empty.
func (lr *LiveRange) FlushSegmentSet() {
	if lr.segmentSet == nil {
		return
	}
	if !lr.segments.empty() {
		liveerr.Raise(liveerr.AppendPrecondition, "flush_segment_set called with a non-empty primary segment vector")
	}
	lr.segmentSet.sortInPlace()
	for _, s := range lr.segmentSet.all() {
		lr.Append(s)
	}
	lr.segmentSet = nil
}

// Append pushes seg onto the end of the authoritative collection in O(1),
// for callers that generate segments in order. It raises
// liveerr.OrderViolation if seg starts before the current last segment
// ends.
func (lr *LiveRange) Append(seg Segment) {
	coll := lr.activeColl()
	if !coll.empty() {
		last := coll.last()
		if seg.Start.Less(last.End) {
			liveerr.Raise(liveerr.OrderViolation, "append received a segment starting before the live range's current end")
		}
		if last.End.Equal(seg.Start) && last.VN == seg.VN {
			last.End = seg.End
			coll.setAt(coll.len()-1, last)
			return
		}
	}
	coll.insertAtEnd(seg)
}

// RemoveSegment deletes [start,end) from the single existing segment that
// must contain it, trimming a prefix/suffix or splitting the segment in
// two as needed. If the whole segment is removed, removeDeadValNo set,
// and no other segment references its value, the value is marked for
// deletion.
func (lr *LiveRange) RemoveSegment(start, end slotindex.SlotIndex, removeDeadValNo bool) {
	coll := lr.activeColl()
	i := coll.find(start)
	if i >= coll.len() {
		liveerr.Raise(liveerr.InvalidSegment, "remove_segment: no segment covers the requested range")
	}
	s := coll.at(i)
	if !(s.Start.LessEqual(start) && end.LessEqual(s.End)) {
		liveerr.Raise(liveerr.InvalidSegment, "remove_segment: range is not contained in a single segment")
	}
	vn := s.VN
	switch {
	case s.Start.Equal(start) && end.Equal(s.End):
		coll.removeAt(i)
		if removeDeadValNo && !lr.vnReferenced(vn) {
			lr.MarkValNoForDeletion(vn)
		}
	case s.Start.Equal(start):
		s.Start = end
		coll.setAt(i, s)
	case end.Equal(s.End):
		s.End = start
		coll.setAt(i, s)
	default:
		left := Segment{Start: s.Start, End: start, VN: vn}
		right := Segment{Start: end, End: s.End, VN: vn}
		coll.setAt(i, left)
		coll.insertAt(i+1, right)
	}
}

// RemoveValNo removes every segment referencing vn and marks vn for
// deletion.
func (lr *LiveRange) RemoveValNo(vn *ValueNumber) {
	kept := lr.segments.s[:0]
	for _, s := range lr.segments.s {
		if s.VN != vn {
			kept = append(kept, s)
		}
	}
	lr.segments.s = kept
	lr.MarkValNoForDeletion(vn)
}

// MarkValNoForDeletion flags vn unused. If vn occupied the final slot of
// the value-number table, it (and any trailing run of already-unused
// entries) is popped; otherwise vn is left in place, flagged.
func (lr *LiveRange) MarkValNoForDeletion(vn *ValueNumber) {
	vn.MarkUnused()
	for len(lr.valnos) > 0 {
		last := lr.valnos[len(lr.valnos)-1]
		if !last.IsUnused() {
			break
		}
		lr.valnos = lr.valnos[:len(lr.valnos)-1]
	}
}

// RenumberValues reassigns dense ids to every value number actually
// referenced by a segment, in first-appearance order, dropping the rest.
func (lr *LiveRange) RenumberValues() {
	newTable := make([]*ValueNumber, 0, len(lr.valnos))
	seen := make(map[*ValueNumber]bool, len(lr.valnos))
	for _, s := range lr.segments.all() {
		if !seen[s.VN] {
			seen[s.VN] = true
			s.VN.id = len(newTable)
			newTable = append(newTable, s.VN)
		}
	}
	lr.valnos = newTable
}

// Join merges other into lr under the value-number mapping lhsAssign
// (lr's old id -> index into newVNs) and rhsAssign (other's old id ->
// index into newVNs). newVNs may contain nil entries for ids that ended
// up referencing nothing. other is left in an inconsistent state and
// must not be reused afterward.
func (lr *LiveRange) Join(other *LiveRange, lhsAssign, rhsAssign []int, newVNs []*ValueNumber) {
	needsRemap := false
	seen := make(map[int]bool, len(lhsAssign))
	for i, m := range lhsAssign {
		if m != i || seen[m] {
			needsRemap = true
		}
		seen[m] = true
	}
	if needsRemap {
		remapped := make([]Segment, 0, lr.segments.len())
		for _, s := range lr.segments.all() {
			s.VN = newVNs[lhsAssign[s.VN.id]]
			if n := len(remapped); n > 0 && remapped[n-1].End.Equal(s.Start) && remapped[n-1].VN == s.VN {
				remapped[n-1].End = s.End
				continue
			}
			remapped = append(remapped, s)
		}
		lr.segments.s = remapped
	}

	for i, s := range other.segments.s {
		other.segments.s[i].VN = newVNs[rhsAssign[s.VN.id]]
	}

	lr.valnos = lr.valnos[:0]
	for _, vn := range newVNs {
		if vn == nil {
			continue
		}
		vn.id = len(lr.valnos)
		lr.valnos = append(lr.valnos, vn)
	}

	updater := NewLiveRangeUpdater(lr)
	for _, s := range other.segments.all() {
		updater.Add(s)
	}
	updater.Flush()
}

// MergeSegmentsInAsValue streams every segment of rhs into lr, all
// rewritten to lhsVal. Overlap with lr's existing segments is allowed and
// is overwritten.
func (lr *LiveRange) MergeSegmentsInAsValue(rhs *LiveRange, lhsVal *ValueNumber) {
	updater := NewLiveRangeUpdater(lr)
	for _, s := range rhs.segments.all() {
		updater.Add(Segment{Start: s.Start, End: s.End, VN: lhsVal})
	}
	updater.Flush()
}

// MergeValueInAsValue is MergeSegmentsInAsValue restricted to rhs's
// segments that carry rhsVal.
func (lr *LiveRange) MergeValueInAsValue(rhs *LiveRange, rhsVal, lhsVal *ValueNumber) {
	updater := NewLiveRangeUpdater(lr)
	for _, s := range rhs.segments.all() {
		if s.VN != rhsVal {
			continue
		}
		updater.Add(Segment{Start: s.Start, End: s.End, VN: lhsVal})
	}
	updater.Flush()
}

// MergeValueNumberInto unifies v1 and v2 into one value, keeping the
// lower-id one as survivor (so later deletion of the other has a better
// chance of landing on the table's tail) and merging every segment of the
// deleted value into the survivor, coalescing with adjacent same-value
// segments on both sides. v2's content (Def and flags) always wins: if v1
// ends up the survivor by id, v2's content is copied onto it first.
func (lr *LiveRange) MergeValueNumberInto(v1, v2 *ValueNumber) *ValueNumber {
	survivor, dead := v1, v2
	if v1.id < v2.id {
		v1.Def = v2.Def
		v1.unused = v2.unused
		v1.phiDef = v2.phiDef
	} else {
		survivor, dead = v2, v1
	}
	for i, s := range lr.segments.s {
		if s.VN == dead {
			lr.segments.s[i].VN = survivor
		}
	}
	lr.segments.sortInPlace()
	merged := lr.segments.s[:0]
	for _, s := range lr.segments.s {
		if n := len(merged); n > 0 && merged[n-1].VN == s.VN && merged[n-1].End.Equal(s.Start) {
			merged[n-1].End = s.End
			continue
		}
		merged = append(merged, s)
	}
	lr.segments.s = merged
	lr.MarkValNoForDeletion(dead)
	return survivor
}

// Verify checks the ordering, non-overlap, touching-VN-distinctness, and
// VN-table-consistency invariants, panicking via liveerr on the first
// violation found. Intended for use after an Updater flush and in tests,
// not on any hot path.
func (lr *LiveRange) Verify() {
	segs := lr.segments.all()
	for i, s := range segs {
		if !s.Start.Less(s.End) {
			liveerr.Raise(liveerr.InvalidSegment, fmt.Sprintf("segment %d is not start<end", i))
		}
		if s.VN == nil || s.VN.id < 0 || s.VN.id >= len(lr.valnos) || lr.valnos[s.VN.id] != s.VN {
			liveerr.Raise(liveerr.StaleVN, fmt.Sprintf("segment %d references a value number outside the table", i))
		}
		if i == 0 {
			continue
		}
		prev := segs[i-1]
		if !prev.End.LessEqual(s.Start) {
			liveerr.Raise(liveerr.OrderViolation, fmt.Sprintf("segment %d overlaps segment %d", i, i-1))
		}
		if prev.End.Equal(s.Start) && prev.VN == s.VN {
			liveerr.Raise(liveerr.OrderViolation, fmt.Sprintf("touching segments %d and %d share a value number", i-1, i))
		}
	}
	for _, vn := range lr.valnos {
		if vn.IsUnused() && lr.vnReferenced(vn) {
			liveerr.Raise(liveerr.StaleVN, "value number flagged unused but still referenced")
		}
	}
}

// String renders the stable textual debug form: each segment as
// [start,end:vnN), then two spaces and the value numbers separated by
// single spaces, each as vnN@def, or vnN@x if unused, with -phi appended
// if it is a PHI definition.
func (lr *LiveRange) String() string {
	var b strings.Builder
	for _, s := range lr.segments.all() {
		b.WriteString(s.String())
	}
	for i, vn := range lr.valnos {
		if i == 0 {
			b.WriteString("  ")
		} else {
			b.WriteByte(' ')
		}
		switch {
		case vn.IsUnused():
			fmt.Fprintf(&b, "vn%d@x", vn.ID())
		case vn.IsPHIDef():
			fmt.Fprintf(&b, "vn%d@%s-phi", vn.ID(), vn.Def)
		default:
			fmt.Fprintf(&b, "vn%d@%s", vn.ID(), vn.Def)
		}
	}
	return b.String()
}
