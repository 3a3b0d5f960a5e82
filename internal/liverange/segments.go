package liverange

import (
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// orderedSegs is a segment collection kept sorted by Start, with no two
// segments overlapping. It backs both LiveRange's primary segment vector
// and its optional staging segment set: the two views differ only in
// which LiveRange field holds one and in the bulk-build usage pattern,
// not in how they are searched or mutated, so both share this type
// instead of the original's two template instantiations of
// CalcLiveRangeUtilBase.
type orderedSegs struct {
	s []Segment
}

func (o *orderedSegs) len() int         { return len(o.s) }
func (o *orderedSegs) empty() bool      { return len(o.s) == 0 }
func (o *orderedSegs) at(i int) Segment { return o.s[i] }
func (o *orderedSegs) last() Segment    { return o.s[len(o.s)-1] }
func (o *orderedSegs) all() []Segment   { return o.s }

// find returns the index of the first segment s with pos < s.End, or
// len(o.s) if no such segment exists. This is the half-open-interval
// analogue of std::upper_bound keyed on segment End.
func (o *orderedSegs) find(pos slotindex.SlotIndex) int {
	lo, hi := 0, len(o.s)
	for lo < hi {
		mid := (lo + hi) / 2
		if pos.Less(o.s[mid].End) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// findInsertPos returns the first index i with start < o.s[i].Start: the
// position a segment beginning at start should be inserted before to
// keep the collection sorted.
func (o *orderedSegs) findInsertPos(start slotindex.SlotIndex) int {
	lo, hi := 0, len(o.s)
	for lo < hi {
		mid := (lo + hi) / 2
		if start.Less(o.s[mid].Start) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func (o *orderedSegs) insertAt(i int, seg Segment) {
	o.s = append(o.s, Segment{})
	copy(o.s[i+1:], o.s[i:])
	o.s[i] = seg
}

func (o *orderedSegs) insertAtEnd(seg Segment) {
	o.s = append(o.s, seg)
}

func (o *orderedSegs) setAt(i int, seg Segment) { o.s[i] = seg }

func (o *orderedSegs) removeAt(i int) {
	o.s = append(o.s[:i], o.s[i+1:]...)
}

// removeRange removes segments [i,j).
func (o *orderedSegs) removeRange(i, j int) {
	o.s = append(o.s[:i], o.s[j:]...)
}

func (o *orderedSegs) clear() { o.s = o.s[:0] }

// sortInPlace restores start order after a bulk change to the collection
// (a staging-set flush, a value-number rewrite, an updater flush).
func (o *orderedSegs) sortInPlace() {
	// Insertion sort: the collections it runs on are already sorted or
	// close to it, so this is cheap in practice and avoids pulling in
	// sort.Slice for a
	// collection that is usually small.
	for i := 1; i < len(o.s); i++ {
		for j := i; j > 0 && o.s[j].Start.Less(o.s[j-1].Start); j-- {
			o.s[j], o.s[j-1] = o.s[j-1], o.s[j]
		}
	}
}
