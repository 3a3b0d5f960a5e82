package liverange

import (
	"fmt"

	"github.com/tangzhangming/liverange/internal/liveerr"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// Segment is a maximal half-open range [Start, End) over which VN is the
// live value, as described in the package-level liveness model. Start and
// End are never equal; the zero Segment is never valid on its own and is
// only used as scratch space inside orderedSegs.
type Segment struct {
	Start, End slotindex.SlotIndex
	VN         *ValueNumber
}

// NewSegment builds a segment, raising liveerr.InvalidSegment if start
// does not precede end.
func NewSegment(start, end slotindex.SlotIndex, vn *ValueNumber) Segment {
	if !start.IsValid() || !end.IsValid() || !start.Less(end) {
		liveerr.Raise(liveerr.InvalidSegment, fmt.Sprintf("segment [%s,%s) is not start<end", start, end))
	}
	return Segment{Start: start, End: end, VN: vn}
}

// Contains reports whether pos falls in [Start, End).
func (s Segment) Contains(pos slotindex.SlotIndex) bool {
	return s.Start.LessEqual(pos) && pos.Less(s.End)
}

// ContainsInterval reports whether [start,end) is fully covered by this
// segment.
func (s Segment) ContainsInterval(start, end slotindex.SlotIndex) bool {
	return s.Start.LessEqual(start) && end.LessEqual(s.End)
}

// AdjacentTo reports whether this segment's End coincides with other's
// Start, or vice versa: the two segments touch without overlapping.
func (s Segment) AdjacentTo(other Segment) bool {
	return s.End.Equal(other.Start) || other.End.Equal(s.Start)
}

func (s Segment) String() string {
	vn := -1
	if s.VN != nil {
		vn = s.VN.ID()
	}
	return fmt.Sprintf("[%s,%s:vn%d)", s.Start, s.End, vn)
}
