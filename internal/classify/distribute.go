package classify

import "github.com/tangzhangming/liverange/internal/liverange"

// DistributeRange moves every segment and value number of lr whose class
// (per classOf, indexed by value-number id) is greater than zero into
// targets[class-1], appending there in two compaction sweeps: first the
// segments, keeping class-0 segments in place by compacting lr's vector
// around them, then the value-number table, renumbering lr's surviving
// (class-0) entries densely and adopting the rest into their targets'
// tables under freshly assigned ids.
func DistributeRange(lr *liverange.LiveRange, targets []*liverange.LiveRange, classOf []int) {
	kept := make([]liverange.Segment, 0, lr.Size())
	for _, seg := range lr.Segments() {
		class := classOf[seg.VN.ID()]
		if class == 0 {
			kept = append(kept, seg)
			continue
		}
		targets[class-1].Append(seg)
	}
	lr.ReplaceSegments(kept)

	newMain := make([]*liverange.ValueNumber, 0, lr.NumValNums())
	for i := 0; i < lr.NumValNums(); i++ {
		vn := lr.ValNumInfo(i)
		class := classOf[i]
		if class == 0 {
			newMain = append(newMain, vn)
			continue
		}
		targets[class-1].AdoptValue(vn)
	}
	lr.ReplaceValues(newMain)
}
