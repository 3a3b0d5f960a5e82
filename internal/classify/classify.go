// Package classify implements the connected-component analysis that
// decides whether a live range is internally disconnected (two or more
// value numbers with no def-precedes-use or phi-predecessor relation
// connecting them) and, if so, partitions it so each component can be
// split into its own live range.
package classify

import (
	"github.com/tangzhangming/liverange/internal/liverange"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// Classify groups lr's value numbers into connected components, as
// described in the package doc, and returns a per-value-number class id
// (dense, 0-based, class 0 is the component containing value 0 when one
// exists) plus the number of classes found.
func Classify(lr *liverange.LiveRange, ix *slotindex.Indexes) (classOf []int, numClasses int) {
	n := lr.NumValNums()
	uf := newUnionFind(n)
	lastUnused := -1
	firstUsed := -1

	for i := 0; i < n; i++ {
		vn := lr.ValNumInfo(i)
		switch {
		case vn.IsUnused():
			if lastUnused >= 0 {
				uf.union(lastUnused, i)
			}
			lastUnused = i
		case vn.IsPHIDef():
			if firstUsed < 0 {
				firstUsed = i
			}
			block := ix.GetMBBFromIndex(vn.Def)
			if block == nil {
				continue
			}
			for _, pred := range block.Preds {
				liveOut := lr.VNBefore(ix.GetMBBEndIdx(pred))
				if liveOut != nil {
					uf.union(i, liveOut.ID())
				}
			}
		default:
			if firstUsed < 0 {
				firstUsed = i
			}
			if prior := lr.VNBefore(vn.Def); prior != nil {
				uf.union(i, prior.ID())
			}
		}
	}

	if lastUnused >= 0 && firstUsed >= 0 {
		uf.union(lastUnused, firstUsed)
	}

	return uf.compress()
}
