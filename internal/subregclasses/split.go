// Package subregclasses implements the subrange-aware split: given a
// LiveInterval whose value numbers form more than one connected
// component once every subrange is taken into account, it allocates a
// fresh virtual register and LiveInterval per extra component, rewrites
// every machine operand to point at the right one, and redistributes
// segments and subranges accordingly.
package subregclasses

import (
	"sort"

	"github.com/tangzhangming/liverange/internal/classify"
	"github.com/tangzhangming/liverange/internal/liveinterval"
	"github.com/tangzhangming/liverange/internal/liverange"
	"github.com/tangzhangming/liverange/internal/regmeta"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

type subRangeInfo struct {
	sr           *liveinterval.SubRange
	baseIndex    int
	localClasses []int
}

// Split performs the full subregister-aware split of li, returning the
// newly created intervals (li itself is rewritten in place and is not
// included in the returned slice). It returns nil if li has fewer than
// two value numbers, or if every operand ultimately resolves to a single
// component.
func Split(li *liveinterval.LiveInterval, mri regmeta.RegisterInfo, ix *slotindex.Indexes, alloc *liverange.Allocator) []*liveinterval.LiveInterval {
	if li.NumValNums() < 2 {
		return nil
	}

	var infos []subRangeInfo
	total := 0
	for sr := li.SubRanges(); sr != nil; sr = sr.Next() {
		localClassOf, numClasses := classify.Classify(&sr.LiveRange, ix)
		infos = append(infos, subRangeInfo{sr: sr, baseIndex: total, localClasses: localClassOf})
		total += numClasses
	}

	var globalClassOf []int
	var numGlobal int
	switch len(infos) {
	case 0:
		globalClassOf, numGlobal = classify.Classify(&li.LiveRange, ix)
	case 1:
		// A lone subrange's local classes are already the global ones.
		numGlobal = maxPlus1(infos[0].localClasses)
		globalClassOf = make([]int, numGlobal)
		for i := range globalClassOf {
			globalClassOf[i] = i
		}
	default:
		globalClassOf, numGlobal = crossSubRangeClasses(li, infos, total, mri, ix)
	}
	if numGlobal < 2 {
		return nil
	}

	cls := mri.RegClassOf(li.Reg)
	targets := make([]*liveinterval.LiveInterval, numGlobal-1)
	for i := range targets {
		reg := mri.CreateVirtualRegister(cls)
		targets[i] = liveinterval.NewLiveInterval(reg)
	}

	if len(infos) == 0 {
		rewriteOperandsMainOnly(li, targets, globalClassOf, mri, ix)
		classify.DistributeRange(&li.LiveRange, mainRanges(targets), globalClassOf)
	} else {
		rewriteOperandsSubRange(li, infos, targets, globalClassOf, mri, ix)
		for _, info := range infos {
			localToGlobal := make([]int, len(info.localClasses))
			for i, local := range info.localClasses {
				localToGlobal[i] = globalClassOf[local+info.baseIndex]
			}
			distributeSubRange(info.sr, targets, localToGlobal, mri)
		}
	}

	for _, t := range targets {
		t.RemoveEmptySubRanges()
		fixDefFlags(t, mri, ix)
		rebuildMainRange(t, alloc)
	}
	li.RemoveEmptySubRanges()
	fixDefFlags(li, mri, ix)
	rebuildMainRange(li, alloc)

	return targets
}

func maxPlus1(classOf []int) int {
	n := 0
	for _, c := range classOf {
		if c+1 > n {
			n = c + 1
		}
	}
	return n
}

func mainRanges(targets []*liveinterval.LiveInterval) []*liverange.LiveRange {
	out := make([]*liverange.LiveRange, len(targets))
	for i, t := range targets {
		out[i] = &t.LiveRange
	}
	return out
}

// crossSubRangeClasses builds the global union-find over every
// subrange's local classes, unioning the classes two subranges touch at
// a shared operand slot.
func crossSubRangeClasses(li *liveinterval.LiveInterval, infos []subRangeInfo, total int, mri regmeta.RegisterInfo, ix *slotindex.Indexes) ([]int, int) {
	uf := newGlobalUnionFind(total)
	for _, op := range mri.Operands(li.Reg, false) {
		instr := op.Parent()
		var slot slotindex.SlotIndex
		if op.IsDef() {
			slot = ix.GetInstructionIndex(instr).GetRegSlot(op.IsEarlyClobber())
		} else {
			slot = ix.GetInstructionIndex(instr).GetBaseSlot()
		}
		subMask := mri.SubRegIndexLaneMask(op.SubRegIndex())
		merged := -1
		for _, info := range infos {
			if !info.sr.LaneMask.Intersects(subMask) {
				continue
			}
			seg, ok := info.sr.Find(slot)
			if !ok || !seg.Contains(slot) {
				continue
			}
			global := info.localClasses[seg.VN.ID()] + info.baseIndex
			if merged < 0 {
				merged = global
			} else {
				uf.union(merged, global)
			}
		}
	}
	return uf.compress()
}

func rewriteOperandsMainOnly(li *liveinterval.LiveInterval, targets []*liveinterval.LiveInterval, classOf []int, mri regmeta.RegisterInfo, ix *slotindex.Indexes) {
	for _, op := range mri.Operands(li.Reg, true) {
		instr := op.Parent()
		var slot slotindex.SlotIndex
		if instr.IsDebugValue() {
			slot = ix.GetIndexBefore(instr)
		} else {
			slot = ix.GetInstructionIndex(instr)
		}
		seg, ok := li.Find(slot)
		if !ok || !seg.Contains(slot) {
			continue
		}
		class := classOf[seg.VN.ID()]
		if class == 0 {
			continue
		}
		op.SetReg(targets[class-1].Reg)
	}
}

// rewriteOperandsSubRange re-points every operand at the target of the
// first subrange intersecting its subregister lane mask that has a value
// number live at the operand's slot.
func rewriteOperandsSubRange(li *liveinterval.LiveInterval, infos []subRangeInfo, targets []*liveinterval.LiveInterval, globalClassOf []int, mri regmeta.RegisterInfo, ix *slotindex.Indexes) {
	for _, op := range mri.Operands(li.Reg, true) {
		instr := op.Parent()
		var slot slotindex.SlotIndex
		if instr.IsDebugValue() {
			slot = ix.GetIndexBefore(instr)
		} else if op.IsDef() {
			slot = ix.GetInstructionIndex(instr).GetRegSlot(op.IsEarlyClobber())
		} else {
			slot = ix.GetInstructionIndex(instr).GetBaseSlot()
		}
		subMask := mri.SubRegIndexLaneMask(op.SubRegIndex())
		for _, info := range infos {
			if !info.sr.LaneMask.Intersects(subMask) {
				continue
			}
			seg, ok := info.sr.Find(slot)
			if !ok || !seg.Contains(slot) {
				continue
			}
			global := globalClassOf[info.localClasses[seg.VN.ID()]+info.baseIndex]
			if global == 0 {
				break
			}
			op.SetReg(targets[global-1].Reg)
			break
		}
	}
}

func distributeSubRange(sr *liveinterval.SubRange, targets []*liveinterval.LiveInterval, localToGlobal []int, mri regmeta.RegisterInfo) {
	targetRanges := make([]*liverange.LiveRange, len(targets))
	for _, g := range localToGlobal {
		if g == 0 || targetRanges[g-1] != nil {
			continue
		}
		max := mri.MaxLaneMaskForVReg(targets[g-1].Reg)
		newSR := targets[g-1].CreateSubRange(sr.LaneMask, max)
		targetRanges[g-1] = &newSR.LiveRange
	}
	dense, remapped := densify(localToGlobal, targetRanges)
	classify.DistributeRange(&sr.LiveRange, dense, remapped)
}

func densify(classOf []int, sparse []*liverange.LiveRange) ([]*liverange.LiveRange, []int) {
	dense := make([]*liverange.LiveRange, 0, len(sparse))
	remap := make(map[int]int)
	for i, t := range sparse {
		if t == nil {
			continue
		}
		dense = append(dense, t)
		remap[i+1] = len(dense)
	}
	out := make([]int, len(classOf))
	for i, c := range classOf {
		if c == 0 {
			continue
		}
		out[i] = remap[c]
	}
	return dense, out
}

// rebuildMainRange recomputes li's main range as the union of its
// subranges' coverage, with a fresh value number per maximal merged run,
// so that the main range trivially covers every subrange.
func rebuildMainRange(li *liveinterval.LiveInterval, alloc *liverange.Allocator) {
	if !li.HasSubRanges() {
		// No subranges: the main range was already the thing DistributeRange
		// rewrote directly: nothing to reconstruct from.
		return
	}
	type span struct{ start, end slotindex.SlotIndex }
	var spans []span
	for sr := li.SubRanges(); sr != nil; sr = sr.Next() {
		for _, s := range sr.Segments() {
			spans = append(spans, span{s.Start, s.End})
		}
	}
	li.Clear()
	if len(spans) == 0 {
		return
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Less(spans[j].start) })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if !last.end.Less(s.start) {
			if last.end.Less(s.end) {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	for _, s := range merged {
		vn := li.NewValue(s.start, alloc)
		li.Append(liverange.NewSegment(s.start, s.end, vn))
	}
}
