package classify

import (
	"github.com/tangzhangming/liverange/internal/liveinterval"
	"github.com/tangzhangming/liverange/internal/liverange"
	"github.com/tangzhangming/liverange/internal/regmeta"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// DistributeInterval carries out the operand-rewriting and per-subrange
// distribution 4.3 describes on top of the plain DistributeRange: given
// li's main-range classification classOf, it repoints every machine
// operand of li.Reg at the virtual register of its class, distributes
// each subrange into newly allocated target subranges of matching lane
// mask, and finally distributes the main range itself.
func DistributeInterval(li *liveinterval.LiveInterval, targets []*liveinterval.LiveInterval, classOf []int, mri regmeta.RegisterInfo, ix *slotindex.Indexes) {
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

	for sr := li.SubRanges(); sr != nil; sr = sr.Next() {
		subClassOf := make([]int, sr.NumValNums())
		for i := range subClassOf {
			vn := sr.ValNumInfo(i)
			mainVN := li.VNBefore(vn.Def.NextSlot())
			if mainVN != nil {
				subClassOf[i] = classOf[mainVN.ID()]
			}
		}
		targetSubRanges := make([]*liverange.LiveRange, len(targets))
		for _, class := range subClassOf {
			if class == 0 || targetSubRanges[class-1] != nil {
				continue
			}
			max := mri.MaxLaneMaskForVReg(targets[class-1].Reg)
			newSR := targets[class-1].CreateSubRange(sr.LaneMask, max)
			targetSubRanges[class-1] = &newSR.LiveRange
		}
		DistributeRange(&sr.LiveRange, compactTargets(targetSubRanges), remapDense(subClassOf, targetSubRanges))
	}

	for _, t := range targets {
		t.RemoveEmptySubRanges()
	}

	mainTargets := make([]*liverange.LiveRange, len(targets))
	for i, t := range targets {
		mainTargets[i] = &t.LiveRange
	}
	DistributeRange(&li.LiveRange, mainTargets, classOf)
}

// compactTargets and remapDense let DistributeRange see a dense
// []*LiveRange with no nil holes even when a particular subrange never
// produced segments for some classes: DistributeRange indexes targets by
// class-1 and never touches a class that classOf never names.
func compactTargets(targets []*liverange.LiveRange) []*liverange.LiveRange {
	out := make([]*liverange.LiveRange, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

func remapDense(classOf []int, sparseTargets []*liverange.LiveRange) []int {
	dense := make(map[int]int)
	next := 1
	for i, c := range sparseTargets {
		if c != nil {
			dense[i+1] = next
			next++
		}
	}
	remapped := make([]int, len(classOf))
	for i, c := range classOf {
		if c == 0 {
			continue
		}
		remapped[i] = dense[c]
	}
	return remapped
}
