package subregclasses

import (
	"github.com/tangzhangming/liverange/internal/liveinterval"
	"github.com/tangzhangming/liverange/internal/regmeta"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// fixDefFlags updates the dead/undef flags of each non-debug def operand
// that names a sub-register, against li's subranges, once a split may have
// moved some of the lanes it defines onto a different interval: it sets
// undef when no subrange is live at the def and dead when none is live at
// its dead slot, and never clears either flag. It does not insert any new
// instructions (a lane newly made undef would, in a full allocator, often
// want an implicit-def inserted ahead of it): that requires owning
// instruction construction, which this core deliberately does not (see
// the spec's non-goals around instruction scheduling).
func fixDefFlags(li *liveinterval.LiveInterval, mri regmeta.RegisterInfo, ix *slotindex.Indexes) {
	if !li.HasSubRanges() {
		return
	}
	for _, op := range mri.Operands(li.Reg, false) {
		if !op.IsDef() || op.SubRegIndex() == 0 {
			continue
		}
		instr := op.Parent()
		pos := ix.GetInstructionIndex(instr)

		if !op.IsUndef() && !subRangeLiveAt(li, pos) {
			op.SetIsUndef(true)
		}
		if !op.IsDead() && !subRangeLiveAt(li, pos.GetDeadSlot()) {
			op.SetIsDead(true)
		}
	}
}

// subRangeLiveAt reports whether any of li's subranges, regardless of lane
// mask, is live at pos.
func subRangeLiveAt(li *liveinterval.LiveInterval, pos slotindex.SlotIndex) bool {
	for sr := li.SubRanges(); sr != nil; sr = sr.Next() {
		if sr.Contains(pos) {
			return true
		}
	}
	return false
}
