package liverange

import (
	"testing"

	"github.com/tangzhangming/liverange/internal/machinecfg"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

type fakeInstr struct{ name string }

func (fakeInstr) IsDebugValue() bool { return false }

// buildFn returns a single-block function of n plain instructions, its
// slot numbering, and the instructions themselves in order, for tests
// that need real, correctly ordered SlotIndex values without depending
// on a concrete instruction-selection or register model.
func buildFn(t *testing.T, n int) (*machinecfg.Function, *slotindex.Indexes, []machinecfg.Instruction) {
	t.Helper()
	fn := machinecfg.NewFunction("f")
	b := fn.NewBlock()
	instrs := make([]machinecfg.Instruction, n)
	for i := 0; i < n; i++ {
		instrs[i] = &fakeInstr{name: "i"}
		b.AddInstruction(instrs[i])
	}
	return fn, slotindex.BuildIndexes(fn), instrs
}

type fakeCoalescer struct {
	ok map[machinecfg.Instruction]bool
}

func (f fakeCoalescer) IsCoalescable(instr machinecfg.Instruction) bool { return f.ok[instr] }
