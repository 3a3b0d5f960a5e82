package subregclasses

import (
	"testing"

	"github.com/tangzhangming/liverange/internal/liveinterval"
	"github.com/tangzhangming/liverange/internal/liverange"
	"github.com/tangzhangming/liverange/internal/machinecfg"
	"github.com/tangzhangming/liverange/internal/regmeta"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// fakeInstr has a field so that each &fakeInstr{} has its own address;
// pointers to distinct zero-size values may compare equal.
type fakeInstr struct{ _ int }

func (fakeInstr) IsDebugValue() bool { return false }

func buildFn(t *testing.T, n int) (*slotindex.Indexes, []machinecfg.Instruction) {
	t.Helper()
	fn := machinecfg.NewFunction("f")
	b := fn.NewBlock()
	instrs := make([]machinecfg.Instruction, n)
	for i := 0; i < n; i++ {
		instrs[i] = &fakeInstr{}
		b.AddInstruction(instrs[i])
	}
	return slotindex.BuildIndexes(fn), instrs
}

const (
	laneLo regmeta.LaneBitmask = 1 << 0
	laneHi regmeta.LaneBitmask = 1 << 1
	allLanes                   = laneLo | laneHi

	subIdxLo uint32 = 1
	subIdxHi uint32 = 2
)

type fakeOperand struct {
	parent       machinecfg.Instruction
	reg          regmeta.VirtReg
	subIdx       uint32
	isDef        bool
	readsReg     bool
	earlyClobber bool
	undef, dead  bool
}

func (o *fakeOperand) Parent() machinecfg.Instruction { return o.parent }
func (o *fakeOperand) Reg() regmeta.VirtReg            { return o.reg }
func (o *fakeOperand) SubRegIndex() uint32             { return o.subIdx }
func (o *fakeOperand) IsDef() bool                     { return o.isDef }
func (o *fakeOperand) ReadsReg() bool                  { return o.readsReg }
func (o *fakeOperand) IsEarlyClobber() bool            { return o.earlyClobber }
func (o *fakeOperand) IsUndef() bool                   { return o.undef }
func (o *fakeOperand) IsDead() bool                    { return o.dead }
func (o *fakeOperand) SetReg(r regmeta.VirtReg)        { o.reg = r }
func (o *fakeOperand) SetIsUndef(u bool)               { o.undef = u }
func (o *fakeOperand) SetIsDead(d bool)                { o.dead = d }

type fakeRegInfo struct {
	ops     []*fakeOperand
	nextVR  regmeta.VirtReg
	class   regmeta.RegClass
	maxMask map[regmeta.VirtReg]regmeta.LaneBitmask
}

func newFakeRegInfo(startVR regmeta.VirtReg) *fakeRegInfo {
	return &fakeRegInfo{
		nextVR:  startVR,
		class:   regmeta.RegClass{Name: "GPR64", MaxLanes: allLanes},
		maxMask: map[regmeta.VirtReg]regmeta.LaneBitmask{startVR - 1: allLanes},
	}
}

func (ri *fakeRegInfo) Operands(reg regmeta.VirtReg, includeDebug bool) []regmeta.Operand {
	var out []regmeta.Operand
	for _, op := range ri.ops {
		if op.reg == reg {
			out = append(out, op)
		}
	}
	return out
}

func (ri *fakeRegInfo) SubRegIndexLaneMask(subIdx uint32) regmeta.LaneBitmask {
	switch subIdx {
	case subIdxLo:
		return laneLo
	case subIdxHi:
		return laneHi
	default:
		return allLanes
	}
}

func (ri *fakeRegInfo) CreateVirtualRegister(class *regmeta.RegClass) regmeta.VirtReg {
	vr := ri.nextVR
	ri.nextVR++
	ri.maxMask[vr] = class.MaxLanes
	return vr
}

func (ri *fakeRegInfo) MaxLaneMaskForVReg(reg regmeta.VirtReg) regmeta.LaneBitmask {
	return ri.maxMask[reg]
}

func (ri *fakeRegInfo) RegClassOf(reg regmeta.VirtReg) *regmeta.RegClass { return &ri.class }

func TestSplitDisjointSubRangesCreatesNewInterval(t *testing.T) {
	ix, instrs := buildFn(t, 3)
	alloc := liverange.NewAllocator()

	const vreg regmeta.VirtReg = 1
	li := liveinterval.NewLiveInterval(vreg)
	lo := li.CreateSubRange(laneLo, allLanes)
	hi := li.CreateSubRange(laneHi, allLanes)

	loDef := ix.GetInstructionIndex(instrs[0])
	lo.CreateDeadDef(loDef, alloc)
	hiDef := ix.GetInstructionIndex(instrs[2])
	hi.CreateDeadDef(hiDef, alloc)
	// The main range covers both subranges: one value number per def.
	li.CreateDeadDef(loDef, alloc)
	li.CreateDeadDef(hiDef, alloc)

	opLo := &fakeOperand{parent: instrs[0], reg: vreg, subIdx: subIdxLo, isDef: true}
	opHi := &fakeOperand{parent: instrs[2], reg: vreg, subIdx: subIdxHi, isDef: true}
	ri := newFakeRegInfo(2)
	ri.ops = []*fakeOperand{opLo, opHi}

	targets := Split(li, ri, ix, alloc)
	if len(targets) != 1 {
		t.Fatalf("expected exactly one new interval, got %d", len(targets))
	}

	// CreateSubRange prepends, so the hi-lane subrange (created last) heads
	// li's subrange list and lands in class 0 ("stays in place"); the
	// lo-lane subrange lands in the new target. Which lane keeps the
	// original register is an implementation detail, not a spec contract.
	if opHi.reg != vreg {
		t.Fatalf("expected the hi-lane operand to stay on the original register, got %%%d", opHi.reg)
	}
	if opLo.reg != targets[0].Reg {
		t.Fatalf("expected the lo-lane operand to move to the new register, got %%%d want %%%d", opLo.reg, targets[0].Reg)
	}

	if li.Empty() {
		t.Fatal("expected the original interval's main range to be rebuilt, not left empty")
	}
	if targets[0].Empty() {
		t.Fatal("expected the new interval's main range to be rebuilt from its subrange")
	}
}

func TestSplitSkipsWhenSingleValueNumber(t *testing.T) {
	ix, instrs := buildFn(t, 2)
	alloc := liverange.NewAllocator()

	li := liveinterval.NewLiveInterval(1)
	li.CreateDeadDef(ix.GetInstructionIndex(instrs[0]), alloc)

	ri := newFakeRegInfo(2)
	if targets := Split(li, ri, ix, alloc); targets != nil {
		t.Fatalf("expected no split for a single-value-number interval, got %d targets", len(targets))
	}
}
