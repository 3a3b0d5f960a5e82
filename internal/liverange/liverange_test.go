package liverange

import (
	"testing"

	"github.com/tangzhangming/liverange/internal/machinecfg"
)

func TestCreateDeadDefAndExtendInBlock(t *testing.T) {
	fn, ix, instrs := buildFn(t, 6)
	alloc := NewAllocator()
	lr := NewLiveRange()

	def := ix.GetInstructionIndex(instrs[2])
	vn := lr.CreateDeadDef(def, alloc)
	segs := lr.Segments()
	if len(segs) != 1 || !segs[0].Start.Equal(def) || !segs[0].End.Equal(def.GetDeadSlot()) {
		t.Fatalf("unexpected segments after create_dead_def: %v", segs)
	}

	blockStart := ix.GetMBBStartIdx(fn.Blocks[0])
	use := ix.GetInstructionIndex(instrs[4])
	got := lr.ExtendInBlock(blockStart, use)
	if got != vn {
		t.Fatalf("extend_in_block returned a different value number")
	}
	segs = lr.Segments()
	if len(segs) != 1 || !segs[0].Start.Equal(def) || !segs[0].End.Equal(use) {
		t.Fatalf("unexpected segments after extend_in_block: %v", segs)
	}
}

func TestCreateDeadDefEarlyClobberPromotion(t *testing.T) {
	_, ix, instrs := buildFn(t, 3)
	alloc := NewAllocator()
	lr := NewLiveRange()

	reg := ix.GetInstructionIndex(instrs[0])
	vn := lr.CreateDeadDef(reg, alloc)

	ec := reg.GetRegSlot(true)
	got := lr.CreateDeadDef(ec, alloc)
	if got != vn {
		t.Fatalf("expected the same value number to be promoted, got a new one")
	}
	if lr.NumValNums() != 1 {
		t.Fatalf("expected no new value number to be allocated, got %d", lr.NumValNums())
	}
	segs := lr.Segments()
	if len(segs) != 1 || !segs[0].Start.Equal(ec) {
		t.Fatalf("expected the segment start to be promoted to the early-clobber slot, got %v", segs)
	}
}

func TestAddSegmentMergesAdjacentSameVN(t *testing.T) {
	_, ix, instrs := buildFn(t, 6)
	alloc := NewAllocator()
	lr := NewLiveRange()
	vn := lr.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)

	lr.Append(NewSegment(ix.GetInstructionIndex(instrs[1]), ix.GetInstructionIndex(instrs[2]), vn))
	lr.AddSegment(NewSegment(ix.GetInstructionIndex(instrs[2]), ix.GetInstructionIndex(instrs[3]), vn))
	if got := lr.Segments(); len(got) != 1 {
		t.Fatalf("expected the forward-adjacent add to merge, got %d segments: %v", len(got), got)
	}

	lr.AddSegment(NewSegment(ix.GetInstructionIndex(instrs[0]), ix.GetInstructionIndex(instrs[1]), vn))
	segs := lr.Segments()
	if len(segs) != 1 {
		t.Fatalf("expected the backward-adjacent add to merge, got %d segments: %v", len(segs), segs)
	}
	if !segs[0].Start.Equal(ix.GetInstructionIndex(instrs[0])) || !segs[0].End.Equal(ix.GetInstructionIndex(instrs[3])) {
		t.Fatalf("unexpected merged segment bounds: %v", segs[0])
	}
}

func TestAddSegmentOverlapMismatchPanics(t *testing.T) {
	_, ix, instrs := buildFn(t, 4)
	alloc := NewAllocator()
	lr := NewLiveRange()
	v0 := lr.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)
	v1 := lr.NewValue(ix.GetInstructionIndex(instrs[1]), alloc)
	lr.Append(NewSegment(ix.GetInstructionIndex(instrs[0]), ix.GetInstructionIndex(instrs[2]), v0))

	defer func() {
		if recover() == nil {
			t.Fatal("expected add_segment to panic on an overlapping, differently-valued segment")
		}
	}()
	lr.AddSegment(NewSegment(ix.GetInstructionIndex(instrs[1]), ix.GetInstructionIndex(instrs[3]), v1))
}

func TestOverlapsExcludingCoalescable(t *testing.T) {
	_, ix, instrs := buildFn(t, 8)
	alloc := NewAllocator()
	a := NewLiveRange()
	va := a.NewValue(ix.GetInstructionIndex(instrs[1]), alloc)
	a.Append(NewSegment(ix.GetInstructionIndex(instrs[1]), ix.GetInstructionIndex(instrs[3]), va))

	b := NewLiveRange()
	vb := b.NewValue(ix.GetInstructionIndex(instrs[2]), alloc)
	b.Append(NewSegment(ix.GetInstructionIndex(instrs[2]), ix.GetInstructionIndex(instrs[4]), vb))

	if !a.Overlaps(b) {
		t.Fatalf("sanity check: expected plain overlap to be true")
	}

	exempt := fakeCoalescer{ok: map[machinecfg.Instruction]bool{instrs[2]: true}}
	if a.OverlapsExcludingCoalescable(b, exempt, ix) {
		t.Fatalf("expected overlap to be exempted by the coalescable copy")
	}

	notCoalescable := fakeCoalescer{ok: map[machinecfg.Instruction]bool{}}
	if !a.OverlapsExcludingCoalescable(b, notCoalescable, ix) {
		t.Fatalf("expected overlap to be reported when the shared instruction is not coalescable")
	}
}

func TestMergeValueNumberIntoCompactification(t *testing.T) {
	_, ix, instrs := buildFn(t, 6)
	alloc := NewAllocator()
	lr := NewLiveRange()
	v1 := lr.NewValue(ix.GetInstructionIndex(instrs[1]), alloc)
	v2 := lr.NewValue(ix.GetInstructionIndex(instrs[2]), alloc)
	lr.Append(NewSegment(ix.GetInstructionIndex(instrs[1]), ix.GetInstructionIndex(instrs[2]), v1))
	lr.Append(NewSegment(ix.GetInstructionIndex(instrs[2]), ix.GetInstructionIndex(instrs[3]), v2))

	survivor := lr.MergeValueNumberInto(v1, v2)
	if survivor.ID() != 0 {
		t.Fatalf("expected the lower-id value number to survive, got id %d", survivor.ID())
	}
	segs := lr.Segments()
	if len(segs) != 1 || segs[0].VN != survivor {
		t.Fatalf("expected one merged segment referencing the survivor, got %v", segs)
	}
	if !segs[0].Start.Equal(ix.GetInstructionIndex(instrs[1])) || !segs[0].End.Equal(ix.GetInstructionIndex(instrs[3])) {
		t.Fatalf("unexpected merged bounds %v", segs[0])
	}
}

func TestRenumberValuesDropsUnreferenced(t *testing.T) {
	_, ix, instrs := buildFn(t, 4)
	alloc := NewAllocator()
	lr := NewLiveRange()
	v0 := lr.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)
	_ = lr.NewValue(ix.GetInstructionIndex(instrs[1]), alloc) // never referenced by a segment
	lr.Append(NewSegment(ix.GetInstructionIndex(instrs[0]), ix.GetInstructionIndex(instrs[2]), v0))

	lr.RenumberValues()
	if lr.NumValNums() != 1 {
		t.Fatalf("expected renumber to drop the unreferenced value, got %d values", lr.NumValNums())
	}
	if lr.ValNumInfo(0) != v0 {
		t.Fatalf("expected the referenced value to survive at id 0")
	}

	before := lr.String()
	lr.RenumberValues()
	if lr.String() != before {
		t.Fatalf("renumber_values is not idempotent: %q vs %q", before, lr.String())
	}
}
