package liverange

import "testing"

func TestLiveRangeUpdaterOutOfOrderFlush(t *testing.T) {
	_, ix, instrs := buildFn(t, 4)
	alloc := NewAllocator()
	lr := NewLiveRange()
	vn := lr.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)

	reg0 := ix.GetInstructionIndex(instrs[0])
	block0, ec0, dead0 := reg0.GetBaseSlot(), reg0.GetRegSlot(true), reg0.GetDeadSlot()
	reg2 := ix.GetInstructionIndex(instrs[2])
	block2, dead2 := reg2.GetBaseSlot(), reg2.GetDeadSlot()

	lr.Append(NewSegment(block0, dead0, vn))
	lr.Append(NewSegment(block2, dead2, vn))

	u := NewLiveRangeUpdater(lr)
	u.Add(NewSegment(dead0, block2, vn))   // bridges the gap between the two segments
	u.Add(NewSegment(ec0, reg0, vn))       // out of order, and fully contained already
	u.Flush()
	u.Flush() // idempotent: a second call with no intervening Add is a no-op

	segs := lr.Segments()
	if len(segs) != 1 {
		t.Fatalf("expected the gap-filled range to collapse to one segment, got %d: %v", len(segs), segs)
	}
	if !segs[0].Start.Equal(block0) || !segs[0].End.Equal(dead2) {
		t.Fatalf("unexpected merged bounds %v", segs[0])
	}
	lr.Verify()
}

func TestLiveRangeUpdaterSequentialInserts(t *testing.T) {
	_, ix, instrs := buildFn(t, 6)
	alloc := NewAllocator()
	lr := NewLiveRange()
	vn := lr.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)

	u := NewLiveRangeUpdater(lr)
	for i := 0; i < 5; i++ {
		u.Add(NewSegment(ix.GetInstructionIndex(instrs[i]), ix.GetInstructionIndex(instrs[i+1]), vn))
	}
	u.Flush()

	segs := lr.Segments()
	if len(segs) != 1 {
		t.Fatalf("expected sequential same-value inserts to merge into one segment, got %d: %v", len(segs), segs)
	}
	if !segs[0].Start.Equal(ix.GetInstructionIndex(instrs[0])) || !segs[0].End.Equal(ix.GetInstructionIndex(instrs[5])) {
		t.Fatalf("unexpected merged bounds %v", segs[0])
	}
}
