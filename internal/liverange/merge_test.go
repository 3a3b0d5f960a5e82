package liverange

import "testing"

func TestJoinCollapsesValueNumbersFromBothSidesIntoOneSurvivor(t *testing.T) {
	_, ix, instrs := buildFn(t, 8)
	alloc := NewAllocator()

	lhs := NewLiveRange()
	vA := lhs.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)
	vB := lhs.NewValue(ix.GetInstructionIndex(instrs[3]), alloc)
	lhs.Append(NewSegment(ix.GetInstructionIndex(instrs[0]), ix.GetInstructionIndex(instrs[1]), vA))
	lhs.Append(NewSegment(ix.GetInstructionIndex(instrs[3]), ix.GetInstructionIndex(instrs[4]), vB))

	rhs := NewLiveRange()
	u0 := rhs.NewValue(ix.GetInstructionIndex(instrs[6]), alloc)
	rhs.Append(NewSegment(ix.GetInstructionIndex(instrs[6]), ix.GetInstructionIndex(instrs[7]), u0))

	vNew := lhs.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)

	// lhsAssign collapses both of lhs's old VNs onto newVNs[0]; rhsAssign
	// sends rhs's single VN to the same slot.
	lhs.Join(rhs, []int{0, 0}, []int{0}, []*ValueNumber{vNew})

	if lhs.NumValNums() != 1 || lhs.ValNumInfo(0) != vNew {
		t.Fatalf("expected exactly one surviving value number, got %d", lhs.NumValNums())
	}

	segs := lhs.Segments()
	if len(segs) != 3 {
		t.Fatalf("expected the union of both ranges' points as 3 segments, got %d: %v", len(segs), segs)
	}
	for _, s := range segs {
		if s.VN != vNew {
			t.Fatalf("expected every segment to reference the joined survivor, got %v", s)
		}
	}
	wantStarts := []int{0, 3, 6}
	for i, w := range wantStarts {
		if !segs[i].Start.Equal(ix.GetInstructionIndex(instrs[w])) {
			t.Fatalf("segment %d starts at %s, want instruction %d's index", i, segs[i].Start, w)
		}
	}
}

func TestMergeSegmentsInAsValueOverwritesOverlap(t *testing.T) {
	_, ix, instrs := buildFn(t, 6)
	alloc := NewAllocator()

	lhs := NewLiveRange()
	lhsVal := lhs.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)
	lhs.Append(NewSegment(ix.GetInstructionIndex(instrs[0]), ix.GetInstructionIndex(instrs[3]), lhsVal))

	rhs := NewLiveRange()
	rhsVal := rhs.NewValue(ix.GetInstructionIndex(instrs[1]), alloc)
	rhs.Append(NewSegment(ix.GetInstructionIndex(instrs[1]), ix.GetInstructionIndex(instrs[5]), rhsVal))

	lhs.MergeSegmentsInAsValue(rhs, lhsVal)

	segs := lhs.Segments()
	if len(segs) != 1 {
		t.Fatalf("expected the overlapping merge to collapse to one segment, got %d: %v", len(segs), segs)
	}
	if segs[0].VN != lhsVal {
		t.Fatalf("expected the merged segment to carry lhs's value number")
	}
	if !segs[0].Start.Equal(ix.GetInstructionIndex(instrs[0])) || !segs[0].End.Equal(ix.GetInstructionIndex(instrs[5])) {
		t.Fatalf("unexpected merged bounds %v", segs[0])
	}
}

func TestMergeValueInAsValueOnlyCopiesMatchingValue(t *testing.T) {
	_, ix, instrs := buildFn(t, 8)
	alloc := NewAllocator()

	lhs := NewLiveRange()
	lhsVal := lhs.NewValue(ix.GetInstructionIndex(instrs[0]), alloc)
	lhs.Append(NewSegment(ix.GetInstructionIndex(instrs[0]), ix.GetInstructionIndex(instrs[1]), lhsVal))

	rhs := NewLiveRange()
	wanted := rhs.NewValue(ix.GetInstructionIndex(instrs[3]), alloc)
	other := rhs.NewValue(ix.GetInstructionIndex(instrs[6]), alloc)
	rhs.Append(NewSegment(ix.GetInstructionIndex(instrs[3]), ix.GetInstructionIndex(instrs[4]), wanted))
	rhs.Append(NewSegment(ix.GetInstructionIndex(instrs[6]), ix.GetInstructionIndex(instrs[7]), other))

	lhs.MergeValueInAsValue(rhs, wanted, lhsVal)

	segs := lhs.Segments()
	if len(segs) != 2 {
		t.Fatalf("expected only the matching rhs segment to be merged in, got %d: %v", len(segs), segs)
	}
	for _, s := range segs {
		if s.VN != lhsVal {
			t.Fatalf("expected every merged segment to carry lhs's value number, got %v", s)
		}
	}
	if !segs[1].Start.Equal(ix.GetInstructionIndex(instrs[3])) || !segs[1].End.Equal(ix.GetInstructionIndex(instrs[4])) {
		t.Fatalf("unexpected bounds for the merged-in segment: %v", segs[1])
	}
}
