package machinecfg

import "testing"

type fakeInstr struct{ debug bool }

func (f fakeInstr) IsDebugValue() bool { return f.debug }

func TestNewBlockAssignsIncreasingIDs(t *testing.T) {
	fn := NewFunction("f")
	b0 := fn.NewBlock()
	b1 := fn.NewBlock()
	if b0.ID != 0 || b1.ID != 1 {
		t.Fatalf("expected IDs 0,1; got %d,%d", b0.ID, b1.ID)
	}
	if len(fn.Blocks) != 2 || fn.Blocks[0] != b0 || fn.Blocks[1] != b1 {
		t.Fatalf("expected fn.Blocks to hold both blocks in creation order")
	}
}

func TestAddInstructionAppendsInOrder(t *testing.T) {
	fn := NewFunction("f")
	b := fn.NewBlock()
	i0, i1 := fakeInstr{}, fakeInstr{debug: true}
	b.AddInstruction(i0)
	b.AddInstruction(i1)
	if len(b.Instrs) != 2 || b.Instrs[0] != i0 || b.Instrs[1] != i1 {
		t.Fatalf("expected instructions in append order, got %v", b.Instrs)
	}
}

func TestAddSuccessorLinksBothDirections(t *testing.T) {
	fn := NewFunction("f")
	b0, b1 := fn.NewBlock(), fn.NewBlock()
	b0.AddSuccessor(b1)
	if len(b0.Succs) != 1 || b0.Succs[0] != b1 {
		t.Fatalf("expected b0 to have b1 as successor")
	}
	if len(b1.Preds) != 1 || b1.Preds[0] != b0 {
		t.Fatalf("expected b1 to have b0 as predecessor")
	}
}

func TestInsertBlockAfterPlacesImmediatelyFollowing(t *testing.T) {
	fn := NewFunction("f")
	b0 := fn.NewBlock()
	b2 := fn.NewBlock()

	b1 := fn.InsertBlockAfter(b0)

	if len(fn.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(fn.Blocks))
	}
	if fn.Blocks[0] != b0 || fn.Blocks[1] != b1 || fn.Blocks[2] != b2 {
		t.Fatalf("expected order b0,b1,b2; got %v", fn.Blocks)
	}
}

func TestInsertBlockAfterUnknownBlockAppendsAtEnd(t *testing.T) {
	fn := NewFunction("f")
	b0 := fn.NewBlock()
	other := NewFunction("g").NewBlock()

	b1 := fn.InsertBlockAfter(other)

	if len(fn.Blocks) != 2 || fn.Blocks[0] != b0 || fn.Blocks[1] != b1 {
		t.Fatalf("expected fallback append at end, got %v", fn.Blocks)
	}
}
