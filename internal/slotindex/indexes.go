package slotindex

import "github.com/tangzhangming/liverange/internal/machinecfg"

// Indexes is the numbering of one machine function: a dense, ordered list
// of instruction entries plus the lookup tables the rest of the liveness
// core needs (instruction -> index, basic block -> index range).
type Indexes struct {
	first, last *listEntry
	instrIndex  map[machinecfg.Instruction]*listEntry
	blockStart  map[*machinecfg.Block]*listEntry
	blockEnd    map[*machinecfg.Block]*listEntry
	blockOf     map[*listEntry]*machinecfg.Block
}

// BuildIndexes numbers every instruction of fn in block order, assigning
// each a block-boundary entry followed by one entry per real instruction.
func BuildIndexes(fn *machinecfg.Function) *Indexes {
	ix := &Indexes{
		instrIndex: make(map[machinecfg.Instruction]*listEntry),
		blockStart: make(map[*machinecfg.Block]*listEntry),
		blockEnd:   make(map[*machinecfg.Block]*listEntry),
		blockOf:    make(map[*listEntry]*machinecfg.Block),
	}
	ordinal := 0
	for _, b := range fn.Blocks {
		start := ix.append(ordinal, nil, b)
		ix.blockStart[b] = start
		ordinal += instrDist
		var last *listEntry
		for _, instr := range b.Instrs {
			e := ix.append(ordinal, instr, b)
			ix.instrIndex[instr] = e
			last = e
			ordinal += instrDist
		}
		if last != nil {
			ix.blockEnd[b] = last
		} else {
			ix.blockEnd[b] = start
		}
	}
	return ix
}

func (ix *Indexes) append(ordinal int, instr machinecfg.Instruction, block *machinecfg.Block) *listEntry {
	e := &listEntry{ordinal: ordinal, instr: instr, block: block}
	ix.blockOf[e] = block
	if ix.last == nil {
		ix.first, ix.last = e, e
		return e
	}
	e.prev = ix.last
	ix.last.next = e
	ix.last = e
	return e
}

// GetInstructionIndex returns instr's canonical (register-slot) index.
func (ix *Indexes) GetInstructionIndex(instr machinecfg.Instruction) SlotIndex {
	e, ok := ix.instrIndex[instr]
	if !ok {
		return SlotIndex{}
	}
	return SlotIndex{e: e, slot: SlotRegister}
}

// GetIndexBefore returns the slot immediately preceding instr's base slot
// (the previous entry's dead slot); used for indexing debug-value
// instructions by the position just before them.
func (ix *Indexes) GetIndexBefore(instr machinecfg.Instruction) SlotIndex {
	idx := ix.GetInstructionIndex(instr)
	if !idx.IsValid() {
		return SlotIndex{}
	}
	return idx.GetBaseSlot().PrevSlot()
}

// GetInstructionFromIndex returns the instruction owning slot, or nil if
// slot is invalid or belongs to a block-start entry, which carries no
// instruction.
func (ix *Indexes) GetInstructionFromIndex(slot SlotIndex) machinecfg.Instruction {
	if !slot.IsValid() {
		return nil
	}
	return slot.e.instr
}

// GetMBBFromIndex returns the basic block containing slot.
func (ix *Indexes) GetMBBFromIndex(slot SlotIndex) *machinecfg.Block {
	if !slot.IsValid() {
		return nil
	}
	return ix.blockOf[slot.e]
}

// GetMBBStartIdx returns the block-boundary slot at the start of b.
func (ix *Indexes) GetMBBStartIdx(b *machinecfg.Block) SlotIndex {
	e, ok := ix.blockStart[b]
	if !ok {
		return SlotIndex{}
	}
	return SlotIndex{e: e, slot: SlotBlock}
}

// GetMBBEndIdx returns the slot just past the last instruction of b: the
// slot after its last instruction's dead slot, or the slot after its own
// block slot if b is empty.
func (ix *Indexes) GetMBBEndIdx(b *machinecfg.Block) SlotIndex {
	e, ok := ix.blockEnd[b]
	if !ok {
		return SlotIndex{}
	}
	if e == ix.blockStart[b] {
		return SlotIndex{e: e, slot: SlotBlock}.NextSlot()
	}
	return SlotIndex{e: e, slot: SlotDead}.NextSlot()
}

// InsertInstrAfter threads a new instruction into the list immediately
// after `after`, in the same block, renumbering the whole list when no
// slack is left between `after` and its successor or when `after` is the
// last entry. It returns the new instruction's
// canonical register-slot index.
func (ix *Indexes) InsertInstrAfter(after SlotIndex, instr machinecfg.Instruction) SlotIndex {
	block := ix.GetMBBFromIndex(after)
	e := &listEntry{instr: instr, block: block}
	ix.blockOf[e] = block
	e.prev = after.e
	e.next = after.e.next
	after.e.next = e
	if e.next != nil {
		e.next.prev = e
	} else {
		ix.last = e
	}
	ix.instrIndex[instr] = e
	if ix.blockEnd[block] == after.e {
		ix.blockEnd[block] = e
	}

	if e.next != nil && e.next.ordinal-after.e.ordinal > 1 {
		e.ordinal = after.e.ordinal + (e.next.ordinal-after.e.ordinal)/2
	} else {
		ix.renumber()
	}
	return SlotIndex{e: e, slot: SlotRegister}
}

// renumber reassigns ordinals instrDist apart to the whole list. It is the
// fallback path of InsertInstrAfter when local insertion slack has run out
// or the new entry goes last; inserting between two existing entries
// renumbers rarely since instrDist leaves generous headroom.
func (ix *Indexes) renumber() {
	ordinal := 0
	for e := ix.first; e != nil; e = e.next {
		e.ordinal = ordinal
		ordinal += instrDist
	}
}
