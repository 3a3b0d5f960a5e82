// Package slotindex assigns a totally ordered position to every
// instruction in a machine function, with four sub-instruction slots
// (block, early-clobber, register, dead) so liveness segments can express
// early-clobber definitions and dead-but-unused definitions without
// aliasing a neighboring instruction's slot.
//
// This is the slot-index service the liveness core treats as an opaque,
// read-only collaborator: it is consumed through SlotIndex values and the
// Indexes lookups, never mutated by the liverange or liveinterval packages.
package slotindex

import (
	"fmt"

	"github.com/tangzhangming/liverange/internal/machinecfg"
)

// Slot identifies one of the four sub-positions within an instruction.
type Slot uint8

const (
	// SlotBlock is the boundary slot before an instruction; it is also
	// the slot used for whole-block liveness (e.g. live-out of a block).
	SlotBlock Slot = iota
	// SlotEarlyClobber is where an early-clobber definition takes effect,
	// strictly before the normal register slot of the same instruction.
	SlotEarlyClobber
	// SlotRegister is the ordinary definition/kill slot of an instruction.
	SlotRegister
	// SlotDead is the point at which a dead (unused) definition's range
	// ends; it sorts after every other slot of the same instruction.
	SlotDead

	numSlots = 4
)

func (s Slot) String() string {
	switch s {
	case SlotBlock:
		return "B"
	case SlotEarlyClobber:
		return "e"
	case SlotRegister:
		return "r"
	case SlotDead:
		return "d"
	default:
		return "?"
	}
}

// instrDist is the ordinal spacing reserved between two adjacent
// instructions, leaving room for renumbering to insert new instructions
// between them without a full list renumber in the common case.
const instrDist = 64

// listEntry is one node in the doubly linked instruction list that backs
// an Indexes. Ordinals are evenly spaced, instrDist apart, only
// immediately after a renumber;
// insertions consume the slack between neighbors and only trigger a new
// renumber once that slack is exhausted.
type listEntry struct {
	prev, next *listEntry
	ordinal    int
	instr      machinecfg.Instruction
	block      *machinecfg.Block
}

// SlotIndex is a small, comparable handle into an Indexes list. The zero
// value is invalid.
type SlotIndex struct {
	e    *listEntry
	slot Slot
}

// IsValid reports whether idx names a real position.
func (idx SlotIndex) IsValid() bool { return idx.e != nil }

// IsBlock reports whether idx is a basic-block boundary slot.
func (idx SlotIndex) IsBlock() bool { return idx.IsValid() && idx.slot == SlotBlock }

// IsDead reports whether idx is a dead-definition slot.
func (idx SlotIndex) IsDead() bool { return idx.IsValid() && idx.slot == SlotDead }

func (idx SlotIndex) ordinal() int { return idx.e.ordinal + int(idx.slot) }

// SameInstr reports whether a and b name slots of the same instruction.
func SameInstr(a, b SlotIndex) bool { return a.IsValid() && b.IsValid() && a.e == b.e }

// EarlierInstr reports whether a's instruction strictly precedes b's.
// Two slots of the same instruction are not "earlier" than one another.
func EarlierInstr(a, b SlotIndex) bool {
	if SameInstr(a, b) {
		return false
	}
	return a.e.ordinal < b.e.ordinal
}

// Compare orders two indexes; negative, zero, or positive as a is before,
// equal to, or after b.
func (a SlotIndex) Compare(b SlotIndex) int {
	ao, bo := a.ordinal(), b.ordinal()
	switch {
	case ao < bo:
		return -1
	case ao > bo:
		return 1
	default:
		return 0
	}
}

func (a SlotIndex) Less(b SlotIndex) bool      { return a.Compare(b) < 0 }
func (a SlotIndex) LessEqual(b SlotIndex) bool { return a.Compare(b) <= 0 }
func (a SlotIndex) Equal(b SlotIndex) bool     { return a.Compare(b) == 0 }

// Distance returns a nonnegative scalar proportional to how many
// instructions separate a and b.
func (a SlotIndex) Distance(b SlotIndex) int {
	d := (b.ordinal() - a.ordinal())
	if d < 0 {
		d = -d
	}
	return d / instrDist
}

func (idx SlotIndex) withSlot(s Slot) SlotIndex {
	if !idx.IsValid() {
		return SlotIndex{}
	}
	return SlotIndex{e: idx.e, slot: s}
}

// GetBaseSlot returns the block-boundary slot of idx's instruction.
func (idx SlotIndex) GetBaseSlot() SlotIndex { return idx.withSlot(SlotBlock) }

// GetDeadSlot returns the dead-definition slot of idx's instruction.
func (idx SlotIndex) GetDeadSlot() SlotIndex { return idx.withSlot(SlotDead) }

// GetRegSlot returns the register slot of idx's instruction, the
// early-clobber variant if earlyClobber is set.
func (idx SlotIndex) GetRegSlot(earlyClobber bool) SlotIndex {
	if earlyClobber {
		return idx.withSlot(SlotEarlyClobber)
	}
	return idx.withSlot(SlotRegister)
}

// PrevSlot steps to the previous slot, crossing into the previous
// instruction's dead slot at a block-slot boundary. Returns the zero value
// when idx is the first slot of the function.
func (idx SlotIndex) PrevSlot() SlotIndex {
	if !idx.IsValid() {
		return SlotIndex{}
	}
	if idx.slot > SlotBlock {
		return SlotIndex{e: idx.e, slot: idx.slot - 1}
	}
	if idx.e.prev == nil {
		return SlotIndex{}
	}
	return SlotIndex{e: idx.e.prev, slot: SlotDead}
}

// NextSlot steps to the next slot, crossing into the next instruction's
// block slot at a dead-slot boundary. Returns the zero value when idx is
// the last slot of the function.
func (idx SlotIndex) NextSlot() SlotIndex {
	if !idx.IsValid() {
		return SlotIndex{}
	}
	if idx.slot < SlotDead {
		return SlotIndex{e: idx.e, slot: idx.slot + 1}
	}
	if idx.e.next == nil {
		return SlotIndex{}
	}
	return SlotIndex{e: idx.e.next, slot: SlotBlock}
}

func (idx SlotIndex) String() string {
	if !idx.IsValid() {
		return "<invalid-slot>"
	}
	return fmt.Sprintf("%d%s", idx.e.ordinal/instrDist, idx.slot)
}
