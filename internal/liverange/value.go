package liverange

import (
	"go.uber.org/atomic"

	"github.com/tangzhangming/liverange/internal/slotindex"
)

// Allocator is the append-only arena value numbers are allocated from. It
// is shared across every live range of one compilation unit and is safe
// to call from one allocator pass at a time; the atomic counter exists so
// handles stay unique even if a future pass interleaves allocation from
// more than one goroutine, without requiring every caller to hold a lock
// just to mint a handle.
type Allocator struct {
	nextHandle atomic.Uint32
}

// NewAllocator creates an empty arena.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// newValue allocates a fresh value number defined at def. The returned
// value is not yet attached to any LiveRange's table; callers go through
// LiveRange.NewValue (which also assigns the LR-local id) for that.
func (a *Allocator) newValue(def slotindex.SlotIndex) *ValueNumber {
	return &ValueNumber{Handle: a.nextHandle.Inc() - 1, Def: def}
}

// ValueNumber is the identity of one definition reaching a live range.
//
// Handle is stable for the lifetime of the value and never changes. ID is
// a dense, 0-based index into the owning LiveRange's value-number table;
// it is reassigned by RenumberValues, Join, and DistributeRange. Callers
// that need to refer to a value across a mutation must hold onto the
// *ValueNumber pointer (the handle), never the ID.
type ValueNumber struct {
	Handle uint32
	id     int
	Def    slotindex.SlotIndex
	unused bool
	phiDef bool
}

// ID returns the value's current index into its live range's table.
func (vn *ValueNumber) ID() int { return vn.id }

// IsUnused reports whether the value is flagged unused: present in the
// table but referenced by no segment.
func (vn *ValueNumber) IsUnused() bool { return vn.unused }

// IsPHIDef reports whether the value is the result of a control-flow
// merge at a block header.
func (vn *ValueNumber) IsPHIDef() bool { return vn.phiDef }

// MarkUnused flags the value as unused in place.
func (vn *ValueNumber) MarkUnused() { vn.unused = true }

// MarkPHIDef flags the value as a PHI definition.
func (vn *ValueNumber) MarkPHIDef() { vn.phiDef = true }
