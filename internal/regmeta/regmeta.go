// Package regmeta defines the narrow collaborator interfaces the liveness
// core reads register and operand metadata through: lane masks for
// subregister coverage, virtual register identities, and the machine
// operand/register-info surface that split and coalesce rewrite.
//
// None of this package decides allocation policy. It only describes the
// shape a caller's machine-instruction model must expose so the core can
// query and rewrite it.
package regmeta

import "github.com/tangzhangming/liverange/internal/machinecfg"

// LaneBitmask identifies a set of disjoint register lanes, used to
// describe which part of a register a subrange or operand covers.
type LaneBitmask uint32

// NoLanes is the empty lane set.
const NoLanes LaneBitmask = 0

// AllLanes is the full-register lane set, the default max mask for a
// register class that isn't subdivided into lanes.
const AllLanes LaneBitmask = ^LaneBitmask(0)

// Intersects reports whether m and other share any lane.
func (m LaneBitmask) Intersects(other LaneBitmask) bool { return m&other != 0 }

// IsSubsetOf reports whether every lane of m is also set in other.
func (m LaneBitmask) IsSubsetOf(other LaneBitmask) bool { return m&^other == 0 }

// None reports whether m has no lanes set.
func (m LaneBitmask) None() bool { return m == NoLanes }

// VirtReg identifies a virtual register. The zero value names no register.
type VirtReg uint32

// NoReg is the invalid/absent virtual register.
const NoReg VirtReg = 0

// RegClass describes a target register class: a name (for diagnostics)
// and the maximal lane mask any register of the class can carry.
type RegClass struct {
	Name     string
	MaxLanes LaneBitmask
}

// Operand is one use or definition of a virtual register inside a machine
// instruction. Implementations back this with whatever concrete operand
// representation the caller's instruction model uses.
type Operand interface {
	Parent() machinecfg.Instruction
	Reg() VirtReg
	SubRegIndex() uint32
	IsDef() bool
	ReadsReg() bool
	IsEarlyClobber() bool
	IsUndef() bool
	IsDead() bool

	SetReg(VirtReg)
	SetIsUndef(bool)
	SetIsDead(bool)
}

// RegisterInfo is the read/write view over a function's virtual registers
// and their operands that split and coalesce rewrite through.
type RegisterInfo interface {
	// Operands enumerates every operand referencing reg, in program
	// order. When includeDebug is false, debug-value operands are
	// skipped.
	Operands(reg VirtReg, includeDebug bool) []Operand

	// SubRegIndexLaneMask maps a sub-register index to the lane mask it
	// covers. Index 0 (no sub-register) maps to AllLanes.
	SubRegIndexLaneMask(subIdx uint32) LaneBitmask

	// CreateVirtualRegister allocates a fresh virtual register of the
	// given class.
	CreateVirtualRegister(class *RegClass) VirtReg

	// MaxLaneMaskForVReg returns the maximal lane mask reg's class can
	// carry.
	MaxLaneMaskForVReg(reg VirtReg) LaneBitmask

	// RegClassOf returns the register class reg was created with.
	RegClassOf(reg VirtReg) *RegClass
}

// CoalescerPair is the narrow view the overlap-with-exemption query needs
// from the register coalescer: whether a given instruction is a copy the
// coalescer is prepared to eliminate.
type CoalescerPair interface {
	IsCoalescable(instr machinecfg.Instruction) bool
}
