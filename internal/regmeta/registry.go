package regmeta

// Registry is a minimal in-memory RegisterInfo: a def-use list per virtual
// register plus a lane-mask table for sub-register indices. It exists so
// tests and small standalone consumers of the liveness core don't each
// need their own RegisterInfo implementation.
type Registry struct {
	operands  map[VirtReg][]Operand
	classOf   map[VirtReg]*RegClass
	lanes     map[uint32]LaneBitmask
	nextVReg  VirtReg
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		operands: make(map[VirtReg][]Operand),
		classOf:  make(map[VirtReg]*RegClass),
		lanes:    make(map[uint32]LaneBitmask),
		nextVReg: 1,
	}
}

// AddOperand records op against its current register, so later calls to
// Operands(reg, ...) find it. Callers must re-add an operand after
// changing its register with SetReg.
func (r *Registry) AddOperand(op Operand) {
	reg := op.Reg()
	r.operands[reg] = append(r.operands[reg], op)
}

// SetSubRegLaneMask configures the lane mask a sub-register index maps to.
func (r *Registry) SetSubRegLaneMask(subIdx uint32, mask LaneBitmask) {
	r.lanes[subIdx] = mask
}

func (r *Registry) Operands(reg VirtReg, includeDebug bool) []Operand {
	ops := r.operands[reg]
	if includeDebug {
		return ops
	}
	out := make([]Operand, 0, len(ops))
	for _, op := range ops {
		if op.Parent() != nil && op.Parent().IsDebugValue() {
			continue
		}
		out = append(out, op)
	}
	return out
}

func (r *Registry) SubRegIndexLaneMask(subIdx uint32) LaneBitmask {
	if subIdx == 0 {
		return AllLanes
	}
	return r.lanes[subIdx]
}

func (r *Registry) CreateVirtualRegister(class *RegClass) VirtReg {
	reg := r.nextVReg
	r.nextVReg++
	r.classOf[reg] = class
	return reg
}

func (r *Registry) MaxLaneMaskForVReg(reg VirtReg) LaneBitmask {
	if class, ok := r.classOf[reg]; ok {
		return class.MaxLanes
	}
	return AllLanes
}

func (r *Registry) RegClassOf(reg VirtReg) *RegClass {
	return r.classOf[reg]
}

// Bind registers reg with class, without allocating a fresh id. Used to
// seed the registry with pre-existing virtual registers (e.g. function
// parameters) before construction-time operands are added.
func (r *Registry) Bind(reg VirtReg, class *RegClass) {
	r.classOf[reg] = class
	if reg >= r.nextVReg {
		r.nextVReg = reg + 1
	}
}
