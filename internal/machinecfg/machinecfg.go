// Package machinecfg models the machine-level control-flow graph that the
// liveness core is numbered against: basic blocks of already-selected
// instructions, linked by predecessor/successor edges. It intentionally
// knows nothing about registers or values; it is the narrow collaborator
// the slot-index service and the connected-component classifier read block
// boundaries and predecessor edges from.
package machinecfg

// Instruction is the minimal shape a concrete machine instruction must
// expose to the liveness core. Everything else (opcode, operands) is owned
// by the caller and reached through the regmeta collaborator instead, so
// that this package never has to know what an operand looks like.
type Instruction interface {
	// IsDebugValue reports whether this instruction is a source-level
	// debug annotation rather than a real machine instruction. Debug
	// instructions are numbered like any other; indexing them by
	// position uses the slot immediately before them.
	IsDebugValue() bool
}

// Block is one basic block: a straight-line run of instructions with no
// internal control flow, linked to its predecessors and successors.
type Block struct {
	ID     int
	Instrs []Instruction

	Preds []*Block
	Succs []*Block
}

func newBlock(id int) *Block {
	return &Block{ID: id}
}

// AddInstruction appends an instruction to the end of the block.
func (b *Block) AddInstruction(instr Instruction) {
	b.Instrs = append(b.Instrs, instr)
}

// AddSuccessor links b to succ, threading both the forward and backward
// edges in one call so the graph can never go one-directional by mistake.
func (b *Block) AddSuccessor(succ *Block) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// Function is an ordered sequence of basic blocks. Block order is the
// numbering order the slot-index service assigns positions in; it is the
// caller's responsibility to lay blocks out in a sane order (e.g. reverse
// postorder) before numbering.
type Function struct {
	Name    string
	Blocks  []*Block
	blockID int
}

// NewFunction creates an empty function with no blocks.
func NewFunction(name string) *Function {
	return &Function{Name: name}
}

// NewBlock creates and appends a fresh, empty block.
func (f *Function) NewBlock() *Block {
	b := newBlock(f.blockID)
	f.blockID++
	f.Blocks = append(f.Blocks, b)
	return b
}

// InsertBlockAfter creates a new block laid out immediately after `after`
// in block order, without touching any predecessor/successor edges. Used
// when a pass needs to insert a landing pad (e.g. a PHI-copy block) between
// two existing blocks.
func (f *Function) InsertBlockAfter(after *Block) *Block {
	b := newBlock(f.blockID)
	f.blockID++
	for i, blk := range f.Blocks {
		if blk == after {
			f.Blocks = append(f.Blocks, nil)
			copy(f.Blocks[i+2:], f.Blocks[i+1:])
			f.Blocks[i+1] = b
			return b
		}
	}
	f.Blocks = append(f.Blocks, b)
	return b
}
