// regalloc.go - 寄存器分配器
//
// 本文件实现了线性扫描寄存器分配算法 (Linear Scan Register Allocation)。
// 这是一种高效的寄存器分配算法，被广泛用于 JIT 编译器中（如 HotSpot）。
//
// 算法概述：
// 1. 用 internal/liverange、internal/liveinterval 和 internal/slotindex
//    计算每个值的活跃区间（从定义到最后使用）
// 2. 按起始位置排序活跃区间
// 3. 线性扫描，为每个区间分配寄存器
// 4. 如果没有可用寄存器，选择一个区间溢出到栈
//
// 时间复杂度：O(n log n)，其中 n 是活跃区间数量
// 空间复杂度：O(n)

package jit

import (
	"sort"

	corelive "github.com/tangzhangming/liverange/internal/liveinterval"
	"github.com/tangzhangming/liverange/internal/liverange"
	"github.com/tangzhangming/liverange/internal/machinecfg"
	"github.com/tangzhangming/liverange/internal/regmeta"
	"github.com/tangzhangming/liverange/internal/slotindex"
)

// ============================================================================
// 寄存器分配结果
// ============================================================================

// RegAllocation 寄存器分配结果
type RegAllocation struct {
	// ValueRegs 值到寄存器的映射
	// key: 值 ID, value: 物理寄存器编号（-1 表示溢出到栈）
	ValueRegs map[int]int

	// SpillSlots 溢出槽分配
	// key: 值 ID, value: 栈槽编号
	SpillSlots map[int]int

	// StackSize 所需的栈空间大小（字节）
	StackSize int

	// 活跃区间信息（用于调试）
	Intervals []*LiveInterval
}

// GetReg 获取值对应的物理寄存器
// 返回 -1 表示值被溢出到栈
func (alloc *RegAllocation) GetReg(valueID int) int {
	if reg, ok := alloc.ValueRegs[valueID]; ok {
		return reg
	}
	return -1
}

// GetSpillSlot 获取值的溢出槽
// 返回 -1 表示值没有被溢出
func (alloc *RegAllocation) GetSpillSlot(valueID int) int {
	if slot, ok := alloc.SpillSlots[valueID]; ok {
		return slot
	}
	return -1
}

// IsSpilled 检查值是否被溢出
func (alloc *RegAllocation) IsSpilled(valueID int) bool {
	_, ok := alloc.SpillSlots[valueID]
	return ok
}

// ============================================================================
// 活跃区间
// ============================================================================

// LiveInterval wraps a core liveinterval.LiveInterval (a real SlotIndex-keyed
// live range) with the bookkeeping a physical-register assignment pass needs
// on top of it: which register or spill slot it landed in, and any fixed-
// register constraint. The allocator itself never mutates segments directly;
// it only reads Start/End off the one segment computeLiveIntervals built.
type LiveInterval struct {
	ValueID int
	core    *corelive.LiveInterval

	Reg       int // 分配的物理寄存器（-1 表示未分配或溢出）
	SpillSlot int // 溢出槽（-1 表示未溢出）
	IsFloat   bool
	FixedReg  int // 固定寄存器约束（-1 表示无约束）
}

// Start returns the interval's definition point.
func (li *LiveInterval) Start() slotindex.SlotIndex { return li.core.Segments()[0].Start }

// End returns the interval's last-use point (exclusive).
func (li *LiveInterval) End() slotindex.SlotIndex { return li.core.Segments()[0].End }

// Overlaps reports whether li and other are live at some common point.
func (li *LiveInterval) Overlaps(other *LiveInterval) bool {
	return li.core.Overlaps(&other.core.LiveRange)
}

func newLiveInterval(valueID int, isFloat bool) *LiveInterval {
	return &LiveInterval{
		ValueID:   valueID,
		core:      corelive.NewLiveInterval(regmeta.VirtReg(valueID)),
		Reg:       -1,
		SpillSlot: -1,
		IsFloat:   isFloat,
		FixedReg:  -1,
	}
}

// ============================================================================
// 寄存器分配器
// ============================================================================

// RegisterAllocator 寄存器分配器
type RegisterAllocator struct {
	numRegs   int             // 可用寄存器数量
	intervals []*LiveInterval // 所有活跃区间
	active    []*LiveInterval // 当前活跃的区间（按结束位置排序）

	// 寄存器状态
	freeRegs []bool // 哪些寄存器是空闲的
	usedRegs []bool // 哪些寄存器被使用过

	// 溢出管理
	nextSpillSlot int

	// 结果
	allocation *RegAllocation
}

// NewRegisterAllocator 创建寄存器分配器
func NewRegisterAllocator(numRegs int) *RegisterAllocator {
	if numRegs <= 0 {
		numRegs = 14 // 默认使用 14 个寄存器
	}

	return &RegisterAllocator{
		numRegs:  numRegs,
		freeRegs: make([]bool, numRegs),
		usedRegs: make([]bool, numRegs),
	}
}

// Allocate 执行寄存器分配
func (ra *RegisterAllocator) Allocate(fn *IRFunc) *RegAllocation {
	ra.allocation = &RegAllocation{
		ValueRegs:  make(map[int]int),
		SpillSlots: make(map[int]int),
	}

	// 初始化所有寄存器为空闲
	for i := range ra.freeRegs {
		ra.freeRegs[i] = true
	}

	// 第一步：计算活跃区间
	ra.computeLiveIntervals(fn)

	// 第二步：线性扫描分配
	ra.linearScan()

	// 计算栈大小
	// 包括：参数保存区 + 溢出槽
	paramSpace := fn.NumArgs * 8
	if paramSpace < 32 {
		paramSpace = 32 // Windows x64 需要至少 32 字节的 shadow space
	}
	spillSpace := ra.nextSpillSlot * 8
	ra.allocation.StackSize = paramSpace + spillSpace
	// 16 字节对齐
	ra.allocation.StackSize = (ra.allocation.StackSize + 15) &^ 15

	// 保存活跃区间信息
	ra.allocation.Intervals = ra.intervals

	return ra.allocation
}

// ============================================================================
// 活跃区间计算
// ============================================================================

// irAdapterInstr adapts a jit Instr to the narrow machinecfg.Instruction
// collaborator the slot-index service numbers against. The JIT's IR has no
// notion of debug annotations, so it always reports false.
type irAdapterInstr struct{ inst *Instr }

func (irAdapterInstr) IsDebugValue() bool { return false }

// buildMachineFn numbers fn's blocks and instructions through machinecfg and
// slotindex, the same service the liveness core consumes in every other
// package, and returns the instruction->SlotIndex lookup via ix plus an
// adapter per Instr.
func buildMachineFn(fn *IRFunc) (*slotindex.Indexes, map[*Instr]machinecfg.Instruction, []*machinecfg.Block) {
	mfn := machinecfg.NewFunction(fn.Name)
	adapters := make(map[*Instr]machinecfg.Instruction, len(fn.Blocks))
	blocks := make([]*machinecfg.Block, len(fn.Blocks))
	for bi, blk := range fn.Blocks {
		mb := mfn.NewBlock()
		blocks[bi] = mb
		for _, ins := range blk.Instrs {
			a := irAdapterInstr{inst: ins}
			adapters[ins] = a
			mb.AddInstruction(a)
		}
	}
	return slotindex.BuildIndexes(mfn), adapters, blocks
}

// computeLiveIntervals 计算所有值的活跃区间
//
// This is a single forward pass over the instruction stream, not a full
// backward dataflow fixpoint: a value's interval runs from its definition to
// the last instruction that reads it in program order, the same
// simplification the original int-based implementation made. What changed
// is the representation: the interval is now a real liverange segment keyed
// by SlotIndex, built the way every other liveness-core caller builds one
// (NewValue + Append), so the query surface (Overlaps, Covers, ...) is the
// shared one instead of a bespoke int comparison.
func (ra *RegisterAllocator) computeLiveIntervals(fn *IRFunc) {
	ix, adapters, blocks := buildMachineFn(fn)
	alloc := liverange.NewAllocator()

	type valueInfo struct {
		li      *LiveInterval
		defSlot slotindex.SlotIndex
		lastUse slotindex.SlotIndex
	}
	infos := make(map[int]*valueInfo)
	order := make([]int, 0)

	for _, blk := range fn.Blocks {
		for _, ins := range blk.Instrs {
			slot := ix.GetInstructionIndex(adapters[ins])

			if ins.Dest != nil {
				vi, ok := infos[ins.Dest.ID]
				if !ok {
					vi = &valueInfo{
						li:      newLiveInterval(ins.Dest.ID, ins.Dest.Type == TypeFloat),
						defSlot: slot,
						lastUse: slot,
					}
					infos[ins.Dest.ID] = vi
					order = append(order, ins.Dest.ID)
				}
				if vi.lastUse.Less(slot) {
					vi.lastUse = slot
				}
			}

			for _, arg := range ins.Args {
				if arg == nil || arg.IsConst {
					continue
				}
				vi, ok := infos[arg.ID]
				if !ok {
					// Used before any def in this function: treat it as
					// live from the top (e.g. an incoming argument).
					vi = &valueInfo{
						li:      newLiveInterval(arg.ID, arg.Type == TypeFloat),
						defSlot: ix.GetMBBStartIdx(blocks[0]),
						lastUse: slot,
					}
					infos[arg.ID] = vi
					order = append(order, arg.ID)
				}
				if vi.lastUse.Less(slot) {
					vi.lastUse = slot
				}
			}
		}
	}

	ra.intervals = make([]*LiveInterval, 0, len(order))
	for _, id := range order {
		vi := infos[id]
		end := vi.defSlot.GetDeadSlot()
		if !vi.lastUse.Equal(vi.defSlot) {
			end = vi.lastUse.NextSlot()
		}
		vn := vi.li.core.NewValue(vi.defSlot, alloc)
		vi.li.core.Append(liverange.NewSegment(vi.defSlot, end, vn))
		ra.intervals = append(ra.intervals, vi.li)
	}

	// 按起始位置排序
	sort.Slice(ra.intervals, func(i, j int) bool {
		return ra.intervals[i].Start().Less(ra.intervals[j].Start())
	})
}

// ============================================================================
// 线性扫描
// ============================================================================

// linearScan 线性扫描分配算法
func (ra *RegisterAllocator) linearScan() {
	ra.active = make([]*LiveInterval, 0)

	for _, current := range ra.intervals {
		// 释放已经过期的区间
		ra.expireOldIntervals(current)

		// 尝试分配寄存器
		if len(ra.active) >= ra.numRegs {
			// 没有空闲寄存器，需要溢出
			ra.spillAtInterval(current)
		} else {
			// 分配一个空闲寄存器
			reg := ra.allocateFreeReg(current)
			if reg >= 0 {
				current.Reg = reg
				ra.allocation.ValueRegs[current.ValueID] = reg
				ra.addToActive(current)
			} else {
				// 没有空闲寄存器
				ra.spillAtInterval(current)
			}
		}
	}
}

// expireOldIntervals 释放已经结束的区间
func (ra *RegisterAllocator) expireOldIntervals(current *LiveInterval) {
	newActive := make([]*LiveInterval, 0, len(ra.active))

	for _, active := range ra.active {
		if active.End().LessEqual(current.Start()) {
			// 区间已结束，释放寄存器
			if active.Reg >= 0 {
				ra.freeRegs[active.Reg] = true
			}
		} else {
			newActive = append(newActive, active)
		}
	}

	ra.active = newActive
}

// allocateFreeReg 分配一个空闲寄存器
func (ra *RegisterAllocator) allocateFreeReg(interval *LiveInterval) int {
	// 如果有固定寄存器约束
	if interval.FixedReg >= 0 && interval.FixedReg < ra.numRegs {
		if ra.freeRegs[interval.FixedReg] {
			ra.freeRegs[interval.FixedReg] = false
			ra.usedRegs[interval.FixedReg] = true
			return interval.FixedReg
		}
		// 固定寄存器被占用，需要特殊处理
		return -1
	}

	// 寻找任意空闲寄存器
	for i := 0; i < ra.numRegs; i++ {
		if ra.freeRegs[i] {
			ra.freeRegs[i] = false
			ra.usedRegs[i] = true
			return i
		}
	}

	return -1
}

// spillAtInterval 在当前位置执行溢出
func (ra *RegisterAllocator) spillAtInterval(current *LiveInterval) {
	// 策略：如果活跃区间中有一个结束更晚的区间，溢出它；
	// 否则溢出当前区间

	if len(ra.active) == 0 {
		// 没有活跃区间，直接溢出当前
		ra.spillInterval(current)
		return
	}

	// 找到结束最晚的活跃区间
	latest := ra.active[len(ra.active)-1]

	if current.End().Less(latest.End()) {
		// 溢出结束更晚的区间，把它的寄存器给当前区间
		current.Reg = latest.Reg
		ra.allocation.ValueRegs[current.ValueID] = current.Reg

		// 溢出 latest
		ra.spillInterval(latest)

		// 从 active 中移除 latest
		ra.active = ra.active[:len(ra.active)-1]

		// 将 current 加入 active
		ra.addToActive(current)
	} else {
		// 溢出当前区间
		ra.spillInterval(current)
	}
}

// spillInterval 溢出一个区间到栈
func (ra *RegisterAllocator) spillInterval(interval *LiveInterval) {
	// 分配溢出槽
	slot := ra.nextSpillSlot
	ra.nextSpillSlot++

	interval.SpillSlot = slot
	interval.Reg = -1

	ra.allocation.SpillSlots[interval.ValueID] = slot
	delete(ra.allocation.ValueRegs, interval.ValueID)
}

// addToActive 将区间加入活跃列表（保持按结束位置排序）
func (ra *RegisterAllocator) addToActive(interval *LiveInterval) {
	// 二分查找插入位置
	i := sort.Search(len(ra.active), func(i int) bool {
		return !ra.active[i].End().Less(interval.End())
	})

	// 插入
	ra.active = append(ra.active, nil)
	copy(ra.active[i+1:], ra.active[i:])
	ra.active[i] = interval
}
