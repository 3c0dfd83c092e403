// Package ir lowers decoded PowerPC instructions into a flat, typed
// intermediate representation and runs the optimization passes spec.md
// §4.6 requires: constant folding, copy propagation, dead-code elimination,
// peephole rewrites, and redundant-load elimination. Each basic block
// lowers independently, the same "process one unit, hand the next to the
// worklist" shape as cfg's traversal.
package ir

import (
	"fmt"

	"github.com/dolrecomp/dolrecomp/cfg"
	"github.com/dolrecomp/dolrecomp/dataflow"
	"github.com/dolrecomp/dolrecomp/ppc"
	"github.com/dolrecomp/dolrecomp/rtype"
	"github.com/dolrecomp/dolrecomp/typeinfer"
)

// Op names one IR operation kind.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpRol
	OpLoad
	OpStore
	OpMove
	OpMoveImm
	OpBranch
	OpBranchCond
	OpCall
	OpIndirectCall
	OpReturn
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFLoad
	OpFStore
	OpSetCr
	OpSetLr
	OpSetCtr
	OpUnsupported
)

func (o Op) String() string {
	names := [...]string{
		"Add", "Sub", "Mul", "Div", "And", "Or", "Xor", "Shl", "Shr", "Rol",
		"Load", "Store", "Move", "MoveImm", "Branch", "BranchCond", "Call",
		"IndirectCall", "Return", "FAdd", "FSub", "FMul", "FDiv", "FLoad",
		"FStore", "SetCr", "SetLr", "SetCtr", "Unsupported",
	}
	if int(o) < len(names) {
		return names[o]
	}
	return "?"
}

// VReg is a virtual register: one per (architectural register, definition
// site), per spec.md §4.6.
type VReg int

// ValueKind tags whether an Operand is a virtual register or a constant.
type ValueKind int

const (
	ValueVReg ValueKind = iota
	ValueConst
)

// Value is an IR operand: either a virtual register or an immediate.
type Value struct {
	Kind  ValueKind
	VReg  VReg
	Const int64
}

func RegValue(v VReg) Value      { return Value{Kind: ValueVReg, VReg: v} }
func ConstValue(c int64) Value   { return Value{Kind: ValueConst, Const: c} }
func (v Value) IsConst() bool    { return v.Kind == ValueConst }
func (v Value) IsSameVReg(o Value) bool {
	return v.Kind == ValueVReg && o.Kind == ValueVReg && v.VReg == o.VReg
}

// Width and Signed/unsigned tag Load/Store operations.
type Width int

const (
	Width8 Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Instr is one IR operation. Only the fields relevant to Op are meaningful.
type Instr struct {
	Op      Op
	Address uint32 // source instruction address, preserved for the dispatcher/debug info
	Dst     VReg
	Args    []Value
	Type    rtype.Type

	Width  Width
	Signed bool

	Target     uint32 // Branch/Call/BranchCond (taken) target
	Else       uint32 // BranchCond: not-taken fall-through target
	IndirectOn Value  // register holding the target, for IndirectCall
	CRField    uint8  // SetCr, BranchCond
	BO         uint8  // BranchCond: raw BO field, so the emitter can render the exact test
	BI         uint8  // BranchCond: raw BI field
	Raw        uint32 // Unsupported: the raw word for unimplemented_instruction(word)
}

// Block is one basic block's lowered instruction sequence.
type Block struct {
	ID    cfg.BlockID
	Start uint32 // the block's first instruction's address, for goto-label resolution
	Instr []Instr
}

// Function is a function's IR after lowering (and, once Optimize runs,
// after optimization).
type Function struct {
	Entry  uint32
	Blocks []*Block

	// RegOf names the architectural register backing a VReg that the
	// Emitter materialized as a CpuContext-backed local: every VReg that is
	// either a live-in value or a definition of a GPR/FPR/LR/CTR (as opposed
	// to a purely intra-block temporary like a SetCr's comparison operand)
	// appears here so the Emitter knows where to read its initial value from
	// and where to write it back to, since calls communicate through the
	// shared CpuContext rather than through function arguments.
	RegOf map[VReg]dataflow.Reg

	// LiveOutDefs holds the last definition, per block, of each architectural
	// register that dataflow says is live exiting that block (including the
	// ABI-boundary approximation at Return/Call edges). Optimize's dead-code
	// elimination must never remove one of these even though nothing later
	// in the IR reads it as an operand, since the Emitter still has to write
	// its value back to CpuContext; every other architectural-register
	// definition is fair game once its last IR consumer disappears.
	LiveOutDefs map[VReg]bool
}

// allocator hands out one fresh VReg per (architectural register, definition
// site), per spec.md §4.6, and tracks the VReg currently holding each
// architectural register's value for operand lowering.
type allocator struct {
	next    VReg
	current map[dataflow.Reg]VReg
	regOf   map[VReg]dataflow.Reg
}

func newAllocator() *allocator {
	return &allocator{current: make(map[dataflow.Reg]VReg), regOf: make(map[VReg]dataflow.Reg)}
}

func (a *allocator) fresh() VReg {
	v := a.next
	a.next++
	return v
}

func (a *allocator) define(reg dataflow.Reg) VReg {
	v := a.fresh()
	a.current[reg] = v
	a.regOf[v] = reg
	return v
}

func (a *allocator) use(reg dataflow.Reg) Value {
	if v, ok := a.current[reg]; ok {
		return RegValue(v)
	}
	// First use of a register the function never explicitly defines: it is
	// live-in (a parameter or a caller-saved temporary). Materialize a
	// virtual register for it so uses still have something to reference.
	v := a.define(reg)
	return RegValue(v)
}

// Lower builds the IR for every block in g, given its type information from
// ti. Instructions df.Dead already proved dead (accounting for liveness
// across the whole CFG, including the ABI-boundary approximation at Return
// and Call edges) are skipped entirely rather than lowered and then
// re-discovered dead by Optimize. Decoder failures become inline
// OpUnsupported stubs rather than aborting the function, per spec.md's
// scenario 5.
func Lower(g *cfg.Graph, df *dataflow.Result, ti *typeinfer.Result) *Function {
	fn := &Function{Entry: g.Entry, LiveOutDefs: map[VReg]bool{}}
	alloc := newAllocator()
	for _, b := range g.Blocks {
		lowered := lowerBlock(b, alloc, df, ti)
		fn.Blocks = append(fn.Blocks, lowered)
		markLiveOutDefs(b, lowered, alloc, df, fn.LiveOutDefs)
	}
	fn.RegOf = alloc.regOf
	return fn
}

// markLiveOutDefs records, for every architectural register dataflow says is
// live exiting b (its ordinary LiveOut set, widened by the same ABI-boundary
// approximation markDead uses), which VReg in lowered holds that register's
// last definition in program order. Those are the only architectural-register
// writes eliminateDeadCodeToFixedPoint must treat as unconditionally kept.
func markLiveOutDefs(b *cfg.Block, lowered *Block, alloc *allocator, df *dataflow.Result, out map[VReg]bool) {
	live := map[dataflow.Reg]bool{}
	for r := range df.LiveOut[b.ID] {
		live[r] = true
	}
	dataflow.SeedABIBoundaryLiveness(b, live)

	lastDef := map[dataflow.Reg]VReg{}
	for _, in := range lowered.Instr {
		if !isPure(in.Op) {
			continue // Dst is meaningless on an instruction that doesn't define one
		}
		if r, ok := alloc.regOf[in.Dst]; ok {
			lastDef[r] = in.Dst
		}
	}
	for r := range live {
		if v, ok := lastDef[r]; ok {
			out[v] = true
		}
	}
}

func lowerBlock(b *cfg.Block, alloc *allocator, df *dataflow.Result, ti *typeinfer.Result) *Block {
	out := &Block{ID: b.ID, Start: b.Start}
	for _, inst := range b.Instructions {
		if df.Dead[inst.Address] {
			continue
		}
		out.Instr = append(out.Instr, lowerInstruction(inst, alloc, ti)...)
	}

	if len(b.Instructions) > 0 {
		last := b.Instructions[len(b.Instructions)-1]
		if last.IsBranch() && last.Conditional && last.BO != 20 {
			// A single BranchCond replaces the per-edge Taken/NotTaken
			// handling below: the emitter renders it as
			// "if predicate { goto taken } else { goto not_taken }".
			out.Instr = append(out.Instr, Instr{
				Op:      OpBranchCond,
				Address: last.Address,
				Target:  last.Operands[0].Target,
				Else:    last.Address + last.Size(),
				BO:      last.BO,
				BI:      last.BI,
			})
			return out
		}
	}

	for _, e := range b.Edges {
		out.Instr = append(out.Instr, lowerEdge(b, e)...)
	}
	return out
}

func reg(kind dataflow.RegKind, idx uint8) dataflow.Reg { return dataflow.Reg{Kind: kind, Index: idx} }

func gprReg(op ppc.Operand) dataflow.Reg { return reg(dataflow.GPR, op.Reg) }

func lowerInstruction(inst ppc.Instruction, alloc *allocator, ti *typeinfer.Result) []Instr {
	typ := ti.TypeOf(inst.Address)
	if typ.Kind == rtype.Void {
		typ = rtype.I32
	}

	mk := func(op Op, dst VReg, args ...Value) Instr {
		return Instr{Op: op, Address: inst.Address, Dst: dst, Args: args, Type: typ}
	}

	switch inst.Class {
	case ppc.ClassArithmetic, ppc.ClassLogical, ppc.ClassShift, ppc.ClassRotate:
		if len(inst.Operands) < 2 {
			return []Instr{unsupported(inst)}
		}
		if inst.Mnemonic == "li" {
			dst := alloc.define(gprReg(inst.Operands[0]))
			return []Instr{mk(OpMoveImm, dst, ConstValue(inst.Operands[1].ImmS))}
		}
		args := make([]Value, 0, len(inst.Operands)-1)
		for _, o := range inst.Operands[1:] {
			args = append(args, lowerOperand(o, alloc))
		}
		dst := alloc.define(gprReg(inst.Operands[0]))
		op, ok := arithOp(inst.Mnemonic)
		if !ok {
			return []Instr{unsupported(inst)}
		}
		out := []Instr{mk(op, dst, args...)}
		if inst.Rc {
			out = append(out, Instr{Op: OpSetCr, Address: inst.Address, CRField: 0, Args: []Value{RegValue(dst)}})
		}
		return out
	case ppc.ClassCompare:
		field := uint8(0)
		for _, o := range inst.Operands {
			if o.Kind == ppc.OperandCRField {
				field = o.CRField
			}
		}
		var args []Value
		for _, o := range inst.Operands {
			if o.Kind == ppc.OperandGPR || o.Kind == ppc.OperandImmSigned || o.Kind == ppc.OperandImmUnsigned {
				args = append(args, lowerOperand(o, alloc))
			}
		}
		return []Instr{{Op: OpSetCr, Address: inst.Address, CRField: field, Args: args, Type: typ}}
	case ppc.ClassLoad:
		width, signed := loadShape(inst.Mnemonic)
		base, off := memOperand(inst.Operands[1], alloc)
		dst := alloc.define(gprReg(inst.Operands[0]))
		return []Instr{{Op: OpLoad, Address: inst.Address, Dst: dst, Args: []Value{base, off}, Type: typ, Width: width, Signed: signed}}
	case ppc.ClassStore:
		width, _ := loadShape(inst.Mnemonic)
		src := lowerOperand(inst.Operands[0], alloc)
		base, off := memOperand(inst.Operands[1], alloc)
		return []Instr{{Op: OpStore, Address: inst.Address, Args: []Value{base, off, src}, Type: typ, Width: width}}
	case ppc.ClassFloatArith:
		if len(inst.Operands) == 0 {
			return []Instr{unsupported(inst)}
		}
		var args []Value
		for _, o := range inst.Operands[1:] {
			args = append(args, lowerOperand(o, alloc))
		}
		dst := alloc.define(reg(dataflow.FPR, inst.Operands[0].Reg))
		op, ok := floatArithOp(inst.Mnemonic)
		if !ok {
			return []Instr{unsupported(inst)}
		}
		return []Instr{mk(op, dst, args...)}
	case ppc.ClassFloatCompare:
		var args []Value
		for _, o := range inst.Operands {
			if o.Kind == ppc.OperandFPR {
				args = append(args, alloc.use(reg(dataflow.FPR, o.Reg)))
			}
		}
		return []Instr{{Op: OpSetCr, Address: inst.Address, Args: args, Type: typ}}
	case ppc.ClassFloatMem:
		base, off := memOperand(inst.Operands[1], alloc)
		if inst.Mnemonic == "lfs" || inst.Mnemonic == "lfd" {
			dst := alloc.define(reg(dataflow.FPR, inst.Operands[0].Reg))
			width := Width64
			if inst.Mnemonic == "lfs" {
				width = Width32
			}
			return []Instr{{Op: OpFLoad, Address: inst.Address, Dst: dst, Args: []Value{base, off}, Type: typ, Width: width}}
		}
		src := alloc.use(reg(dataflow.FPR, inst.Operands[0].Reg))
		width := Width64
		if inst.Mnemonic == "stfs" {
			width = Width32
		}
		return []Instr{{Op: OpFStore, Address: inst.Address, Args: []Value{base, off, src}, Type: typ, Width: width}}
	case ppc.ClassBranch:
		// Control transfer IR is synthesized once per block from its
		// outgoing edges in lowerEdge; branch instructions themselves
		// don't need a standalone lowering here beyond the SetLr for calls.
		if inst.Operands[0].Link {
			return []Instr{{Op: OpSetLr, Address: inst.Address, Target: inst.Address + inst.Size()}}
		}
		return nil
	case ppc.ClassSystem:
		// ppc.Decode always normalizes mtlr/mflr/mtctr/mfctr to mtspr/mfspr
		// with an OperandSPR id (decode_xgroup.go's decodeSPRMove): Operands[0]
		// is the SPR, Operands[1] is the GPR, for both directions.
		if len(inst.Operands) < 2 || inst.Operands[0].Kind != ppc.OperandSPR {
			return nil
		}
		spr := inst.Operands[0].Reg
		switch inst.Mnemonic {
		case "mtspr":
			switch spr {
			case ppc.SPRLR:
				return []Instr{{Op: OpSetLr, Address: inst.Address, Args: []Value{lowerOperand(inst.Operands[1], alloc)}}}
			case ppc.SPRCTR:
				return []Instr{{Op: OpSetCtr, Address: inst.Address, Args: []Value{lowerOperand(inst.Operands[1], alloc)}}}
			}
		case "mfspr":
			switch spr {
			case ppc.SPRLR:
				dst := alloc.define(gprReg(inst.Operands[1]))
				return []Instr{mk(OpMove, dst, alloc.use(reg(dataflow.LR, 0)))}
			case ppc.SPRCTR:
				dst := alloc.define(gprReg(inst.Operands[1]))
				return []Instr{mk(OpMove, dst, alloc.use(reg(dataflow.CTR, 0)))}
			}
		}
		return nil
	default:
		return []Instr{unsupported(inst)}
	}
}

// memOperand lowers an OperandMem into an (base, offset) pair of IR values:
// base is the effective address's register term (literal 0, per the ISA's
// RA=0-means-literal-zero d-form convention, when the operand's base field
// names r0), and offset is either the signed displacement (d-form) or the
// index register's value (x-form, when Indexed is set).
func memOperand(o ppc.Operand, alloc *allocator) (Value, Value) {
	var base Value
	if o.Base == 0 {
		base = ConstValue(0)
	} else {
		base = alloc.use(reg(dataflow.GPR, o.Base))
	}
	if o.Indexed {
		return base, alloc.use(reg(dataflow.GPR, o.Index))
	}
	return base, ConstValue(int64(o.Disp))
}

func lowerOperand(o ppc.Operand, alloc *allocator) Value {
	switch o.Kind {
	case ppc.OperandGPR:
		return alloc.use(gprReg(o))
	case ppc.OperandFPR:
		return alloc.use(reg(dataflow.FPR, o.Reg))
	case ppc.OperandImmSigned:
		return ConstValue(o.ImmS)
	case ppc.OperandImmUnsigned:
		return ConstValue(int64(o.ImmU))
	default:
		return ConstValue(0)
	}
}

func unsupported(inst ppc.Instruction) Instr {
	return Instr{Op: OpUnsupported, Address: inst.Address, Raw: inst.Raw}
}

func arithOp(mnemonic string) (Op, bool) {
	switch mnemonic {
	case "add", "addo", "addi", "addis", "addic":
		return OpAdd, true
	case "subf", "subfic":
		return OpSub, true
	case "mullw", "mulli":
		return OpMul, true
	case "divw", "divwu":
		return OpDiv, true
	case "and", "andi.", "andis.", "nand":
		return OpAnd, true
	case "or", "ori", "oris", "nor":
		return OpOr, true
	case "xor", "xori", "xoris":
		return OpXor, true
	case "slw":
		return OpShl, true
	case "srw":
		return OpShr, true
	case "rlwinm", "rlwimi", "rlwnm":
		return OpRol, true
	}
	return 0, false
}

func floatArithOp(mnemonic string) (Op, bool) {
	switch mnemonic {
	case "fadd", "fadds":
		return OpFAdd, true
	case "fsub", "fsubs":
		return OpFSub, true
	case "fmul", "fmuls":
		return OpFMul, true
	case "fdiv", "fdivs":
		return OpFDiv, true
	}
	return 0, false
}

func loadShape(mnemonic string) (Width, bool) {
	switch mnemonic {
	case "lbz", "lbzu", "stb", "stbu":
		return Width8, false
	case "lha", "lhau":
		return Width16, true
	case "lhz", "lhzu", "sth", "sthu":
		return Width16, false
	case "lwz", "lwzu", "stw", "stwu":
		return Width32, false
	}
	return Width32, false
}

func lowerEdge(b *cfg.Block, e cfg.Edge) []Instr {
	switch e.Kind {
	case cfg.FallThrough, cfg.CallReturn:
		return nil // structured control flow: the emitter falls through to the next label
	case cfg.Taken:
		return []Instr{{Op: OpBranch, Target: targetAddressOf(b)}}
	case cfg.NotTaken:
		return nil
	case cfg.Call:
		return []Instr{{Op: OpCall, Target: targetAddressOf(b)}}
	case cfg.Indirect:
		return []Instr{{Op: OpIndirectCall}}
	case cfg.Return:
		return []Instr{{Op: OpReturn}}
	}
	return nil
}

// targetAddressOf reads the branch target off the block's last decoded
// instruction; lowerEdge only calls this for Taken/Call, both of which
// always carry an OperandBranch as Operands[0].
func targetAddressOf(b *cfg.Block) uint32 {
	if len(b.Instructions) == 0 {
		return 0
	}
	last := b.Instructions[len(b.Instructions)-1]
	if len(last.Operands) == 0 {
		return 0
	}
	return last.Operands[0].Target
}

// String renders one instruction for diagnostic dumps.
func (i Instr) String() string {
	return fmt.Sprintf("0x%08X: %s v%d <- %v", i.Address, i.Op, i.Dst, i.Args)
}
