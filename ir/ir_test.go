package ir_test

import (
	"encoding/binary"
	"testing"

	"github.com/dolrecomp/dolrecomp/cfg"
	"github.com/dolrecomp/dolrecomp/dataflow"
	"github.com/dolrecomp/dolrecomp/image"
	"github.com/dolrecomp/dolrecomp/ir"
	"github.com/dolrecomp/dolrecomp/symbols"
	"github.com/dolrecomp/dolrecomp/typeinfer"
)

func buildImage(t *testing.T, words []uint32) *image.Image {
	t.Helper()
	const headerSize = 0x100
	textBytes := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(textBytes[i*4:], w)
	}
	buf := make([]byte, headerSize+len(textBytes))
	binary.BigEndian.PutUint32(buf[0x00:], headerSize)
	binary.BigEndian.PutUint32(buf[0x48:], 0x80003000)
	binary.BigEndian.PutUint32(buf[0x90:], uint32(len(textBytes)))
	binary.BigEndian.PutUint32(buf[0xE0:], 0x80003000)
	copy(buf[headerSize:], textBytes)
	img, err := image.Load(buf)
	if err != nil {
		t.Fatalf("image.Load failed: %v", err)
	}
	return img
}

func lowerWords(t *testing.T, words []uint32) *ir.Function {
	t.Helper()
	img := buildImage(t, words)
	g, err := cfg.Build(img, 0x80003000, 0)
	if err != nil {
		t.Fatalf("cfg.Build failed: %v", err)
	}
	df := dataflow.Analyze(g)
	ti := typeinfer.Infer(g, df, symbols.Function{Entry: 0x80003000})
	return ir.Lower(g, df, ti)
}

func findOp(fn *ir.Function, op ir.Op) (ir.Instr, bool) {
	for _, b := range fn.Blocks {
		for _, in := range b.Instr {
			if in.Op == op {
				return in, true
			}
		}
	}
	return ir.Instr{}, false
}

func countOp(fn *ir.Function, op ir.Op) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, in := range b.Instr {
			if in.Op == op {
				n++
			}
		}
	}
	return n
}

func TestLowerArithmetic(t *testing.T) {
	// add r5,r3,r4 ; blr
	fn := lowerWords(t, []uint32{0x7CA32214, 0x4E800020})
	in, ok := findOp(fn, ir.OpAdd)
	if !ok {
		t.Fatalf("expected an Add instruction")
	}
	if in.Address != 0x80003000 {
		t.Errorf("Add.Address = 0x%X, want 0x80003000", in.Address)
	}
	if _, ok := findOp(fn, ir.OpReturn); !ok {
		t.Errorf("expected a Return for blr")
	}
}

func TestLowerLoadStore(t *testing.T) {
	// lbz r3,0(r4) ; stw r3,4(r5) ; blr
	fn := lowerWords(t, []uint32{0x88640000, 0x90650004, 0x4E800020})
	load, ok := findOp(fn, ir.OpLoad)
	if !ok {
		t.Fatalf("expected a Load instruction")
	}
	if load.Width != ir.Width8 {
		t.Errorf("lbz Width = %v, want Width8", load.Width)
	}
	store, ok := findOp(fn, ir.OpStore)
	if !ok {
		t.Fatalf("expected a Store instruction")
	}
	if store.Width != ir.Width32 {
		t.Errorf("stw Width = %v, want Width32", store.Width)
	}
}

func TestLowerLoadUsesBaseRegisterNotLiteralZero(t *testing.T) {
	// lbz r3,0(r4) -- the effective address is r4's value, not the literal 0
	// that a memory operand's Disp field happens to also be here.
	fn := lowerWords(t, []uint32{0x88640000, 0x4E800020})
	load, ok := findOp(fn, ir.OpLoad)
	if !ok {
		t.Fatalf("expected a Load instruction")
	}
	if load.Args[0].IsConst() {
		t.Fatalf("load base should resolve to r4, got constant %d", load.Args[0].Const)
	}
	if r, ok := fn.RegOf[load.Args[0].VReg]; !ok || r != (dataflow.Reg{Kind: dataflow.GPR, Index: 4}) {
		t.Errorf("load base VReg backed by %+v, want GPR r4", r)
	}
}

func TestLowerLoadTreatsR0BaseAsLiteralZero(t *testing.T) {
	// lbz r3,4(r0) -- RA=0 means the effective address is the literal
	// displacement, not r0's contents, per the PowerPC d-form convention.
	fn := lowerWords(t, []uint32{0x88600004, 0x4E800020})
	load, ok := findOp(fn, ir.OpLoad)
	if !ok {
		t.Fatalf("expected a Load instruction")
	}
	if !load.Args[0].IsConst() || load.Args[0].Const != 0 {
		t.Errorf("load base with RA=0 should be literal 0, got %+v", load.Args[0])
	}
	if !load.Args[1].IsConst() || load.Args[1].Const != 4 {
		t.Errorf("load displacement = %+v, want constant 4", load.Args[1])
	}
}

func TestLowerConditionalBranchProducesSingleBranchCond(t *testing.T) {
	// cmpwi r3,0 ; beq +8 ; add r5,r3,r4 ; blr
	fn := lowerWords(t, []uint32{0x2C030000, 0x41820008, 0x7CA32214, 0x4E800020})
	n := countOp(fn, ir.OpBranchCond)
	if n != 1 {
		t.Fatalf("expected exactly one BranchCond, got %d", n)
	}
	if countOp(fn, ir.OpBranch) != 0 {
		t.Errorf("a conditional branch must not also lower to an unconditional Branch")
	}
	bc, _ := findOp(fn, ir.OpBranchCond)
	if bc.Target != 0x8000300C {
		t.Errorf("BranchCond.Target = 0x%X, want 0x8000300C", bc.Target)
	}
}

func TestLowerCallProducesCallAndSetLr(t *testing.T) {
	// bl +0x100 ; blr (fall-through/return side); target is a lone blr.
	words := make([]uint32, 0x100/4+2)
	words[0] = 0x48000101 // bl 0x80003100 (displacement 0x100, LK=1)
	words[1] = 0x4E800020 // blr, the call-return landing instruction
	words[0x100/4] = 0x4E800020
	fn := lowerWords(t, words)
	call, ok := findOp(fn, ir.OpCall)
	if !ok {
		t.Fatalf("expected a Call instruction")
	}
	if call.Target != 0x80003100 {
		t.Errorf("Call.Target = 0x%X, want 0x80003100", call.Target)
	}
	if _, ok := findOp(fn, ir.OpSetLr); !ok {
		t.Errorf("expected bl to set the link register")
	}
}

func TestOptimizePeepholeAddZeroBecomesMove(t *testing.T) {
	// addi r3,r3,0 ; blr
	fn := lowerWords(t, []uint32{0x38630000, 0x4E800020})
	ir.Optimize(fn)
	if _, ok := findOp(fn, ir.OpAdd); ok {
		t.Errorf("addi r,0 should have been rewritten to Move")
	}
}

func TestOptimizeConstantFolding(t *testing.T) {
	// li r3,5 ; addi r3,r3,2 ; blr  -- both inputs to the add are constant
	// after li lowers to MoveImm, so the add should fold to MoveImm 7.
	fn := lowerWords(t, []uint32{0x38600005, 0x38630002, 0x4E800020})
	ir.Optimize(fn)
	if _, ok := findOp(fn, ir.OpAdd); ok {
		t.Errorf("constant add should have folded to MoveImm")
	}
}

func TestOptimizeNeverRemovesStore(t *testing.T) {
	words := []uint32{0x90640000, 0x4E800020} // stw r3,0(r4) ; blr
	fn := lowerWords(t, words)
	ir.Optimize(fn)
	if _, ok := findOp(fn, ir.OpStore); !ok {
		t.Errorf("Optimize must never remove a store even when its result is unused")
	}
}

func TestOptimizeRemovesDeadDefinition(t *testing.T) {
	// li r4,2 ; li r5,3 ; add r6,r4,r5 ; stw r6,0(r7) ; blr -- both add
	// operands are constant, so it folds to MoveImm r6,5, stranding the two
	// li definitions: nothing in the IR still references r4 or r5, and
	// neither is live out of the block (the only successor is Return, which
	// only keeps r3/f1 alive). This is a case dataflow's pre-lowering pass
	// can't catch on its own, since at the raw-instruction level r4 and r5
	// genuinely are used, by the add; only constant folding discovers they
	// can be dropped entirely.
	words := []uint32{0x38800002, 0x38A00003, 0x7CC42A14, 0x90C70000, 0x4E800020}
	fn := lowerWords(t, words)
	before := 0
	for _, b := range fn.Blocks {
		before += len(b.Instr)
	}
	ir.Optimize(fn)
	after := 0
	for _, b := range fn.Blocks {
		after += len(b.Instr)
	}
	if after >= before {
		t.Errorf("expected dead-code elimination to shrink the instruction count: before=%d after=%d", before, after)
	}
	if _, ok := findOp(fn, ir.OpAdd); ok {
		t.Errorf("constant add should have folded to MoveImm")
	}
}

func TestOptimizeNeverRemovesConditionRegisterWrite(t *testing.T) {
	// cmpwi r3,0 ; beq +8 ; add r5,r3,r4 ; blr -- the SetCr from cmpwi has no
	// VReg consumer (BranchCond reads BO/BI directly) and must still survive.
	words := []uint32{0x2C030000, 0x41820008, 0x7CA32214, 0x4E800020}
	fn := lowerWords(t, words)
	ir.Optimize(fn)
	if _, ok := findOp(fn, ir.OpSetCr); !ok {
		t.Errorf("Optimize must never remove a condition-register write that a BranchCond depends on")
	}
}
