package ppc_test

import (
	"testing"

	"github.com/dolrecomp/dolrecomp/ppc"
)

func TestDecodeRoundTripsRawAndAddress(t *testing.T) {
	words := []uint32{0x7C632214, 0x38600005, 0x38800003, 0x4E800020, 0x2C030000, 0x41820008, 0x48000101}
	for _, w := range words {
		addr := uint32(0x80003000)
		inst, err := ppc.Decode(w, addr)
		if err != nil {
			t.Fatalf("Decode(0x%08X) failed: %v", w, err)
		}
		if inst.Raw != w {
			t.Errorf("Raw = 0x%08X, want 0x%08X", inst.Raw, w)
		}
		if inst.Address != addr {
			t.Errorf("Address = 0x%08X, want 0x%08X", inst.Address, addr)
		}
	}
}

func TestDecodeAdd(t *testing.T) {
	inst, err := ppc.Decode(0x7C632214, 0x80003000)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if inst.Mnemonic != "add" {
		t.Errorf("Mnemonic = %q, want add", inst.Mnemonic)
	}
	if inst.Class != ppc.ClassArithmetic {
		t.Errorf("Class = %v, want ClassArithmetic", inst.Class)
	}
	if len(inst.Operands) != 3 {
		t.Fatalf("Operands = %d, want 3", len(inst.Operands))
	}
	if inst.Operands[0].Reg != 3 || inst.Operands[1].Reg != 3 || inst.Operands[2].Reg != 4 {
		t.Errorf("operands = %+v, want r3,r3,r4", inst.Operands)
	}
}

func TestDecodeLiPseudoOp(t *testing.T) {
	inst, err := ppc.Decode(0x38600005, 0x80003000)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if inst.Mnemonic != "li" {
		t.Errorf("Mnemonic = %q, want li", inst.Mnemonic)
	}
	if inst.Operands[0].Reg != 3 || inst.Operands[1].ImmS != 5 {
		t.Errorf("operands = %+v, want r3,#5", inst.Operands)
	}

	inst2, err := ppc.Decode(0x38800003, 0x80003004)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if inst2.Operands[0].Reg != 4 || inst2.Operands[1].ImmS != 3 {
		t.Errorf("operands = %+v, want r4,#3", inst2.Operands)
	}
}

func TestDecodeBlr(t *testing.T) {
	inst, err := ppc.Decode(0x4E800020, 0x80003008)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if inst.Mnemonic != "blr" {
		t.Errorf("Mnemonic = %q, want blr", inst.Mnemonic)
	}
	if inst.Class != ppc.ClassBranch {
		t.Errorf("Class = %v, want ClassBranch", inst.Class)
	}
	if inst.Operands[0].Link {
		t.Errorf("blr should not set Link")
	}
}

func TestDecodeCmpwi(t *testing.T) {
	inst, err := ppc.Decode(0x2C030000, 0x80004000)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if inst.Mnemonic != "cmpwi" {
		t.Errorf("Mnemonic = %q, want cmpwi", inst.Mnemonic)
	}
	if inst.Operands[1].Reg != 3 {
		t.Errorf("operands = %+v, want cr0,r3,#0", inst.Operands)
	}
}

func TestDecodeBeqTakenAndFallThrough(t *testing.T) {
	inst, err := ppc.Decode(0x41820008, 0x80004004)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if inst.Mnemonic != "beq" {
		t.Errorf("Mnemonic = %q, want beq", inst.Mnemonic)
	}
	target := inst.Operands[0].Target
	if target != 0x80004004+8 {
		t.Errorf("target = 0x%08X, want 0x%08X", target, 0x80004004+8)
	}
}

func TestDecodeBranchAndLink(t *testing.T) {
	inst, err := ppc.Decode(0x48000101, 0x80004000)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if inst.Mnemonic != "bl" {
		t.Errorf("Mnemonic = %q, want bl", inst.Mnemonic)
	}
	if !inst.Operands[0].Link {
		t.Errorf("bl must set Link")
	}
	if inst.Operands[0].Absolute {
		t.Errorf("bl +0x100 is relative, not absolute")
	}
	if inst.Operands[0].Target != 0x80004100 {
		t.Errorf("target = 0x%08X, want 0x80004100", inst.Operands[0].Target)
	}
}

func TestDecodeUnknownWord(t *testing.T) {
	_, err := ppc.Decode(0xFFFFFFFF, 0x80005000)
	if err == nil {
		t.Fatalf("expected DecodeError for 0xFFFFFFFF")
	}
	var decErr *ppc.DecodeError
	if de, ok := err.(*ppc.DecodeError); ok {
		decErr = de
	} else {
		t.Fatalf("expected *ppc.DecodeError, got %T", err)
	}
	if decErr.Word != 0xFFFFFFFF || decErr.Address != 0x80005000 {
		t.Errorf("DecodeError = %+v, want word/address to match input", decErr)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	a, err1 := ppc.Decode(0x7C632214, 0x1000)
	b, err2 := ppc.Decode(0x7C632214, 0x1000)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if a.Mnemonic != b.Mnemonic || len(a.Operands) != len(b.Operands) {
		t.Errorf("decode was not deterministic: %+v vs %+v", a, b)
	}
}
