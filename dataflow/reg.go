package dataflow

import "github.com/dolrecomp/dolrecomp/ppc"

// RegKind distinguishes the register files instructions read and write.
type RegKind int

const (
	GPR RegKind = iota
	FPR
	CRField
	LR
	CTR
)

// Reg identifies one architectural register, the unit def-use chains and
// liveness are tracked over.
type Reg struct {
	Kind  RegKind
	Index uint8
}

// defsUses returns the registers an instruction writes and reads, in that
// order. This mirrors the operand tables in spec.md §4.1's opcode mapping:
// D-form/X-form loads define RT and use the base register; stores define
// nothing architectural and use both RS and the base; arithmetic ops define
// RT/RD and use RA/RB; branch-and-link defines LR.
func defsUses(inst ppc.Instruction) (defs, uses []Reg) {
	switch inst.Class {
	case ppc.ClassArithmetic, ppc.ClassLogical, ppc.ClassShift, ppc.ClassRotate:
		if len(inst.Operands) == 0 {
			return nil, nil
		}
		defs = append(defs, gpr(inst.Operands[0]))
		for _, op := range inst.Operands[1:] {
			if op.Kind == ppc.OperandGPR {
				uses = append(uses, gpr(op))
			}
		}
		if inst.Rc {
			defs = append(defs, Reg{Kind: CRField, Index: 0})
		}
	case ppc.ClassCompare:
		for _, op := range inst.Operands {
			if op.Kind == ppc.OperandGPR {
				uses = append(uses, gpr(op))
			}
		}
		field := uint8(0)
		for _, op := range inst.Operands {
			if op.Kind == ppc.OperandCRField {
				field = op.CRField
			}
		}
		defs = append(defs, Reg{Kind: CRField, Index: field})
	case ppc.ClassLoad:
		if len(inst.Operands) < 2 {
			return nil, nil
		}
		defs = append(defs, gpr(inst.Operands[0]))
		mem := inst.Operands[1]
		// RA=0 means "literal zero", not a use of r0 (PowerPC D-form convention).
		if mem.Base != 0 {
			uses = append(uses, Reg{Kind: GPR, Index: mem.Base})
		}
		if mem.Indexed {
			uses = append(uses, Reg{Kind: GPR, Index: mem.Index})
		}
	case ppc.ClassStore:
		if len(inst.Operands) < 2 {
			return nil, nil
		}
		uses = append(uses, gpr(inst.Operands[0]))
		mem := inst.Operands[1]
		if mem.Base != 0 {
			uses = append(uses, Reg{Kind: GPR, Index: mem.Base})
		}
		if mem.Indexed {
			uses = append(uses, Reg{Kind: GPR, Index: mem.Index})
		}
	case ppc.ClassFloatArith, ppc.ClassFloatCompare:
		if len(inst.Operands) == 0 {
			return nil, nil
		}
		if inst.Class == ppc.ClassFloatCompare {
			defs = append(defs, Reg{Kind: CRField, Index: 0})
			for _, op := range inst.Operands {
				if op.Kind == ppc.OperandFPR {
					uses = append(uses, Reg{Kind: FPR, Index: op.Reg})
				}
			}
		} else {
			defs = append(defs, Reg{Kind: FPR, Index: inst.Operands[0].Reg})
			for _, op := range inst.Operands[1:] {
				if op.Kind == ppc.OperandFPR {
					uses = append(uses, Reg{Kind: FPR, Index: op.Reg})
				}
			}
		}
	case ppc.ClassFloatMem:
		if len(inst.Operands) < 2 {
			return nil, nil
		}
		mem := inst.Operands[1]
		if inst.Mnemonic == "lfs" || inst.Mnemonic == "lfd" {
			defs = append(defs, Reg{Kind: FPR, Index: inst.Operands[0].Reg})
		} else {
			uses = append(uses, Reg{Kind: FPR, Index: inst.Operands[0].Reg})
		}
		if mem.Base != 0 {
			uses = append(uses, Reg{Kind: GPR, Index: mem.Base})
		}
	case ppc.ClassBranch:
		if inst.Operands[0].Link {
			defs = append(defs, Reg{Kind: LR})
		}
		isIndirect := inst.Mnemonic == "bctr" || inst.Mnemonic == "bctrl"
		isReturn := inst.Mnemonic == "blr" || inst.Mnemonic == "blrl"
		if isIndirect {
			uses = append(uses, Reg{Kind: CTR})
		}
		if isReturn {
			uses = append(uses, Reg{Kind: LR})
		}
		if inst.Conditional {
			uses = append(uses, Reg{Kind: CRField, Index: inst.BI / 4})
		}
	case ppc.ClassSystem:
		// ppc.Decode always normalizes mtlr/mflr/mtctr/mfctr to mtspr/mfspr
		// with an OperandSPR id (decode_xgroup.go's decodeSPRMove), so those
		// pseudo-mnemonics never actually appear here; key on the real ones.
		if len(inst.Operands) < 2 || inst.Operands[0].Kind != ppc.OperandSPR {
			break
		}
		spr := inst.Operands[0].Reg
		switch inst.Mnemonic {
		case "mtspr":
			switch spr {
			case ppc.SPRLR:
				defs = append(defs, Reg{Kind: LR})
				uses = append(uses, gpr(inst.Operands[1]))
			case ppc.SPRCTR:
				defs = append(defs, Reg{Kind: CTR})
				uses = append(uses, gpr(inst.Operands[1]))
			}
		case "mfspr":
			switch spr {
			case ppc.SPRLR:
				defs = append(defs, gpr(inst.Operands[1]))
				uses = append(uses, Reg{Kind: LR})
			case ppc.SPRCTR:
				defs = append(defs, gpr(inst.Operands[1]))
				uses = append(uses, Reg{Kind: CTR})
			}
		}
	}
	return defs, uses
}

func gpr(op ppc.Operand) Reg { return Reg{Kind: GPR, Index: op.Reg} }
