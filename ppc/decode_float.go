package ppc

// Extended opcodes under primary 59/63 (A-form float arithmetic) and the
// X-form float compare under primary 63.
const (
	faFADDS = 21
	faFSUBS = 20
	faFMULS = 25
	faFDIVS = 18
	faFADD  = 21
	faFSUB  = 20
	faFMUL  = 25
	faFDIV  = 18

	fxFCMPU = 0
	fxFCMPO = 32
)

// decodeFloatGroup handles primary 59 (single-precision) and 63
// (double-precision arithmetic, or compare when the word is X-form).
func decodeFloatGroup(word uint32, inst Instruction) (Instruction, error) {
	single := primaryOp(word) == opFGROUPS

	xo10 := fieldXO10(word)
	if !single && (xo10 == fxFCMPU || xo10 == fxFCMPO) {
		// X-form compare: fcmpu/fcmpo, XO in {0, 32}.
		switch xo10 {
		case fxFCMPU:
			return decodeFloatCompare(word, inst, "fcmpu")
		case fxFCMPO:
			return decodeFloatCompare(word, inst, "fcmpo")
		}
	}

	xo := fieldXO5(word)
	frt := fieldFRT(word)
	fra := fieldFRA(word)
	frb := fieldFRB(word)

	inst.Class = ClassFloatArith
	inst.Rc = fieldRc(word)

	suffix := ""
	if single {
		suffix = "s"
	}
	switch xo {
	case faFADD:
		inst.Mnemonic = "fadd" + suffix
		inst.Operands = []Operand{{Kind: OperandFPR, Reg: frt}, {Kind: OperandFPR, Reg: fra}, {Kind: OperandFPR, Reg: frb}}
	case faFSUB:
		inst.Mnemonic = "fsub" + suffix
		inst.Operands = []Operand{{Kind: OperandFPR, Reg: frt}, {Kind: OperandFPR, Reg: fra}, {Kind: OperandFPR, Reg: frb}}
	case faFMUL:
		inst.Mnemonic = "fmul" + suffix
		frc := fieldFRC(word)
		inst.Operands = []Operand{{Kind: OperandFPR, Reg: frt}, {Kind: OperandFPR, Reg: fra}, {Kind: OperandFPR, Reg: frc}}
	case faFDIV:
		inst.Mnemonic = "fdiv" + suffix
		inst.Operands = []Operand{{Kind: OperandFPR, Reg: frt}, {Kind: OperandFPR, Reg: fra}, {Kind: OperandFPR, Reg: frb}}
	default:
		return Instruction{}, &DecodeError{Word: word, Address: inst.Address}
	}
	return inst, nil
}

func decodeFloatCompare(word uint32, inst Instruction, mnemonic string) (Instruction, error) {
	crf := fieldBF(word)
	fra := fieldFRA(word)
	frb := fieldFRB(word)

	inst.Class = ClassFloatCompare
	inst.Mnemonic = mnemonic
	inst.Operands = []Operand{
		{Kind: OperandCRField, CRField: crf},
		{Kind: OperandFPR, Reg: fra},
		{Kind: OperandFPR, Reg: frb},
	}
	return inst, nil
}
