package ppc

// decodeXGroup handles primary opcode 31: the X-form/XO-form instructions
// (register-register arithmetic, logical ops, shifts, indexed loads/stores,
// compares, and SPR/CR/cache/sync system ops), fanning out by the 10-bit
// extended opcode field the way the teacher's decodeAdd/decodeLogical
// dispatch on a secondary bitfield within a single primary opcode.
func decodeXGroup(word uint32, inst Instruction) (Instruction, error) {
	xo10 := fieldXO10(word)

	switch xo10 {
	case xoADD, xoADDC, xoADDE, xoSUBF, xoSUBFC, xoSUBFE, xoNEG, xoMULLW, xoMULHW, xoMULHWU, xoDIVW, xoDIVWU:
		return decodeArithReg(word, inst, xo10)
	case xoAND, xoOR, xoXOR, xoNAND, xoNOR, xoANDC, xoORC, xoEQV:
		return decodeLogicalReg(word, inst, xo10)
	case xoSLW, xoSRW, xoSRAW:
		return decodeShiftReg(word, inst, xo10)
	case xoSRAWI:
		return decodeShiftImm(word, inst)
	case xoEXTSB, xoEXTSH:
		return decodeExtend(word, inst, xo10)
	case xoCMP:
		return decodeCompareReg(word, inst, false)
	case xoCMPL:
		return decodeCompareReg(word, inst, true)
	case xoLWZX, xoLBZX, xoLHZX:
		return decodeLoadIndexed(word, inst, xo10)
	case xoSTWX, xoSTBX, xoSTHX:
		return decodeStoreIndexed(word, inst, xo10)
	case xoMTSPR:
		return decodeSPRMove(word, inst, true)
	case xoMFSPR:
		return decodeSPRMove(word, inst, false)
	case xoMTCRF:
		return decodeMTCRF(word, inst)
	case xoMFCR:
		inst.Class = ClassSystem
		inst.Mnemonic = "mfcr"
		inst.Operands = []Operand{{Kind: OperandGPR, Reg: fieldRT(word)}}
		return inst, nil
	case xoMFMSR:
		inst.Class = ClassSystem
		inst.Mnemonic = "mfmsr"
		inst.Operands = []Operand{{Kind: OperandGPR, Reg: fieldRT(word)}}
		return inst, nil
	case xoMTMSR:
		inst.Class = ClassSystem
		inst.Mnemonic = "mtmsr"
		inst.Operands = []Operand{{Kind: OperandGPR, Reg: fieldRS(word)}}
		return inst, nil
	case xoSYNC:
		inst.Class = ClassSystem
		inst.Mnemonic = "sync"
		return inst, nil
	case xoDCBF, xoDCBST, xoDCBT, xoICBI:
		return decodeCacheOp(word, inst, xo10)
	case xoTW:
		inst.Class = ClassSystem
		inst.Mnemonic = "tw"
		inst.Operands = []Operand{
			{Kind: OperandGPR, Reg: fieldRA(word)},
			{Kind: OperandGPR, Reg: fieldRB(word)},
		}
		return inst, nil
	}

	return Instruction{}, &DecodeError{Word: word, Address: inst.Address}
}

func decodeArithReg(word uint32, inst Instruction, xo uint32) (Instruction, error) {
	rt := fieldRT(word)
	ra := fieldRA(word)
	rb := fieldRB(word)

	inst.Class = ClassArithmetic
	inst.Rc = fieldRc(word)
	inst.OE = fieldOE(word)

	ops := []Operand{{Kind: OperandGPR, Reg: rt}, {Kind: OperandGPR, Reg: ra}}
	switch xo {
	case xoADD:
		inst.Mnemonic = "add"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoADDC:
		inst.Mnemonic = "addc"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoADDE:
		inst.Mnemonic = "adde"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoSUBF:
		inst.Mnemonic = "subf"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoSUBFC:
		inst.Mnemonic = "subfc"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoSUBFE:
		inst.Mnemonic = "subfe"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoNEG:
		inst.Mnemonic = "neg"
		ops = ops[:1]
	case xoMULLW:
		inst.Mnemonic = "mullw"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoMULHW:
		inst.Mnemonic = "mulhw"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoMULHWU:
		inst.Mnemonic = "mulhwu"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoDIVW:
		inst.Mnemonic = "divw"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	case xoDIVWU:
		inst.Mnemonic = "divwu"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: rb})
	}
	inst.Operands = ops
	return inst, nil
}

func decodeLogicalReg(word uint32, inst Instruction, xo uint32) (Instruction, error) {
	rs := fieldRS(word)
	ra := fieldRA(word)
	rb := fieldRB(word)

	inst.Class = ClassLogical
	inst.Rc = fieldRc(word)
	switch xo {
	case xoAND:
		inst.Mnemonic = "and"
	case xoOR:
		inst.Mnemonic = "or"
	case xoXOR:
		inst.Mnemonic = "xor"
	case xoNAND:
		inst.Mnemonic = "nand"
	case xoNOR:
		inst.Mnemonic = "nor"
	case xoANDC:
		inst.Mnemonic = "andc"
	case xoORC:
		inst.Mnemonic = "orc"
	case xoEQV:
		inst.Mnemonic = "eqv"
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandGPR, Reg: rs},
		{Kind: OperandGPR, Reg: rb},
	}
	return inst, nil
}

func decodeShiftReg(word uint32, inst Instruction, xo uint32) (Instruction, error) {
	rs := fieldRS(word)
	ra := fieldRA(word)
	rb := fieldRB(word)

	inst.Class = ClassShift
	inst.Rc = fieldRc(word)
	switch xo {
	case xoSLW:
		inst.Mnemonic = "slw"
	case xoSRW:
		inst.Mnemonic = "srw"
	case xoSRAW:
		inst.Mnemonic = "sraw"
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandGPR, Reg: rs},
		{Kind: OperandGPR, Reg: rb},
	}
	return inst, nil
}

func decodeShiftImm(word uint32, inst Instruction) (Instruction, error) {
	rs := fieldRS(word)
	ra := fieldRA(word)
	sh := fieldSH(word)

	inst.Class = ClassShift
	inst.Rc = fieldRc(word)
	inst.Mnemonic = "srawi"
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandGPR, Reg: rs},
		{Kind: OperandShift, ShiftAmt: sh},
	}
	return inst, nil
}

func decodeExtend(word uint32, inst Instruction, xo uint32) (Instruction, error) {
	rs := fieldRS(word)
	ra := fieldRA(word)

	inst.Class = ClassArithmetic
	inst.Rc = fieldRc(word)
	if xo == xoEXTSB {
		inst.Mnemonic = "extsb"
	} else {
		inst.Mnemonic = "extsh"
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandGPR, Reg: rs},
	}
	return inst, nil
}

func decodeCompareReg(word uint32, inst Instruction, unsigned bool) (Instruction, error) {
	crf := fieldBF(word)
	ra := fieldRA(word)
	rb := fieldRB(word)

	inst.Class = ClassCompare
	if unsigned {
		inst.Mnemonic = "cmplw"
	} else {
		inst.Mnemonic = "cmpw"
	}
	inst.Operands = []Operand{
		{Kind: OperandCRField, CRField: crf},
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandGPR, Reg: rb},
	}
	return inst, nil
}

func decodeLoadIndexed(word uint32, inst Instruction, xo uint32) (Instruction, error) {
	rt := fieldRT(word)
	ra := fieldRA(word)
	rb := fieldRB(word)

	inst.Class = ClassLoad
	switch xo {
	case xoLWZX:
		inst.Mnemonic = "lwzx"
	case xoLBZX:
		inst.Mnemonic = "lbzx"
	case xoLHZX:
		inst.Mnemonic = "lhzx"
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: rt},
		{Kind: OperandMem, Base: ra, Index: rb, Indexed: true},
	}
	return inst, nil
}

func decodeStoreIndexed(word uint32, inst Instruction, xo uint32) (Instruction, error) {
	rs := fieldRS(word)
	ra := fieldRA(word)
	rb := fieldRB(word)

	inst.Class = ClassStore
	switch xo {
	case xoSTWX:
		inst.Mnemonic = "stwx"
	case xoSTBX:
		inst.Mnemonic = "stbx"
	case xoSTHX:
		inst.Mnemonic = "sthx"
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: rs},
		{Kind: OperandMem, Base: ra, Index: rb, Indexed: true},
	}
	return inst, nil
}

func decodeSPRMove(word uint32, inst Instruction, toSPR bool) (Instruction, error) {
	reg := fieldRS(word) // RS for mtspr, RT for mfspr share the same field position
	spr := fieldSPR(word)

	inst.Class = ClassSystem
	if toSPR {
		inst.Mnemonic = "mtspr"
	} else {
		inst.Mnemonic = "mfspr"
	}
	inst.Operands = []Operand{
		{Kind: OperandSPR, Reg: uint8(spr)},
		{Kind: OperandGPR, Reg: reg},
	}
	return inst, nil
}

func decodeMTCRF(word uint32, inst Instruction) (Instruction, error) {
	rs := fieldRS(word)
	mask := uint8((word >> 12) & 0xFF)

	inst.Class = ClassSystem
	inst.Mnemonic = "mtcrf"
	inst.Operands = []Operand{
		{Kind: OperandImmUnsigned, ImmU: uint64(mask)},
		{Kind: OperandGPR, Reg: rs},
	}
	return inst, nil
}

func decodeCacheOp(word uint32, inst Instruction, xo uint32) (Instruction, error) {
	ra := fieldRA(word)
	rb := fieldRB(word)

	inst.Class = ClassSystem
	switch xo {
	case xoDCBF:
		inst.Mnemonic = "dcbf"
	case xoDCBST:
		inst.Mnemonic = "dcbst"
	case xoDCBT:
		inst.Mnemonic = "dcbt"
	case xoICBI:
		inst.Mnemonic = "icbi"
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandGPR, Reg: rb},
	}
	return inst, nil
}
