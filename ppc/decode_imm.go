package ppc

// decodeAddImm handles addi and addis (D-form, primary 14/15).
func decodeAddImm(word uint32, inst Instruction) (Instruction, error) {
	rt := fieldRT(word)
	ra := fieldRA(word)
	si := fieldSI(word)

	inst.Class = ClassArithmetic
	shifted := primaryOp(word) == opADDIS
	imm := si
	if shifted {
		imm = si << 16
		inst.Mnemonic = "addis"
	} else if ra == 0 {
		inst.Mnemonic = "li" // addi rt,0,SI is the li pseudo-op
	} else {
		inst.Mnemonic = "addi"
	}

	ops := []Operand{{Kind: OperandGPR, Reg: rt}}
	if ra != 0 || shifted {
		ops = append(ops, Operand{Kind: OperandGPR, Reg: ra})
	}
	ops = append(ops, Operand{Kind: OperandImmSigned, ImmS: int64(imm)})
	inst.Operands = ops
	return inst, nil
}

// decodeAddicImm handles addic and addic. (D-form, primary 12/13).
func decodeAddicImm(word uint32, inst Instruction) (Instruction, error) {
	rt := fieldRT(word)
	ra := fieldRA(word)
	si := fieldSI(word)

	inst.Class = ClassArithmetic
	inst.Rc = primaryOp(word) == opADDICdot
	inst.Mnemonic = "addic"
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: rt},
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandImmSigned, ImmS: int64(si)},
	}
	return inst, nil
}

// decodeSubfic handles subfic (D-form, primary 8).
func decodeSubfic(word uint32, inst Instruction) (Instruction, error) {
	rt := fieldRT(word)
	ra := fieldRA(word)
	si := fieldSI(word)

	inst.Class = ClassArithmetic
	inst.Mnemonic = "subfic"
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: rt},
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandImmSigned, ImmS: int64(si)},
	}
	return inst, nil
}

// decodeMulli handles mulli (D-form, primary 7).
func decodeMulli(word uint32, inst Instruction) (Instruction, error) {
	rt := fieldRT(word)
	ra := fieldRA(word)
	si := fieldSI(word)

	inst.Class = ClassArithmetic
	inst.Mnemonic = "mulli"
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: rt},
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandImmSigned, ImmS: int64(si)},
	}
	return inst, nil
}

// decodeCompareImm handles cmpi and cmpli (D-form, primary 11/10).
func decodeCompareImm(word uint32, inst Instruction) (Instruction, error) {
	crf := fieldBF(word)
	ra := fieldRA(word)

	inst.Class = ClassCompare
	ops := []Operand{
		{Kind: OperandCRField, CRField: crf},
		{Kind: OperandGPR, Reg: ra},
	}
	if primaryOp(word) == opCMPLI {
		inst.Mnemonic = "cmplwi"
		ops = append(ops, Operand{Kind: OperandImmUnsigned, ImmU: uint64(fieldUI(word))})
	} else {
		inst.Mnemonic = "cmpwi"
		ops = append(ops, Operand{Kind: OperandImmSigned, ImmS: int64(fieldSI(word))})
	}
	inst.Operands = ops
	return inst, nil
}

// decodeLogicalImm handles ori, oris, xori, xoris, andi., andis. (D-form).
func decodeLogicalImm(word uint32, inst Instruction) (Instruction, error) {
	rs := fieldRS(word)
	ra := fieldRA(word)
	ui := fieldUI(word)

	inst.Class = ClassLogical
	switch primaryOp(word) {
	case opORI:
		inst.Mnemonic = "ori"
	case opORIS:
		inst.Mnemonic = "oris"
	case opXORI:
		inst.Mnemonic = "xori"
	case opXORIS:
		inst.Mnemonic = "xoris"
	case opANDIdot:
		inst.Mnemonic = "andi."
		inst.Rc = true
	case opANDISdot:
		inst.Mnemonic = "andis."
		inst.Rc = true
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: ra},
		{Kind: OperandGPR, Reg: rs},
		{Kind: OperandImmUnsigned, ImmU: uint64(ui)},
	}
	return inst, nil
}
