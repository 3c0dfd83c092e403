package ppc

// decodeLoadD handles D-form integer loads (lwz, lbz, lhz, lha, and the
// update variants, plus lmw).
func decodeLoadD(word uint32, inst Instruction) (Instruction, error) {
	rt := fieldRT(word)
	ra := fieldRA(word)
	d := fieldD(word)

	inst.Class = ClassLoad
	switch primaryOp(word) {
	case opLWZ:
		inst.Mnemonic = "lwz"
	case opLWZU:
		inst.Mnemonic = "lwzu"
	case opLBZ:
		inst.Mnemonic = "lbz"
	case opLBZU:
		inst.Mnemonic = "lbzu"
	case opLHZ:
		inst.Mnemonic = "lhz"
	case opLHZU:
		inst.Mnemonic = "lhzu"
	case opLHA:
		inst.Mnemonic = "lha"
	case opLHAU:
		inst.Mnemonic = "lhau"
	case opLMW:
		inst.Mnemonic = "lmw"
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: rt},
		{Kind: OperandMem, Base: ra, Disp: d},
	}
	return inst, nil
}

// decodeStoreD handles D-form integer stores (stw, stb, sth, update
// variants, and stmw).
func decodeStoreD(word uint32, inst Instruction) (Instruction, error) {
	rs := fieldRS(word)
	ra := fieldRA(word)
	d := fieldD(word)

	inst.Class = ClassStore
	switch primaryOp(word) {
	case opSTW:
		inst.Mnemonic = "stw"
	case opSTWU:
		inst.Mnemonic = "stwu"
	case opSTB:
		inst.Mnemonic = "stb"
	case opSTBU:
		inst.Mnemonic = "stbu"
	case opSTH:
		inst.Mnemonic = "sth"
	case opSTHU:
		inst.Mnemonic = "sthu"
	case opSTMW:
		inst.Mnemonic = "stmw"
	}
	inst.Operands = []Operand{
		{Kind: OperandGPR, Reg: rs},
		{Kind: OperandMem, Base: ra, Disp: d},
	}
	return inst, nil
}

// decodeFloatLoadD handles lfs, lfsu, lfd, lfdu.
func decodeFloatLoadD(word uint32, inst Instruction) (Instruction, error) {
	frt := fieldFRT(word)
	ra := fieldRA(word)
	d := fieldD(word)

	inst.Class = ClassFloatMem
	switch primaryOp(word) {
	case opLFS:
		inst.Mnemonic = "lfs"
	case opLFSU:
		inst.Mnemonic = "lfsu"
	case opLFD:
		inst.Mnemonic = "lfd"
	case opLFDU:
		inst.Mnemonic = "lfdu"
	}
	inst.Operands = []Operand{
		{Kind: OperandFPR, Reg: frt},
		{Kind: OperandMem, Base: ra, Disp: d},
	}
	return inst, nil
}

// decodeFloatStoreD handles stfs, stfsu, stfd, stfdu.
func decodeFloatStoreD(word uint32, inst Instruction) (Instruction, error) {
	frs := fieldFRT(word)
	ra := fieldRA(word)
	d := fieldD(word)

	inst.Class = ClassFloatMem
	switch primaryOp(word) {
	case opSTFS:
		inst.Mnemonic = "stfs"
	case opSTFSU:
		inst.Mnemonic = "stfsu"
	case opSTFD:
		inst.Mnemonic = "stfd"
	case opSTFDU:
		inst.Mnemonic = "stfdu"
	}
	inst.Operands = []Operand{
		{Kind: OperandFPR, Reg: frs},
		{Kind: OperandMem, Base: ra, Disp: d},
	}
	return inst, nil
}
