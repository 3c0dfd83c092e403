package ppc

// decodeRotate handles the rotate-and-mask family: rlwimi, rlwinm (shift
// amount immediate), and rlwnm (shift amount in a register).
func decodeRotate(word uint32, inst Instruction) (Instruction, error) {
	rs := fieldRS(word)
	ra := fieldRA(word)
	mb := fieldMB(word)
	me := fieldME(word)

	inst.Class = ClassRotate
	inst.Rc = fieldRc(word)

	ops := []Operand{{Kind: OperandGPR, Reg: ra}, {Kind: OperandGPR, Reg: rs}}
	switch primaryOp(word) {
	case opRLWIMI:
		inst.Mnemonic = "rlwimi"
		ops = append(ops, Operand{Kind: OperandShift, ShiftAmt: fieldSH(word)})
	case opRLWINM:
		inst.Mnemonic = "rlwinm"
		ops = append(ops, Operand{Kind: OperandShift, ShiftAmt: fieldSH(word)})
	case opRLWNM:
		inst.Mnemonic = "rlwnm"
		ops = append(ops, Operand{Kind: OperandGPR, Reg: fieldRB(word)})
	}
	ops = append(ops, Operand{Kind: OperandMask, MaskBegin: mb, MaskEnd: me})
	inst.Operands = ops
	return inst, nil
}
