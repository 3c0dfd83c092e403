package ppc

// decodeB handles the unconditional branch (I-form, primary 18): b, bl, ba, bla.
func decodeB(word uint32, inst Instruction) (Instruction, error) {
	li := fieldLI(word)
	aa := fieldAA(word)
	lk := fieldLK(word)

	inst.Class = ClassBranch
	inst.Mnemonic = branchMnemonic("b", aa, lk)

	target := uint32(li)
	if !aa {
		target = word2Target(inst.Address, li)
	}
	inst.Operands = []Operand{{
		Kind:     OperandBranch,
		Target:   target,
		Absolute: aa,
		Link:     lk,
	}}
	return inst, nil
}

// decodeBC handles the conditional branch (B-form, primary 16): bc, bca, bcl, bcla.
func decodeBC(word uint32, inst Instruction) (Instruction, error) {
	bo := fieldBO(word)
	bi := fieldBI(word)
	bd := fieldBD(word)
	aa := fieldAA(word)
	lk := fieldLK(word)

	inst.Class = ClassBranch
	inst.Conditional = true
	inst.BO = bo
	inst.BI = bi
	inst.Mnemonic = conditionalBranchMnemonic(bo, bi, aa, lk)

	target := uint32(bd)
	if !aa {
		target = word2Target(inst.Address, bd)
	}
	inst.Operands = []Operand{{
		Kind:     OperandBranch,
		Target:   target,
		Absolute: aa,
		Link:     lk,
	}}
	return inst, nil
}

// decodeCRGroup handles primary opcode 19: bclr, bcctr, mcrf, cr-logical ops,
// isync. These share an XL-form layout but fan out by the 10-bit XO field.
func decodeCRGroup(word uint32, inst Instruction) (Instruction, error) {
	xo := fieldXO10(word)
	bo := fieldBO(word)
	bi := fieldBI(word)
	lk := fieldLK(word)

	switch xo {
	case xoBCLR:
		inst.Class = ClassBranch
		inst.BO, inst.BI = bo, bi
		inst.Mnemonic = conditionalBranchLinkMnemonic("blr", bo, bi, lk)
		inst.Operands = []Operand{{Kind: OperandBranch, Link: lk}}
		return inst, nil
	case xoBCCTR:
		inst.Class = ClassBranch
		inst.BO, inst.BI = bo, bi
		inst.Mnemonic = conditionalBranchLinkMnemonic("bctr", bo, bi, lk)
		inst.Operands = []Operand{{Kind: OperandBranch, Link: lk}}
		return inst, nil
	case xoISYNC:
		inst.Class = ClassSystem
		inst.Mnemonic = "isync"
		return inst, nil
	case xoMCRF:
		inst.Class = ClassCRLogic
		inst.Mnemonic = "mcrf"
		inst.Operands = []Operand{
			{Kind: OperandCRField, CRField: fieldCRbD(word) >> 2},
			{Kind: OperandCRField, CRField: fieldCRbA(word) >> 2},
		}
		return inst, nil
	case xoCRAND, xoCROR, xoCRXOR, xoCRNAND, xoCRNOR, xoCREQV:
		inst.Class = ClassCRLogic
		inst.Mnemonic = crLogicMnemonic(xo)
		inst.Operands = []Operand{
			{Kind: OperandCRBit, CRBit: fieldCRbD(word)},
			{Kind: OperandCRBit, CRBit: fieldCRbA(word)},
			{Kind: OperandCRBit, CRBit: fieldCRbB(word)},
		}
		return inst, nil
	}

	return Instruction{}, &DecodeError{Word: word, Address: inst.Address}
}

func crLogicMnemonic(xo uint32) string {
	switch xo {
	case xoCRAND:
		return "crand"
	case xoCROR:
		return "cror"
	case xoCRXOR:
		return "crxor"
	case xoCRNAND:
		return "crnand"
	case xoCRNOR:
		return "crnor"
	case xoCREQV:
		return "creqv"
	default:
		return "cr?"
	}
}

// word2Target computes an absolute target from a PC-relative displacement.
func word2Target(address uint32, disp int32) uint32 {
	return uint32(int64(address) + int64(disp))
}

func branchMnemonic(base string, aa, lk bool) string {
	m := base
	if lk {
		m += "l"
	}
	if aa {
		m += "a"
	}
	return m
}

// conditionalBranchMnemonic renders bc/bca/bcl/bcla as the canonical
// condition-code mnemonic (beq, bne, blt, ...) when BO/BI encode one of the
// standard "branch if CR bit true/false" forms, falling back to "bc"
// otherwise.
func conditionalBranchMnemonic(bo, bi uint8, aa, lk bool) string {
	name, ok := conditionName(bo, bi)
	if !ok {
		return branchMnemonic("bc", aa, lk)
	}
	return branchMnemonic(name, aa, lk)
}

// conditionalBranchLinkMnemonic renders bclr/bcctr as the canonical
// condition-code form (bnelr, beqctr, ...) when BO/BI encode a real
// condition, but keeps the register-branch base name for BO=20 ("branch
// always") since the pseudo-mnemonic for an unconditional bclr/bcctr is
// blr/bctr, not the primary-16 family's "b".
func conditionalBranchLinkMnemonic(base string, bo, bi uint8, lk bool) string {
	name := base
	if bo != 20 {
		// conditionName returns a full "b"+suffix mnemonic (beq, bne, ...)
		// meant for the bc/bca family; splice its suffix between the "b"
		// and the "lr"/"ctr" tail of base to get beqlr, bnectr, and so on.
		if cond, ok := conditionName(bo, bi); ok {
			name = "b" + cond[1:] + base[1:]
		}
	}
	if lk {
		name += "l"
	}
	return name
}

// conditionName maps a (BO, BI) pair to the canonical branch-on-condition
// mnemonic suffix (without link/absolute markers), covering the
// "branch if CR bit set" (BO=12) and "branch if CR bit clear" (BO=4) forms
// for the four low-order CR0 bits.
func conditionName(bo, bi uint8) (string, bool) {
	bit := bi % 4
	names := [4]string{"lt", "gt", "eq", "so"}
	switch bo {
	case 12, 14, 15:
		return "b" + names[bit], true
	case 4, 6, 7:
		inverse := map[string]string{"lt": "ge", "gt": "le", "eq": "ne", "so": "ns"}
		return "b" + inverse[names[bit]], true
	case 20:
		return "b", true
	}
	return "", false
}
