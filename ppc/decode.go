package ppc

// Decode parses a 32-bit big-endian PowerPC word captured at address into a
// structured Instruction. Dispatch follows the primary opcode (top 6 bits),
// the same "narrow with a switch, fall through to a family decoder" shape
// the teacher uses for its 4-bit M68k opcode groups.
func Decode(word uint32, address uint32) (Instruction, error) {
	inst := Instruction{Address: address, Raw: word}

	switch primaryOp(word) {
	case opADDI, opADDIS:
		return decodeAddImm(word, inst)
	case opADDIC, opADDICdot:
		return decodeAddicImm(word, inst)
	case opSUBFIC:
		return decodeSubfic(word, inst)
	case opMULLI:
		return decodeMulli(word, inst)
	case opCMPI, opCMPLI:
		return decodeCompareImm(word, inst)
	case opBC:
		return decodeBC(word, inst)
	case opB:
		return decodeB(word, inst)
	case opCRGROUP:
		return decodeCRGroup(word, inst)
	case opRLWIMI, opRLWINM, opRLWNM:
		return decodeRotate(word, inst)
	case opORI, opORIS, opXORI, opXORIS, opANDIdot, opANDISdot:
		return decodeLogicalImm(word, inst)
	case opXGROUP:
		return decodeXGroup(word, inst)
	case opLWZ, opLWZU, opLBZ, opLBZU, opLHZ, opLHZU, opLHA, opLHAU, opLMW:
		return decodeLoadD(word, inst)
	case opSTW, opSTWU, opSTB, opSTBU, opSTH, opSTHU, opSTMW:
		return decodeStoreD(word, inst)
	case opLFS, opLFSU, opLFD, opLFDU:
		return decodeFloatLoadD(word, inst)
	case opSTFS, opSTFSU, opSTFD, opSTFDU:
		return decodeFloatStoreD(word, inst)
	case opFGROUPS, opFGROUPD:
		return decodeFloatGroup(word, inst)
	}

	return Instruction{}, &DecodeError{Word: word, Address: address}
}
