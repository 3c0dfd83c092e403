package ppc

// Bitfield extraction for the PowerPC instruction forms. Field names follow
// the architecture manual (RT/RA/RB/D/SI/UI/BD/LI/XO/...). Grounded on the
// teacher's cpu/address.go shift-and-mask style for pulling fields out of a
// fixed-width instruction word.

func primaryOp(word uint32) uint32 { return word >> 26 }

func fieldRT(word uint32) uint8 { return uint8((word >> 21) & 0x1F) }
func fieldRS(word uint32) uint8 { return uint8((word >> 21) & 0x1F) }
func fieldRA(word uint32) uint8 { return uint8((word >> 16) & 0x1F) }
func fieldRB(word uint32) uint8 { return uint8((word >> 11) & 0x1F) }
func fieldFRT(word uint32) uint8 { return uint8((word >> 21) & 0x1F) }
func fieldFRA(word uint32) uint8 { return uint8((word >> 16) & 0x1F) }
func fieldFRB(word uint32) uint8 { return uint8((word >> 11) & 0x1F) }
func fieldFRC(word uint32) uint8 { return uint8((word >> 6) & 0x1F) }

func fieldXO10(word uint32) uint32 { return (word >> 1) & 0x3FF }
func fieldXO9(word uint32) uint32  { return (word >> 1) & 0x1FF }
func fieldXO5(word uint32) uint32  { return (word >> 1) & 0x1F }
func fieldRc(word uint32) bool     { return word&1 != 0 }
func fieldOE(word uint32) bool     { return (word>>10)&1 != 0 }

func fieldSI(word uint32) int32  { return int32(int16(word & 0xFFFF)) }
func fieldUI(word uint32) uint32 { return word & 0xFFFF }
func fieldD(word uint32) int32   { return int32(int16(word & 0xFFFF)) }

func fieldBF(word uint32) uint8 { return uint8((word >> 23) & 0x7) }
func fieldL(word uint32) bool   { return (word>>21)&1 != 0 }

func fieldBO(word uint32) uint8 { return uint8((word >> 21) & 0x1F) }
func fieldBI(word uint32) uint8 { return uint8((word >> 16) & 0x1F) }
func fieldBD(word uint32) int32 {
	raw := word & 0xFFFC
	return signExtend16(uint16(raw))
}
func fieldAA(word uint32) bool { return (word>>1)&1 != 0 }
func fieldLK(word uint32) bool { return word&1 != 0 }

func fieldLI(word uint32) int32 {
	raw := word & 0x03FFFFFC
	if raw&0x02000000 != 0 {
		return int32(raw) - 0x04000000
	}
	return int32(raw)
}

func fieldSH(word uint32) uint8 { return uint8((word >> 11) & 0x1F) }
func fieldMB(word uint32) uint8 { return uint8((word >> 6) & 0x1F) }
func fieldME(word uint32) uint8 { return uint8((word >> 1) & 0x1F) }

func fieldSPR(word uint32) uint16 {
	raw := (word >> 11) & 0x3FF
	// SPR is encoded as two swapped 5-bit halves.
	lo := raw & 0x1F
	hi := (raw >> 5) & 0x1F
	return uint16(lo<<5 | hi)
}

func fieldCRbD(word uint32) uint8 { return uint8((word >> 21) & 0x1F) }
func fieldCRbA(word uint32) uint8 { return uint8((word >> 16) & 0x1F) }
func fieldCRbB(word uint32) uint8 { return uint8((word >> 11) & 0x1F) }

func signExtend16(v uint16) int32 { return int32(int16(v)) }
