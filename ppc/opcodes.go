package ppc

// Primary opcodes (top 6 bits of the word).
const (
	opMULLI   = 7
	opSUBFIC  = 8
	opCMPLI   = 10
	opCMPI    = 11
	opADDIC   = 12
	opADDICdot = 13
	opADDI    = 14
	opADDIS   = 15
	opBC      = 16
	opB       = 18
	opCRGROUP = 19 // bclr, bcctr, cror/crand/..., isync
	opRLWIMI  = 20
	opRLWINM  = 21
	opRLWNM   = 23
	opORI     = 24
	opORIS    = 25
	opXORI    = 26
	opXORIS   = 27
	opANDIdot = 28
	opANDISdot = 29
	opXGROUP  = 31 // add, subf, and, or, loads/stores indexed, system moves
	opLWZ     = 32
	opLWZU    = 33
	opLBZ     = 34
	opLBZU    = 35
	opSTW     = 36
	opSTWU    = 37
	opSTB     = 38
	opSTBU    = 39
	opLHZ     = 40
	opLHZU    = 41
	opLHA     = 42
	opLHAU    = 43
	opSTH     = 44
	opSTHU    = 45
	opLMW     = 46
	opSTMW    = 47
	opLFS     = 48
	opLFSU    = 49
	opLFD     = 50
	opLFDU    = 51
	opSTFS    = 52
	opSTFSU   = 53
	opSTFD    = 54
	opSTFDU   = 55
	opFGROUPS = 59 // single-precision float arithmetic (A-form)
	opFGROUPD = 63 // double-precision float arithmetic/compare
)

// Extended (secondary) opcodes under primary 31 (X-form, XO-form).
const (
	xoCMP    = 0   // compare (X-form, re-using primary 31)
	xoCMPL   = 32
	xoADD    = 266
	xoADDC   = 10
	xoADDE   = 138
	xoSUBF   = 40
	xoSUBFC  = 8
	xoSUBFE  = 136
	xoNEG    = 104
	xoMULLW  = 235
	xoMULHW  = 75
	xoMULHWU = 11
	xoDIVW   = 491
	xoDIVWU  = 459
	xoAND    = 28
	xoOR     = 444
	xoXOR    = 316
	xoNAND   = 476
	xoNOR    = 124
	xoANDC   = 60
	xoORC    = 412
	xoEQV    = 284
	xoSLW    = 24
	xoSRW    = 536
	xoSRAW   = 792
	xoSRAWI  = 824
	xoEXTSB  = 954
	xoEXTSH  = 922
	xoLWZX   = 23
	xoSTWX   = 151
	xoLBZX   = 87
	xoSTBX   = 215
	xoLHZX   = 279
	xoSTHX   = 407
	xoMTSPR  = 467
	xoMFSPR  = 339
	xoMTCRF  = 144
	xoMFCR   = 19
	xoMFMSR  = 83
	xoMTMSR  = 146
	xoSYNC   = 598
	xoISYNC  = 150
	xoDCBF   = 86
	xoDCBST  = 54
	xoDCBT   = 278
	xoICBI   = 982
	xoTW     = 4
	xoBCLR   = 16
	xoBCCTR  = 528
	xoMCRF   = 0
	xoCRAND  = 257
	xoCROR   = 449
	xoCRXOR  = 193
	xoCRNAND = 225
	xoCRNOR  = 33
	xoCREQV  = 289
)

// Special-purpose register ids used by mtspr/mfspr.
const (
	sprXER = 1

	// SPRLR and SPRCTR are exported since callers outside this package (the
	// IR lowering pass) need to recognize which SPR a mtspr/mfspr targets.
	SPRLR  = 8
	SPRCTR = 9
)
