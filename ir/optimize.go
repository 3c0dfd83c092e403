package ir

// Optimize runs the passes spec.md §4.6 specifies, in the order constant
// folding depends least on: peephole first (exposes foldable patterns and
// plain Moves), constant folding to a fixed point, copy propagation once,
// redundant-load elimination, then dead-code elimination to a fixed point
// (which benefits from everything above having simplified definitions
// first). The optimizer never reorders or removes stores, SPR writes,
// calls, or branches.
func Optimize(fn *Function) {
	for _, b := range fn.Blocks {
		peephole(b)
		foldConstantsToFixedPoint(b)
		propagateCopiesOnce(b)
		eliminateRedundantLoads(b)
	}
	eliminateDeadCodeToFixedPoint(fn)
}

func isPure(op Op) bool {
	switch op {
	case OpStore, OpFStore, OpBranch, OpBranchCond, OpCall, OpIndirectCall, OpReturn, OpSetLr, OpSetCtr, OpSetCr, OpUnsupported:
		return false
	default:
		return true
	}
}

// peephole rewrites a handful of algebraic identities directly on the
// instruction stream: Add/Or/Shl by zero become Move, self-XOR becomes
// MoveImm 0, and multiply by a power of two becomes a shift.
func peephole(b *Block) {
	for i, in := range b.Instr {
		switch in.Op {
		case OpAdd, OpOr, OpShl:
			if len(in.Args) == 2 && in.Args[1].IsConst() && in.Args[1].Const == 0 {
				b.Instr[i] = Instr{Op: OpMove, Address: in.Address, Dst: in.Dst, Args: []Value{in.Args[0]}, Type: in.Type}
			}
		case OpXor:
			if len(in.Args) == 2 && in.Args[0].IsSameVReg(in.Args[1]) {
				b.Instr[i] = Instr{Op: OpMoveImm, Address: in.Address, Dst: in.Dst, Args: []Value{ConstValue(0)}, Type: in.Type}
			}
		case OpMul:
			if len(in.Args) == 2 && in.Args[1].IsConst() {
				if shift, ok := powerOfTwoShift(in.Args[1].Const); ok {
					b.Instr[i] = Instr{Op: OpShl, Address: in.Address, Dst: in.Dst, Args: []Value{in.Args[0], ConstValue(shift)}, Type: in.Type}
				}
			}
		}
	}
}

func powerOfTwoShift(v int64) (int64, bool) {
	if v <= 0 {
		return 0, false
	}
	shift := int64(0)
	for v > 1 {
		if v%2 != 0 {
			return 0, false
		}
		v /= 2
		shift++
	}
	return shift, true
}

// foldConstantsToFixedPoint replaces any op whose inputs are all constants
// with an equivalent MoveImm, re-running until no further instruction
// qualifies. A VReg arg that a prior MoveImm in the same block produced
// counts as constant too, so a def site doesn't have to be a literal
// operand to fold once its value is known.
func foldConstantsToFixedPoint(b *Block) {
	changed := true
	for changed {
		changed = false
		known := map[VReg]int64{}
		for i, in := range b.Instr {
			resolved := make([]Value, len(in.Args))
			for ai, a := range in.Args {
				if a.Kind == ValueVReg {
					if c, ok := known[a.VReg]; ok {
						a = ConstValue(c)
					}
				}
				resolved[ai] = a
			}
			if folded, ok := foldConstant(Instr{Op: in.Op, Address: in.Address, Dst: in.Dst, Args: resolved, Type: in.Type}); ok {
				if !(in.Op == OpMoveImm && in.Args[0].Const == folded.Args[0].Const) {
					changed = true
				}
				b.Instr[i] = folded
				in = folded
			}
			if in.Op == OpMoveImm {
				known[in.Dst] = in.Args[0].Const
			}
		}
	}
}

func foldConstant(in Instr) (Instr, bool) {
	if in.Op == OpMoveImm || len(in.Args) == 0 {
		return Instr{}, false
	}
	for _, a := range in.Args {
		if !a.IsConst() {
			return Instr{}, false
		}
	}
	var result int64
	switch in.Op {
	case OpAdd:
		result = in.Args[0].Const + in.Args[1].Const
	case OpSub:
		result = in.Args[0].Const - in.Args[1].Const
	case OpMul:
		result = in.Args[0].Const * in.Args[1].Const
	case OpDiv:
		if in.Args[1].Const == 0 {
			return Instr{}, false
		}
		result = in.Args[0].Const / in.Args[1].Const
	case OpAnd:
		result = in.Args[0].Const & in.Args[1].Const
	case OpOr:
		result = in.Args[0].Const | in.Args[1].Const
	case OpXor:
		result = in.Args[0].Const ^ in.Args[1].Const
	case OpShl:
		result = in.Args[0].Const << uint(in.Args[1].Const)
	case OpShr:
		result = in.Args[0].Const >> uint(in.Args[1].Const)
	default:
		return Instr{}, false
	}
	return Instr{Op: OpMoveImm, Address: in.Address, Dst: in.Dst, Args: []Value{ConstValue(result)}, Type: in.Type}, true
}

// propagateCopiesOnce rewrites later reads of a Move's destination to read
// its source directly, a single forward pass (spec.md §4.6 specifies this
// runs once, not to fixed point).
func propagateCopiesOnce(b *Block) {
	copies := map[VReg]Value{}
	for i, in := range b.Instr {
		for ai, a := range in.Args {
			if a.Kind == ValueVReg {
				if src, ok := copies[a.VReg]; ok {
					b.Instr[i].Args[ai] = src
				}
			}
		}
		if in.Op == OpMove && len(in.Args) == 1 {
			copies[in.Dst] = resolveCopy(copies, in.Args[0])
		}
	}
}

func resolveCopy(copies map[VReg]Value, v Value) Value {
	for v.Kind == ValueVReg {
		next, ok := copies[v.VReg]
		if !ok {
			break
		}
		v = next
	}
	return v
}

// eliminateRedundantLoads removes a Load whose base/displacement exactly
// match an earlier Load in the same block, as long as no intervening Store
// to the same base register could alias it. A Store through an unknown
// (non-constant-displacement) base invalidates every cached load, since its
// target can't be distinguished from any of them.
func eliminateRedundantLoads(b *Block) {
	type key struct {
		base  VReg
		disp  int64
		width Width
	}
	available := map[key]VReg{}
	copies := map[VReg]Value{}

	for i, in := range b.Instr {
		switch in.Op {
		case OpLoad, OpFLoad:
			if len(in.Args) != 2 || in.Args[0].Kind != ValueVReg || !in.Args[1].IsConst() {
				continue
			}
			k := key{base: resolveCopy(copies, in.Args[0]).VReg, disp: in.Args[1].Const, width: in.Width}
			if prior, ok := available[k]; ok {
				b.Instr[i] = Instr{Op: OpMove, Address: in.Address, Dst: in.Dst, Args: []Value{RegValue(prior)}, Type: in.Type}
				copies[in.Dst] = RegValue(prior)
				continue
			}
			available[k] = in.Dst
		case OpStore, OpFStore:
			if len(in.Args) < 2 || in.Args[0].Kind != ValueVReg || !in.Args[1].IsConst() {
				available = map[key]VReg{} // unknown base: invalidate conservatively
				continue
			}
			storeBase := resolveCopy(copies, in.Args[0]).VReg
			for k := range available {
				if k.base == storeBase {
					delete(available, k) // same base register: may alias regardless of displacement match
				}
			}
		}
	}
}

// eliminateDeadCodeToFixedPoint removes any pure instruction whose
// destination is never read by a later IR instruction and is not one of
// fn.LiveOutDefs, iterating since removing one dead def can make the
// instructions that fed it dead too. Genuinely dead architectural
// definitions (including the ABI-boundary approximation at Return/Call
// edges) never reach the IR in the first place — Lower skips them using
// dataflow.Result.Dead — but an architectural definition dataflow kept
// because a later definition in the same block was reachable isn't
// automatically safe here too: fold/copy-propagation/redundant-load
// elimination can strand an earlier definition's sole IR consumer, and only
// the block's actual last definition of each live-out register still needs
// to reach the Emitter's CpuContext write-back.
func eliminateDeadCodeToFixedPoint(fn *Function) {
	changed := true
	for changed {
		changed = false
		used := map[VReg]bool{}
		for _, b := range fn.Blocks {
			for _, in := range b.Instr {
				for _, a := range in.Args {
					if a.Kind == ValueVReg {
						used[a.VReg] = true
					}
				}
				if in.IndirectOn.Kind == ValueVReg {
					used[in.IndirectOn.VReg] = true
				}
			}
		}
		for _, b := range fn.Blocks {
			kept := b.Instr[:0]
			for _, in := range b.Instr {
				if isPure(in.Op) && !used[in.Dst] && !fn.LiveOutDefs[in.Dst] {
					changed = true
					continue
				}
				kept = append(kept, in)
			}
			b.Instr = kept
		}
	}
}
