// Package typeinfer assigns a rtype.Type to every definition site in a
// function: symbol-source hints first, then instruction semantics, then a
// default signed 32-bit integer, propagated across reaching-definition
// chains until the types at every use stabilize. Grounded on the same
// fixed-point-over-a-worklist idiom as cfg's dominator computation and
// dataflow's liveness analysis.
package typeinfer

import (
	"fmt"

	"github.com/dolrecomp/dolrecomp/cfg"
	"github.com/dolrecomp/dolrecomp/dataflow"
	"github.com/dolrecomp/dolrecomp/ppc"
	"github.com/dolrecomp/dolrecomp/rtype"
	"github.com/dolrecomp/dolrecomp/symbols"
)

// Conflict records a def/use pair where two different known types collided
// and were widened to Unknown.
type Conflict struct {
	Address uint32
	Reg     dataflow.Reg
	A, B    rtype.Type
}

func (c Conflict) String() string {
	return fmt.Sprintf("0x%08X: type conflict on %+v: %s vs %s", c.Address, c.Reg, c.A, c.B)
}

// Result is the inferred type of every definition site, keyed by address,
// plus any conflicts encountered during unification.
type Result struct {
	DefTypes  map[uint32]rtype.Type
	Conflicts []Conflict

	// ParamTypes and ReturnType carry the symbol source's function-signature
	// hints through unchanged; they do not participate in def-use
	// unification since parameter registers are live-in rather than locally
	// defined, and the Emitter does not read them (every emitted function
	// takes only the CpuContext).
	ParamTypes []rtype.Type
	ReturnType rtype.Type
}

// TypeOf returns the inferred type at a definition address, or Unknown if
// the address never defined a register.
func (r *Result) TypeOf(addr uint32) rtype.Type {
	if t, ok := r.DefTypes[addr]; ok {
		return t
	}
	return rtype.UnknownT
}

// Infer seeds and propagates types over g's def-use chains (computed by
// df), using fn's symbol-source hints as the highest-priority seed.
func Infer(g *cfg.Graph, df *dataflow.Result, fn symbols.Function) *Result {
	r := &Result{
		DefTypes:   make(map[uint32]rtype.Type),
		ParamTypes: fn.ParameterTypes,
		ReturnType: fn.ReturnType,
	}

	for _, b := range g.Blocks {
		for _, inst := range b.Instructions {
			defs, _ := defsUses(inst)
			for _, def := range defs {
				r.DefTypes[inst.Address] = seedType(inst, def)
			}
		}
	}

	propagate(g, df, r)
	return r
}

// seedType implements priorities (b) and (c) of spec.md §4.5: instruction
// semantics, then the Int{signed,32} default. Priority (a), the symbol
// source's function-signature hints, is carried separately in
// Result.ParamTypes/ReturnType since parameter registers are live-in rather
// than locally defined.
func seedType(inst ppc.Instruction, def dataflow.Reg) rtype.Type {
	switch inst.Mnemonic {
	case "lbz", "lbzu":
		return rtype.U8
	case "lha", "lhau":
		return rtype.I16
	case "lhz", "lhzu":
		return rtype.U16
	case "lwz", "lwzu":
		return rtype.U32
	case "lfs":
		return rtype.F32
	case "lfd":
		return rtype.F64
	}
	switch inst.Class {
	case ppc.ClassFloatArith:
		if inst.Mnemonic == "fadds" || inst.Mnemonic == "fsubs" || inst.Mnemonic == "fmuls" || inst.Mnemonic == "fdivs" {
			return rtype.F32
		}
		return rtype.F64
	case ppc.ClassFloatMem:
		return rtype.F64
	}
	if def.Kind == dataflow.FPR {
		return rtype.F64
	}
	return rtype.I32
}

// propagate unifies each def's type with the types at its reaching uses,
// iterating to a fixed point. A register feeding a load/store base address
// is treated as a pointer context for rtype.Unify.
func propagate(g *cfg.Graph, df *dataflow.Result, r *Result) {
	changed := true
	for changed {
		changed = false
		for _, blk := range g.Blocks {
			for _, inst := range blk.Instructions {
				asPointerContext := inst.Class == ppc.ClassLoad || inst.Class == ppc.ClassStore || inst.Class == ppc.ClassFloatMem
				uses := df.ReachingDefs[inst.Address]
				for _, defs := range uses {
					for _, d := range defs {
						defType := r.DefTypes[d.Address]
						useType := r.DefTypes[inst.Address]
						if useType.Kind == rtype.Void {
							continue
						}
						widened := rtype.Unify(defType, useType, asPointerContext)
						if isHardConflict(defType, useType, widened) {
							r.Conflicts = append(r.Conflicts, Conflict{Address: d.Address, Reg: d.Reg, A: defType, B: useType})
						}
						if !widened.Equal(defType) {
							r.DefTypes[d.Address] = widened
							changed = true
						}
					}
				}
			}
		}
	}
}

func isHardConflict(a, b, widened rtype.Type) bool {
	return widened.Kind == rtype.Unknown && a.Kind != rtype.Unknown && b.Kind != rtype.Unknown && !a.Equal(b)
}

// defsUses mirrors dataflow's unexported register model at the granularity
// typeinfer needs: which registers a definition touches, so this package
// doesn't need to import dataflow's internals beyond its exported Reg type.
func defsUses(inst ppc.Instruction) (defs []dataflow.Reg, uses []dataflow.Reg) {
	switch inst.Class {
	case ppc.ClassArithmetic, ppc.ClassLogical, ppc.ClassShift, ppc.ClassRotate, ppc.ClassLoad:
		if len(inst.Operands) == 0 {
			return nil, nil
		}
		if inst.Operands[0].Kind == ppc.OperandGPR {
			defs = append(defs, dataflow.Reg{Kind: dataflow.GPR, Index: inst.Operands[0].Reg})
		}
	case ppc.ClassFloatArith, ppc.ClassFloatMem:
		if len(inst.Operands) == 0 {
			return nil, nil
		}
		if inst.Mnemonic == "stfs" || inst.Mnemonic == "stfd" {
			return nil, nil
		}
		defs = append(defs, dataflow.Reg{Kind: dataflow.FPR, Index: inst.Operands[0].Reg})
	}
	return defs, uses
}
