// Package dataflow builds def-use chains and live-variable sets over a
// function's control-flow graph, and records which instructions dead-code
// elimination may safely remove. The backward fixed-point iteration follows
// the same worklist-to-convergence shape as the teacher's addrQueue
// reachability pass, generalized from "visited once" to "iterate until no
// set changes".
package dataflow

import (
	"github.com/dolrecomp/dolrecomp/cfg"
	"github.com/dolrecomp/dolrecomp/ppc"
)

// Definition is one (register, instruction) write site.
type Definition struct {
	Reg     Reg
	Block   cfg.BlockID
	Address uint32
}

// Use is one (register, instruction) read site.
type Use struct {
	Reg     Reg
	Block   cfg.BlockID
	Address uint32
}

// Result holds the analyzed def-use chains, liveness sets, and the
// dead-instruction side table for one function.
type Result struct {
	// ReachingDefs[addr] is the set of definitions that may reach the use
	// site at addr, keyed by register.
	ReachingDefs map[uint32]map[Reg][]Definition

	LiveIn  map[cfg.BlockID]map[Reg]bool
	LiveOut map[cfg.BlockID]map[Reg]bool

	// Dead records addresses of instructions DCE determined are
	// unreachable in their effect (all defined registers dead at exit, no
	// side effects). ir.Lower skips these instructions, so nothing is
	// emitted for them.
	Dead map[uint32]bool
}

// Analyze runs reaching-definitions, live-variable analysis, and dead-code
// marking over g.
func Analyze(g *cfg.Graph) *Result {
	r := &Result{
		ReachingDefs: make(map[uint32]map[Reg][]Definition),
		LiveIn:       make(map[cfg.BlockID]map[Reg]bool),
		LiveOut:      make(map[cfg.BlockID]map[Reg]bool),
		Dead:         make(map[uint32]bool),
	}
	blockDefs, blockUses := computeDefUse(g)
	computeReachingDefinitions(g, r)
	computeLiveness(g, r, blockDefs, blockUses)
	markDead(g, r)
	return r
}

// computeDefUse precomputes the def() and use() sets per block, the
// standard gen/kill inputs to both reaching-definitions and liveness.
func computeDefUse(g *cfg.Graph) (defs, uses map[cfg.BlockID]map[Reg]bool) {
	defs = make(map[cfg.BlockID]map[Reg]bool, len(g.Blocks))
	uses = make(map[cfg.BlockID]map[Reg]bool, len(g.Blocks))
	for _, b := range g.Blocks {
		d := map[Reg]bool{}
		u := map[Reg]bool{}
		for _, inst := range b.Instructions {
			bdefs, buses := defsUses(inst)
			for _, use := range buses {
				if !d[use] {
					u[use] = true
				}
			}
			for _, def := range bdefs {
				d[def] = true
			}
		}
		defs[b.ID] = d
		uses[b.ID] = u
	}
	return defs, uses
}

// computeReachingDefinitions computes, for each block, the set of
// definitions reaching its entry (joining across predecessors to a fixed
// point), then replays each block's instructions locally to attach the
// reaching set to every use site.
func computeReachingDefinitions(g *cfg.Graph, r *Result) {
	preds := make(map[cfg.BlockID][]cfg.BlockID, len(g.Blocks))
	for _, b := range g.Blocks {
		for _, e := range b.Edges {
			if e.To != cfg.ExitBlock {
				preds[e.To] = append(preds[e.To], b.ID)
			}
		}
	}

	in := make(map[cfg.BlockID]map[Reg][]Definition, len(g.Blocks))
	out := make(map[cfg.BlockID]map[Reg][]Definition, len(g.Blocks))
	for _, b := range g.Blocks {
		in[b.ID] = map[Reg][]Definition{}
		out[b.ID] = map[Reg][]Definition{}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range g.Blocks {
			joined := map[Reg][]Definition{}
			for _, p := range preds[b.ID] {
				for reg, ds := range out[p] {
					joined[reg] = mergeDefs(joined[reg], ds)
				}
			}
			reaching := cloneReaching(joined)
			for _, inst := range b.Instructions {
				bdefs, _ := defsUses(inst)
				for _, def := range bdefs {
					reaching[def] = []Definition{{Reg: def, Block: b.ID, Address: inst.Address}}
				}
			}
			if !reachingEqual(joined, in[b.ID]) || !reachingEqual(reaching, out[b.ID]) {
				in[b.ID] = joined
				out[b.ID] = reaching
				changed = true
			}
		}
	}

	for _, b := range g.Blocks {
		reaching := cloneReaching(in[b.ID])
		for _, inst := range b.Instructions {
			_, buses := defsUses(inst)
			for _, use := range buses {
				r.addUse(inst.Address, use, reaching[use])
			}
			bdefs, _ := defsUses(inst)
			for _, def := range bdefs {
				reaching[def] = []Definition{{Reg: def, Block: b.ID, Address: inst.Address}}
			}
		}
	}
}

func mergeDefs(a, b []Definition) []Definition {
	seen := map[Definition]bool{}
	out := make([]Definition, 0, len(a)+len(b))
	for _, d := range append(append([]Definition{}, a...), b...) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func cloneReaching(m map[Reg][]Definition) map[Reg][]Definition {
	out := make(map[Reg][]Definition, len(m))
	for k, v := range m {
		out[k] = append([]Definition{}, v...)
	}
	return out
}

func reachingEqual(a, b map[Reg][]Definition) bool {
	if len(a) != len(b) {
		return false
	}
	for reg, ds := range a {
		other, ok := b[reg]
		if !ok || len(ds) != len(other) {
			return false
		}
		seen := map[Definition]bool{}
		for _, d := range other {
			seen[d] = true
		}
		for _, d := range ds {
			if !seen[d] {
				return false
			}
		}
	}
	return true
}

func (r *Result) addUse(addr uint32, reg Reg, defs []Definition) {
	m, ok := r.ReachingDefs[addr]
	if !ok {
		m = map[Reg][]Definition{}
		r.ReachingDefs[addr] = m
	}
	m[reg] = append(m[reg], defs...)
}

func computeLiveness(g *cfg.Graph, r *Result, defs, uses map[cfg.BlockID]map[Reg]bool) {
	for _, b := range g.Blocks {
		r.LiveIn[b.ID] = map[Reg]bool{}
		r.LiveOut[b.ID] = map[Reg]bool{}
	}

	succs := make(map[cfg.BlockID][]cfg.BlockID, len(g.Blocks))
	for _, b := range g.Blocks {
		for _, e := range b.Edges {
			if e.To != cfg.ExitBlock {
				succs[b.ID] = append(succs[b.ID], e.To)
			}
		}
	}

	changed := true
	for changed {
		changed = false
		for i := len(g.Blocks) - 1; i >= 0; i-- {
			b := g.Blocks[i]
			out := map[Reg]bool{}
			for _, s := range succs[b.ID] {
				for reg := range r.LiveIn[s] {
					out[reg] = true
				}
			}
			in := map[Reg]bool{}
			for reg := range uses[b.ID] {
				in[reg] = true
			}
			for reg := range out {
				if !defs[b.ID][reg] {
					in[reg] = true
				}
			}
			if !regSetEqual(in, r.LiveIn[b.ID]) || !regSetEqual(out, r.LiveOut[b.ID]) {
				r.LiveIn[b.ID] = in
				r.LiveOut[b.ID] = out
				changed = true
			}
		}
	}
}

// markDead walks each block backward, tracking which registers are live
// past the current point, and marks an instruction dead when none of its
// defined registers are live and it has no side effect.
func markDead(g *cfg.Graph, r *Result) {
	for _, b := range g.Blocks {
		live := map[Reg]bool{}
		for reg := range r.LiveOut[b.ID] {
			live[reg] = true
		}
		SeedABIBoundaryLiveness(b, live)
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			inst := b.Instructions[i]
			bdefs, buses := defsUses(inst)

			anyLive := false
			for _, def := range bdefs {
				if live[def] {
					anyLive = true
				}
			}
			if len(bdefs) > 0 && !anyLive && !hasSideEffect(inst) {
				r.Dead[inst.Address] = true
			} else {
				for _, def := range bdefs {
					delete(live, def)
				}
				for _, use := range buses {
					live[use] = true
				}
			}
		}
	}
}

// SeedABIBoundaryLiveness marks the PowerPC ABI's argument and return
// registers live across edges this intra-procedural analysis can't see
// past: a Return edge crosses into the caller, and a Call/Indirect edge
// crosses into a callee, neither of which contributes to this function's
// own CFG. Without this, a function's return value (or a call's last
// argument setup) looks like a dead store whenever nothing later in the
// same function happens to read it back. Exported so ir.Lower can apply the
// same approximation when deciding which architectural-register definitions
// must survive Optimize's dead-code elimination.
func SeedABIBoundaryLiveness(b *cfg.Block, live map[Reg]bool) {
	for _, e := range b.Edges {
		switch e.Kind {
		case cfg.Return:
			live[Reg{Kind: GPR, Index: 3}] = true
			live[Reg{Kind: FPR, Index: 1}] = true
		case cfg.Call, cfg.Indirect:
			for i := uint8(3); i <= 10; i++ {
				live[Reg{Kind: GPR, Index: i}] = true
			}
			for i := uint8(1); i <= 8; i++ {
				live[Reg{Kind: FPR, Index: i}] = true
			}
		}
	}
}

// hasSideEffect reports whether removing this instruction (even though its
// defined registers are all dead) would change observable behavior: memory
// writes, SPR moves, and link-register mutation on a call must survive.
func hasSideEffect(inst ppc.Instruction) bool {
	switch inst.Class {
	case ppc.ClassStore, ppc.ClassFloatMem:
		if inst.Mnemonic == "lfs" || inst.Mnemonic == "lfd" {
			return false
		}
		return true
	case ppc.ClassBranch, ppc.ClassSystem:
		return true
	}
	if len(inst.Operands) > 0 && inst.Operands[0].Link {
		return true
	}
	return false
}

func regSetEqual(a, b map[Reg]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
