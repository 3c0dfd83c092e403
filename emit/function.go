package emit

import (
	"fmt"
	"strings"

	"github.com/dolrecomp/dolrecomp/dataflow"
	"github.com/dolrecomp/dolrecomp/ir"
	"github.com/dolrecomp/dolrecomp/rtype"
)

// renderType maps a rtype.Type to a local-variable type name. Pointers are
// rendered as the bare address width rather than a typed reference: every
// memory access already goes through the explicit ctx accessors, so a
// pointer-typed local only ever needs to carry its numeric value.
func renderType(t rtype.Type) string {
	switch t.Kind {
	case rtype.Void, rtype.Unknown:
		return "i32"
	case rtype.Pointer:
		return "u32"
	default:
		return t.String()
	}
}

// FunctionSource is one translated function's emitted text, ready to write
// to fn/<name_or_hex>.src.
type FunctionSource struct {
	Name string
	Text string
}

// abiReturnRegs and abiArgRegs mirror dataflow.SeedABIBoundaryLiveness's
// convention: r3/f1 cross a Return edge, r3-r10/f1-f8 cross a Call or
// Indirect edge. The Emitter uses the same convention to decide which
// locals to write back to CpuContext at each of those points.
var abiReturnRegs = []dataflow.Reg{{Kind: dataflow.GPR, Index: 3}, {Kind: dataflow.FPR, Index: 1}}

func abiArgRegs() []dataflow.Reg {
	var regs []dataflow.Reg
	for i := uint8(3); i <= 10; i++ {
		regs = append(regs, dataflow.Reg{Kind: dataflow.GPR, Index: i})
	}
	for i := uint8(1); i <= 8; i++ {
		regs = append(regs, dataflow.Reg{Kind: dataflow.FPR, Index: i})
	}
	return regs
}

// EmitFunction renders fn as one target-language function named name.
// Locals are hoisted to the top of the body (one per VReg that fn.RegOf
// or an intra-function def ever produces) so that a later block's goto can
// jump over an earlier block's assignment without running into a
// block-scoped declaration; each def site is then a plain assignment, not a
// fresh `let`. Errors returned here mean the caller should fall back to an
// UnsupportedFunction stub per spec.md §4.7.
func EmitFunction(name string, fn *ir.Function) (FunctionSource, error) {
	e := &functionEmitter{fn: fn, current: map[dataflow.Reg]ir.VReg{}, liveIn: map[ir.VReg]dataflow.Reg{}}
	if err := e.collectLocals(); err != nil {
		return FunctionSource{}, err
	}

	var body strings.Builder
	for _, b := range fn.Blocks {
		fmt.Fprintf(&body, "  L_%08X:\n", b.Start)
		for _, in := range b.Instr {
			stmt, err := e.statement(in)
			if err != nil {
				return FunctionSource{}, err
			}
			if stmt != "" {
				body.WriteString(stmt)
			}
		}
	}

	var out strings.Builder
	fmt.Fprintf(&out, "pub fn %s(ctx: &mut CpuContext) {\n", name)
	for _, v := range e.order {
		init := zeroValue(e.types[v])
		if r, ok := e.liveIn[v]; ok {
			init = ctxField(r)
		}
		fmt.Fprintf(&out, "  let mut v%d: %s = %s;\n", v, e.types[v], init)
	}
	out.WriteString(body.String())
	out.WriteString("}\n")

	return FunctionSource{Name: name, Text: out.String()}, nil
}

type functionEmitter struct {
	fn      *ir.Function
	order   []ir.VReg
	types   map[ir.VReg]string
	current map[dataflow.Reg]ir.VReg

	// liveIn holds the architectural register backing every VReg that is
	// never the Dst of a defining instruction: these are read before they
	// are written, so their declaration must seed from CpuContext rather
	// than from a zero value.
	liveIn map[ir.VReg]dataflow.Reg
}

// collectLocals finds every VReg that is ever the destination of a defining
// op, in the order they first appear, and records its rendered type. A
// live-in VReg from fn.RegOf that no instruction ever defines still needs a
// local (seeded from CpuContext), so those are added too, in RegOf's
// (unordered) remainder.
func (e *functionEmitter) collectLocals() error {
	e.types = map[ir.VReg]string{}
	seen := map[ir.VReg]bool{}
	for _, b := range e.fn.Blocks {
		for _, in := range b.Instr {
			if !definesDst(in.Op) {
				continue
			}
			if !seen[in.Dst] {
				seen[in.Dst] = true
				e.order = append(e.order, in.Dst)
				e.types[in.Dst] = renderType(in.Type)
			}
		}
	}
	for v, r := range e.fn.RegOf {
		if seen[v] {
			continue
		}
		seen[v] = true
		e.order = append(e.order, v)
		e.types[v] = regType(r)
		e.liveIn[v] = r
		e.current[r] = v
	}
	return nil
}

func definesDst(op ir.Op) bool {
	switch op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpAnd, ir.OpOr, ir.OpXor,
		ir.OpShl, ir.OpShr, ir.OpRol, ir.OpLoad, ir.OpMove, ir.OpMoveImm,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv, ir.OpFLoad:
		return true
	default:
		return false
	}
}

// statement renders one IR instruction as zero or more lines of target
// source, updating e.current so a later ABI-boundary write-back knows which
// local currently holds each architectural register's value.
func (e *functionEmitter) statement(in ir.Instr) (string, error) {
	if definesDst(in.Op) {
		expr, err := e.defExpr(in)
		if err != nil {
			return "", err
		}
		stmt := fmt.Sprintf("    v%d = %s;\n", in.Dst, expr)
		if r, ok := e.fn.RegOf[in.Dst]; ok {
			e.current[r] = in.Dst
		}
		return stmt, nil
	}

	switch in.Op {
	case ir.OpStore:
		addr := e.addrExpr(in.Args[0], in.Args[1])
		return fmt.Sprintf("    ctx.write_u%d(%s, %s as u%d);\n", in.Width, addr, e.valueExpr(in.Args[2]), in.Width), nil
	case ir.OpFStore:
		addr := e.addrExpr(in.Args[0], in.Args[1])
		fn := "write_f64"
		if in.Width == ir.Width32 {
			fn = "write_f32"
		}
		return fmt.Sprintf("    ctx.%s(%s, %s);\n", fn, addr, e.valueExpr(in.Args[2])), nil
	case ir.OpBranch:
		return fmt.Sprintf("    goto L_%08X;\n", in.Target), nil
	case ir.OpBranchCond:
		return fmt.Sprintf("    if branch_taken(ctx.cr, %d, %d) {\n      goto L_%08X;\n    } else {\n      goto L_%08X;\n    }\n",
			in.BO, in.BI, in.Target, in.Else), nil
	case ir.OpCall:
		return e.callStatement(abiArgRegs(), fmt.Sprintf("0x%08X", in.Target)), nil
	case ir.OpIndirectCall:
		return e.callStatement(abiArgRegs(), e.valueExpr(in.IndirectOn)), nil
	case ir.OpReturn:
		var b strings.Builder
		e.writeBack(&b, abiReturnRegs)
		b.WriteString("    ctx.pc = ctx.lr;\n    return;\n")
		return b.String(), nil
	case ir.OpSetLr:
		if len(in.Args) > 0 {
			return fmt.Sprintf("    ctx.lr = %s;\n", e.valueExpr(in.Args[0])), nil
		}
		return fmt.Sprintf("    ctx.lr = 0x%08X;\n", in.Target), nil
	case ir.OpSetCtr:
		return fmt.Sprintf("    ctx.ctr = %s;\n", e.valueExpr(in.Args[0])), nil
	case ir.OpSetCr:
		return e.setCrStatement(in), nil
	case ir.OpUnsupported:
		return fmt.Sprintf("    unimplemented_instruction(0x%08X);\n", in.Raw), nil
	default:
		return "", &UnsupportedError{Entry: e.fn.Entry, Reason: fmt.Sprintf("cannot render %s", in.Op)}
	}
}

func (e *functionEmitter) callStatement(regs []dataflow.Reg, target string) string {
	var b strings.Builder
	e.writeBack(&b, regs)
	fmt.Fprintf(&b, "    dispatch(%s, ctx);\n", target)
	return b.String()
}

// writeBack emits ctx.<field> = v<N>; for every register in regs that has a
// currently-live local, as a straight-line approximation: it tracks "last assignment encountered in emission order"
// rather than full per-path reaching values, which is exact for the
// overwhelmingly common case of a register set once before the edge that
// needs it.
func (e *functionEmitter) writeBack(b *strings.Builder, regs []dataflow.Reg) {
	for _, r := range regs {
		v, ok := e.current[r]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "    %s = v%d;\n", ctxField(r), v)
	}
}

func (e *functionEmitter) setCrStatement(in ir.Instr) string {
	switch len(in.Args) {
	case 1:
		return fmt.Sprintf("    ctx.cr = set_cr_field(ctx.cr, %d, cmp(%s as i64, 0));\n", in.CRField, e.valueExpr(in.Args[0]))
	case 2:
		return fmt.Sprintf("    ctx.cr = set_cr_field(ctx.cr, %d, cmp(%s as i64, %s as i64));\n", in.CRField, e.valueExpr(in.Args[0]), e.valueExpr(in.Args[1]))
	default:
		return fmt.Sprintf("    // unhandled condition-register update at 0x%08X\n", in.Address)
	}
}

func (e *functionEmitter) defExpr(in ir.Instr) (string, error) {
	bin := func(op string) string { return fmt.Sprintf("%s %s %s", e.valueExpr(in.Args[0]), op, e.valueExpr(in.Args[1])) }
	switch in.Op {
	case ir.OpAdd:
		return bin("+"), nil
	case ir.OpSub:
		return bin("-"), nil
	case ir.OpMul:
		return bin("*"), nil
	case ir.OpDiv:
		return bin("/"), nil
	case ir.OpAnd:
		return bin("&"), nil
	case ir.OpOr:
		return bin("|"), nil
	case ir.OpXor:
		return bin("^"), nil
	case ir.OpShl:
		return bin("<<"), nil
	case ir.OpShr:
		return bin(">>"), nil
	case ir.OpRol:
		args := make([]string, len(in.Args))
		for i, a := range in.Args {
			args[i] = e.valueExpr(a)
		}
		return fmt.Sprintf("rotl32(%s)", strings.Join(args, ", ")), nil
	case ir.OpLoad:
		addr := e.addrExpr(in.Args[0], in.Args[1])
		expr := fmt.Sprintf("ctx.read_u%d(%s)", in.Width, addr)
		if in.Signed {
			expr = fmt.Sprintf("(%s as i%d) as %s", expr, in.Width, renderType(in.Type))
		}
		return expr, nil
	case ir.OpMove:
		return e.valueExpr(in.Args[0]), nil
	case ir.OpMoveImm:
		return e.valueExpr(in.Args[0]), nil
	case ir.OpFAdd:
		return bin("+"), nil
	case ir.OpFSub:
		return bin("-"), nil
	case ir.OpFMul:
		return bin("*"), nil
	case ir.OpFDiv:
		return bin("/"), nil
	case ir.OpFLoad:
		fn := "read_f64"
		if in.Width == ir.Width32 {
			fn = "read_f32"
		}
		return fmt.Sprintf("ctx.%s(%s)", fn, e.addrExpr(in.Args[0], in.Args[1])), nil
	default:
		return "", &UnsupportedError{Entry: e.fn.Entry, Reason: fmt.Sprintf("cannot render %s", in.Op)}
	}
}

// addrExpr renders a memOperand's (base, offset) pair, where offset is
// either a constant displacement (d-form) or an index register's value
// (x-form) -- see ir.memOperand.
func (e *functionEmitter) addrExpr(base, offset ir.Value) string {
	if offset.IsConst() && offset.Const == 0 {
		return e.valueExpr(base)
	}
	return fmt.Sprintf("(%s + %s)", e.valueExpr(base), e.valueExpr(offset))
}

func (e *functionEmitter) valueExpr(v ir.Value) string {
	if v.IsConst() {
		return fmt.Sprintf("%d", v.Const)
	}
	return fmt.Sprintf("v%d", v.VReg)
}

func ctxField(r dataflow.Reg) string {
	switch r.Kind {
	case dataflow.GPR:
		return fmt.Sprintf("ctx.gpr[%d]", r.Index)
	case dataflow.FPR:
		return fmt.Sprintf("ctx.fpr[%d]", r.Index)
	case dataflow.LR:
		return "ctx.lr"
	case dataflow.CTR:
		return "ctx.ctr"
	default:
		return "ctx.cr"
	}
}

func regType(r dataflow.Reg) string {
	if r.Kind == dataflow.FPR {
		return "f64"
	}
	return "i32"
}

func zeroValue(typ string) string {
	if strings.HasPrefix(typ, "f") {
		return "0.0"
	}
	return "0"
}
