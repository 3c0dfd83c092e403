package emit_test

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/dolrecomp/dolrecomp/cfg"
	"github.com/dolrecomp/dolrecomp/dataflow"
	"github.com/dolrecomp/dolrecomp/emit"
	"github.com/dolrecomp/dolrecomp/image"
	"github.com/dolrecomp/dolrecomp/ir"
	"github.com/dolrecomp/dolrecomp/symbols"
	"github.com/dolrecomp/dolrecomp/typeinfer"
)

func buildImage(t *testing.T, words []uint32) *image.Image {
	t.Helper()
	const headerSize = 0x100
	textBytes := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(textBytes[i*4:], w)
	}
	buf := make([]byte, headerSize+len(textBytes))
	binary.BigEndian.PutUint32(buf[0x00:], headerSize)
	binary.BigEndian.PutUint32(buf[0x48:], 0x80003000)
	binary.BigEndian.PutUint32(buf[0x90:], uint32(len(textBytes)))
	binary.BigEndian.PutUint32(buf[0xE0:], 0x80003000)
	copy(buf[headerSize:], textBytes)
	img, err := image.Load(buf)
	if err != nil {
		t.Fatalf("image.Load failed: %v", err)
	}
	return img
}

func lowerAndOptimize(t *testing.T, words []uint32) *ir.Function {
	t.Helper()
	img := buildImage(t, words)
	g, err := cfg.Build(img, 0x80003000, 0)
	if err != nil {
		t.Fatalf("cfg.Build failed: %v", err)
	}
	df := dataflow.Analyze(g)
	ti := typeinfer.Infer(g, df, symbols.Function{Entry: 0x80003000})
	fn := ir.Lower(g, df, ti)
	ir.Optimize(fn)
	return fn
}

func TestEmitFunctionArithmeticAndReturn(t *testing.T) {
	// li r3,5 ; li r4,3 ; add r3,r3,r4 ; blr -- spec.md scenario 2.
	fn := lowerAndOptimize(t, []uint32{0x38600005, 0x38800003, 0x7C632214, 0x4E800020})
	src, err := emit.EmitFunction("fn_80003000", fn)
	if err != nil {
		t.Fatalf("EmitFunction failed: %v", err)
	}
	if !strings.Contains(src.Text, "pub fn fn_80003000(ctx: &mut CpuContext)") {
		t.Errorf("missing function signature:\n%s", src.Text)
	}
	if !strings.Contains(src.Text, "ctx.gpr[3] = v") {
		t.Errorf("expected a write-back of r3 before return:\n%s", src.Text)
	}
	if !strings.Contains(src.Text, "ctx.pc = ctx.lr;") || !strings.Contains(src.Text, "return;") {
		t.Errorf("expected a return sequence:\n%s", src.Text)
	}
}

func TestEmitFunctionConditionalBranch(t *testing.T) {
	// cmpwi r3,0 ; beq +8 ; add r5,r3,r4 ; blr
	fn := lowerAndOptimize(t, []uint32{0x2C030000, 0x41820008, 0x7CA32214, 0x4E800020})
	src, err := emit.EmitFunction("fn_80003000", fn)
	if err != nil {
		t.Fatalf("EmitFunction failed: %v", err)
	}
	if !strings.Contains(src.Text, "branch_taken(ctx.cr, 12, 2)") {
		t.Errorf("expected a branch_taken predicate with BO=12 BI=2:\n%s", src.Text)
	}
	if !strings.Contains(src.Text, "goto L_8000300C;") {
		t.Errorf("expected a goto to the taken target:\n%s", src.Text)
	}
	if !strings.Contains(src.Text, "L_80003000:") {
		t.Errorf("expected the entry block's label:\n%s", src.Text)
	}
}

func TestEmitFunctionCall(t *testing.T) {
	words := make([]uint32, 0x100/4+2)
	words[0] = 0x48000101 // bl 0x80003100
	words[1] = 0x4E800020
	words[0x100/4] = 0x4E800020
	fn := lowerAndOptimize(t, words)
	src, err := emit.EmitFunction("fn_80003000", fn)
	if err != nil {
		t.Fatalf("EmitFunction failed: %v", err)
	}
	if !strings.Contains(src.Text, "dispatch(0x80003100, ctx);") {
		t.Errorf("expected a dispatch call to the callee's entry address:\n%s", src.Text)
	}
	if !strings.Contains(src.Text, "ctx.lr = 0x80003004;") {
		t.Errorf("expected bl to set the link register to the return address:\n%s", src.Text)
	}
}

func TestEmitFunctionUnsupportedInstruction(t *testing.T) {
	// 0xFFFFFFFF ; blr -- a decode failure the pipeline carries forward
	// inline (spec scenario 5) instead of aborting the whole function.
	fn := lowerAndOptimize(t, []uint32{0xFFFFFFFF, 0x4E800020})
	src, err := emit.EmitFunction("fn_80003000", fn)
	if err != nil {
		t.Fatalf("EmitFunction failed: %v", err)
	}
	if !strings.Contains(src.Text, "unimplemented_instruction(0xFFFFFFFF);") {
		t.Errorf("expected an inline unimplemented_instruction call:\n%s", src.Text)
	}
}

func TestStubFunctionSignalsUnsupportedFunction(t *testing.T) {
	src := emit.StubFunction("fn_80003000", 0x80003000)
	if !strings.Contains(src.Text, "panic_unsupported_function(0x80003000);") {
		t.Errorf("expected the stub to signal UnsupportedFunction:\n%s", src.Text)
	}
}

func TestFunctionNameFallsBackToHex(t *testing.T) {
	if got := emit.FunctionName(0x80003000, ""); got != "fn_80003000" {
		t.Errorf("FunctionName = %q, want fn_80003000", got)
	}
	if got := emit.FunctionName(0x80003000, "DoMain"); got != "DoMain" {
		t.Errorf("FunctionName = %q, want DoMain", got)
	}
}

func TestDispatcherOrdersEntriesAscending(t *testing.T) {
	text := emit.Dispatcher([]emit.DispatcherEntry{
		{Address: 0x80003100, Symbol: "fn_80003100"},
		{Address: 0x80003000, Symbol: "DoMain"},
	})
	first := strings.Index(text, "0x80003000")
	second := strings.Index(text, "0x80003100")
	if first == -1 || second == -1 || first > second {
		t.Errorf("expected ascending address order:\n%s", text)
	}
}

func TestSharedHeaderDeclaresCpuContextAndAccessors(t *testing.T) {
	h := emit.SharedHeader()
	for _, want := range []string{"struct CpuContext", "fn read_u32", "fn write_u32", "fn dispatch(", "fn branch_taken"} {
		if !strings.Contains(h, want) {
			t.Errorf("shared header missing %q", want)
		}
	}
}
