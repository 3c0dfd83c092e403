package symbols_test

import (
	"testing"

	"github.com/dolrecomp/dolrecomp/rtype"
	"github.com/dolrecomp/dolrecomp/symbols"
)

func TestMapSourceRejectsDuplicateFunctionAddress(t *testing.T) {
	fns := []symbols.Function{
		{Entry: 0x80003000, Name: "a"},
		{Entry: 0x80003000, Name: "b"},
	}
	_, err := symbols.NewMapSource(fns, nil)
	if err == nil {
		t.Fatalf("expected DuplicateAddressError")
	}
	dup, ok := err.(*symbols.DuplicateAddressError)
	if !ok {
		t.Fatalf("expected *symbols.DuplicateAddressError, got %T", err)
	}
	if dup.Address != 0x80003000 || dup.Kind != "function" {
		t.Errorf("unexpected error fields: %+v", dup)
	}
}

func TestMapSourceRejectsDuplicateGlobalAddress(t *testing.T) {
	globals := []symbols.Global{
		{Address: 0x80400000, Name: "g1"},
		{Address: 0x80400000, Name: "g2"},
	}
	_, err := symbols.NewMapSource(nil, globals)
	if err == nil {
		t.Fatalf("expected DuplicateAddressError")
	}
	if dup, ok := err.(*symbols.DuplicateAddressError); !ok || dup.Kind != "global" {
		t.Fatalf("expected global DuplicateAddressError, got %v", err)
	}
}

func TestMapSourceFunctionsSortedByEntry(t *testing.T) {
	fns := []symbols.Function{
		{Entry: 0x80003100, Name: "second"},
		{Entry: 0x80003000, Name: "first"},
		{Entry: 0x80003200, Name: "third"},
	}
	src, err := symbols.NewMapSource(fns, nil)
	if err != nil {
		t.Fatalf("NewMapSource failed: %v", err)
	}
	got := src.Functions()
	if len(got) != 3 {
		t.Fatalf("got %d functions, want 3", len(got))
	}
	want := []string{"first", "second", "third"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("Functions()[%d].Name = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestMapSourceFunctionAtAndGlobalAt(t *testing.T) {
	src, err := symbols.NewMapSource(
		[]symbols.Function{{Entry: 0x80003000, Name: "main", ReturnType: rtype.I32}},
		[]symbols.Global{{Address: 0x80400000, Name: "g_frameCount", Type: rtype.U32}},
	)
	if err != nil {
		t.Fatalf("NewMapSource failed: %v", err)
	}
	f, ok := src.FunctionAt(0x80003000)
	if !ok || f.Name != "main" || !f.ReturnType.Equal(rtype.I32) {
		t.Errorf("FunctionAt = %+v, %v", f, ok)
	}
	if _, ok := src.FunctionAt(0xDEADBEEF); ok {
		t.Errorf("FunctionAt found a function that doesn't exist")
	}
	g, ok := src.GlobalAt(0x80400000)
	if !ok || g.Name != "g_frameCount" || !g.Type.Equal(rtype.U32) {
		t.Errorf("GlobalAt = %+v, %v", g, ok)
	}
}

func TestLoadTOML(t *testing.T) {
	data := []byte(`
[[function]]
entry = "0x80003000"
end = "0x80003020"
name = "main"
return_type = "i32"
parameters = ["i32", "*u8"]

[[global]]
address = "0x80400000"
type = "u32"
name = "g_frameCount"
`)
	src, err := symbols.LoadTOML(data)
	if err != nil {
		t.Fatalf("LoadTOML failed: %v", err)
	}
	f, ok := src.FunctionAt(0x80003000)
	if !ok {
		t.Fatalf("expected function at 0x80003000")
	}
	if f.Name != "main" || f.End != 0x80003020 {
		t.Errorf("function = %+v", f)
	}
	if !f.ReturnType.Equal(rtype.I32) {
		t.Errorf("return type = %v, want i32", f.ReturnType)
	}
	if len(f.ParameterTypes) != 2 || !f.ParameterTypes[0].Equal(rtype.I32) {
		t.Errorf("parameters = %+v", f.ParameterTypes)
	}
	wantPtr := rtype.PointerTo(rtype.U8)
	if !f.ParameterTypes[1].Equal(wantPtr) {
		t.Errorf("parameter[1] = %v, want %v", f.ParameterTypes[1], wantPtr)
	}

	g, ok := src.GlobalAt(0x80400000)
	if !ok || g.Name != "g_frameCount" || !g.Type.Equal(rtype.U32) {
		t.Errorf("global = %+v, %v", g, ok)
	}
}

func TestLoadTOMLRejectsDuplicateAddresses(t *testing.T) {
	data := []byte(`
[[function]]
entry = "0x80003000"
name = "a"

[[function]]
entry = "0x80003000"
name = "b"
`)
	_, err := symbols.LoadTOML(data)
	if err == nil {
		t.Fatalf("expected duplicate address error")
	}
}

func TestLoadTOMLMalformed(t *testing.T) {
	_, err := symbols.LoadTOML([]byte("this is not valid toml [[["))
	if err == nil {
		t.Fatalf("expected parse error")
	}
}
