package typeinfer_test

import (
	"encoding/binary"
	"testing"

	"github.com/dolrecomp/dolrecomp/cfg"
	"github.com/dolrecomp/dolrecomp/dataflow"
	"github.com/dolrecomp/dolrecomp/image"
	"github.com/dolrecomp/dolrecomp/rtype"
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

func TestInferSeedsLoadByteAsUnsignedByte(t *testing.T) {
	// lbz r3,0(r4) ; blr
	img := buildImage(t, []uint32{0x88640000, 0x4E800020})
	g, err := cfg.Build(img, 0x80003000, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	df := dataflow.Analyze(g)
	r := typeinfer.Infer(g, df, symbols.Function{Entry: 0x80003000})
	if !r.TypeOf(0x80003000).Equal(rtype.U8) {
		t.Errorf("TypeOf(lbz) = %v, want u8", r.TypeOf(0x80003000))
	}
}

func TestInferDefaultsToSignedInt32(t *testing.T) {
	// add r3,r3,r4 ; blr
	img := buildImage(t, []uint32{0x7C632214, 0x4E800020})
	g, err := cfg.Build(img, 0x80003000, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	df := dataflow.Analyze(g)
	r := typeinfer.Infer(g, df, symbols.Function{Entry: 0x80003000})
	if !r.TypeOf(0x80003000).Equal(rtype.I32) {
		t.Errorf("TypeOf(add) = %v, want i32", r.TypeOf(0x80003000))
	}
}

func TestInferCarriesFunctionSignature(t *testing.T) {
	img := buildImage(t, []uint32{0x4E800020})
	g, err := cfg.Build(img, 0x80003000, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	df := dataflow.Analyze(g)
	fn := symbols.Function{
		Entry:          0x80003000,
		ParameterTypes: []rtype.Type{rtype.I32, rtype.PointerTo(rtype.U8)},
		ReturnType:     rtype.I32,
	}
	r := typeinfer.Infer(g, df, fn)
	if !r.ReturnType.Equal(rtype.I32) {
		t.Errorf("ReturnType = %v, want i32", r.ReturnType)
	}
	if len(r.ParamTypes) != 2 || !r.ParamTypes[1].Equal(rtype.PointerTo(rtype.U8)) {
		t.Errorf("ParamTypes = %+v", r.ParamTypes)
	}
}
