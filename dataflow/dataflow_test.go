package dataflow_test

import (
	"encoding/binary"
	"testing"

	"github.com/dolrecomp/dolrecomp/cfg"
	"github.com/dolrecomp/dolrecomp/dataflow"
	"github.com/dolrecomp/dolrecomp/image"
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

func TestAnalyzeMarksDeadStore(t *testing.T) {
	// li r3,5 (dead: overwritten before use) ; li r3,7 ; add r5,r3,r0 (uses
	// the second def) ; blr
	words := []uint32{0x38600005, 0x38600007, 0x7CA30214, 0x4E800020}
	img := buildImage(t, words)
	g, err := cfg.Build(img, 0x80003000, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	r := dataflow.Analyze(g)
	if !r.Dead[0x80003000] {
		t.Errorf("expected the first li r3,5 to be dead (overwritten before any use)")
	}
	if r.Dead[0x80003004] {
		t.Errorf("second li r3,7 feeds the add and must survive")
	}
}

func TestAnalyzeNeverMarksStoreDead(t *testing.T) {
	// stw r3, 0(r4) ; blr  -- the store has a side effect and must survive
	// even though nothing in this function reads from memory afterward.
	words := []uint32{0x90640000, 0x4E800020}
	img := buildImage(t, words)
	g, err := cfg.Build(img, 0x80003000, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	r := dataflow.Analyze(g)
	if r.Dead[0x80003000] {
		t.Errorf("store instructions must never be marked dead")
	}
}

func TestAnalyzeLivenessAcrossConditional(t *testing.T) {
	// cmpwi r3,0 ; beq +8 ; add r5,r3,r4 (uses r3) ; blr
	words := []uint32{0x2C030000, 0x41820008, 0x7CA32214, 0x4E800020}
	img := buildImage(t, words)
	g, err := cfg.Build(img, 0x80003000, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	r := dataflow.Analyze(g)
	entry, _ := g.BlockAt(0x80003000)
	live := r.LiveOut[entry.ID]
	found := false
	for reg := range live {
		if reg.Kind == dataflow.GPR && reg.Index == 3 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected r3 to be live out of the entry block (used by the fall-through add)")
	}
}
