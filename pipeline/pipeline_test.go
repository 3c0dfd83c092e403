package pipeline_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dolrecomp/dolrecomp/image"
	"github.com/dolrecomp/dolrecomp/pipeline"
	"github.com/dolrecomp/dolrecomp/symbols"
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

func TestRunTranslatesSimpleFunction(t *testing.T) {
	img := buildImage(t, []uint32{0x7C632214, 0x4E800020}) // add r3,r3,r4 ; blr
	src, err := symbols.NewMapSource([]symbols.Function{{Entry: 0x80003000, End: 0x80003008, Name: "DoMain"}}, nil)
	if err != nil {
		t.Fatalf("NewMapSource failed: %v", err)
	}

	res, err := pipeline.Run(context.Background(), img, src, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(res.Functions))
	}
	fn := res.Functions[0]
	if fn.Stage != pipeline.Validated {
		t.Errorf("Stage = %v, want Validated (err=%v)", fn.Stage, fn.Err)
	}
	if !strings.Contains(fn.Source.Text, "pub fn DoMain") {
		t.Errorf("missing function body:\n%s", fn.Source.Text)
	}
	if !strings.Contains(res.Dispatcher, "DoMain") {
		t.Errorf("dispatcher missing DoMain entry:\n%s", res.Dispatcher)
	}
	if res.Manifest.Succeeded != 1 || res.Manifest.Failed != 0 {
		t.Errorf("Manifest = %+v, want 1 succeeded, 0 failed", res.Manifest)
	}
}

func TestRunMarksDisjointFunctionFailed(t *testing.T) {
	img := buildImage(t, []uint32{0x60000000}) // nop, at 0x80003000
	src, err := symbols.NewMapSource([]symbols.Function{{Entry: 0x90000000}}, nil)
	if err != nil {
		t.Fatalf("NewMapSource failed: %v", err)
	}

	res, err := pipeline.Run(context.Background(), img, src, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	fn := res.Functions[0]
	if fn.Stage != pipeline.Failed || fn.FailedAt != pipeline.CfgBuilt {
		t.Errorf("Stage/FailedAt = %v/%v, want Failed/CfgBuilt", fn.Stage, fn.FailedAt)
	}
	if fn.Source.Text != "" {
		t.Errorf("expected no artifact for a DisjointFunction failure, got %q", fn.Source.Text)
	}
	if res.Manifest.Failed != 1 {
		t.Errorf("Manifest.Failed = %d, want 1", res.Manifest.Failed)
	}
}

func TestRunOrdersDispatcherEntriesAscending(t *testing.T) {
	words := make([]uint32, 0x100/4+2)
	words[0] = 0x4E800020 // blr at 0x80003000
	words[0x100/4] = 0x4E800020
	img := buildImage(t, words)
	src, err := symbols.NewMapSource([]symbols.Function{
		{Entry: 0x80003100, Name: "Second"},
		{Entry: 0x80003000, Name: "First"},
	}, nil)
	if err != nil {
		t.Fatalf("NewMapSource failed: %v", err)
	}

	res, err := pipeline.Run(context.Background(), img, src, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	first := strings.Index(res.Dispatcher, "First")
	second := strings.Index(res.Dispatcher, "Second")
	if first == -1 || second == -1 || first > second {
		t.Errorf("expected First before Second in dispatcher:\n%s", res.Dispatcher)
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	img := buildImage(t, []uint32{0x4E800020})
	src, err := symbols.NewMapSource([]symbols.Function{{Entry: 0x80003000}}, nil)
	if err != nil {
		t.Fatalf("NewMapSource failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pipeline.Run(ctx, img, src, pipeline.Options{}); err == nil {
		t.Errorf("expected Run to report the canceled context")
	}
}

func TestWriteOutputWritesDispatcherLast(t *testing.T) {
	img := buildImage(t, []uint32{0x4E800020})
	src, err := symbols.NewMapSource([]symbols.Function{{Entry: 0x80003000, Name: "DoMain"}}, nil)
	if err != nil {
		t.Fatalf("NewMapSource failed: %v", err)
	}
	res, err := pipeline.Run(context.Background(), img, src, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	dir := t.TempDir()
	if err := pipeline.WriteOutput(dir, res); err != nil {
		t.Fatalf("WriteOutput failed: %v", err)
	}
	for _, name := range []string{"shared.h", "dispatcher.src", "manifest.json", filepath.Join("fn", "DoMain.src")} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "dispatcher.src.tmp")); !os.IsNotExist(err) {
		t.Errorf("expected dispatcher.src.tmp to be renamed away, got err=%v", err)
	}
}

func TestCleanOrphansRemovesUnreferencedFunctionFiles(t *testing.T) {
	dir := t.TempDir()
	fnDir := filepath.Join(dir, "fn")
	if err := os.MkdirAll(fnDir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dispatcher.src"), []byte("fn dispatch(address: u32, ctx: &mut CpuContext) {\n  match address {\n    0x80003000 => DoMain(ctx),\n  }\n}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(fnDir, "DoMain.src"), []byte("pub fn DoMain(ctx: &mut CpuContext) {}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(fnDir, "Orphan.src"), []byte("pub fn Orphan(ctx: &mut CpuContext) {}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := pipeline.CleanOrphans(dir); err != nil {
		t.Fatalf("CleanOrphans failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fnDir, "DoMain.src")); err != nil {
		t.Errorf("expected DoMain.src to survive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(fnDir, "Orphan.src")); !os.IsNotExist(err) {
		t.Errorf("expected Orphan.src to be removed, got err=%v", err)
	}
}
