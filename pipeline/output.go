package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/davecgh/go-spew/spew"
)

var dispatcherEntryRE = regexp.MustCompile(`(?m)0x[0-9A-Fa-f]+\s*=>\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// WriteOutput persists a Result to dir per spec.md §6's layout:
//
//	dir/shared.h
//	dir/fn/<name_or_hex>.src
//	dir/dispatcher.src
//	dir/manifest.json
//
// Per-function files are written plainly (an orphan from a canceled run is
// acceptable, spec.md §5). dispatcher.src is written to a temp file and
// renamed into place last, so a canceled run never leaves a partial
// dispatcher on disk.
func WriteOutput(dir string, r *Result) error {
	fnDir := filepath.Join(dir, "fn")
	if err := os.MkdirAll(fnDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", fnDir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "shared.h"), []byte(r.Header), 0o644); err != nil {
		return fmt.Errorf("write shared.h: %w", err)
	}
	for _, fn := range r.Functions {
		if fn.Source.Text == "" {
			continue
		}
		path := filepath.Join(fnDir, fn.Source.Name+".src")
		if err := os.WriteFile(path, []byte(fn.Source.Text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	manifest, err := r.Manifest.MarshalIndent()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), manifest, 0o644); err != nil {
		return fmt.Errorf("write manifest.json: %w", err)
	}

	tmp := filepath.Join(dir, "dispatcher.src.tmp")
	if err := os.WriteFile(tmp, []byte(r.Dispatcher), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	final := filepath.Join(dir, "dispatcher.src")
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("rename %s to %s: %w", tmp, final, err)
	}
	return nil
}

// CleanOrphans removes fn/ entries with no corresponding dispatcher.src
// reference, a canceled-run cleanup the driver performs on restart
// (spec.md §5: "per-function output files from a canceled run are
// acceptable as orphans and are cleaned up by the driver on restart").
func CleanOrphans(dir string) error {
	dispatcherPath := filepath.Join(dir, "dispatcher.src")
	if _, err := os.Stat(dispatcherPath); os.IsNotExist(err) {
		// No successful run ever completed here; nothing to reconcile against.
		return nil
	}

	fnDir := filepath.Join(dir, "fn")
	entries, err := os.ReadDir(fnDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", fnDir, err)
	}

	want, err := referencedFiles(dispatcherPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if want[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(fnDir, e.Name())); err != nil {
			return fmt.Errorf("remove orphan %s: %w", e.Name(), err)
		}
	}
	return nil
}

func referencedFiles(dispatcherPath string) (map[string]bool, error) {
	text, err := os.ReadFile(dispatcherPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dispatcherPath, err)
	}
	out := map[string]bool{}
	for _, m := range dispatcherEntryRE.FindAllStringSubmatch(string(text), -1) {
		out[m[1]+".src"] = true
	}
	return out, nil
}

// DumpFunction writes a go-spew representation of a function's retained
// CFG/IR artifacts to w, for the CLI's --dump-cfg/--dump-ir debug flags.
func DumpFunction(w io.Writer, r FunctionResult) {
	fmt.Fprintf(w, "function 0x%08X (%s) stage=%s\n", r.Entry, r.Symbol, r.Stage)
	if r.Graph != nil {
		spew.Fdump(w, r.Graph)
	}
	if r.IR != nil {
		spew.Fdump(w, r.IR)
	}
}
