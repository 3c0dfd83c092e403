package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dolrecomp/dolrecomp/pipeline"
	"github.com/dolrecomp/dolrecomp/validate"
)

// validateOutputDir re-runs the Validator over a directory WriteOutput
// already populated, for a "did my last run actually produce something
// sound" check independent of re-translating anything.
func validateOutputDir(dir string) error {
	header, err := os.ReadFile(filepath.Join(dir, "shared.h"))
	if err != nil {
		return fmt.Errorf("reading shared.h: %w", err)
	}
	dispatcher, err := os.ReadFile(filepath.Join(dir, "dispatcher.src"))
	if err != nil {
		return fmt.Errorf("reading dispatcher.src: %w", err)
	}

	fnDir := filepath.Join(dir, "fn")
	entries, err := os.ReadDir(fnDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", fnDir, err)
	}
	var fns []validate.Function
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".src") {
			continue
		}
		text, err := os.ReadFile(filepath.Join(fnDir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		fns = append(fns, validate.Function{File: "fn/" + e.Name(), Text: string(text)})
	}

	errs := validate.Validate(validate.Artifacts{Header: string(header), Dispatcher: string(dispatcher), Functions: fns})
	if len(errs) > 0 {
		return &pipeline.ValidationFailureError{Errors: errs}
	}
	fmt.Printf("%s: valid (%d function files)\n", dir, len(fns))
	return nil
}
