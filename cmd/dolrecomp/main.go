// Command dolrecomp drives the translation pipeline end to end: load a DOL
// image, read a symbol map, farm every named function through the Pipeline
// Driver, and write the result to an output directory. Grounded on
// cmd/run68/main.go's shape (flag parsing up front, a fatal-vs-recoverable
// error split, log.Printf progress), generalized from flag.FlagSet to
// climate's subcommand parsing since this front end needs more than one verb.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/grimdork/climate"

	"github.com/dolrecomp/dolrecomp/image"
	"github.com/dolrecomp/dolrecomp/pipeline"
	"github.com/dolrecomp/dolrecomp/symbols"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

	var err error
	switch sub {
	case "translate":
		err = runTranslate()
	case "symbols":
		err = runSymbols()
	case "validate":
		err = runValidate()
	case "-h", "--help", "help":
		usage()
		return
	default:
		log.Printf("unknown command %q", sub)
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Println(err)
		os.Exit(exitCode(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: dolrecomp <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  translate   translate a DOL image into generated source")
	fmt.Fprintln(os.Stderr, "  symbols     list the functions and globals a symbol map declares")
	fmt.Fprintln(os.Stderr, "  validate    re-run the Validator over a previously written output directory")
}

// exitCode maps a top-level failure onto spec.md §6's exit-code contract:
// 0 success, 1 input error, 2 translation error, 3 validation error.
func exitCode(err error) int {
	var invalidImage *image.InvalidImageError
	var unmapped *image.UnmappedAddressError
	var dup *symbols.DuplicateAddressError
	var vfail *pipeline.ValidationFailureError
	switch {
	case errors.As(err, &invalidImage), errors.As(err, &unmapped), errors.As(err, &dup):
		return 1
	case errors.As(err, &vfail):
		return 3
	default:
		return 2
	}
}

type translateOptions struct {
	Input   string `short:"i" long:"input" help:"Path to the DOL executable to translate"`
	Output  string `short:"o" long:"output" help:"Output directory for generated source" default:"output"`
	Symbols string `short:"s" long:"symbols" help:"Path to a TOML symbol map"`
	Jobs    int    `short:"j" long:"jobs" help:"Maximum parallel function translations, 0 for unlimited"`
	DumpCFG bool   `long:"dump-cfg" help:"Retain and print each function's control-flow graph"`
	DumpIR  bool   `long:"dump-ir" help:"Retain and print each function's IR"`
}

func runTranslate() error {
	var opts translateOptions
	if _, err := climate.Parse(&opts); err != nil {
		return err
	}
	if opts.Input == "" {
		return errors.New("translate: --input is required")
	}
	if opts.Output == "" {
		opts.Output = "output"
	}

	buf, err := os.ReadFile(opts.Input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.Input, err)
	}
	img, err := image.Load(buf)
	if err != nil {
		return err
	}

	src, err := loadSymbolSource(opts.Symbols, img)
	if err != nil {
		return err
	}

	progress := make(chan pipeline.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range progress {
			log.Printf("[%d/%d] 0x%08X %s", ev.Done, ev.Total, ev.Entry, ev.Stage)
		}
	}()

	res, err := pipeline.Run(context.Background(), img, src, pipeline.Options{
		MaxParallelism: opts.Jobs,
		DumpCFG:        opts.DumpCFG,
		DumpIR:         opts.DumpIR,
		Progress:       progress,
	})
	close(progress)
	<-done
	if err != nil {
		var vfail *pipeline.ValidationFailureError
		if errors.As(err, &vfail) {
			for _, ve := range vfail.Errors {
				log.Println(ve)
			}
		}
		return err
	}

	if err := pipeline.CleanOrphans(opts.Output); err != nil {
		return err
	}
	if err := pipeline.WriteOutput(opts.Output, res); err != nil {
		return err
	}
	if opts.DumpCFG || opts.DumpIR {
		for _, fn := range res.Functions {
			pipeline.DumpFunction(os.Stdout, fn)
		}
	}
	log.Printf("translated %d/%d functions into %s", res.Manifest.Succeeded, res.Manifest.FunctionCount, opts.Output)
	if res.Manifest.Failed > 0 {
		return fmt.Errorf("%d of %d functions failed to translate", res.Manifest.Failed, res.Manifest.FunctionCount)
	}
	return nil
}

type symbolsOptions struct {
	Symbols string `short:"s" long:"symbols" help:"Path to a TOML symbol map"`
}

func runSymbols() error {
	var opts symbolsOptions
	if _, err := climate.Parse(&opts); err != nil {
		return err
	}
	if opts.Symbols == "" {
		return errors.New("symbols: --symbols is required")
	}
	buf, err := os.ReadFile(opts.Symbols)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.Symbols, err)
	}
	src, err := symbols.LoadTOML(buf)
	if err != nil {
		return err
	}
	for _, fn := range src.Functions() {
		fmt.Printf("0x%08X  %s\n", fn.Entry, fn.Name)
	}
	return nil
}

type validateOptions struct {
	Dir string `short:"d" long:"dir" help:"Output directory to re-validate" default:"output"`
}

func runValidate() error {
	var opts validateOptions
	if _, err := climate.Parse(&opts); err != nil {
		return err
	}
	if opts.Dir == "" {
		opts.Dir = "output"
	}
	return validateOutputDir(opts.Dir)
}

// loadSymbolSource reads a TOML symbol map, or, when none is given, falls
// back to a single-function Source covering just the image's entry point --
// enough to exercise the translator without hand-writing a map first.
func loadSymbolSource(path string, img *image.Image) (symbols.Source, error) {
	if path == "" {
		return symbols.NewMapSource([]symbols.Function{{Entry: img.Entry()}}, nil)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return symbols.LoadTOML(buf)
}
