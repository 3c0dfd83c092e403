// Package pipeline sequences the Image Loader through the Validator for
// every function a Symbol Source names, farming the embarrassingly-parallel
// per-function work (C2-C8) out to a worker pool. Grounded on
// cmd/run68/main.go's top-level sequencing (load -> configure -> execute
// loop -> report) and its split between fatal setup errors and recoverable
// per-instruction errors, generalized into the state machine spec.md §4.9
// describes and backed by an errgroup pool instead of the teacher's
// single-threaded instruction loop.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dolrecomp/dolrecomp/cfg"
	"github.com/dolrecomp/dolrecomp/dataflow"
	"github.com/dolrecomp/dolrecomp/emit"
	"github.com/dolrecomp/dolrecomp/image"
	"github.com/dolrecomp/dolrecomp/ir"
	"github.com/dolrecomp/dolrecomp/symbols"
	"github.com/dolrecomp/dolrecomp/typeinfer"
	"github.com/dolrecomp/dolrecomp/validate"
)

// Stage names one position in the per-function state machine spec.md §4.9
// defines. Transitions are monotonic: a function's Stage only ever moves
// forward through this list, or jumps straight to Failed.
type Stage int

const (
	Discovered Stage = iota
	Decoded
	CfgBuilt
	DataFlowAnalyzed
	TypeInferred
	IrLowered
	IrOptimized
	Emitted
	Validated
	Failed
)

func (s Stage) String() string {
	switch s {
	case Discovered:
		return "Discovered"
	case Decoded:
		return "Decoded"
	case CfgBuilt:
		return "CfgBuilt"
	case DataFlowAnalyzed:
		return "DataFlowAnalyzed"
	case TypeInferred:
		return "TypeInferred"
	case IrLowered:
		return "IrLowered"
	case IrOptimized:
		return "IrOptimized"
	case Emitted:
		return "Emitted"
	case Validated:
		return "Validated"
	default:
		return "Failed"
	}
}

// ProgressEvent reports one function's stage transition, for a caller
// rendering a progress bar without blocking on the whole batch.
type ProgressEvent struct {
	Entry uint32
	Stage Stage
	Done  int
	Total int
}

// FunctionResult is one function's terminal state and its artifacts.
type FunctionResult struct {
	Entry    uint32
	Symbol   string
	Stage    Stage // Validated or Failed once Run returns without error; Emitted or Failed when validation reported errors
	FailedAt Stage // the stage Err occurred at, meaningful only when Stage == Failed
	Err      error
	Source   emit.FunctionSource

	// Graph and IR are retained only when Options.DumpCFG/DumpIR requested
	// them, per spec.md §5's resource policy of releasing artifacts
	// immediately after emission in the common case.
	Graph   *cfg.Graph
	IR      *ir.Function
	Elapsed time.Duration
}

// Options configures one Run.
type Options struct {
	// MaxParallelism caps the worker pool; 0 means errgroup's own default
	// (unlimited, bounded in practice by GOMAXPROCS-driven scheduling).
	MaxParallelism int
	DumpCFG        bool
	DumpIR         bool
	// Progress, if non-nil, receives one ProgressEvent per function when its
	// C2-C8 work finishes (Stage is then Emitted or Failed; validation has
	// not run yet). Functions skipped after cancellation send none. Run sends on it synchronously from whichever
	// goroutine finished that function, so a slow consumer throttles the
	// pool; pass a buffered channel to decouple them.
	Progress chan<- ProgressEvent
}

// ValidationFailureError wraps the Validator's findings (spec.md §7's
// ValidationError), fatal for the whole run regardless of which file the
// defect was found in.
type ValidationFailureError struct {
	Errors []validate.ValidationError
}

func (e *ValidationFailureError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s): %s", len(e.Errors), e.Errors[0].Error())
}

// Result is everything one Run produced.
type Result struct {
	Functions  []FunctionResult // sorted by Entry
	Header     string
	Dispatcher string
	Manifest   Manifest
}

// Run executes C1 (already done by the caller via image.Load) through C9
// for every function src names. Per-function work runs concurrently; a
// failure in one function is recorded on its FunctionResult and never
// aborts the batch. The dispatcher and the global Validator pass both run
// strictly after every function has finished its own C2-C8 work, per
// spec.md §5's ordering rule.
func Run(ctx context.Context, img *image.Image, src symbols.Source, opts Options) (*Result, error) {
	fns := src.Functions()
	total := len(fns)
	results := make([]FunctionResult, total)

	g, gctx := errgroup.WithContext(ctx)
	if opts.MaxParallelism > 0 {
		g.SetLimit(opts.MaxParallelism)
	}
	var done atomic.Int32

	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = FunctionResult{Entry: fn.Entry, Symbol: fn.Name, Stage: Failed, FailedAt: Discovered, Err: gctx.Err()}
				return nil
			}
			results[i] = translateFunction(img, fn, opts)
			n := int(done.Add(1))
			if opts.Progress != nil {
				opts.Progress <- ProgressEvent{Entry: fn.Entry, Stage: results[i].Stage, Done: n, Total: total}
			}
			return nil
		})
	}
	// g.Wait only ever returns non-nil here if a worker's own closure
	// returned an error, which none of them do: per-function failures are
	// recorded on FunctionResult instead, per spec.md §4.9's "a failure in
	// one function does not abort the batch."
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var entries []emit.DispatcherEntry
	var vfns []validate.Function
	for _, r := range results {
		// Both a successfully emitted function and an EmitUnsupported stub
		// (spec.md §4.7) produce a real file the dispatcher can route to;
		// a function that failed before ever reaching the Emitter (e.g.
		// DisjointFunction) has no artifact and is simply absent.
		if r.Source.Text == "" {
			continue
		}
		entries = append(entries, emit.DispatcherEntry{Address: r.Entry, Symbol: r.Source.Name})
		vfns = append(vfns, validate.Function{File: fnFilePath(r.Source.Name), Text: r.Source.Text})
	}

	header := emit.SharedHeader()
	dispatcher := emit.Dispatcher(entries)

	verrs := validate.Validate(validate.Artifacts{Header: header, Dispatcher: dispatcher, Functions: vfns})
	if len(verrs) == 0 {
		for i := range results {
			if results[i].Stage == Emitted {
				results[i].Stage = Validated
			}
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Entry < results[j].Entry })

	result := &Result{Functions: results, Header: header, Dispatcher: dispatcher, Manifest: buildManifest(results)}
	if len(verrs) != 0 {
		return result, &ValidationFailureError{Errors: verrs}
	}
	return result, nil
}

func fnFilePath(name string) string {
	return "fn/" + name + ".src"
}

// translateFunction runs one function through C2-C8, stopping and recording
// Failed at whichever stage first errors.
func translateFunction(img *image.Image, fn symbols.Function, opts Options) FunctionResult {
	start := time.Now()
	r := FunctionResult{Entry: fn.Entry, Symbol: fn.Name, Stage: Discovered}

	r.Stage = Decoded // cfg.Build decodes and builds the graph in one pass
	g, err := cfg.Build(img, fn.Entry, fn.End)
	if err != nil {
		// DisjointFunction: the CFG walk couldn't even bound the function, so
		// there is no artifact to stand in for it -- unlike an Emitted-stage
		// failure, this one produces no dispatcher entry at all.
		r.Stage, r.FailedAt, r.Err = Failed, CfgBuilt, err
		r.Elapsed = time.Since(start)
		return r
	}
	r.Stage = CfgBuilt

	df := dataflow.Analyze(g)
	r.Stage = DataFlowAnalyzed

	ti := typeinfer.Infer(g, df, fn)
	r.Stage = TypeInferred

	irFn := ir.Lower(g, df, ti)
	r.Stage = IrLowered

	ir.Optimize(irFn)
	r.Stage = IrOptimized

	name := emit.FunctionName(fn.Entry, fn.Name)
	src, err := emit.EmitFunction(name, irFn)
	if err != nil {
		r.Stage, r.FailedAt, r.Err = Failed, Emitted, err
		r.Source = emit.StubFunction(name, fn.Entry)
		return finishResult(r, g, irFn, opts, start)
	}
	r.Stage = Emitted
	r.Source = src
	return finishResult(r, g, irFn, opts, start)
}

func finishResult(r FunctionResult, g *cfg.Graph, irFn *ir.Function, opts Options, start time.Time) FunctionResult {
	if opts.DumpCFG {
		r.Graph = g
	}
	if opts.DumpIR {
		r.IR = irFn
	}
	r.Elapsed = time.Since(start)
	return r
}
