// Package symbols defines the Symbol Source contract (spec.md §6): the
// external collaborator that supplies function entry points, optional end
// addresses and names, and type hints for registers and globals.
package symbols

import (
	"fmt"
	"sort"

	"github.com/dolrecomp/dolrecomp/rtype"
)

// Function describes one function the translator should process.
type Function struct {
	Entry          uint32
	End            uint32 // 0 means "unknown, let the CFG Builder compute it"
	Name           string
	ParameterTypes []rtype.Type
	ReturnType     rtype.Type
}

// Global describes one statically-addressed datum.
type Global struct {
	Address uint32
	Type    rtype.Type
	Name    string
}

// Source is the read-only contract the pipeline queries by address.
// Implementations must reject duplicate addresses at construction time
// rather than silently keeping the last write, per spec.md §6.
type Source interface {
	Functions() []Function
	FunctionAt(addr uint32) (Function, bool)
	GlobalAt(addr uint32) (Global, bool)
}

// DuplicateAddressError reports two entries claiming the same address.
type DuplicateAddressError struct {
	Address uint32
	Kind    string
}

func (e *DuplicateAddressError) Error() string {
	return fmt.Sprintf("duplicate %s entry at address 0x%08X", e.Kind, e.Address)
}

// MapSource is a simple in-memory Source, used directly by tests and by any
// caller that discovers symbols structurally (e.g. "translate just the
// entry point").
type MapSource struct {
	functions map[uint32]Function
	globals   map[uint32]Global
}

// NewMapSource builds a MapSource from functions and globals, rejecting
// duplicate addresses within either list.
func NewMapSource(functions []Function, globals []Global) (*MapSource, error) {
	s := &MapSource{
		functions: make(map[uint32]Function, len(functions)),
		globals:   make(map[uint32]Global, len(globals)),
	}
	for _, f := range functions {
		if _, exists := s.functions[f.Entry]; exists {
			return nil, &DuplicateAddressError{Address: f.Entry, Kind: "function"}
		}
		s.functions[f.Entry] = f
	}
	for _, g := range globals {
		if _, exists := s.globals[g.Address]; exists {
			return nil, &DuplicateAddressError{Address: g.Address, Kind: "global"}
		}
		s.globals[g.Address] = g
	}
	return s, nil
}

// Functions returns all known functions, sorted by entry address so callers
// that need a stable iteration order (the Pipeline Driver, the Emitter's
// dispatcher) don't have to sort it themselves.
func (s *MapSource) Functions() []Function {
	out := make([]Function, 0, len(s.functions))
	for _, f := range s.functions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry < out[j].Entry })
	return out
}

// FunctionAt looks up a function by its entry address.
func (s *MapSource) FunctionAt(addr uint32) (Function, bool) {
	f, ok := s.functions[addr]
	return f, ok
}

// GlobalAt looks up a global by address.
func (s *MapSource) GlobalAt(addr uint32) (Global, bool) {
	g, ok := s.globals[addr]
	return g, ok
}
