// Package cfg builds the control-flow graph of a function: basic blocks,
// typed edges, and loop structure. The worklist traversal is grounded on
// disassembler.Disassemble's two-phase linear-sweep-then-reachability
// design in the teacher repo, generalized from a flat instruction map to
// typed basic blocks with typed edges.
package cfg

import (
	"fmt"
	"sort"

	"github.com/dolrecomp/dolrecomp/image"
	"github.com/dolrecomp/dolrecomp/ppc"
)

// EdgeKind names the reason a control transfer exists.
type EdgeKind int

const (
	FallThrough EdgeKind = iota
	Taken
	NotTaken
	Call
	CallReturn
	Return
	Indirect
)

func (k EdgeKind) String() string {
	switch k {
	case FallThrough:
		return "fall_through"
	case Taken:
		return "taken"
	case NotTaken:
		return "not_taken"
	case Call:
		return "call"
	case CallReturn:
		return "call_return"
	case Return:
		return "return"
	case Indirect:
		return "indirect"
	default:
		return "unknown"
	}
}

// BlockID indexes into Graph.Blocks. Blocks are stored in an arena owned by
// the Graph; edges reference blocks by id rather than by pointer, per
// spec.md §8's "cyclic references" redesign flag.
type BlockID int

// ExitBlock is the synthetic id representing a function's return point; it
// is never present in Graph.Blocks.
const ExitBlock BlockID = -1

// Edge is a directed control transfer from one block to another.
type Edge struct {
	To   BlockID
	Kind EdgeKind
}

// Block is a maximal straight-line run of instructions: every non-terminal
// instruction's successor lies at address+4, and only the last instruction
// may transfer control.
type Block struct {
	ID           BlockID
	Start        uint32
	Instructions []ppc.Instruction
	Edges        []Edge
}

// End returns the address one past the block's last instruction.
func (b *Block) End() uint32 {
	if len(b.Instructions) == 0 {
		return b.Start
	}
	last := b.Instructions[len(b.Instructions)-1]
	return last.Address + last.Size()
}

// Loop records a natural loop discovered by back-edge analysis.
type Loop struct {
	Header    BlockID
	BackEdges []Edge // edges u -> Header where Header dominates u
	Body      map[BlockID]bool
	Exits     map[BlockID]bool
}

// Graph is a function's reconstructed control-flow graph.
type Graph struct {
	Entry uint32
	End   uint32
	Blocks []*Block
	byAddr map[uint32]BlockID
	Loops  []Loop

	// UnknownInstructions records, in ascending address order, every word
	// Build could not classify (ppc.DecodeError, spec.md's DecodeUnknown):
	// recoverable per spec.md §7, so Build carries the instruction forward
	// as an opaque ppc.ClassUnknown placeholder instead of aborting the
	// whole function. The list is kept on the Graph only; the Pipeline
	// Driver does not report it.
	UnknownInstructions []uint32
}

// BlockAt returns the block starting at addr, if one exists.
func (g *Graph) BlockAt(addr uint32) (*Block, bool) {
	id, ok := g.byAddr[addr]
	if !ok {
		return nil, false
	}
	return g.Blocks[id], true
}

// DisjointFunctionError reports a worklist reaching an address outside any
// text section (spec.md's DisjointFunction).
type DisjointFunctionError struct {
	Entry uint32
	Addr  uint32
}

func (e *DisjointFunctionError) Error() string {
	return fmt.Sprintf("function at 0x%08X: control flow reaches unmapped address 0x%08X", e.Entry, e.Addr)
}

// decoded instruction plus the boundary flags the worklist pass computes.
type decodedInst struct {
	inst        ppc.Instruction
	blockStart  bool
	visited     bool
}

// Build reconstructs the CFG for the function starting at entry. declaredEnd
// is the symbol source's declared end address, or 0 if unknown; when
// nonzero it wins over the computed end per spec.md §4.3.
func Build(img *image.Image, entry uint32, declaredEnd uint32) (*Graph, error) {
	insts := make(map[uint32]*decodedInst)
	q := newAddrQueue()
	q.push(entry)
	boundaries := map[uint32]bool{entry: true}
	var unknown []uint32

	for {
		addr, ok := q.pop()
		if !ok {
			break
		}
		di, exists := insts[addr]
		if exists && di.visited {
			continue
		}
		if declaredEnd != 0 && addr >= declaredEnd {
			// The symbol source's declared end bounds the function; treat
			// it as an implicit return rather than chasing a neighboring
			// function's code.
			continue
		}
		if !img.ContainsText(addr) {
			return nil, &DisjointFunctionError{Entry: entry, Addr: addr}
		}
		word, err := img.ReadWord(addr)
		if err != nil {
			return nil, &DisjointFunctionError{Entry: entry, Addr: addr}
		}
		inst, err := ppc.Decode(word, addr)
		if err != nil {
			// Recoverable (spec.md §7's DecodeUnknown): carry the word forward
			// as an opaque placeholder instead of aborting the function. It
			// decodes as a non-branching, non-terminal instruction so the
			// worklist keeps walking straight past it.
			unknown = append(unknown, addr)
			inst = ppc.Instruction{Address: addr, Raw: word, Class: ppc.ClassUnknown}
		}
		if di == nil {
			di = &decodedInst{}
			insts[addr] = di
		}
		di.inst = inst
		di.visited = true

		next := addr + inst.Size()
		if !inst.IsBranch() {
			q.push(next)
			continue
		}

		if inst.Conditional {
			target := inst.Operands[0].Target
			boundaries[target] = true
			boundaries[next] = true
			q.push(target)
			q.push(next)
			continue
		}

		target := inst.Operands[0].Target
		isCall := inst.Operands[0].Link
		isReturn := inst.Mnemonic == "blr" || inst.Mnemonic == "blrl"
		isIndirect := inst.Mnemonic == "bctr" || inst.Mnemonic == "bctrl"

		if isReturn || (isIndirect && !isCall) {
			// No successor address to chase; block ends here.
			continue
		}
		if isIndirect && isCall {
			q.push(next)
			continue
		}
		boundaries[target] = true
		q.push(target)
		if isCall {
			q.push(next)
		}
		boundaries[next] = true
	}

	addrs := make([]uint32, 0, len(insts))
	for a := range insts {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	g := &Graph{Entry: entry, byAddr: make(map[uint32]BlockID)}
	var cur *Block
	for _, a := range addrs {
		if boundaries[a] || cur == nil {
			cur = &Block{ID: BlockID(len(g.Blocks)), Start: a}
			g.byAddr[a] = cur.ID
			g.Blocks = append(g.Blocks, cur)
		}
		cur.Instructions = append(cur.Instructions, insts[a].inst)
	}

	maxEnd := entry
	for _, b := range g.Blocks {
		if end := b.End(); end > maxEnd {
			maxEnd = end
		}
	}
	if declaredEnd != 0 {
		g.End = declaredEnd
	} else {
		g.End = maxEnd
	}
	for _, b := range g.Blocks {
		wireEdges(g, b)
	}

	g.Loops = findLoops(g)
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	g.UnknownInstructions = unknown
	return g, nil
}

func wireEdges(g *Graph, b *Block) {
	if len(b.Instructions) == 0 {
		return
	}
	last := b.Instructions[len(b.Instructions)-1]
	next := last.Address + last.Size()

	if !last.IsBranch() {
		if id, ok := g.byAddr[next]; ok {
			b.Edges = append(b.Edges, Edge{To: id, Kind: FallThrough})
		} else if next >= g.End {
			// Fell off the end of the function's declared range: an
			// implicit return, as if the last instruction were a blr.
			b.Edges = append(b.Edges, Edge{To: ExitBlock, Kind: Return})
		}
		return
	}

	if last.Conditional {
		target := last.Operands[0].Target
		if id, ok := g.byAddr[target]; ok {
			b.Edges = append(b.Edges, Edge{To: id, Kind: Taken})
		}
		if id, ok := g.byAddr[next]; ok {
			b.Edges = append(b.Edges, Edge{To: id, Kind: NotTaken})
		}
		return
	}

	target := last.Operands[0].Target
	isCall := last.Operands[0].Link
	isReturn := last.Mnemonic == "blr" || last.Mnemonic == "blrl"
	isIndirect := last.Mnemonic == "bctr" || last.Mnemonic == "bctrl"

	switch {
	case isReturn:
		b.Edges = append(b.Edges, Edge{To: ExitBlock, Kind: Return})
	case isIndirect && isCall:
		b.Edges = append(b.Edges, Edge{To: ExitBlock, Kind: Indirect})
		if id, ok := g.byAddr[next]; ok {
			b.Edges = append(b.Edges, Edge{To: id, Kind: CallReturn})
		}
	case isIndirect:
		b.Edges = append(b.Edges, Edge{To: ExitBlock, Kind: Indirect})
	case isCall:
		if id, ok := g.byAddr[target]; ok {
			b.Edges = append(b.Edges, Edge{To: id, Kind: Call})
		}
		if id, ok := g.byAddr[next]; ok {
			b.Edges = append(b.Edges, Edge{To: id, Kind: CallReturn})
		}
	default:
		if id, ok := g.byAddr[target]; ok {
			b.Edges = append(b.Edges, Edge{To: id, Kind: Taken})
		}
	}
}

// addrQueue is a worklist of addresses to decode, grounded on the teacher's
// addrQueue in disassembler/disassemble.go.
type addrQueue struct {
	items []uint32
	seen  map[uint32]bool
}

func newAddrQueue() *addrQueue {
	return &addrQueue{seen: make(map[uint32]bool)}
}

func (q *addrQueue) push(addr uint32) {
	if !q.seen[addr] {
		q.items = append(q.items, addr)
		q.seen[addr] = true
	}
}

func (q *addrQueue) pop() (uint32, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	a := q.items[0]
	q.items = q.items[1:]
	return a, true
}
