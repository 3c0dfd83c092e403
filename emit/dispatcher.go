package emit

import (
	"fmt"
	"sort"
	"strings"
)

// DispatcherEntry names one emitted function by its original entry address.
type DispatcherEntry struct {
	Address uint32
	Symbol  string
}

// Dispatcher renders dispatcher.src: a single dispatch(address, &mut
// CpuContext) operation that routes a runtime address to the function
// emitted for it, entries sorted ascending by address per spec.md §5's
// stable-diff ordering guarantee.
func Dispatcher(entries []DispatcherEntry) string {
	sorted := make([]DispatcherEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	var b strings.Builder
	b.WriteString("// generated by dolrecomp: entry address to function symbol\n\n")
	b.WriteString("fn dispatch(address: u32, ctx: &mut CpuContext) {\n")
	b.WriteString("  match address {\n")
	for _, e := range sorted {
		fmt.Fprintf(&b, "    0x%08X => %s(ctx),\n", e.Address, e.Symbol)
	}
	b.WriteString("    _ => unimplemented_instruction(address),\n")
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}
