package emit

import "fmt"

// FunctionName names a translated function by its symbol source name, or
// fn_<hex-entry> when the function is anonymous, per spec.md §4.7.
func FunctionName(entry uint32, symbolName string) string {
	if symbolName != "" {
		return symbolName
	}
	return fmt.Sprintf("fn_%08X", entry)
}

// StubFunction renders the fallback body spec.md §4.7 requires when emission
// fails: same signature, but it signals UnsupportedFunction at runtime
// instead of running any translated logic.
func StubFunction(name string, entry uint32) FunctionSource {
	return FunctionSource{
		Name: name,
		Text: fmt.Sprintf("pub fn %s(ctx: &mut CpuContext) {\n  panic_unsupported_function(0x%08X);\n}\n", name, entry),
	}
}
