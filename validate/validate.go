// Package validate scans emitted source as text for structural defects,
// per spec.md's Validator stage: it never parses the target language, only
// checks the properties a generated-code consumer can rely on without a
// full compiler front end.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError names one structural defect found in an emitted artifact.
type ValidationError struct {
	File string
	Line int
	Kind string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Kind)
}

// Function is one emitted per-function artifact, keyed by the file name it
// will be (or was) written under fn/.
type Function struct {
	File string
	Text string
}

// Artifacts bundles everything one pipeline run emits, the input to Validate.
type Artifacts struct {
	Header     string
	Dispatcher string
	Functions  []Function
}

// Validate runs every check spec.md's Validator names and returns every
// ValidationError found, in no particular order; a non-empty result fails
// the pipeline (spec.md §7's ValidationError) without deleting anything.
func Validate(a Artifacts) []ValidationError {
	var errs []ValidationError

	errs = append(errs, checkNonEmpty("shared.h", a.Header)...)
	errs = append(errs, checkNonEmpty("dispatcher.src", a.Dispatcher)...)
	errs = append(errs, checkBracketBalance("shared.h", a.Header)...)
	errs = append(errs, checkBracketBalance("dispatcher.src", a.Dispatcher)...)

	declared := declaredHelpers(a.Header)

	bySymbol := map[string]Function{}
	for _, fn := range a.Functions {
		errs = append(errs, checkNonEmpty(fn.File, fn.Text)...)
		errs = append(errs, checkBracketBalance(fn.File, fn.Text)...)
		errs = append(errs, checkHelperReferences(fn.File, fn.Text, declared)...)
		for _, sym := range functionSymbols(fn.Text) {
			bySymbol[sym] = fn
		}
	}

	errs = append(errs, checkDispatcherCoverage(a.Dispatcher, bySymbol)...)

	return errs
}

func checkNonEmpty(file, text string) []ValidationError {
	if strings.TrimSpace(text) == "" {
		return []ValidationError{{File: file, Line: 0, Kind: "empty file"}}
	}
	return nil
}

var bracketPairs = map[rune]rune{'}': '{', ')': '(', ']': '['}

// checkBracketBalance walks text rune by rune tracking a stack of open
// brackets; a closer with no matching opener, or any opener left on the
// stack at EOF, is reported at the line it occurred on.
func checkBracketBalance(file, text string) []ValidationError {
	var errs []ValidationError
	var stack []struct {
		r    rune
		line int
	}
	line := 1
	for _, r := range text {
		switch r {
		case '\n':
			line++
		case '{', '(', '[':
			stack = append(stack, struct {
				r    rune
				line int
			}{r, line})
		case '}', ')', ']':
			want := bracketPairs[r]
			if len(stack) == 0 || stack[len(stack)-1].r != want {
				errs = append(errs, ValidationError{File: file, Line: line, Kind: fmt.Sprintf("unmatched %q", r)})
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
	for _, open := range stack {
		errs = append(errs, ValidationError{File: file, Line: open.line, Kind: fmt.Sprintf("unclosed %q", open.r)})
	}
	return errs
}

var declFuncRE = regexp.MustCompile(`(?m)^\s*fn\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// declaredHelpers collects the name of every free function the shared
// header declares, whether as a prototype (dispatch) or a full body
// (unimplemented_instruction, the SDK stubs).
func declaredHelpers(header string) map[string]bool {
	out := map[string]bool{}
	for _, m := range declFuncRE.FindAllStringSubmatch(header, -1) {
		out[m[1]] = true
	}
	return out
}

var pubFuncRE = regexp.MustCompile(`(?m)^\s*pub\s+fn\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

func functionSymbols(text string) []string {
	var out []string
	for _, m := range pubFuncRE.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

var bareCallRE = regexp.MustCompile(`(?:^|[^.\w])([a-z_][A-Za-z0-9_]*)\s*\(`)

// localKeyword names the structured-control keywords the Emitter's own
// output uses (if/goto/return/...), none of which is a runtime helper that
// needs a shared-header declaration.
var localKeyword = map[string]bool{
	"if": true, "else": true, "match": true, "while": true, "loop": true,
	"goto": true, "return": true, "let": true, "fn": true, "pub": true,
}

// checkHelperReferences flags a bare-identifier call in fn's text that
// names neither a structured-control keyword nor a helper declared in the
// shared header -- spec.md's "every referenced runtime helper is declared
// in the shared header" check.
func checkHelperReferences(file, text string, declared map[string]bool) []ValidationError {
	var errs []ValidationError
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		for _, m := range bareCallRE.FindAllStringSubmatch(ln, -1) {
			name := m[1]
			if localKeyword[name] || declared[name] {
				continue
			}
			errs = append(errs, ValidationError{File: file, Line: i + 1, Kind: fmt.Sprintf("undeclared helper %q", name)})
		}
	}
	return errs
}

var dispatchEntryRE = regexp.MustCompile(`(?m)0x[0-9A-Fa-f]+\s*=>\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// checkDispatcherCoverage requires that every symbol the dispatcher routes
// to names both a file under fn/ and a pub fn declaration inside it.
func checkDispatcherCoverage(dispatcher string, bySymbol map[string]Function) []ValidationError {
	var errs []ValidationError
	lines := strings.Split(dispatcher, "\n")
	for i, ln := range lines {
		for _, m := range dispatchEntryRE.FindAllStringSubmatch(ln, -1) {
			sym := m[1]
			if _, ok := bySymbol[sym]; !ok {
				errs = append(errs, ValidationError{File: "dispatcher.src", Line: i + 1, Kind: fmt.Sprintf("no emitted file declares symbol %q", sym)})
			}
		}
	}
	return errs
}
