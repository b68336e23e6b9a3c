// errors.go: typed errors and caret-snippet rendering.
//
// Three error families cross the public surface, one per pipeline stage:
//
//   - *ParseError: malformed syntax. Carries the deepest failure the
//     parser reached (1-based line/col) plus the chain of grammar context
//     labels that were active there ("program" → "function definition" →
//     "parameter list" → ...).
//   - *ExpansionError: malformed or conflicting notation declaration.
//   - *RuntimeError: evaluation failure, discriminated by Kind.
//
// All of them are returned up through every call boundary; nothing is
// recovered locally. `WrapErrorWithSource` turns a located error into a
// Python-style snippet with a caret under the offending column:
//
//	PARSE ERROR at 3:12: expected ')' (while parsing argument list)
//
//	   2 | f(a, b) {
//	   3 |   g(a,
//	     |       ^
//	   4 | }
//
// Errors without a source location pass through unchanged.
package galois

import (
	"fmt"
	"strings"
)

// ParseError reports the deepest, most specific point the parser failed
// at, with the grammar contexts that were open there. Line and Col are
// 1-based.
type ParseError struct {
	Line     int
	Col      int
	Msg      string
	Contexts []string
}

func (e *ParseError) Error() string {
	if len(e.Contexts) == 0 {
		return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s (while parsing %s)",
		e.Line, e.Col, e.Msg, strings.Join(e.Contexts, " > "))
}

// ExpansionError reports a malformed or conflicting notation declaration.
type ExpansionError struct {
	Pattern string
	Msg     string
}

func (e *ExpansionError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("EXPANSION ERROR: %s", e.Msg)
	}
	return fmt.Sprintf("EXPANSION ERROR in notation %q: %s", e.Pattern, e.Msg)
}

// RuntimeErrorKind discriminates evaluation failures.
type RuntimeErrorKind int

const (
	UndefinedVariable RuntimeErrorKind = iota
	TypeMismatch
	ArityMismatch
	UnhandledOperator
	StackOverflow
	ExternalCallError
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case UndefinedVariable:
		return "undefined variable"
	case TypeMismatch:
		return "type mismatch"
	case ArityMismatch:
		return "arity mismatch"
	case UnhandledOperator:
		return "unhandled operator"
	case StackOverflow:
		return "stack overflow"
	case ExternalCallError:
		return "external call error"
	default:
		return "runtime error"
	}
}

// RuntimeError is an evaluation failure. The evaluator forwards the first
// one encountered; it never suppresses a sub-evaluation's error.
type RuntimeError struct {
	Kind RuntimeErrorKind
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("RUNTIME ERROR: %s: %s", e.Kind, e.Msg)
}

// WrapErrorWithSource augments a located error with a caret-annotated
// snippet of src. Errors without positions (expansion, runtime) are
// returned unchanged.
func WrapErrorWithSource(err error, src string) error {
	if e, ok := err.(*ParseError); ok {
		msg := e.Msg
		if len(e.Contexts) > 0 {
			msg = fmt.Sprintf("%s (while parsing %s)", e.Msg, strings.Join(e.Contexts, " > "))
		}
		return fmt.Errorf("%s", prettyErrorString(src, "PARSE ERROR", e.Line, e.Col, msg))
	}
	return err
}

// prettyErrorString builds the snippet with a header and a caret. It shows
// at most one previous and one next line. Coordinates are 1-based and
// clamped to the source bounds so rendering never panics.
func prettyErrorString(src, header string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
