package galois

import (
	"strings"
	"testing"
)

func TestParseErrorMessage(t *testing.T) {
	pe := &ParseError{Line: 3, Col: 7, Msg: "expected ')'", Contexts: []string{"program", "argument list"}}
	got := pe.Error()
	if !strings.Contains(got, "3:7") || !strings.Contains(got, "argument list") {
		t.Fatalf("got %q", got)
	}
}

func TestRuntimeErrorMessage(t *testing.T) {
	re := &RuntimeError{Kind: ArityMismatch, Msg: "f expects 1 argument(s), got 2"}
	got := re.Error()
	if !strings.Contains(got, "arity mismatch") || !strings.Contains(got, "f expects") {
		t.Fatalf("got %q", got)
	}
}

func TestExpansionErrorMessage(t *testing.T) {
	ee := &ExpansionError{Pattern: "$a + $b", Msg: "duplicate notation pattern"}
	if got := ee.Error(); !strings.Contains(got, "$a + $b") {
		t.Fatalf("got %q", got)
	}
}

func TestWrapErrorWithSourceSnippet(t *testing.T) {
	src := "x = 1\nf(a,\ny = 2"
	_, err := Parse(src)
	if err == nil {
		t.Fatalf("want parse error")
	}
	wrapped := WrapErrorWithSource(err, src)
	out := wrapped.Error()
	if !strings.Contains(out, "PARSE ERROR") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("missing caret:\n%s", out)
	}
	if !strings.Contains(out, "| f(a,") {
		t.Fatalf("missing offending line:\n%s", out)
	}
}

func TestWrapErrorWithSourcePassesThroughUnlocatedErrors(t *testing.T) {
	re := &RuntimeError{Kind: UndefinedVariable, Msg: "y"}
	if got := WrapErrorWithSource(re, "y"); got != error(re) {
		t.Fatalf("want pass-through, got %v", got)
	}
}

func TestSnippetClampsOutOfRangePositions(t *testing.T) {
	out := prettyErrorString("only line", "PARSE ERROR", 99, 99, "boom")
	if !strings.Contains(out, "only line") {
		t.Fatalf("got:\n%s", out)
	}
}
