package galois

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// --- helpers ---------------------------------------------------------------

func expandSrc(t *testing.T, src string) []*Expr {
	t.Helper()
	raw, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v\nsource:\n%s", err, src)
	}
	out, err := Expand(raw)
	if err != nil {
		t.Fatalf("Expand error: %v\nsource:\n%s", err, src)
	}
	return out
}

func expandErr(t *testing.T, src string) *ExpansionError {
	t.Helper()
	raw, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v\nsource:\n%s", err, src)
	}
	_, err = Expand(raw)
	if err == nil {
		t.Fatalf("Expand succeeded, want error\nsource:\n%s", src)
	}
	ee, ok := err.(*ExpansionError)
	if !ok {
		t.Fatalf("want *ExpansionError, got %T: %v", err, err)
	}
	return ee
}

// renderAll gives a compact, comparable view of an expanded program.
func renderAll(exprs []*Expr) string {
	var parts []string
	for _, e := range exprs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}

// --- rewriting -------------------------------------------------------------

func TestExpandInfixNotation(t *testing.T) {
	out := expandSrc(t, `notation "$x plus $y" with x, y := add(x, y); 1 plus 2`)
	if got := renderAll(out); got != "add(1, 2)" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandRemovesDeclarations(t *testing.T) {
	out := expandSrc(t, `notation "$x plus $y" with x, y := add(x, y); 5`)
	if len(out) != 1 || out[0].Tag != EPrim {
		t.Fatalf("want declarations stripped, got %q", renderAll(out))
	}
}

func TestExpandBottomUpThroughFold(t *testing.T) {
	out := expandSrc(t, `notation "$x plus $y" with x, y := add(x, y); 1 plus 2 plus 3`)
	if got := renderAll(out); got != "add(add(1, 2), 3)" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandCallPattern(t *testing.T) {
	out := expandSrc(t, `notation "double $x" with x := add(x, x); double(4)`)
	if got := renderAll(out); got != "add(4, 4)" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandCallPatternArityMustMatch(t *testing.T) {
	out := expandSrc(t, `notation "double $x" with x := add(x, x); double(4, 5)`)
	if got := renderAll(out); got != "double(4, 5)" {
		t.Fatalf("want two-argument call untouched, got %q", got)
	}
}

func TestExpandInsideFunctionBodies(t *testing.T) {
	out := expandSrc(t, `notation "$x plus $y" with x, y := add(x, y); f(a) { a plus 1 }`)
	if got := renderAll(out); got != "f(a) { add(a, 1) }" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandInsideAssignmentsAndReturns(t *testing.T) {
	out := expandSrc(t, `notation "$x plus $y" with x, y := add(x, y); z = 1 plus 2; f(a) { return a plus z }`)
	got := renderAll(out)
	if !strings.Contains(got, "z = add(1, 2)") || !strings.Contains(got, "return add(a, z)") {
		t.Fatalf("got %q", got)
	}
}

func TestExpandChainedNotations(t *testing.T) {
	// The first rule's output is itself subject to the second rule.
	out := expandSrc(t, `
		notation "$x sq $y" with x, y := x times y;
		notation "$x times $y" with x, y := mul(x, y);
		2 sq 3
	`)
	if got := renderAll(out); got != "mul(2, 3)" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandDeclarationOrderWins(t *testing.T) {
	out := expandSrc(t, `
		notation "$a + $b" with a, b := first(a, b);
		notation "$x + $y" with x, y := second(x, y);
		1 + 2
	`)
	if got := renderAll(out); got != "first(1, 2)" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandUnrelatedOperatorPassesThrough(t *testing.T) {
	out := expandSrc(t, `notation "$x plus $y" with x, y := add(x, y); 1 * 2`)
	if got := renderAll(out); got != "1 * 2" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandFreeTemplateVariablePassesThrough(t *testing.T) {
	// k is not a slot; it stays a free reference in the output.
	out := expandSrc(t, `notation "$x plus $y" with x, y := add(x, k); 1 plus 2`)
	if got := renderAll(out); got != "add(1, k)" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	src := `
		notation "$x plus $y" with x, y := add(x, y);
		notation "double $x" with x := add(x, x);
		double(1 plus 2); f(a) { a plus a }
	`
	raw, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	var decls []*Expr
	for _, e := range raw {
		if e.Tag == ENotation {
			decls = append(decls, e)
		}
	}

	once, err := Expand(raw)
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	twice, err := Expand(append(append([]*Expr{}, decls...), once...))
	if err != nil {
		t.Fatalf("re-Expand error: %v", err)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("expansion not idempotent (-once +twice):\n%s", diff)
	}
}

// --- declaration validation ------------------------------------------------

func TestExpandEmptyPatternFails(t *testing.T) {
	ee := expandErr(t, `notation "" with x := x; 1`)
	if !strings.Contains(ee.Msg, "empty") {
		t.Fatalf("got %v", ee)
	}
}

func TestExpandDuplicatePatternFails(t *testing.T) {
	ee := expandErr(t, `
		notation "$a + $b" with a, b := f(a, b);
		notation "$a + $b" with a, b := g(a, b);
		1
	`)
	if !strings.Contains(ee.Msg, "duplicate") {
		t.Fatalf("got %v", ee)
	}
}

func TestExpandUndeclaredSlotFails(t *testing.T) {
	ee := expandErr(t, `notation "$x plus $y" with x := add(x, y); 1`)
	if !strings.Contains(ee.Msg, "$y") {
		t.Fatalf("got %v", ee)
	}
}

func TestExpandRepeatedSlotFails(t *testing.T) {
	ee := expandErr(t, `notation "$x plus $x" with x := add(x, x); 1`)
	if !strings.Contains(ee.Msg, "twice") {
		t.Fatalf("got %v", ee)
	}
}

func TestExpandSelfReferentialNotationFails(t *testing.T) {
	ee := expandErr(t, `notation "$a + $b" with a, b := b + a; 1 + 2`)
	if !strings.Contains(ee.Msg, "limit") {
		t.Fatalf("got %v", ee)
	}
}
