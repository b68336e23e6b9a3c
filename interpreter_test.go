package galois

import (
	"fmt"
	"strings"
	"testing"
)

// --- helpers ---------------------------------------------------------------

func evalSrc(t *testing.T, src string) Value {
	t.Helper()
	ip := NewInterpreter()
	v, err := ip.EvalSource(src)
	if err != nil {
		t.Fatalf("EvalSource error: %v\nsource:\n%s", err, src)
	}
	return v
}

func evalErr(t *testing.T, src string) error {
	t.Helper()
	ip := NewInterpreter()
	_, err := ip.EvalSource(src)
	if err == nil {
		t.Fatalf("EvalSource succeeded, want error\nsource:\n%s", src)
	}
	return err
}

func wantInt(t *testing.T, v Value, n int64) {
	t.Helper()
	if v.Tag != VTInt || v.Data.(int64) != n {
		t.Fatalf("want int %d, got %#v", n, v)
	}
}

func wantStr(t *testing.T, v Value, s string) {
	t.Helper()
	if v.Tag != VTStr || v.Data.(string) != s {
		t.Fatalf("want str %q, got %#v", s, v)
	}
}

func wantBool(t *testing.T, v Value, b bool) {
	t.Helper()
	if v.Tag != VTBool || v.Data.(bool) != b {
		t.Fatalf("want bool %v, got %#v", b, v)
	}
}

func wantRuntimeErr(t *testing.T, err error, kind RuntimeErrorKind, substr string) {
	t.Helper()
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("want *RuntimeError, got %T: %v", err, err)
	}
	if re.Kind != kind {
		t.Fatalf("want kind %s, got %s: %v", kind, re.Kind, re)
	}
	if substr != "" && !strings.Contains(re.Msg, substr) {
		t.Fatalf("want message containing %q, got %q", substr, re.Msg)
	}
}

// fakeSurface is an in-test external call surface. Every registered
// function is exposed regardless of which module got loaded.
type fakeSurface struct {
	loads map[string]int
	fns   map[string]func(args []Value) (Value, error)
}

func newFakeSurface() *fakeSurface {
	f := &fakeSurface{loads: map[string]int{}, fns: map[string]func([]Value) (Value, error){}}
	f.fns["add"] = func(args []Value) (Value, error) {
		var sum int64
		for _, a := range args {
			if a.Tag != VTInt {
				return Value{}, fmt.Errorf("add wants ints, got %s", a)
			}
			sum += a.Data.(int64)
		}
		return Int(sum), nil
	}
	f.fns["square"] = func(args []Value) (Value, error) {
		n := args[0].Data.(int64)
		return Int(n * n), nil
	}
	return f
}

func (f *fakeSurface) Load(module string) error {
	f.loads[module]++
	return nil
}

func (f *fakeSurface) Call(name string, args []Value) (Value, error) {
	fn, ok := f.fns[name]
	if !ok {
		return Value{}, fmt.Errorf("unknown function %q", name)
	}
	return fn(args)
}

func evalWithSurface(t *testing.T, src string) (Value, *fakeSurface, error) {
	t.Helper()
	ip := NewInterpreter()
	surface := newFakeSurface()
	ip.Extern = surface
	v, err := ip.EvalSource(src)
	return v, surface, err
}

// --- basics ----------------------------------------------------------------

func TestEmptyProgramIsFalse(t *testing.T) {
	wantBool(t, evalSrc(t, ""), false)
}

func TestLastExpressionWins(t *testing.T) {
	wantInt(t, evalSrc(t, "x = 1; y = 2; y"), 2)
	wantStr(t, evalSrc(t, `"a"; "b"`), "b")
}

func TestAssignmentYieldsValue(t *testing.T) {
	wantInt(t, evalSrc(t, "x = 5"), 5)
}

func TestAssignmentShadowsInCurrentFrame(t *testing.T) {
	// Rebinding a parameter name inside the body must not leak out.
	v := evalSrc(t, `
		x = 1;
		f(a) { x = a; x };
		f(9);
		x
	`)
	wantInt(t, v, 1)
}

func TestFunctionDefinitionIsAValue(t *testing.T) {
	v := evalSrc(t, "f(a) { a }")
	if v.Tag != VTFun {
		t.Fatalf("want function value, got %#v", v)
	}
}

// --- application, currying, arity ------------------------------------------

func TestExactArityCall(t *testing.T) {
	wantInt(t, evalSrc(t, "f(a, b) { a }; f(1, 2)"), 1)
}

func TestArityMismatchNamesFunction(t *testing.T) {
	err := evalErr(t, "f(a) { a }; f(1, 2)")
	wantRuntimeErr(t, err, ArityMismatch, "f")
}

func TestPartialApplication(t *testing.T) {
	v := evalSrc(t, "f(a, b) { a }; f(1)")
	if v.Tag != VTPartial {
		t.Fatalf("want partial application, got %#v", v)
	}
	wantInt(t, evalSrc(t, "f(a, b) { a }; g = f(1); g(2)"), 1)
}

func TestPartialApplicationOverflowFails(t *testing.T) {
	err := evalErr(t, "f(a, b) { a }; g = f(1); g(2, 3)")
	wantRuntimeErr(t, err, ArityMismatch, "f")
}

func TestZeroArityCall(t *testing.T) {
	wantInt(t, evalSrc(t, "f() { 7 }; f()"), 7)
}

func TestCallNonCallable(t *testing.T) {
	err := evalErr(t, "x = 1; x(2)")
	wantRuntimeErr(t, err, TypeMismatch, "not callable")
}

// --- closures --------------------------------------------------------------

func TestClosureCapturesDefinitionScope(t *testing.T) {
	wantInt(t, evalSrc(t, "x = 10; f(y) { x }; f(1)"), 10)
}

func TestClosureCallIsolation(t *testing.T) {
	// Each call to mk produces a getter closed over its own argument.
	src := `
		mk(a) { getter() { a }; getter };
		g1 = mk(1);
		g2 = mk(2);
		g1()
	`
	wantInt(t, evalSrc(t, src), 1)
	wantInt(t, evalSrc(t, strings.Replace(src, "g1()", "g2()", 1)), 2)
}

func TestSuccessiveCallsDoNotShareFrames(t *testing.T) {
	wantInt(t, evalSrc(t, "f(a) { a }; f(1); f(2)"), 2)
}

// --- variables and lookup --------------------------------------------------

func TestUndefinedVariable(t *testing.T) {
	err := evalErr(t, "y")
	wantRuntimeErr(t, err, UndefinedVariable, "y")
}

func TestUndefinedVariableSuggestsClosestName(t *testing.T) {
	err := evalErr(t, "counter = 1; countr")
	wantRuntimeErr(t, err, UndefinedVariable, "counter")
}

// --- return ----------------------------------------------------------------

func TestReturnStopsBody(t *testing.T) {
	// The undefined reference after return must never evaluate.
	wantInt(t, evalSrc(t, "f(a) { return a; nonexistent }; f(3)"), 3)
}

func TestReturnStopsTopLevel(t *testing.T) {
	wantInt(t, evalSrc(t, "return 5; nonexistent"), 5)
}

func TestReturnDoesNotEscapeCallee(t *testing.T) {
	wantInt(t, evalSrc(t, "f(a) { return a }; x = f(1); x"), 1)
}

// --- operators -------------------------------------------------------------

func TestUnhandledOperator(t *testing.T) {
	err := evalErr(t, "1 + 2")
	wantRuntimeErr(t, err, UnhandledOperator, "+")
}

func TestNotationGivesOperatorMeaning(t *testing.T) {
	src := `
		from fake use add;
		notation "$x plus $y" with x, y := add(x, y);
		1 plus 2
	`
	v, _, err := evalWithSurface(t, src)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	wantInt(t, v, 3)
}

func TestNotationChainsThroughFold(t *testing.T) {
	src := `
		from fake use add;
		notation "$x plus $y" with x, y := add(x, y);
		1 plus 2 plus 3
	`
	v, _, err := evalWithSurface(t, src)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	wantInt(t, v, 6)
}

// --- extern declarations ---------------------------------------------------

func TestExternDelegatesCall(t *testing.T) {
	v, _, err := evalWithSurface(t, "from fake use square; square(5)")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	wantInt(t, v, 25)
}

func TestExternDeclYieldsTrue(t *testing.T) {
	v, _, err := evalWithSurface(t, "from fake use square")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	wantBool(t, v, true)
}

func TestExternAlias(t *testing.T) {
	v, _, err := evalWithSurface(t, "from fake use square as sq; sq(4)")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	wantInt(t, v, 16)
}

func TestExternLoadIsIdempotent(t *testing.T) {
	// Two aliases of one module share the single loaded instance.
	_, surface, err := evalWithSurface(t,
		"from fake use square; from fake use square as sq; sq(2)")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if got := surface.loads["fake"]; got != 2 {
		// The surface decides idempotence; the evaluator just forwards
		// every declaration to Load.
		t.Fatalf("want 2 Load calls forwarded, got %d", got)
	}
}

func TestExternWithoutSurface(t *testing.T) {
	err := evalErr(t, "from python use square")
	wantRuntimeErr(t, err, ExternalCallError, "python")
}

func TestExternCallFailurePropagates(t *testing.T) {
	_, _, err := evalWithSurface(t, "from fake use missing; missing(1)")
	if err == nil {
		t.Fatalf("want error")
	}
	wantRuntimeErr(t, err, ExternalCallError, "missing")
}

// --- depth guard -----------------------------------------------------------

func TestDeepRecursionOverflows(t *testing.T) {
	err := evalErr(t, "loop(n) { loop(n) }; loop(1)")
	wantRuntimeErr(t, err, StackOverflow, "loop")
}

func TestMaxDepthConfigurable(t *testing.T) {
	ip := NewInterpreter()
	ip.MaxDepth = 4
	_, err := ip.EvalSource("loop(n) { loop(n) }; loop(1)")
	wantRuntimeErr(t, err, StackOverflow, "4")
}

func TestDepthResetsBetweenRuns(t *testing.T) {
	ip := NewInterpreter()
	ip.MaxDepth = 8
	if _, err := ip.EvalSource("loop(n) { loop(n) }; loop(1)"); err == nil {
		t.Fatalf("want overflow")
	}
	v, err := ip.EvalSource("f(a) { a }; f(1)")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	wantInt(t, v, 1)
}

// --- Apply -----------------------------------------------------------------

func TestApplyFunctionValue(t *testing.T) {
	ip := NewInterpreter()
	fn, err := ip.EvalSource("f(a, b) { b }")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	v, err := ip.Apply(fn, []Value{Int(1), Int(2)})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	wantInt(t, v, 2)
}

func TestApplyCurries(t *testing.T) {
	ip := NewInterpreter()
	fn, err := ip.EvalSource("f(a, b) { a }")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	part, err := ip.Apply(fn, []Value{Int(7)})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if part.Tag != VTPartial {
		t.Fatalf("want partial, got %#v", part)
	}
	v, err := ip.Apply(part, []Value{Int(0)})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	wantInt(t, v, 7)
}

func TestApplyArityError(t *testing.T) {
	ip := NewInterpreter()
	fn, err := ip.EvalSource("f(a) { a }")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	_, err = ip.Apply(fn, []Value{Int(1), Int(2)})
	wantRuntimeErr(t, err, ArityMismatch, "f")
}

// --- argument evaluation order ---------------------------------------------

func TestArgumentsEvaluateLeftToRightAndShortCircuit(t *testing.T) {
	// The second argument is undefined; the error must name it, proving
	// the first argument already evaluated and the call never ran.
	_, _, err := evalWithSurface(t, "from fake use add; add(1, boom)")
	wantRuntimeErr(t, err, UndefinedVariable, "boom")
}
