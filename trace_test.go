package galois

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// recordingTracer flattens events into strings for easy assertions.
type recordingTracer struct {
	events []string
}

func (r *recordingTracer) EnterCall(name string, args []Value, depth int) {
	r.events = append(r.events, fmt.Sprintf("enter %s/%d depth=%d", name, len(args), depth))
}

func (r *recordingTracer) ExitCall(name string, result Value, err error, depth int) {
	if err != nil {
		r.events = append(r.events, fmt.Sprintf("fail %s depth=%d", name, depth))
		return
	}
	r.events = append(r.events, fmt.Sprintf("exit %s=%s depth=%d", name, result, depth))
}

func TestTracerSeesNestedCalls(t *testing.T) {
	ip := NewInterpreter()
	rec := &recordingTracer{}
	ip.Tracer = rec

	if _, err := ip.EvalSource("f(a) { a }; g(b) { f(b) }; g(1)"); err != nil {
		t.Fatalf("eval error: %v", err)
	}

	want := []string{
		"enter g/1 depth=1",
		"enter f/1 depth=2",
		"exit f=1 depth=2",
		"exit g=1 depth=1",
	}
	if got := strings.Join(rec.events, "; "); got != strings.Join(want, "; ") {
		t.Fatalf("got events %q", got)
	}
}

func TestTracerSeesFailedCalls(t *testing.T) {
	ip := NewInterpreter()
	rec := &recordingTracer{}
	ip.Tracer = rec

	if _, err := ip.EvalSource("boom() { missing }; boom()"); err == nil {
		t.Fatalf("want error")
	}
	if len(rec.events) != 2 || rec.events[0] != "enter boom/0 depth=1" || rec.events[1] != "fail boom depth=1" {
		t.Fatalf("got events %v", rec.events)
	}
}

func TestTracerNotCalledForPartials(t *testing.T) {
	ip := NewInterpreter()
	rec := &recordingTracer{}
	ip.Tracer = rec

	if _, err := ip.EvalSource("f(a, b) { a }; f(1)"); err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("partial application must not trace a call, got %v", rec.events)
	}
}

func TestStyledTracerOutput(t *testing.T) {
	var buf bytes.Buffer
	ip := NewInterpreter()
	ip.Tracer = &StyledTracer{Out: &buf}

	if _, err := ip.EvalSource(`f(a) { a }; g(b) { f(b) }; g("x")`); err != nil {
		t.Fatalf("eval error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"[1]", "[2]", "g", "f", "=>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	// nested call is indented under its caller
	if !strings.Contains(out, "\n  ") {
		t.Fatalf("want indentation for depth 2:\n%s", out)
	}
}

func TestNopTracerIsDefault(t *testing.T) {
	ip := NewInterpreter()
	if _, ok := ip.Tracer.(NopTracer); !ok {
		t.Fatalf("want NopTracer default, got %T", ip.Tracer)
	}
}
