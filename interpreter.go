// interpreter.go: the public surface of the Galois evaluator.
//
// OVERVIEW
// --------
// This file exposes the public surface of the runtime:
//
//   - The **runtime value model** (`Value`, `ValueTag`, constructors like
//     `Int/Num/Str/Bool`).
//   - **Functions / closures** (`Fun`) and **partial applications**
//     (`Partial`) as first-class values.
//   - **Environments** (`Env`) with lexical scoping via parent links.
//   - The **External** capability the evaluator calls out through.
//   - The **Interpreter** with the canonical entry points: `EvalSource`
//     (parse → expand → evaluate), `EvalExprs` (pre-expanded AST), and
//     `Apply` (function application with currying).
//
// EXECUTION & SCOPING SEMANTICS
// -----------------------------
// Code evaluates against environments (`*Env`) forming a lexical chain.
// A function value closes over the environment current at its
// definition; applying it builds a **fresh child** of that closure
// environment and binds parameters there, so two calls to the same
// function never observe each other's parameter bindings, even when
// both are in flight on the call stack.
//
// Evaluation is single-threaded, synchronous, and depth-first. The only
// guard against runaway user recursion is MaxDepth: exceeding it yields
// a StackOverflow runtime error instead of crashing the host.
//
// ERRORS
// ------
// All public entry points return (Value, error). Failures surface as
// *ParseError, *ExpansionError, or *RuntimeError (see errors.go).
// Internally the engine panics with *RuntimeError and every public entry
// point recovers it at the boundary; no error is ever swallowed.
package galois

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueTag enumerates all runtime kinds a Value may hold.
type ValueTag int

const (
	VTBool    ValueTag = iota // bool
	VTInt                     // int64
	VTNum                     // float64
	VTStr                     // string
	VTFun                     // *Fun (closure)
	VTPartial                 // *Partial (function awaiting more arguments)
	VTExtern                  // string (externally-implemented function name)
)

// Value is the universal runtime carrier. Tag determines which Go type
// Data holds (see ValueTag).
type Value struct {
	Tag  ValueTag
	Data any
}

// String renders a human-friendly debug representation.
func (v Value) String() string {
	switch v.Tag {
	case VTBool:
		return strconv.FormatBool(v.Data.(bool))
	case VTInt:
		return strconv.FormatInt(v.Data.(int64), 10)
	case VTNum:
		return strconv.FormatFloat(v.Data.(float64), 'g', -1, 64)
	case VTStr:
		return fmt.Sprintf("%q", v.Data.(string))
	case VTFun:
		f := v.Data.(*Fun)
		return fmt.Sprintf("<fun %s(%s)>", f.Name, strings.Join(f.Params, ", "))
	case VTPartial:
		p := v.Data.(*Partial)
		f := p.Fn.Data.(*Fun)
		return fmt.Sprintf("<partial %s %d/%d>", f.Name, len(p.Args), len(f.Params))
	case VTExtern:
		return fmt.Sprintf("<extern %s>", v.Data.(string))
	default:
		return "<unknown>"
	}
}

// False is the default result of an empty program or body.
var False = Value{Tag: VTBool, Data: false}

// Primitive constructors.
func Bool(b bool) Value   { return Value{Tag: VTBool, Data: b} }
func Int(n int64) Value   { return Value{Tag: VTInt, Data: n} }
func Num(f float64) Value { return Value{Tag: VTNum, Data: f} }
func Str(s string) Value  { return Value{Tag: VTStr, Data: s} }

// Fun is a user-defined function: parameter names in order, body
// expressions, and the closure environment captured at definition time.
// The function's own name is bound in that environment, which is what
// makes direct recursion work.
type Fun struct {
	Name   string
	Params []string
	Body   []*Expr
	Env    *Env
}

// FunVal wraps *Fun into a Value.
func FunVal(f *Fun) Value { return Value{Tag: VTFun, Data: f} }

// Partial is a function applied to fewer arguments than its arity.
// Applying it again concatenates the argument lists.
type Partial struct {
	Fn   Value
	Args []Value
}

// PartialVal wraps *Partial into a Value.
func PartialVal(p *Partial) Value { return Value{Tag: VTPartial, Data: p} }

// ExternVal references a function resolved through the External surface.
func ExternVal(name string) Value { return Value{Tag: VTExtern, Data: name} }

// Env is a lexical environment frame with a parent link. Lookups walk
// parent-ward; Define always binds in the current frame (shadowing).
type Env struct {
	parent *Env
	table  map[string]Value
}

// NewEnv creates a new frame with the given parent (which may be nil).
func NewEnv(parent *Env) *Env { return &Env{parent: parent, table: make(map[string]Value)} }

// Define binds name to v in the current frame, shadowing any outer binding.
func (e *Env) Define(name string, v Value) { e.table[name] = v }

// Get retrieves the nearest visible binding for name.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.table[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Names returns every visible binding name, innermost first. Shadowed
// duplicates are omitted.
func (e *Env) Names() []string {
	seen := map[string]bool{}
	var names []string
	for env := e; env != nil; env = env.parent {
		for k := range env.table {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	return names
}

// External is the capability the evaluator uses to reach functions
// implemented outside the language. Load resolves a dotted module path
// and makes its exports callable; it is idempotent per module. Call
// executes a loaded function. Both are implemented by *Backend
// (extern.go) in the default runtime; hosts can substitute their own.
type External interface {
	Load(module string) error
	Call(name string, args []Value) (Value, error)
}

// DefaultMaxDepth bounds user-level call nesting before the evaluator
// reports StackOverflow.
const DefaultMaxDepth = 1000

// Interpreter evaluates expanded Galois programs.
//
// Fields may be adjusted between runs but not during one:
//   - Global: the persistent top-level environment.
//   - Extern: external call surface; nil means extern declarations fail.
//   - Tracer: call observer; defaults to the no-op tracer.
//   - MaxDepth: call-depth bound (DefaultMaxDepth when constructed).
type Interpreter struct {
	Global   *Env
	Extern   External
	Tracer   Tracer
	MaxDepth int

	depth int
}

// NewInterpreter returns an engine with an empty global environment and
// no external surface. See NewRuntime for the batteries-included setup.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		Global:   NewEnv(nil),
		Tracer:   NopTracer{},
		MaxDepth: DefaultMaxDepth,
	}
}

// NewRuntime returns an interpreter wired to the default extern backend
// (expr and python protocols rooted in the current directory).
func NewRuntime() *Interpreter {
	ip := NewInterpreter()
	ip.Extern = NewBackend()
	return ip
}

// EvalSource parses, expands, and evaluates a program, returning the
// value of its last top-level expression (False for an empty program).
func (ip *Interpreter) EvalSource(src string) (Value, error) {
	exprs, err := Parse(src)
	if err != nil {
		return Value{}, err
	}
	expanded, err := Expand(exprs)
	if err != nil {
		return Value{}, err
	}
	return ip.EvalExprs(expanded)
}

// EvalExprs evaluates already-expanded top-level expressions in order
// against the global environment and returns the value of the last one.
func (ip *Interpreter) EvalExprs(exprs []*Expr) (Value, error) {
	return ip.recovered(func() Value {
		return ip.evalSeq(exprs, ip.Global)
	})
}

// Apply applies a function value to the given arguments, with the same
// currying and arity semantics as a call in source code.
func (ip *Interpreter) Apply(fn Value, args []Value) (Value, error) {
	return ip.recovered(func() Value {
		return ip.applyFunction(fn, args)
	})
}

// recovered runs f under the engine's panic-to-error discipline: private
// helpers panic with *RuntimeError, and every public entry point stops
// them here. Anything else keeps propagating; that is a bug, not a
// user error.
func (ip *Interpreter) recovered(f func() Value) (out Value, err error) {
	ip.depth = 0
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*RuntimeError); ok {
				out, err = Value{}, re
				return
			}
			panic(r)
		}
	}()
	return f(), nil
}
