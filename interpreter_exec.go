// interpreter_exec.go: the private evaluation engine.
//
// Everything here panics with *RuntimeError on failure; the public entry
// points in interpreter.go recover at the boundary. Keeping the engine
// panic-based avoids threading an error return through every recursive
// case of the tree walk.
package galois

import (
	"fmt"

	"github.com/sahilm/fuzzy"
)

// rtErr aborts evaluation with a runtime error of the given kind.
func rtErr(kind RuntimeErrorKind, format string, args ...any) {
	panic(&RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// returnSignal carries an early return up through the enclosing body.
// It never escapes evalSeq.
type returnSignal struct {
	value Value
}

// evalSeq evaluates a body in order and returns the last value, or
// False when the body is empty. A return expression stops the sequence
// immediately; the remaining expressions are not evaluated.
func (ip *Interpreter) evalSeq(exprs []*Expr, env *Env) (out Value) {
	if len(exprs) == 0 {
		return False
	}
	defer func() {
		if r := recover(); r != nil {
			if sig, ok := r.(returnSignal); ok {
				out = sig.value
				return
			}
			panic(r)
		}
	}()
	for _, e := range exprs {
		out = ip.evalExpr(e, env)
	}
	return out
}

func (ip *Interpreter) evalExpr(e *Expr, env *Env) Value {
	switch e.Tag {
	case EPrim:
		return primValue(e.Data.(Primitive))

	case EVar:
		name := e.Data.(string)
		v, ok := env.Get(name)
		if !ok {
			if hint := closestName(name, env.Names()); hint != "" {
				rtErr(UndefinedVariable, "%s (did you mean %s?)", name, hint)
			}
			rtErr(UndefinedVariable, "%s", name)
		}
		return v

	case EFunDef:
		d := e.Data.(*FunDef)
		f := &Fun{Name: d.Name, Params: d.Params, Body: d.Body, Env: env}
		fv := FunVal(f)
		// The name is visible inside the body, so recursion works.
		env.Define(d.Name, fv)
		return fv

	case ECall:
		c := e.Data.(*Call)
		fn := ip.evalExpr(c.Callee, env)
		args := make([]Value, len(c.Args))
		for i, a := range c.Args {
			args[i] = ip.evalExpr(a, env)
		}
		return ip.applyFunction(fn, args)

	case EReturn:
		operand := e.Data.(*Expr)
		panic(returnSignal{value: ip.evalExpr(operand, env)})

	case EAssign:
		a := e.Data.(*Assign)
		v := ip.evalExpr(a.Value, env)
		env.Define(a.Name, v)
		return v

	case EInfix:
		in := e.Data.(*Infix)
		rtErr(UnhandledOperator, "%s (no notation rewrites this operator)", in.Op)

	case ENotation:
		// Declarations are consumed by expansion; one reaching the
		// evaluator means EvalExprs was handed an unexpanded tree.
		d := e.Data.(*NotationDecl)
		rtErr(UnhandledOperator, "unexpanded notation %q", d.Pattern.Pattern)

	case EExtern:
		d := e.Data.(*ExternDecl)
		if ip.Extern == nil {
			rtErr(ExternalCallError, "no external surface configured for module %s", d.Module)
		}
		if err := ip.Extern.Load(d.Module); err != nil {
			rtErr(ExternalCallError, "loading %s: %v", d.Module, err)
		}
		bind := d.Alias
		if bind == "" {
			bind = d.Name
		}
		env.Define(bind, ExternVal(d.Name))
		return Bool(true)
	}
	rtErr(TypeMismatch, "cannot evaluate expression tag %d", e.Tag)
	return Value{} // unreachable
}

func primValue(p Primitive) Value {
	switch p.Tag {
	case PInt:
		return Int(p.Data.(int64))
	case PNum:
		return Num(p.Data.(float64))
	case PStr:
		return Str(p.Data.(string))
	case PBool:
		return Bool(p.Data.(bool))
	}
	rtErr(TypeMismatch, "unknown primitive tag %d", p.Tag)
	return Value{} // unreachable
}

// applyFunction implements call semantics for every callable kind.
//
// For a closure with arity n applied to k arguments:
//   - k < n: the result is a partial application holding the arguments
//     so far; nothing runs.
//   - k == n: the body runs in a fresh child of the closure environment
//     with parameters bound.
//   - k > n: arity mismatch, named after the function.
//
// Applying a partial concatenates argument lists and re-applies. Extern
// values delegate to the external surface, which receives all arguments
// at once (no currying across the boundary).
func (ip *Interpreter) applyFunction(fn Value, args []Value) Value {
	switch fn.Tag {
	case VTFun:
		f := fn.Data.(*Fun)
		switch {
		case len(args) < len(f.Params):
			held := make([]Value, len(args))
			copy(held, args)
			return PartialVal(&Partial{Fn: fn, Args: held})
		case len(args) > len(f.Params):
			rtErr(ArityMismatch, "%s expects %d argument(s), got %d",
				f.Name, len(f.Params), len(args))
		}
		return ip.runBody(f, args)

	case VTPartial:
		p := fn.Data.(*Partial)
		all := make([]Value, 0, len(p.Args)+len(args))
		all = append(all, p.Args...)
		all = append(all, args...)
		return ip.applyFunction(p.Fn, all)

	case VTExtern:
		name := fn.Data.(string)
		if ip.Extern == nil {
			rtErr(ExternalCallError, "no external surface configured for %s", name)
		}
		v, err := ip.Extern.Call(name, args)
		if err != nil {
			rtErr(ExternalCallError, "%s: %v", name, err)
		}
		return v

	default:
		rtErr(TypeMismatch, "value %s is not callable", fn)
		return Value{} // unreachable
	}
}

// runBody executes a fully-saturated call under the depth guard and
// tracer.
func (ip *Interpreter) runBody(f *Fun, args []Value) Value {
	if ip.depth >= ip.maxDepth() {
		rtErr(StackOverflow, "call depth exceeded %d in %s", ip.maxDepth(), f.Name)
	}
	ip.depth++
	ip.tracer().EnterCall(f.Name, args, ip.depth)

	frame := NewEnv(f.Env)
	for i, p := range f.Params {
		frame.Define(p, args[i])
	}

	var result Value
	func() {
		defer func() {
			if r := recover(); r != nil {
				ip.depth--
				if re, ok := r.(*RuntimeError); ok {
					ip.tracer().ExitCall(f.Name, Value{}, re, ip.depth+1)
				}
				panic(r)
			}
		}()
		result = ip.evalSeq(f.Body, frame)
	}()

	ip.tracer().ExitCall(f.Name, result, nil, ip.depth)
	ip.depth--
	return result
}

func (ip *Interpreter) maxDepth() int {
	if ip.MaxDepth > 0 {
		return ip.MaxDepth
	}
	return DefaultMaxDepth
}

func (ip *Interpreter) tracer() Tracer {
	if ip.Tracer != nil {
		return ip.Tracer
	}
	return NopTracer{}
}

// closestName picks the best fuzzy match for name among candidates, or
// "" when nothing is close enough to be a useful hint.
func closestName(name string, candidates []string) string {
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
