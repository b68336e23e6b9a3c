// extern.go: the default external call surface.
//
// An extern declaration names a dotted module path whose first segment
// selects a protocol (the implementation language) and whose remainder
// names a module within that protocol:
//
//	from expr.geometry use area
//	from python use square
//
// Backend routes loads and calls to the registered Protocol for the
// language segment and keeps the function-to-module table needed to
// dispatch later calls by bare function name.
package galois

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Protocol implements one external language. LoadModule resolves a
// module name (the path after the language segment, "main" when empty)
// and returns the function names it exports. CallFunction invokes one
// of them.
type Protocol interface {
	LoadModule(module string) ([]string, error)
	CallFunction(module, name string, args []Value) (Value, error)
}

// binding records where a loaded function lives.
type binding struct {
	language string
	module   string
}

// Backend is the default External implementation. It satisfies the
// External interface consumed by the Interpreter.
type Backend struct {
	protocols map[string]Protocol
	loaded    map[string]bool
	functions map[string]binding
}

// NewBackend returns a backend with the expr and python protocols
// rooted in the current directory. Register replaces or adds protocols.
func NewBackend() *Backend {
	b := &Backend{
		protocols: make(map[string]Protocol),
		loaded:    make(map[string]bool),
		functions: make(map[string]binding),
	}
	b.Register("expr", NewExprProtocol("."))
	b.Register("python", NewPythonProtocol("."))
	return b
}

// Register installs p as the handler for the given language segment.
func (b *Backend) Register(language string, p Protocol) {
	b.protocols[language] = p
}

// Load resolves a dotted module path. Loading the same path twice is a
// no-op; the first load's bindings stay in effect.
func (b *Backend) Load(module string) error {
	if b.loaded[module] {
		return nil
	}
	language, sub := splitModulePath(module)
	p, ok := b.protocols[language]
	if !ok {
		return fmt.Errorf("no protocol registered for language %q", language)
	}
	exports, err := p.LoadModule(sub)
	if err != nil {
		return fmt.Errorf("%s: %w", module, err)
	}
	for _, name := range exports {
		b.functions[name] = binding{language: language, module: sub}
	}
	b.loaded[module] = true
	return nil
}

// Call dispatches a loaded function by bare name.
func (b *Backend) Call(name string, args []Value) (Value, error) {
	bd, ok := b.functions[name]
	if !ok {
		if hint := b.closest(name); hint != "" {
			return Value{}, fmt.Errorf("unknown external function %q (did you mean %q?)", name, hint)
		}
		return Value{}, fmt.Errorf("unknown external function %q", name)
	}
	return b.protocols[bd.language].CallFunction(bd.module, name, args)
}

func (b *Backend) closest(name string) string {
	names := make([]string, 0, len(b.functions))
	for n := range b.functions {
		names = append(names, n)
	}
	sort.Strings(names)
	matches := fuzzy.Find(name, names)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

func splitModulePath(path string) (language, sub string) {
	language, sub, found := strings.Cut(path, ".")
	if !found || sub == "" {
		sub = "main"
	}
	return language, sub
}

// valueToGo converts a runtime value to the plain Go form protocols
// exchange.
func valueToGo(v Value) (any, error) {
	switch v.Tag {
	case VTBool, VTInt, VTNum, VTStr:
		return v.Data, nil
	}
	return nil, fmt.Errorf("cannot pass %s across the external boundary", v)
}

// goToValue converts a protocol result back into a runtime value.
func goToValue(x any) (Value, error) {
	switch t := x.(type) {
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		return Num(t), nil
	case string:
		return Str(t), nil
	}
	return Value{}, fmt.Errorf("external function returned unsupported type %T", x)
}

func argsToGo(args []Value) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := valueToGo(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
