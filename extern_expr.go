// extern_expr.go implements the "expr" protocol: external modules are YAML
// manifests whose entries are expr-lang expressions over named
// parameters. A module file looks like
//
//	functions:
//	  square:
//	    params: [x]
//	    body: x * x
//	  hypot:
//	    params: [a, b]
//	    body: (a*a + b*b) ^ 0.5
//
// Bodies are compiled once at load time and run per call with the
// parameters bound.
package galois

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-yaml"
)

type exprManifest struct {
	Functions map[string]exprFunction `yaml:"functions"`
}

type exprFunction struct {
	Params []string `yaml:"params"`
	Body   string   `yaml:"body"`
}

type compiledExpr struct {
	params  []string
	program *vm.Program
}

// ExprProtocol loads expr-lang modules from <Root>/<module>.yaml, with
// dots in the module name mapping to subdirectories.
type ExprProtocol struct {
	Root    string
	modules map[string]map[string]compiledExpr
}

func NewExprProtocol(root string) *ExprProtocol {
	return &ExprProtocol{Root: root, modules: make(map[string]map[string]compiledExpr)}
}

func (p *ExprProtocol) LoadModule(module string) ([]string, error) {
	path := filepath.Join(p.Root, filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m exprManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	compiled := make(map[string]compiledExpr, len(m.Functions))
	for name, fn := range m.Functions {
		env := make(map[string]any, len(fn.Params))
		for _, param := range fn.Params {
			env[param] = any(nil)
		}
		program, err := expr.Compile(fn.Body, expr.Env(env), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("%s: function %s: %w", path, name, err)
		}
		compiled[name] = compiledExpr{params: fn.Params, program: program}
	}
	p.modules[module] = compiled

	exports := make([]string, 0, len(compiled))
	for name := range compiled {
		exports = append(exports, name)
	}
	sort.Strings(exports)
	return exports, nil
}

func (p *ExprProtocol) CallFunction(module, name string, args []Value) (Value, error) {
	mod, ok := p.modules[module]
	if !ok {
		return Value{}, fmt.Errorf("module %s is not loaded", module)
	}
	fn, ok := mod[name]
	if !ok {
		return Value{}, fmt.Errorf("module %s does not export %s", module, name)
	}
	if len(args) != len(fn.params) {
		return Value{}, fmt.Errorf("%s expects %d argument(s), got %d", name, len(fn.params), len(args))
	}

	env := make(map[string]any, len(args))
	for i, param := range fn.params {
		v, err := valueToGo(args[i])
		if err != nil {
			return Value{}, err
		}
		env[param] = v
	}
	result, err := vm.Run(fn.program, env)
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", name, err)
	}
	return goToValue(result)
}
