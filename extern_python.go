// extern_python.go implements the "python" protocol: external modules are
// Python files next to Root. Each call spawns the interpreter with a
// small driver that imports the module, applies the function to
// JSON-decoded arguments from stdin, and prints the JSON-encoded
// result on stdout.
package galois

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const pythonDriver = `
import importlib, json, sys
req = json.load(sys.stdin)
mod = importlib.import_module(req["module"])
out = getattr(mod, req["function"])(*req["args"])
json.dump(out, sys.stdout)
`

const pythonLister = `
import importlib, inspect, json, sys
mod = importlib.import_module(sys.argv[1])
names = [n for n, v in vars(mod).items()
         if inspect.isfunction(v) and not n.startswith("_")]
json.dump(sorted(names), sys.stdout)
`

// PythonProtocol resolves modules as importable files under Root.
// Python defaults to "python3" on PATH.
type PythonProtocol struct {
	Root   string
	Python string
}

func NewPythonProtocol(root string) *PythonProtocol {
	return &PythonProtocol{Root: root, Python: "python3"}
}

func (p *PythonProtocol) LoadModule(module string) ([]string, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(module, ".", "/")) + ".py"
	if _, err := os.Stat(filepath.Join(p.Root, rel)); err != nil {
		return nil, err
	}

	out, err := p.run(nil, pythonLister, module)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(out, &names); err != nil {
		return nil, fmt.Errorf("listing %s exports: %w", module, err)
	}
	return names, nil
}

func (p *PythonProtocol) CallFunction(module, name string, args []Value) (Value, error) {
	goArgs, err := argsToGo(args)
	if err != nil {
		return Value{}, err
	}
	req, err := json.Marshal(map[string]any{
		"module":   module,
		"function": name,
		"args":     goArgs,
	})
	if err != nil {
		return Value{}, err
	}

	out, err := p.run(req, pythonDriver)
	if err != nil {
		return Value{}, fmt.Errorf("%s.%s: %w", module, name, err)
	}

	var result any
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return Value{}, fmt.Errorf("%s.%s returned malformed output: %w", module, name, err)
	}
	return jsonToValue(result)
}

func (p *PythonProtocol) run(stdin []byte, script string, args ...string) ([]byte, error) {
	cmd := exec.Command(p.Python, append([]string{"-c", script}, args...)...)
	cmd.Dir = p.Root
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s", lastLine(msg))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// jsonToValue maps a decoded JSON result onto a runtime value. Numbers
// stay integers when they parse as one.
func jsonToValue(x any) (Value, error) {
	switch t := x.(type) {
	case bool:
		return Bool(t), nil
	case string:
		return Str(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Num(f), nil
	}
	return Value{}, fmt.Errorf("external function returned unsupported type %T", x)
}
