// Command galois runs Galois programs and hosts an interactive session.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	"github.com/jfulfo/galois"
)

type cli struct {
	MaxDepth   int    `default:"1000" help:"Maximum call depth before aborting."`
	Trace      bool   `help:"Log every call and return to stderr."`
	ExprRoot   string `default:"." help:"Directory searched for expr modules." type:"path"`
	PythonRoot string `default:"." help:"Directory searched for python modules." type:"path"`
	Profile    string `default:"" enum:",cpu,mem" help:"Write a pprof profile on exit."`

	Run  runCmd  `cmd:"" help:"Run a script file."`
	Repl replCmd `cmd:"" default:"withargs" help:"Start an interactive session."`

	Version kong.VersionFlag `help:"Print the version and exit."`
}

func main() {
	var c cli
	ktx := kong.Parse(&c,
		kong.Name("galois"),
		kong.Description("The Galois expression language."),
		kong.UsageOnError(),
		kong.Vars{"version": galois.Version},
	)

	if stop := startProfile(c.Profile); stop != nil {
		defer stop()
	}
	ktx.FatalIfErrorf(ktx.Run(&c))
}

func startProfile(mode string) func() {
	switch mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop
	}
	return nil
}

// newInterpreter wires an engine from the shared flags.
func newInterpreter(c *cli) *galois.Interpreter {
	backend := galois.NewBackend()
	backend.Register("expr", galois.NewExprProtocol(c.ExprRoot))
	backend.Register("python", galois.NewPythonProtocol(c.PythonRoot))

	ip := galois.NewInterpreter()
	ip.Extern = backend
	ip.MaxDepth = c.MaxDepth
	if c.Trace {
		ip.Tracer = &galois.StyledTracer{Out: os.Stderr}
	}
	return ip
}

type runCmd struct {
	File string `arg:"" help:"Script to run." type:"existingfile"`
}

func (r *runCmd) Run(c *cli) error {
	src, err := os.ReadFile(r.File)
	if err != nil {
		return err
	}
	ip := newInterpreter(c)
	if _, err := ip.EvalSource(string(src)); err != nil {
		fmt.Fprintln(os.Stderr, galois.WrapErrorWithSource(err, string(src)))
		os.Exit(1)
	}
	return nil
}
