package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jfulfo/galois"
)

const (
	historyFile = ".galois_history"
	promptMain  = ">> "
	promptCont  = ".. "
)

var (
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

type replCmd struct{}

func (replCmd) Run(c *cli) error {
	fmt.Println(bannerStyle.Render(fmt.Sprintf(
		"Galois %s. Ctrl+C cancels input, Ctrl+D exits.", galois.Version)))

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	ip := newInterpreter(c)

	// Notation declarations entered earlier in the session stay in
	// force for every later line.
	var notations []*galois.Expr

	for {
		code, ok := readByParseProbe(ln)
		if !ok {
			fmt.Println()
			return nil
		}
		if strings.TrimSpace(code) == "" {
			continue
		}

		exprs, err := galois.Parse(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(galois.WrapErrorWithSource(err, code).Error()))
			continue
		}
		var rest []*galois.Expr
		for _, e := range exprs {
			if e.Tag == galois.ENotation {
				notations = addNotation(notations, e)
				continue
			}
			rest = append(rest, e)
		}

		expanded, err := galois.Expand(append(append([]*galois.Expr{}, notations...), rest...))
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			continue
		}

		v, err := ip.EvalExprs(expanded)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			continue
		}
		fmt.Println(resultStyle.Render(v.String()))
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
}

// addNotation stores a declaration for the rest of the session.
// Re-declaring the same pattern replaces the earlier rule in place.
func addNotation(notations []*galois.Expr, decl *galois.Expr) []*galois.Expr {
	pattern := decl.Data.(*galois.NotationDecl).Pattern.Pattern
	for i, n := range notations {
		if n.Data.(*galois.NotationDecl).Pattern.Pattern == pattern {
			notations[i] = decl
			return notations
		}
	}
	return append(notations, decl)
}

// readByParseProbe accumulates lines until the buffer parses, or until
// the parse error is somewhere other than the end of input (in which
// case the broken buffer is returned and reported by the caller).
func readByParseProbe(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		_, perr := galois.Parse(src)
		if perr == nil {
			return src, true
		}
		if errorAtEOF(src, perr) {
			continue
		}
		return src, true
	}
}

// errorAtEOF reports whether a parse error points at the very end of
// src, which usually means the input is incomplete rather than wrong.
func errorAtEOF(src string, err error) bool {
	pe, ok := err.(*galois.ParseError)
	if !ok {
		return false
	}
	lines := strings.Split(src, "\n")
	last := lines[len(lines)-1]
	return pe.Line >= len(lines) && pe.Col > len(last)
}
