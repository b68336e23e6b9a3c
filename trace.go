package galois

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tracer observes function calls as the evaluator runs them. EnterCall
// fires after arguments are evaluated and before the body runs;
// ExitCall fires with the result, or with the error when the call
// unwinds. depth is 1 for a top-level call.
type Tracer interface {
	EnterCall(name string, args []Value, depth int)
	ExitCall(name string, result Value, err error, depth int)
}

// NopTracer discards all events. It is the default.
type NopTracer struct{}

func (NopTracer) EnterCall(string, []Value, int)     {}
func (NopTracer) ExitCall(string, Value, error, int) {}

var (
	traceCallStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	traceResultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	traceErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	traceDepthStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// StyledTracer writes an indented, colorized call log to Out, one line
// per enter/exit event.
type StyledTracer struct {
	Out io.Writer
}

func (t *StyledTracer) EnterCall(name string, args []Value, depth int) {
	rendered := make([]string, len(args))
	for i, a := range args {
		rendered[i] = a.String()
	}
	fmt.Fprintf(t.Out, "%s%s %s(%s)\n",
		indent(depth),
		traceDepthStyle.Render(fmt.Sprintf("[%d]", depth)),
		traceCallStyle.Render(name),
		strings.Join(rendered, ", "))
}

func (t *StyledTracer) ExitCall(name string, result Value, err error, depth int) {
	if err != nil {
		fmt.Fprintf(t.Out, "%s%s %s !! %s\n",
			indent(depth),
			traceDepthStyle.Render(fmt.Sprintf("[%d]", depth)),
			traceCallStyle.Render(name),
			traceErrorStyle.Render(err.Error()))
		return
	}
	fmt.Fprintf(t.Out, "%s%s %s => %s\n",
		indent(depth),
		traceDepthStyle.Render(fmt.Sprintf("[%d]", depth)),
		traceCallStyle.Render(name),
		traceResultStyle.Render(result.String()))
}

func indent(depth int) string {
	if depth <= 1 {
		return ""
	}
	return strings.Repeat("  ", depth-1)
}
