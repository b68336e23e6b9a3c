// notation.go: the notation rewrite pass.
//
// Notation declarations define surface-syntax rewrites that run after
// parsing and before evaluation. Two shapes are recognized:
//
//	notation "$a plus $b" with a, b := add(a, b)   // infix form
//	notation "twice $x" with x := mul(2, x)        // call form
//
// The infix form matches an infix expression whose operator equals the
// middle token. The call form matches a call whose callee is the named
// variable and whose argument count equals the slot count. Rules apply
// bottom-up, first declared wins, and a rewritten subtree is rewritten
// again so notations may build on each other.
package galois

import (
	"fmt"
	"strings"
)

// maxRewrites bounds how many times a single subtree may be rewritten,
// so mutually-referential notations fail instead of looping.
const maxRewrites = 1000

type notationForm int

const (
	formInfix notationForm = iota
	formCall
)

// rule is a compiled notation declaration.
type rule struct {
	pattern  string  // original pattern text, for error reporting
	form     notationForm
	op       string   // infix form: the operator token
	callee   string   // call form: the callee name
	slots    []string // slot names without the $ prefix, in pattern order
	template *Expr
}

// Expand consumes notation declarations from a top-level program and
// returns the remaining expressions with every rule applied. The input
// is not modified.
func Expand(exprs []*Expr) ([]*Expr, error) {
	var rules []*rule
	seen := map[string]bool{}
	var rest []*Expr

	for _, e := range exprs {
		if e.Tag != ENotation {
			rest = append(rest, e)
			continue
		}
		d := e.Data.(*NotationDecl)
		r, err := compileRule(d)
		if err != nil {
			return nil, err
		}
		if seen[r.pattern] {
			return nil, &ExpansionError{Pattern: r.pattern, Msg: "duplicate notation pattern"}
		}
		seen[r.pattern] = true
		rules = append(rules, r)
	}

	out := make([]*Expr, len(rest))
	for i, e := range rest {
		rewritten, err := rewrite(e, rules)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}

func compileRule(d *NotationDecl) (*rule, error) {
	pat := strings.TrimSpace(d.Pattern.Pattern)
	if pat == "" {
		return nil, &ExpansionError{Pattern: d.Pattern.Pattern, Msg: "empty notation pattern"}
	}
	tokens := strings.Fields(pat)

	r := &rule{pattern: pat, template: d.Expansion}
	switch {
	case len(tokens) == 3 && isSlot(tokens[0]) && !isSlot(tokens[1]) && isSlot(tokens[2]):
		r.form = formInfix
		r.op = tokens[1]
		r.slots = []string{tokens[0][1:], tokens[2][1:]}
	case !isSlot(tokens[0]):
		r.form = formCall
		r.callee = tokens[0]
		for _, t := range tokens[1:] {
			if !isSlot(t) {
				return nil, &ExpansionError{Pattern: pat,
					Msg: fmt.Sprintf("call pattern argument %q is not a $slot", t)}
			}
			r.slots = append(r.slots, t[1:])
		}
	default:
		return nil, &ExpansionError{Pattern: pat, Msg: "unrecognized pattern shape"}
	}

	for _, s := range r.slots {
		if s == "" {
			return nil, &ExpansionError{Pattern: pat, Msg: "empty $slot name"}
		}
	}
	seen := map[string]bool{}
	for _, s := range r.slots {
		if seen[s] {
			return nil, &ExpansionError{Pattern: pat,
				Msg: fmt.Sprintf("slot $%s appears twice", s)}
		}
		seen[s] = true
	}

	// A with-clause, when present, must declare every slot the pattern uses.
	if len(d.Pattern.Variables) > 0 {
		declared := map[string]bool{}
		for _, v := range d.Pattern.Variables {
			declared[v] = true
		}
		for _, s := range r.slots {
			if !declared[s] {
				return nil, &ExpansionError{Pattern: pat,
					Msg: fmt.Sprintf("slot $%s is not declared in the with clause", s)}
			}
		}
	}
	return r, nil
}

func isSlot(tok string) bool { return strings.HasPrefix(tok, "$") }

// rewrite applies rules bottom-up to a copy of e.
func rewrite(e *Expr, rules []*rule) (*Expr, error) {
	return rewriteN(e, rules, 0)
}

func rewriteN(e *Expr, rules []*rule, budget int) (*Expr, error) {
	node, err := rewriteChildren(e, rules, budget)
	if err != nil {
		return nil, err
	}
	for {
		r, bindings := matchAny(node, rules)
		if r == nil {
			return node, nil
		}
		budget++
		if budget > maxRewrites {
			return nil, &ExpansionError{Pattern: r.pattern, Msg: "rewrite limit exceeded"}
		}
		expanded := substitute(r.template, bindings)
		node, err = rewriteChildren(expanded, rules, budget)
		if err != nil {
			return nil, err
		}
	}
}

// rewriteChildren recurses into the positions rewriting reaches: call
// callees and arguments, infix operands, function bodies, assignment
// values, and return operands.
func rewriteChildren(e *Expr, rules []*rule, budget int) (*Expr, error) {
	switch e.Tag {
	case ECall:
		c := e.Data.(*Call)
		callee, err := rewriteN(c.Callee, rules, budget)
		if err != nil {
			return nil, err
		}
		args := make([]*Expr, len(c.Args))
		for i, a := range c.Args {
			if args[i], err = rewriteN(a, rules, budget); err != nil {
				return nil, err
			}
		}
		return CallExpr(&Call{Callee: callee, Args: args}), nil

	case EInfix:
		in := e.Data.(*Infix)
		l, err := rewriteN(in.Left, rules, budget)
		if err != nil {
			return nil, err
		}
		r, err := rewriteN(in.Right, rules, budget)
		if err != nil {
			return nil, err
		}
		return InfixExpr(&Infix{Left: l, Op: in.Op, Right: r}), nil

	case EFunDef:
		d := e.Data.(*FunDef)
		body := make([]*Expr, len(d.Body))
		var err error
		for i, b := range d.Body {
			if body[i], err = rewriteN(b, rules, budget); err != nil {
				return nil, err
			}
		}
		return FunDefExpr(&FunDef{Name: d.Name, Params: d.Params, Body: body}), nil

	case EAssign:
		a := e.Data.(*Assign)
		v, err := rewriteN(a.Value, rules, budget)
		if err != nil {
			return nil, err
		}
		return AssignExpr(&Assign{Name: a.Name, Value: v}), nil

	case EReturn:
		operand, err := rewriteN(e.Data.(*Expr), rules, budget)
		if err != nil {
			return nil, err
		}
		return ReturnExpr(operand), nil

	default:
		return e, nil
	}
}

// matchAny returns the first declared rule matching node, with its slot
// bindings, or (nil, nil).
func matchAny(node *Expr, rules []*rule) (*rule, map[string]*Expr) {
	for _, r := range rules {
		if b := r.match(node); b != nil {
			return r, b
		}
	}
	return nil, nil
}

func (r *rule) match(node *Expr) map[string]*Expr {
	switch r.form {
	case formInfix:
		if node.Tag != EInfix {
			return nil
		}
		in := node.Data.(*Infix)
		if in.Op != r.op {
			return nil
		}
		return map[string]*Expr{r.slots[0]: in.Left, r.slots[1]: in.Right}

	case formCall:
		if node.Tag != ECall {
			return nil
		}
		c := node.Data.(*Call)
		if c.Callee.Tag != EVar || c.Callee.Data.(string) != r.callee {
			return nil
		}
		if len(c.Args) != len(r.slots) {
			return nil
		}
		bindings := make(map[string]*Expr, len(r.slots))
		for i, s := range r.slots {
			bindings[s] = c.Args[i]
		}
		return bindings
	}
	return nil
}

// substitute replaces slot variables in a template with their bound
// subtrees. Substitution descends through calls and infix operands
// only; a slot name under any other construct is left alone.
func substitute(template *Expr, bindings map[string]*Expr) *Expr {
	switch template.Tag {
	case EVar:
		if bound, ok := bindings[template.Data.(string)]; ok {
			return bound
		}
		return template

	case ECall:
		c := template.Data.(*Call)
		callee := substitute(c.Callee, bindings)
		args := make([]*Expr, len(c.Args))
		for i, a := range c.Args {
			args[i] = substitute(a, bindings)
		}
		return CallExpr(&Call{Callee: callee, Args: args})

	case EInfix:
		in := template.Data.(*Infix)
		return InfixExpr(&Infix{
			Left:  substitute(in.Left, bindings),
			Op:    in.Op,
			Right: substitute(in.Right, bindings),
		})

	default:
		return template
	}
}
