// ast.go: the Galois AST.
//
// OVERVIEW
// --------
// The parser produces a tree of *Expr nodes. An Expr is a closed tagged
// variant: the Tag determines which Go type lives in Data (see ExprTag).
// Every component that walks the tree (the notation expander, the
// evaluator, the renderer below) switches exhaustively on Tag, so adding
// a node kind surfaces everywhere it must be handled.
//
// Nodes are immutable after parsing. Subtrees are shared by pointer; the
// raw and expanded programs may alias the same nodes freely, and nothing
// ever mutates a node in place.
//
// The canonical renderer ((*Expr).String) is defined here as well. It is
// the rendering referred to by the round-trip guarantee: re-parsing
// String() of any parsed expression yields a structurally equivalent tree.
package galois

import (
	"fmt"
	"strconv"
	"strings"
)

// ExprTag enumerates all AST node kinds. The tag determines which type
// Expr.Data holds.
type ExprTag int

const (
	EPrim     ExprTag = iota // Primitive
	EVar                     // string (variable name)
	EFunDef                  // *FunDef
	ECall                    // *Call
	EReturn                  // *Expr (operand)
	EAssign                  // *Assign
	EInfix                   // *Infix
	ENotation                // *NotationDecl
	EExtern                  // *ExternDecl
)

// Expr is a single AST node.
//
// Invariants:
//   - Data holds exactly the type documented on the Tag constant.
//   - Nodes are never mutated after construction.
type Expr struct {
	Tag  ExprTag
	Data any
}

// PrimTag enumerates literal kinds.
type PrimTag int

const (
	PInt  PrimTag = iota // int64
	PNum                 // float64
	PStr                 // string
	PBool                // bool
)

// Primitive is an immutable literal: integer, float, UTF-8 string, or bool.
type Primitive struct {
	Tag  PrimTag
	Data any
}

// FunDef is a named function definition. Body is an ordered sequence of
// expressions evaluated in definition order.
type FunDef struct {
	Name   string
	Params []string
	Body   []*Expr
}

// Call applies Callee to Args. The parser only produces variable callees;
// notation expansion may substitute arbitrary expressions into that slot.
type Call struct {
	Callee *Expr
	Args   []*Expr
}

// Assign binds Name to the value of Value in the current environment.
type Assign struct {
	Name  string
	Value *Expr
}

// Infix is a single left-leaning infix application. Chains like a+b+c
// arrive as Infix(Infix(a,+,b),+,c); the parser knows no precedence
// beyond the left fold, and the evaluator defines no operator semantics
// at all. Every surviving Infix must be rewritten away by a notation.
type Infix struct {
	Left  *Expr
	Op    string
	Right *Expr
}

// Associativity is advisory metadata on a notation declaration. It does
// not alter parsing, which always folds left.
type Associativity int

const (
	AssocNone Associativity = iota
	AssocLeft
	AssocRight
)

func (a Associativity) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	default:
		return "none"
	}
}

// NotationPattern is the matchable half of a notation declaration.
// Pattern is the textual template (e.g. `$x plus $y`), Variables the
// declared slot names in order. Precedence is nil when not declared.
type NotationPattern struct {
	Pattern       string
	Variables     []string
	Precedence    *int
	Associativity Associativity
}

// NotationDecl declares a rewrite rule: term matching Pattern becomes
// Expansion with the pattern variables substituted.
type NotationDecl struct {
	Pattern   NotationPattern
	Expansion *Expr
}

// ExternDecl makes an externally-implemented function callable:
// `from Module use Name [as Alias]`. Alias is "" when absent.
type ExternDecl struct {
	Module string
	Name   string
	Alias  string
}

// Constructors. These are the only way the parser and expander build
// nodes, which keeps the Tag↔Data pairing in one place.

func PrimExpr(p Primitive) *Expr   { return &Expr{Tag: EPrim, Data: p} }
func IntExpr(n int64) *Expr        { return PrimExpr(Primitive{Tag: PInt, Data: n}) }
func NumExpr(f float64) *Expr      { return PrimExpr(Primitive{Tag: PNum, Data: f}) }
func StrExpr(s string) *Expr       { return PrimExpr(Primitive{Tag: PStr, Data: s}) }
func BoolExpr(b bool) *Expr        { return PrimExpr(Primitive{Tag: PBool, Data: b}) }
func VarExpr(name string) *Expr    { return &Expr{Tag: EVar, Data: name} }
func ReturnExpr(e *Expr) *Expr     { return &Expr{Tag: EReturn, Data: e} }
func FunDefExpr(f *FunDef) *Expr   { return &Expr{Tag: EFunDef, Data: f} }
func CallExpr(c *Call) *Expr       { return &Expr{Tag: ECall, Data: c} }
func AssignExpr(a *Assign) *Expr   { return &Expr{Tag: EAssign, Data: a} }
func InfixExpr(i *Infix) *Expr     { return &Expr{Tag: EInfix, Data: i} }
func NotationExpr(n *NotationDecl) *Expr {
	return &Expr{Tag: ENotation, Data: n}
}
func ExternExpr(d *ExternDecl) *Expr { return &Expr{Tag: EExtern, Data: d} }

// String renders the primitive as source text.
func (p Primitive) String() string {
	switch p.Tag {
	case PInt:
		return strconv.FormatInt(p.Data.(int64), 10)
	case PNum:
		f := p.Data.(float64)
		s := strconv.FormatFloat(f, 'g', -1, 64)
		// keep floats re-parseable as floats: the grammar wants a dot
		if !strings.Contains(s, ".") {
			if i := strings.IndexAny(s, "eE"); i >= 0 {
				s = s[:i] + ".0" + s[i:]
			} else {
				s += ".0"
			}
		}
		return s
	case PStr:
		return strconv.Quote(p.Data.(string))
	case PBool:
		return strconv.FormatBool(p.Data.(bool))
	default:
		return "<prim>"
	}
}

// String renders the canonical source form of the expression.
func (e *Expr) String() string {
	var b strings.Builder
	e.render(&b)
	return b.String()
}

func (e *Expr) render(b *strings.Builder) {
	switch e.Tag {
	case EPrim:
		b.WriteString(e.Data.(Primitive).String())
	case EVar:
		b.WriteString(e.Data.(string))
	case EFunDef:
		f := e.Data.(*FunDef)
		fmt.Fprintf(b, "%s(%s) { ", f.Name, strings.Join(f.Params, ", "))
		for i, expr := range f.Body {
			if i > 0 {
				b.WriteString("; ")
			}
			expr.render(b)
		}
		b.WriteString(" }")
	case ECall:
		c := e.Data.(*Call)
		if c.Callee.Tag == EVar {
			b.WriteString(c.Callee.Data.(string))
		} else {
			b.WriteByte('(')
			c.Callee.render(b)
			b.WriteByte(')')
		}
		b.WriteByte('(')
		for i, a := range c.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.render(b)
		}
		b.WriteByte(')')
	case EReturn:
		b.WriteString("return ")
		e.Data.(*Expr).render(b)
	case EAssign:
		a := e.Data.(*Assign)
		b.WriteString(a.Name)
		b.WriteString(" = ")
		a.Value.render(b)
	case EInfix:
		i := e.Data.(*Infix)
		// parens preserve the left fold under re-parse
		if i.Left.Tag == EInfix {
			b.WriteByte('(')
			i.Left.render(b)
			b.WriteByte(')')
		} else {
			i.Left.render(b)
		}
		b.WriteByte(' ')
		b.WriteString(i.Op)
		b.WriteByte(' ')
		if i.Right.Tag == EInfix {
			b.WriteByte('(')
			i.Right.render(b)
			b.WriteByte(')')
		} else {
			i.Right.render(b)
		}
	case ENotation:
		n := e.Data.(*NotationDecl)
		fmt.Fprintf(b, "notation %q", n.Pattern.Pattern)
		if len(n.Pattern.Variables) > 0 {
			b.WriteString(" with ")
			b.WriteString(strings.Join(n.Pattern.Variables, ", "))
		}
		if n.Pattern.Precedence != nil {
			fmt.Fprintf(b, " precedence %d", *n.Pattern.Precedence)
		}
		if n.Pattern.Associativity != AssocNone {
			fmt.Fprintf(b, " associativity %s", n.Pattern.Associativity)
		}
		b.WriteString(" := ")
		n.Expansion.render(b)
	case EExtern:
		d := e.Data.(*ExternDecl)
		fmt.Fprintf(b, "from %s use %s", d.Module, d.Name)
		if d.Alias != "" {
			fmt.Fprintf(b, " as %s", d.Alias)
		}
	default:
		b.WriteString("<expr>")
	}
}
