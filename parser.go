// parser.go: recursive-descent parser for Galois source.
//
// OVERVIEW
// --------
// The parser works directly on the source string: there is no token
// stream, scanning is interleaved with parsing. Each grammar rule is a
// small method that either produces a node or restores the input
// position and reports failure, so alternatives backtrack freely the way
// combinator grammars do.
//
// Diagnostics follow the deepest-failure rule: every failed expectation
// records the furthest position reached along with the chain of grammar
// context labels open at that point ("function definition", "argument
// list", ...). When the whole parse fails, the reported *ParseError is
// the deepest, most specific one, not the last alternative tried.
//
// Grammar, highest binding first:
//
//	primitive > parenthesized expr > call > variable > infix fold >
//	assignment > return > function definition > notation decl > extern decl
//
// Infix expressions are a left-leaning fold: operand, then zero or more
// (operator, operand) pairs, nesting left to right. That fold is the only
// associativity policy; declared notation precedence/associativity is
// metadata for downstream tooling and never changes the shape of the
// tree. An operator token is a run of the characters
//
//	! @ # $ % ^ & * - + = | < > ? / : ~
//
// or a bare identifier word, which is what lets `1 plus 2` parse as an
// infix application that a `notation "$x plus $y" ...` can rewrite.
//
// Whitespace and both comment forms (`//` to end of line, `/* */`) are
// insignificant between any two syntactic units. Parsing must consume
// the entire input: a non-empty remainder is a parse error, never a
// silent partial success.
package galois

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a complete Galois program into its top-level expressions.
// On failure it returns a *ParseError for the deepest point reached.
func Parse(src string) ([]*Expr, error) {
	p := &parser{src: src, deepPos: -1}
	defer p.enter("program")()

	var exprs []*Expr
	p.ws()
	for {
		e, ok := p.topLevel()
		if !ok {
			break
		}
		exprs = append(exprs, e)
		p.ws()
		p.lit(";")
		p.ws()
	}
	p.ws()
	if p.pos != len(p.src) {
		return nil, p.deepestError()
	}
	return exprs, nil
}

//// END_OF_PUBLIC

type parser struct {
	src string
	pos int

	ctx []string // open grammar context labels

	// furthest failure seen so far
	deepPos int
	deepMsg string
	deepCtx []string
}

// enter pushes a context label for the duration of a rule.
func (p *parser) enter(label string) func() {
	p.ctx = append(p.ctx, label)
	return func() { p.ctx = p.ctx[:len(p.ctx)-1] }
}

// fail records an expectation failure at the current position. It always
// reports false so rules can bail out in one expression.
func (p *parser) fail(msg string) bool {
	if p.pos > p.deepPos {
		p.deepPos = p.pos
		p.deepMsg = msg
		p.deepCtx = append([]string(nil), p.ctx...)
	}
	return false
}

func (p *parser) deepestError() *ParseError {
	pos, msg, ctx := p.deepPos, p.deepMsg, p.deepCtx
	if pos < p.pos {
		pos, msg, ctx = p.pos, "unexpected input", append([]string(nil), p.ctx...)
	}
	line, col := p.lineCol(pos)
	return &ParseError{Line: line, Col: col, Msg: msg, Contexts: ctx}
}

func (p *parser) lineCol(pos int) (int, int) {
	line, col := 1, 1
	for i := 0; i < pos && i < len(p.src); i++ {
		if p.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// ─────────────────────────── scanning primitives ────────────────────────────

func (p *parser) peekByte() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

// lit consumes the exact string s.
func (p *parser) lit(s string) bool {
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

// keyword consumes s only when it is not a prefix of a longer identifier.
func (p *parser) keyword(s string) bool {
	mark := p.pos
	if !p.lit(s) {
		return false
	}
	if c, ok := p.peekByte(); ok && isIdentChar(c) {
		p.pos = mark
		return false
	}
	return true
}

// ws consumes whitespace and comments. An unterminated block comment is
// left unconsumed so the total-consumption check reports it.
func (p *parser) ws() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "//"):
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.fail("unterminated block comment")
				return
			}
			p.pos += 2 + end + 2
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

const infixOpChars = "!@#$%^&*-+=|<>?/:~"

func isOpChar(c byte) bool { return strings.IndexByte(infixOpChars, c) >= 0 }

var reservedWords = map[string]bool{
	"notation": true,
	"from":     true,
	"use":      true,
	"as":       true,
	"return":   true,
	"true":     true,
	"false":    true,
}

// ident scans an identifier that is not a reserved word.
func (p *parser) ident() (string, bool) {
	mark := p.pos
	c, ok := p.peekByte()
	if !ok || !isIdentStart(c) {
		p.fail("expected identifier")
		return "", false
	}
	p.pos++
	for {
		c, ok := p.peekByte()
		if !ok || !isIdentChar(c) {
			break
		}
		p.pos++
	}
	name := p.src[mark:p.pos]
	if reservedWords[name] {
		p.pos = mark
		p.fail("expected identifier")
		return "", false
	}
	return name, true
}

// ───────────────────────────────── literals ─────────────────────────────────

func (p *parser) integer() (int64, bool) {
	defer p.enter("integer")()
	mark := p.pos
	p.lit("-")
	if !p.digits() {
		p.pos = mark
		p.fail("expected digit")
		return 0, false
	}
	n, err := strconv.ParseInt(p.src[mark:p.pos], 10, 64)
	if err != nil {
		p.pos = mark
		p.fail("integer out of range")
		return 0, false
	}
	return n, true
}

func (p *parser) float() (float64, bool) {
	defer p.enter("float")()
	mark := p.pos
	p.lit("-")
	if !p.digits() {
		p.pos = mark
		p.fail("expected digit")
		return 0, false
	}
	if !p.lit(".") || !p.digits() {
		p.pos = mark
		return 0, false
	}
	// optional exponent
	expMark := p.pos
	if p.lit("e") || p.lit("E") {
		if !p.lit("+") {
			p.lit("-")
		}
		if !p.digits() {
			p.pos = expMark
		}
	}
	f, err := strconv.ParseFloat(p.src[mark:p.pos], 64)
	if err != nil {
		p.pos = mark
		p.fail("float out of range")
		return 0, false
	}
	return f, true
}

func (p *parser) digits() bool {
	start := p.pos
	for {
		c, ok := p.peekByte()
		if !ok || !isDigit(c) {
			break
		}
		p.pos++
	}
	return p.pos > start
}

func (p *parser) stringLit() (string, bool) {
	defer p.enter("string")()
	mark := p.pos
	if !p.lit(`"`) {
		p.fail(`expected '"'`)
		return "", false
	}
	var b strings.Builder
	for {
		c, ok := p.peekByte()
		if !ok {
			p.fail("unterminated string")
			p.pos = mark
			return "", false
		}
		switch c {
		case '"':
			p.pos++
			return b.String(), true
		case '\\':
			p.pos++
			e, ok := p.peekByte()
			if !ok {
				p.fail("unterminated string")
				p.pos = mark
				return "", false
			}
			switch e {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			default:
				p.fail("invalid escape sequence")
				p.pos = mark
				return "", false
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) primitive() (*Expr, bool) {
	defer p.enter("primitive")()
	if f, ok := p.float(); ok {
		return NumExpr(f), true
	}
	if n, ok := p.integer(); ok {
		return IntExpr(n), true
	}
	if c, _ := p.peekByte(); c == '"' {
		if s, ok := p.stringLit(); ok {
			return StrExpr(s), true
		}
		return nil, false
	}
	if p.keyword("true") {
		return BoolExpr(true), true
	}
	if p.keyword("false") {
		return BoolExpr(false), true
	}
	p.fail("expected literal")
	return nil, false
}

// ─────────────────────────────── expressions ────────────────────────────────

// term: primitive, call, variable, or parenthesized expression, with
// surrounding whitespace consumed.
func (p *parser) term() (*Expr, bool) {
	p.ws()
	if e, ok := p.primitive(); ok {
		p.ws()
		return e, true
	}
	if e, ok := p.call(); ok {
		p.ws()
		return e, true
	}
	if name, ok := p.ident(); ok {
		p.ws()
		return VarExpr(name), true
	}
	if p.lit("(") {
		defer p.enter("parenthesized expression")()
		e, ok := p.expr()
		if !ok {
			return nil, false
		}
		p.ws()
		if !p.lit(")") {
			p.fail("expected ')'")
			return nil, false
		}
		p.ws()
		return e, true
	}
	p.fail("expected expression")
	return nil, false
}

// call: identifier immediately followed by a parenthesized, possibly
// empty, comma-separated argument list.
func (p *parser) call() (*Expr, bool) {
	mark := p.pos
	name, ok := p.ident()
	if !ok {
		return nil, false
	}
	if !p.lit("(") {
		p.pos = mark
		return nil, false
	}
	defer p.enter("argument list")()
	args, ok := p.exprList(")")
	if !ok {
		p.pos = mark
		return nil, false
	}
	return CallExpr(&Call{Callee: VarExpr(name), Args: args}), true
}

// exprList parses `expr, expr, ...` up to the closing delimiter, which it
// consumes.
func (p *parser) exprList(close string) ([]*Expr, bool) {
	p.ws()
	if p.lit(close) {
		return nil, true
	}
	var args []*Expr
	for {
		e, ok := p.expr()
		if !ok {
			return nil, false
		}
		args = append(args, e)
		p.ws()
		if p.lit(",") {
			p.ws()
			continue
		}
		if p.lit(close) {
			return args, true
		}
		p.fail(fmt.Sprintf("expected ',' or '%s'", close))
		return nil, false
	}
}

// infixOp: a run of operator characters, or a bare identifier word.
func (p *parser) infixOp() (string, bool) {
	start := p.pos
	for {
		c, ok := p.peekByte()
		if !ok || !isOpChar(c) {
			break
		}
		p.pos++
	}
	if p.pos > start {
		return p.src[start:p.pos], true
	}
	if name, ok := p.ident(); ok {
		return name, true
	}
	return "", false
}

// infixExpr folds (op, term) pairs left to right onto the first operand.
// A dangling operator with no operand after it backtracks out of the
// fold instead of failing the whole expression.
func (p *parser) infixExpr() (*Expr, bool) {
	defer p.enter("infix expression")()
	acc, ok := p.term()
	if !ok {
		return nil, false
	}
	for {
		mark := p.pos
		p.ws()
		op, ok := p.infixOp()
		if !ok {
			p.pos = mark
			return acc, true
		}
		rhs, ok := p.term()
		if !ok {
			p.pos = mark
			return acc, true
		}
		acc = InfixExpr(&Infix{Left: acc, Op: op, Right: rhs})
	}
}

func (p *parser) assignment() (*Expr, bool) {
	defer p.enter("assignment")()
	mark := p.pos
	p.ws()
	name, ok := p.ident()
	if !ok {
		return nil, false
	}
	p.ws()
	if !p.lit("=") {
		p.pos = mark
		return nil, false
	}
	// `==` and friends are infix operators, not assignment
	if c, ok := p.peekByte(); ok && isOpChar(c) {
		p.pos = mark
		return nil, false
	}
	p.ws()
	value, ok := p.expr()
	if !ok {
		p.pos = mark
		return nil, false
	}
	return AssignExpr(&Assign{Name: name, Value: value}), true
}

func (p *parser) returnExpr() (*Expr, bool) {
	mark := p.pos
	p.ws()
	if !p.keyword("return") {
		p.pos = mark
		return nil, false
	}
	defer p.enter("return")()
	e, ok := p.expr()
	if !ok {
		p.pos = mark
		return nil, false
	}
	return ReturnExpr(e), true
}

// expr: assignment, return, or an infix expression.
func (p *parser) expr() (*Expr, bool) {
	if e, ok := p.assignment(); ok {
		return e, true
	}
	if e, ok := p.returnExpr(); ok {
		return e, true
	}
	return p.infixExpr()
}

// ──────────────────────────────── definitions ───────────────────────────────

// funDef: identifier "(" params ")" "{" body "}". Parameters must be bare
// variable names; anything else fails this rule (and the input is then
// reconsidered as a call or expression).
func (p *parser) funDef() (*Expr, bool) {
	defer p.enter("function definition")()
	mark := p.pos
	p.ws()
	name, ok := p.ident()
	if !ok {
		return nil, false
	}
	if !p.lit("(") {
		p.pos = mark
		return nil, false
	}
	params, ok := p.paramList()
	if !ok {
		p.pos = mark
		return nil, false
	}
	p.ws()
	if !p.lit("{") {
		p.fail("expected '{'")
		p.pos = mark
		return nil, false
	}
	defer p.enter("function body")()
	var body []*Expr
	for {
		p.ws()
		e, ok := p.stmt()
		if !ok {
			break
		}
		body = append(body, e)
		p.ws()
		p.lit(";")
	}
	p.ws()
	if !p.lit("}") {
		p.fail("expected '}'")
		p.pos = mark
		return nil, false
	}
	return FunDefExpr(&FunDef{Name: name, Params: params, Body: body}), true
}

func (p *parser) paramList() ([]string, bool) {
	defer p.enter("parameter list")()
	p.ws()
	if p.lit(")") {
		return nil, true
	}
	var params []string
	for {
		p.ws()
		name, ok := p.ident()
		if !ok {
			return nil, false
		}
		params = append(params, name)
		p.ws()
		if p.lit(",") {
			continue
		}
		if p.lit(")") {
			return params, true
		}
		p.fail("expected ',' or ')'")
		return nil, false
	}
}

// stmt: what may appear in a function body or at top level (minus the
// notation form, which is top-level only).
func (p *parser) stmt() (*Expr, bool) {
	if e, ok := p.funDef(); ok {
		return e, true
	}
	if e, ok := p.externDecl(); ok {
		return e, true
	}
	return p.expr()
}

// ──────────────────────────────── declarations ──────────────────────────────

func (p *parser) notationDecl() (*Expr, bool) {
	mark := p.pos
	p.ws()
	if !p.keyword("notation") {
		p.pos = mark
		return nil, false
	}
	defer p.enter("notation declaration")()
	pat, ok := p.notationPattern()
	if !ok {
		p.pos = mark
		return nil, false
	}
	p.ws()
	if !p.lit(":=") {
		p.fail("expected ':='")
		p.pos = mark
		return nil, false
	}
	p.ws()
	expansion, ok := p.expr()
	if !ok {
		p.pos = mark
		return nil, false
	}
	return NotationExpr(&NotationDecl{Pattern: pat, Expansion: expansion}), true
}

func (p *parser) notationPattern() (NotationPattern, bool) {
	defer p.enter("notation pattern")()
	var pat NotationPattern
	p.ws()
	s, ok := p.stringLit()
	if !ok {
		return pat, false
	}
	pat.Pattern = s

	p.ws()
	if p.keyword("with") {
		for {
			p.ws()
			v, ok := p.ident()
			if !ok {
				p.fail("expected variable name")
				return pat, false
			}
			pat.Variables = append(pat.Variables, v)
			p.ws()
			if !p.lit(",") {
				break
			}
		}
	}

	p.ws()
	if p.keyword("precedence") {
		p.ws()
		n, ok := p.integer()
		if !ok {
			p.fail("expected precedence integer")
			return pat, false
		}
		prec := int(n)
		pat.Precedence = &prec
	}

	p.ws()
	if p.keyword("associativity") {
		p.ws()
		switch {
		case p.keyword("left"):
			pat.Associativity = AssocLeft
		case p.keyword("right"):
			pat.Associativity = AssocRight
		case p.keyword("none"):
			pat.Associativity = AssocNone
		default:
			p.fail("expected 'left', 'right', or 'none'")
			return pat, false
		}
	}
	return pat, true
}

func (p *parser) externDecl() (*Expr, bool) {
	mark := p.pos
	p.ws()
	if !p.keyword("from") {
		p.pos = mark
		return nil, false
	}
	defer p.enter("extern declaration")()
	p.ws()
	module, ok := p.modulePath()
	if !ok {
		p.pos = mark
		return nil, false
	}
	p.ws()
	if !p.keyword("use") {
		p.fail("expected 'use'")
		p.pos = mark
		return nil, false
	}
	p.ws()
	name, ok := p.ident()
	if !ok {
		p.pos = mark
		return nil, false
	}
	alias := ""
	aliasMark := p.pos
	p.ws()
	if p.keyword("as") {
		p.ws()
		alias, ok = p.ident()
		if !ok {
			p.pos = aliasMark
			alias = ""
		}
	} else {
		p.pos = aliasMark
	}
	return ExternExpr(&ExternDecl{Module: module, Name: name, Alias: alias}), true
}

func (p *parser) modulePath() (string, bool) {
	first, ok := p.ident()
	if !ok {
		p.fail("expected module path")
		return "", false
	}
	parts := []string{first}
	for {
		mark := p.pos
		if !p.lit(".") {
			break
		}
		seg, ok := p.ident()
		if !ok {
			p.pos = mark
			break
		}
		parts = append(parts, seg)
	}
	return strings.Join(parts, "."), true
}

// topLevel: a notation declaration, extern declaration, function
// definition, or expression.
func (p *parser) topLevel() (*Expr, bool) {
	if e, ok := p.notationDecl(); ok {
		return e, true
	}
	return p.stmt()
}
