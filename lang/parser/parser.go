// Package parser implements the recursive-descent parser for Blocks,
// following the grammar in spec.md §4.2: a flat sequence of top-level
// expressions, a single (left-associative, flat-precedence) level of
// binary operators, optional `then`/`else` keywords recognized by
// identifier value rather than reservation, and call-postfix chaining.
package parser

import (
	"fmt"
	"strings"

	"github.com/nobucketdev/blocks/lang/ast"
	"github.com/nobucketdev/blocks/lang/scanner"
	"github.com/nobucketdev/blocks/lang/token"
)

// Error is a parse error naming the expected and actual token, with the
// source line where the mismatch occurred.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%d: %s", e.Line, e.Message) }

// ParseFile tokenizes and parses filename into a Chunk.
func ParseFile(filename string) (*ast.Chunk, error) {
	byFile, err := scanner.ScanFiles(filename)
	if err != nil {
		return nil, err
	}
	return Parse(byFile[0])
}

// Parse builds a Chunk from an already-scanned token stream.
func Parse(toks []scanner.TokenAndValue) (chunk *ast.Chunk, err error) {
	p := &parser{toks: toks}
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = pe
		}
	}()

	c := &ast.Chunk{}
	for p.cur().Token != token.EOF {
		c.Stmts = append(c.Stmts, p.expr())
	}
	return c, nil
}

type parser struct {
	toks []scanner.TokenAndValue
	pos  int
}

func (p *parser) cur() scanner.TokenAndValue  { return p.toks[p.pos] }
func (p *parser) at(off int) scanner.TokenAndValue {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[i]
}

func (p *parser) line() int { return p.cur().Value.Pos.Line() }

func (p *parser) advance() scanner.TokenAndValue {
	tv := p.cur()
	if tv.Token != token.EOF {
		p.pos++
	}
	return tv
}

func (p *parser) errorf(format string, args ...any) {
	panic(&Error{Line: p.line(), Message: fmt.Sprintf(format, args...)})
}

func (p *parser) expect(tok token.Token) scanner.TokenAndValue {
	tv := p.cur()
	if tv.Token != tok {
		p.errorf("expected %s, got %s %q", tok, tv.Token, tv.Value.Raw)
	}
	return p.advance()
}

// isKw reports whether the current token is an IDENT whose literal value
// is kw. `if`/`then`/`else` are recognized this way, not as reserved
// words, per spec.md §4.2.
func (p *parser) isKw(kw string) bool {
	tv := p.cur()
	return tv.Token == token.IDENT && tv.Value.Raw == kw
}

// expr parses: IDENT '=' expr | 'if' expr ['then'] expr ['else' expr] |
// term (OP term)*
func (p *parser) expr() ast.Expr {
	ln := p.line()

	if p.isKw("if") {
		return p.ifExpr()
	}

	if p.cur().Token == token.IDENT && p.at(1).Token == token.EQ {
		name := p.advance().Value.Raw
		p.expect(token.EQ)
		val := p.expr()
		return &ast.Assign{Name: name, Value: val, Ln: ln}
	}

	left := p.term()
	for {
		if p.cur().Token == token.OP {
			op := p.advance().Value.Raw
			right := p.term()
			left = &ast.BinOp{Op: op, Left: left, Right: right, Ln: ln}
			continue
		}
		if p.absorbableNegative(left) {
			right := p.absorbedNegativeTerm()
			left = &ast.BinOp{Op: "-", Left: left, Right: right, Ln: ln}
			continue
		}
		return left
	}
}

// absorbableNegative reports whether the current token is a NUMBER that
// absorbed a leading minus sign (spec.md §9: the number regex greedily
// consumes `-`, so `a-1` tokenizes as IDENT "a", NUMBER "-1" with no
// explicit operator token between them) and whether left is a term the
// flat-precedence chain should treat this as continuing via an implicit
// subtraction. A bare numeric literal on the left does not absorb: two
// adjacent NUMBER tokens with nothing to glue them is the "1-1 is a parse
// error" half of the same documented ambiguity, since nothing here
// constructs a statement separator between them.
func (p *parser) absorbableNegative(left ast.Expr) bool {
	tv := p.cur()
	if tv.Token != token.NUMBER || !strings.HasPrefix(tv.Value.Raw, "-") {
		return false
	}
	switch left.(type) {
	case *ast.IntLit:
		return false
	default:
		return true
	}
}

// absorbedNegativeTerm consumes a NUMBER token that absorbed a leading
// minus sign and returns its magnitude as a term, with call-postfix
// chaining applied exactly as term() would.
func (p *parser) absorbedNegativeTerm() ast.Expr {
	ln := p.line()
	tv := p.advance()
	var e ast.Expr = &ast.IntLit{Value: -tv.Value.Int, Ln: ln}

	for p.cur().Token == token.LPAREN {
		callLn := p.line()
		p.advance()
		var args []ast.Expr
		if p.cur().Token != token.RPAREN {
			args = p.args()
		}
		p.expect(token.RPAREN)
		e = &ast.Call{Callee: e, Args: args, Ln: callLn}
	}
	return e
}

func (p *parser) ifExpr() ast.Expr {
	ln := p.line()
	p.advance() // 'if'
	cond := p.expr()
	if p.isKw("then") {
		p.advance()
	}
	thenE := p.expr()

	var elseE ast.Expr
	if p.isKw("else") {
		p.advance()
		elseE = p.expr()
	} else {
		elseE = &ast.IntLit{Value: 0, Ln: ln}
	}
	return &ast.If{Cond: cond, Then: thenE, Else: elseE, Ln: ln}
}

// term parses: '(' expr ')' | NUMBER | STRING | IDENT | block, followed by
// zero or more call-postfix '(' args ')'.
func (p *parser) term() ast.Expr {
	ln := p.line()
	var e ast.Expr

	switch tv := p.cur(); tv.Token {
	case token.LPAREN:
		p.advance()
		e = p.expr()
		p.expect(token.RPAREN)
	case token.NUMBER:
		p.advance()
		e = &ast.IntLit{Value: tv.Value.Int, Ln: ln}
	case token.STRING:
		p.advance()
		e = &ast.StrLit{Value: tv.Value.Raw, Ln: ln}
	case token.IDENT:
		p.advance()
		e = &ast.Ident{Name: tv.Value.Raw, Ln: ln}
	case token.LBRACK:
		e = p.block()
	default:
		p.errorf("expected expression, got %s %q", tv.Token, tv.Value.Raw)
	}

	for p.cur().Token == token.LPAREN {
		callLn := p.line()
		p.advance()
		var args []ast.Expr
		if p.cur().Token != token.RPAREN {
			args = p.args()
		}
		p.expect(token.RPAREN)
		e = &ast.Call{Callee: e, Args: args, Ln: callLn}
	}
	return e
}

// block parses '[' ( ( '$' IDENT | expr ) (',')? )* ']'. Parameter
// declarations and body expressions may be interleaved freely; commas are
// optional separators throughout.
func (p *parser) block() ast.Expr {
	ln := p.line()
	p.expect(token.LBRACK)

	b := &ast.Block{Ln: ln}
	for p.isParamBinder() {
		raw := p.advance().Value.Raw
		b.Params = append(b.Params, raw[1:]) // strip leading '$'
		if p.cur().Token == token.COMMA {
			p.advance()
		}
	}
	for p.cur().Token != token.RBRACK {
		if p.isParamBinder() {
			raw := p.advance().Value.Raw
			b.Params = append(b.Params, raw[1:]) // strip leading '$'
		} else {
			b.Body = append(b.Body, p.expr())
		}
		if p.cur().Token == token.COMMA {
			p.advance()
		}
	}
	p.expect(token.RBRACK)
	return b
}

func (p *parser) isParamBinder() bool {
	tv := p.cur()
	return tv.Token == token.IDENT && len(tv.Value.Raw) > 0 && tv.Value.Raw[0] == '$'
}

// args parses: expr (',' expr)*
func (p *parser) args() []ast.Expr {
	var args []ast.Expr
	args = append(args, p.expr())
	for p.cur().Token == token.COMMA {
		p.advance()
		args = append(args, p.expr())
	}
	return args
}
