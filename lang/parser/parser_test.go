package parser_test

import (
	goscanner "go/scanner"
	"testing"

	"github.com/nobucketdev/blocks/lang/ast"
	"github.com/nobucketdev/blocks/lang/parser"
	"github.com/nobucketdev/blocks/lang/scanner"
	"github.com/nobucketdev/blocks/lang/token"
	"github.com/stretchr/testify/require"
)

func parseSrc(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	var s scanner.Scanner
	var tv token.Value
	var toks []scanner.TokenAndValue
	s.Init("test.blk", []byte(src), func(pos goscanner.Position, msg string) {
		t.Fatalf("unexpected lex error at %s: %s", pos, msg)
	})
	for {
		tok := s.Scan(&tv)
		toks = append(toks, scanner.TokenAndValue{Token: tok, Value: tv})
		if tok == token.EOF {
			break
		}
	}
	c, err := parser.Parse(toks)
	require.NoError(t, err)
	return c
}

func TestParseAssignAndArithmetic(t *testing.T) {
	c := parseSrc(t, `x = 1 + 2 * 3`)
	require.Equal(t, "(= x (* (+ 1 2) 3))", ast.Print(c))
}

func TestParseCall(t *testing.T) {
	c := parseSrc(t, `print("hi", 1)`)
	require.Equal(t, `(call print "hi" 1)`, ast.Print(c))
}

func TestParseChainedCall(t *testing.T) {
	c := parseSrc(t, `f(a)(b)`)
	require.Equal(t, "(call (call f a) b)", ast.Print(c))
}

func TestParseIfWithThenAndElse(t *testing.T) {
	c := parseSrc(t, `if n < 2 then 1 else 2`)
	require.Equal(t, "(if (< n 2) 1 2)", ast.Print(c))
}

func TestParseIfWithoutThenOrElse(t *testing.T) {
	c := parseSrc(t, `if n 1`)
	require.Equal(t, "(if n 1 0)", ast.Print(c))
}

func TestParseBlockLiteralWithParams(t *testing.T) {
	c := parseSrc(t, `f = [$n, n]`)
	require.Equal(t, "(= f (block (n) n))", ast.Print(c))
}

func TestParseBlockParamNameStripped(t *testing.T) {
	c := parseSrc(t, `f = [$n, n]`)
	block := c.Stmts[0].(*ast.Assign).Value.(*ast.Block)
	require.Equal(t, []string{"n"}, block.Params)
}

func TestParseBlockNoParams(t *testing.T) {
	c := parseSrc(t, `main = [print("hi")]`)
	require.Equal(t, `(= main (block () (call print "hi")))`, ast.Print(c))
}

func TestParseMultipleTopLevelStatements(t *testing.T) {
	c := parseSrc(t, "x = 10\ny = 20\nprint(x)")
	require.Len(t, c.Stmts, 3)
	require.Equal(t, "(= x 10)", ast.Print(&ast.Chunk{Stmts: c.Stmts[:1]}))
}

func TestParseStringSubtraction(t *testing.T) {
	c := parseSrc(t, `"hello" - 1`)
	require.Equal(t, `(- "hello" 1)`, ast.Print(c))
}

func TestParseNestedIfAsElseBranch(t *testing.T) {
	c := parseSrc(t, `if a 1 else if b 2 else 3`)
	require.Equal(t, "(if a 1 (if b 2 3))", ast.Print(c))
}

// TestParseAbsorbedNegativeNumberIsSubtraction documents the resolution of
// the ambiguity in spec.md §9: with no space, "n-1" tokenizes as IDENT "n",
// NUMBER "-1" (no explicit operator token), and the flat-precedence chain
// treats the absorbed minus as a subtraction — this is load-bearing for the
// canonical factorial example (spec.md §8 scenario 2), which writes
// `fact(n-1)` with no space.
func TestParseAbsorbedNegativeNumberIsSubtraction(t *testing.T) {
	c := parseSrc(t, `n-1`)
	require.Equal(t, "(- n 1)", ast.Print(c))
}

func TestParseAbsorbedNegativeNumberInCallArg(t *testing.T) {
	c := parseSrc(t, `fact(n-1)`)
	require.Equal(t, "(call fact (- n 1))", ast.Print(c))
}

// TestParseTwoAdjacentNumbersIsParseError documents the other half of the
// same ambiguity: "1-1" tokenizes as two NUMBER tokens (1, then -1) with
// nothing to glue them, since a bare numeric literal on the left does not
// absorb a following negative number the way an identifier does. At the
// top level this is just two statements (no separator is required between
// top-level expressions), but anywhere a delimiter is expected next — a
// closing paren, here — the stray second NUMBER token surfaces as a parse
// error instead of silently becoming a second top-level statement.
func TestParseTwoAdjacentNumbersIsParseError(t *testing.T) {
	_, err := parser.Parse(mustScan(t, `(1-1)`))
	require.Error(t, err)
}

func mustScan(t *testing.T, src string) []scanner.TokenAndValue {
	t.Helper()
	var s scanner.Scanner
	var tv token.Value
	var toks []scanner.TokenAndValue
	s.Init("test.blk", []byte(src), func(pos goscanner.Position, msg string) {
		t.Fatalf("unexpected lex error at %s: %s", pos, msg)
	})
	for {
		tok := s.Scan(&tv)
		toks = append(toks, scanner.TokenAndValue{Token: tok, Value: tv})
		if tok == token.EOF {
			break
		}
	}
	return toks
}

func TestParseErrorReportsLine(t *testing.T) {
	_, err := parser.Parse([]scanner.TokenAndValue{
		{Token: token.RPAREN, Value: token.Value{Pos: token.MakePos(3, 1)}},
		{Token: token.EOF},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "3:")
}
