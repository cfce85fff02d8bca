// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scanner tokenizes Blocks source text for the parser to consume.
package scanner

import (
	"go/scanner"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/nobucketdev/blocks/lang/token"
)

type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

var PrintError = scanner.PrintError

// TokenAndValue combines the token kind with its decoded value.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
}

// ScanFiles tokenizes each of the given source files and returns the
// resulting token stream per file, along with any lex errors encountered.
// Scanning continues past an illegal byte so that a single call reports
// every error in a file, not just the first.
func ScanFiles(files ...string) ([][]TokenAndValue, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var (
		s      Scanner
		tokVal token.Value
		el     ErrorList
	)

	byFile := make([][]TokenAndValue, len(files))
	for i, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			el.Add(scannerPos(file, 0, 0), err.Error())
			continue
		}

		s.Init(file, b, el.Add)
		for {
			tok := s.Scan(&tokVal)
			byFile[i] = append(byFile[i], TokenAndValue{Token: tok, Value: tokVal})
			if tok == token.EOF {
				break
			}
		}
	}
	el.Sort()
	return byFile, el.Err()
}

func scannerPos(file string, line, col int) scanner.Position {
	return scanner.Position{Filename: file, Line: line, Column: col}
}

// Scanner tokenizes a single source file.
type Scanner struct {
	filename string
	src      []byte
	err      func(scanner.Position, string)

	cur  rune // current character, -1 at end of file
	off  int  // byte offset of cur
	roff int  // byte offset following cur
	line int  // 1-based line of cur
	col  int  // 1-based column of cur
}

// Init readies the scanner to tokenize src, reporting lex errors (if any)
// to errHandler.
func (s *Scanner) Init(filename string, src []byte, errHandler func(scanner.Position, string)) {
	s.filename = filename
	s.src = src
	s.err = errHandler
	s.off, s.roff = 0, 0
	s.line, s.col = 1, 0
	s.cur = ' '
	s.advance()
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.line++
		s.col = 0
	}
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}

	s.off = s.roff
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
	s.col++
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(scannerPos(s.filename, s.line, s.col), msg)
	}
}

func (s *Scanner) pos() token.Pos { return token.MakePos(s.line, s.col) }

// Scan returns the next token, populating tokVal with its literal text and
// (for NUMBER tokens) decoded integer value.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	s.skipIgnored()

	pos := s.pos()
	start := s.off

	switch cur := s.cur; {
	case cur == -1:
		tok = token.EOF
		*tokVal = token.Value{Raw: "", Pos: pos}

	case isIdentStart(cur) || cur == '$' && isIdentStart(rune(s.peek())):
		lit := s.ident()
		tok = token.IDENT
		*tokVal = token.Value{Raw: lit, Pos: pos}

	case isDigit(cur) || cur == '-' && isDigit(rune(s.peek())):
		lit := s.number()
		tok = token.NUMBER
		v, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			s.error(start, "integer literal out of range: "+lit)
		}
		*tokVal = token.Value{Raw: lit, Pos: pos, Int: v}

	case cur == '"':
		lit := s.string_()
		tok = token.STRING
		*tokVal = token.Value{Raw: lit, Pos: pos}

	case cur == '[':
		s.advance()
		tok = token.LBRACK
		*tokVal = token.Value{Raw: "[", Pos: pos}

	case cur == ']':
		s.advance()
		tok = token.RBRACK
		*tokVal = token.Value{Raw: "]", Pos: pos}

	case cur == '(':
		s.advance()
		tok = token.LPAREN
		*tokVal = token.Value{Raw: "(", Pos: pos}

	case cur == ')':
		s.advance()
		tok = token.RPAREN
		*tokVal = token.Value{Raw: ")", Pos: pos}

	case cur == ',':
		s.advance()
		tok = token.COMMA
		*tokVal = token.Value{Raw: ",", Pos: pos}

	case cur == '=':
		s.advance()
		if s.cur == '=' {
			s.advance()
			tok = token.OP
			*tokVal = token.Value{Raw: "==", Pos: pos}
		} else {
			tok = token.EQ
			*tokVal = token.Value{Raw: "=", Pos: pos}
		}

	case cur == '+' || cur == '-' || cur == '*' || cur == '/' || cur == '%' || cur == '<' || cur == '>':
		s.advance()
		tok = token.OP
		*tokVal = token.Value{Raw: string(cur), Pos: pos}

	default:
		s.error(start, "illegal character "+strconv.QuoteRune(cur))
		s.advance()
		tok = token.ILLEGAL
		*tokVal = token.Value{Raw: string(cur), Pos: pos}
	}
	return tok
}

func (s *Scanner) ident() string {
	start := s.off
	if s.cur == '$' {
		s.advance()
	}
	for isIdentStart(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// number consumes an optional leading '-' and a run of digits. This
// greedily absorbs a leading minus sign into the literal, which is the
// source of the "1-1 does not tokenize as a subtraction" ambiguity
// documented in spec.md §9.
func (s *Scanner) number() string {
	start := s.off
	if s.cur == '-' {
		s.advance()
	}
	for isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// string_ consumes a double-quoted string with no escape processing, per
// spec.md §4.1.
func (s *Scanner) string_() string {
	start := s.off
	s.advance() // opening quote
	for s.cur != '"' && s.cur != -1 {
		s.advance()
	}
	if s.cur == -1 {
		s.error(start, "unterminated string literal")
		return string(s.src[start:s.off])
	}
	s.advance() // closing quote
	raw := string(s.src[start:s.off])
	return raw[1 : len(raw)-1]
}

func (s *Scanner) skipIgnored() {
	for {
		for isSpace(s.cur) {
			s.advance()
		}
		if s.cur == '#' {
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
			continue
		}
		break
	}
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }

func isIdentStart(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_'
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }
