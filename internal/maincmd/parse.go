package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/nobucketdev/blocks/lang/ast"
	"github.com/nobucketdev/blocks/lang/parser"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(stdio, args...)
}

// ParseFiles parses each file and prints its chunk as a parenthesized
// s-expression.
func ParseFiles(stdio mainer.Stdio, files ...string) error {
	for _, file := range files {
		chunk, err := parser.ParseFile(file)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		fmt.Fprintln(stdio.Stdout, ast.Print(chunk))
	}
	return nil
}
