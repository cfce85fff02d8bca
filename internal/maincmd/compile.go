package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/nobucketdev/blocks/lang/compiler"
	"github.com/nobucketdev/blocks/lang/parser"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(stdio, args...)
}

// CompileFiles parses and compiles each file, printing the resulting
// program in Dasm's textual assembly form. Blocks resolves and compiles
// in a single pass, so there is no separate resolve phase to expose
// here the way the teacher exposes one.
func CompileFiles(stdio mainer.Stdio, files ...string) error {
	for _, file := range files {
		chunk, err := parser.ParseFile(file)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		prog := compiler.Compile(chunk)
		text, err := compiler.Dasm(prog)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		stdio.Stdout.Write(text)
	}
	return nil
}
