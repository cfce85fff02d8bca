package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/nobucketdev/blocks/lang/compiler"
	"github.com/nobucketdev/blocks/lang/machine"
	"github.com/nobucketdev/blocks/lang/parser"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(stdio, args...)
}

// RunFiles parses, compiles and executes each file in turn, printing
// whatever the program writes through print to stdout.
func RunFiles(stdio mainer.Stdio, files ...string) error {
	for _, file := range files {
		chunk, err := parser.ParseFile(file)
		if err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
		prog := compiler.Compile(chunk)
		vm := machine.New(prog, stdio.Stdout)
		if _, err := vm.Run(); err != nil {
			return printError(stdio, fmt.Errorf("%s: %w", file, err))
		}
	}
	return nil
}
