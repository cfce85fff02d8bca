package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"
	"github.com/nobucketdev/blocks/lang/scanner"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, args...)
}

// TokenizeFiles prints, per file, one line per token: its line, its kind,
// and its literal text (if any).
func TokenizeFiles(stdio mainer.Stdio, files ...string) error {
	byFile, err := scanner.ScanFiles(files...)
	for _, toks := range byFile {
		for _, tok := range toks {
			fmt.Fprintf(stdio.Stdout, "%d: %s", tok.Value.Pos.Line(), tok.Token)
			if tok.Value.Raw != "" {
				fmt.Fprintf(stdio.Stdout, " %s", tok.Value.Raw)
			}
			fmt.Fprintln(stdio.Stdout)
		}
	}
	if err != nil {
		scanner.PrintError(stdio.Stderr, err)
	}
	return err
}
