package compiler_test

import (
	"testing"

	"github.com/nobucketdev/blocks/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestAsmBasic(t *testing.T) {
	src := `
		program:
			constants:
				int 10
				int 20
				str "+"
			code:
				push_const 0
				push_const 1
				binary_op 2
				halt
	`
	p, err := compiler.Asm([]byte(src))
	require.NoError(t, err)
	require.Equal(t, []any{int64(10), int64(20), "+"}, p.Pool)
	require.Len(t, p.Code, 7)
	require.Equal(t, int32(compiler.PUSH_CONST), p.Code[0])
	require.Equal(t, int32(compiler.HALT), p.Code[6])
	require.Len(t, p.SourceMap, len(p.Code))
}

func TestAsmJumpTranslatesInstructionIndexToAddress(t *testing.T) {
	src := `
		program:
			code:
				jump 2
				halt
				pop
	`
	p, err := compiler.Asm([]byte(src))
	require.NoError(t, err)
	// instruction 0 is "jump 2" (2 slots wide: op + operand), instruction 1
	// is "halt" (1 slot), instruction 2 ("pop") starts at slot 3.
	require.Equal(t, int32(3), p.Code[1])
}

func TestAsmErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string
	}{
		{"empty", ``, "expected program:"},
		{"missing code", "program:\n\tconstants:\n\t\tint 1\n", "expected code:"},
		{"unknown opcode", "program:\n\tcode:\n\t\tfoobar\n", "unknown opcode: foobar"},
		{"wrong operand count", "program:\n\tcode:\n\t\tpush_const\n", "wants 1 operands, got 0"},
		{"bad jump target", "program:\n\tcode:\n\t\tjump 5\n", "jump target out of range"},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := compiler.Asm([]byte(tc.in))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestDasmRoundTrip(t *testing.T) {
	src := `
		program:
			constants:
				int 1
				int 2
				str "+"
			code:
				push_const 0
				push_const 1
				binary_op 2
				halt
	`
	p1, err := compiler.Asm([]byte(src))
	require.NoError(t, err)

	out, err := compiler.Dasm(p1)
	require.NoError(t, err)

	p2, err := compiler.Asm(out)
	require.NoError(t, err)
	require.Equal(t, p1.Code, p2.Code)
	require.Equal(t, p1.Pool, p2.Pool)
}

func TestDasmJumpRoundTrip(t *testing.T) {
	src := `
		program:
			code:
				jump 2
				halt
				pop
	`
	p1, err := compiler.Asm([]byte(src))
	require.NoError(t, err)

	out, err := compiler.Dasm(p1)
	require.NoError(t, err)

	p2, err := compiler.Asm(out)
	require.NoError(t, err)
	require.Equal(t, p1.Code, p2.Code)
}
