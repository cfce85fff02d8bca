package compiler_test

import (
	"testing"

	"github.com/nobucketdev/blocks/lang/ast"
	"github.com/nobucketdev/blocks/lang/compiler"
	"github.com/stretchr/testify/require"
)

func disasmOps(t *testing.T, p *compiler.Program) []compiler.Opcode {
	t.Helper()
	instrs, err := compiler.Disassemble(p)
	require.NoError(t, err)
	ops := make([]compiler.Opcode, len(instrs))
	for i, in := range instrs {
		ops[i] = in.Op
	}
	return ops
}

func TestCompileTopLevelAssignIsGlobalStore(t *testing.T) {
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.Assign{Name: "x", Value: &ast.IntLit{Value: 10, Ln: 1}, Ln: 1},
	}}
	p := compiler.Compile(c)
	ops := disasmOps(t, p)
	require.Equal(t, []compiler.Opcode{
		compiler.PUSH_CONST, compiler.STORE_GLOBAL, compiler.HALT,
	}, ops)
}

func TestCompileBinOpOrder(t *testing.T) {
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.BinOp{Op: "+", Left: &ast.IntLit{Value: 1, Ln: 1}, Right: &ast.IntLit{Value: 2, Ln: 1}, Ln: 1},
	}}
	p := compiler.Compile(c)
	ops := disasmOps(t, p)
	require.Equal(t, []compiler.Opcode{
		compiler.PUSH_CONST, compiler.PUSH_CONST, compiler.BINARY_OP, compiler.HALT,
	}, ops)
}

func TestCompileMultipleStatementsEmitPopBetween(t *testing.T) {
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.IntLit{Value: 1, Ln: 1},
		&ast.IntLit{Value: 2, Ln: 2},
	}}
	p := compiler.Compile(c)
	ops := disasmOps(t, p)
	require.Equal(t, []compiler.Opcode{
		compiler.PUSH_CONST, compiler.POP, compiler.PUSH_CONST, compiler.HALT,
	}, ops)
}

func TestCompileIfEmitsCallIfClosureAndTwoJumps(t *testing.T) {
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.If{
			Cond: &ast.IntLit{Value: 1, Ln: 1},
			Then: &ast.Block{Ln: 1, Body: []ast.Expr{&ast.IntLit{Value: 2, Ln: 1}}},
			Else: &ast.Block{Ln: 1, Body: []ast.Expr{&ast.IntLit{Value: 3, Ln: 1}}},
			Ln:   1,
		},
	}}
	p := compiler.Compile(c)
	ops := disasmOps(t, p)
	require.Equal(t, []compiler.Opcode{
		compiler.PUSH_CONST,        // cond
		compiler.JUMP_IF_F,         // branch to else
		compiler.JUMP,              // jump over then-block body
		compiler.PUSH_CONST,        // then body
		compiler.RETURN,
		compiler.MAKE_BLOCK,        // then closure
		compiler.CALL_IF_CLOSURE,   // invoke then
		compiler.JUMP,              // jump past else
		compiler.JUMP,              // jump over else-block body
		compiler.PUSH_CONST,        // else body
		compiler.RETURN,
		compiler.MAKE_BLOCK,        // else closure
		compiler.CALL_IF_CLOSURE,   // invoke else
		compiler.HALT,
	}, ops)
}

func TestCompileIfMissingElseDefaultsToZero(t *testing.T) {
	// Mirrors what the parser produces for a missing else: an IntLit 0.
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.If{
			Cond: &ast.IntLit{Value: 1, Ln: 1},
			Then: &ast.Block{Ln: 1, Body: []ast.Expr{&ast.IntLit{Value: 2, Ln: 1}}},
			Else: &ast.IntLit{Value: 0, Ln: 1},
			Ln:   1,
		},
	}}
	p := compiler.Compile(c)
	require.Contains(t, p.Pool, int64(0))
}

func TestCompileBlockRegistersParamsAsLocals(t *testing.T) {
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.Block{Ln: 1, Params: []string{"n"}, Body: []ast.Expr{&ast.Ident{Name: "n", Ln: 1}}},
	}}
	p := compiler.Compile(c)
	instrs, err := compiler.Disassemble(p)
	require.NoError(t, err)

	var loadLocal *compiler.Instruction
	for i := range instrs {
		if instrs[i].Op == compiler.LOAD_LOCAL {
			loadLocal = &instrs[i]
		}
	}
	require.NotNil(t, loadLocal)
	require.Equal(t, int32(0), loadLocal.Args[0])
}

func TestCompileNestedBlockResolvesUpvalue(t *testing.T) {
	// [ $n, [ $x, x + n ] ] — the inner block reads n, one scope removed.
	inner := &ast.Block{
		Ln:     1,
		Params: []string{"x"},
		Body: []ast.Expr{
			&ast.BinOp{Op: "+", Left: &ast.Ident{Name: "x", Ln: 1}, Right: &ast.Ident{Name: "n", Ln: 1}, Ln: 1},
		},
	}
	outer := &ast.Block{
		Ln:     1,
		Params: []string{"n"},
		Body:   []ast.Expr{inner},
	}
	c := &ast.Chunk{Stmts: []ast.Expr{outer}}
	p := compiler.Compile(c)
	instrs, err := compiler.Disassemble(p)
	require.NoError(t, err)

	var up *compiler.Instruction
	for i := range instrs {
		if instrs[i].Op == compiler.LOAD_UPVALUE {
			up = &instrs[i]
		}
	}
	require.NotNil(t, up)
	require.Equal(t, int32(0), up.Args[0]) // n is local 0 in the outer scope
	require.Equal(t, int32(1), up.Args[1]) // one hop to the parent
}

func TestCompileImplicitLocalDeclarationInsideBlock(t *testing.T) {
	// f = [ x = 2  x ] — x is not visible through the lexical parent chain
	// (the outer x, if any, is a global), so this declares a new local.
	block := &ast.Block{
		Ln: 1,
		Body: []ast.Expr{
			&ast.Assign{Name: "x", Value: &ast.IntLit{Value: 2, Ln: 1}, Ln: 1},
			&ast.Ident{Name: "x", Ln: 1},
		},
	}
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.Assign{Name: "f", Value: block, Ln: 1},
	}}
	p := compiler.Compile(c)
	ops := disasmOps(t, p)
	require.NotContains(t, ops, compiler.STORE_GLOBAL)
	require.Contains(t, ops, compiler.STORE_LOCAL)
}

func TestCompileSelfRecursiveAssignBindsNameBeforeBody(t *testing.T) {
	// fact = [ $n, fact(n) ] — fact must resolve to a global load inside its
	// own body without crashing the compiler (it is bound to the global name
	// before the block body compiles).
	block := &ast.Block{
		Ln:     1,
		Params: []string{"n"},
		Body: []ast.Expr{
			&ast.Call{Callee: &ast.Ident{Name: "fact", Ln: 1}, Args: []ast.Expr{&ast.Ident{Name: "n", Ln: 1}}, Ln: 1},
		},
	}
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.Assign{Name: "fact", Value: block, Ln: 1},
	}}
	require.NotPanics(t, func() { compiler.Compile(c) })
}

func TestCompileTailCallInBlockTailPosition(t *testing.T) {
	// loop = [ $n, loop(n) ] — the call is the last body expression, so it
	// must compile to TAIL_CALL, not CALL.
	block := &ast.Block{
		Ln:     1,
		Params: []string{"n"},
		Body: []ast.Expr{
			&ast.Call{Callee: &ast.Ident{Name: "loop", Ln: 1}, Args: []ast.Expr{&ast.Ident{Name: "n", Ln: 1}}, Ln: 1},
		},
	}
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.Assign{Name: "loop", Value: block, Ln: 1},
	}}
	p := compiler.Compile(c)
	ops := disasmOps(t, p)
	require.Contains(t, ops, compiler.TAIL_CALL)
	require.NotContains(t, ops, compiler.CALL)
}

func TestCompileNonTailCallEmitsPlainCall(t *testing.T) {
	block := &ast.Block{
		Ln:     1,
		Params: []string{"n"},
		Body: []ast.Expr{
			&ast.Call{Callee: &ast.Ident{Name: "f", Ln: 1}, Args: nil, Ln: 1},
			&ast.IntLit{Value: 0, Ln: 2},
		},
	}
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.Assign{Name: "g", Value: block, Ln: 1},
	}}
	p := compiler.Compile(c)
	ops := disasmOps(t, p)
	require.Contains(t, ops, compiler.CALL)
	require.NotContains(t, ops, compiler.TAIL_CALL)
}

func TestCompileConstantsDedupe(t *testing.T) {
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.IntLit{Value: 7, Ln: 1},
		&ast.IntLit{Value: 7, Ln: 1},
	}}
	p := compiler.Compile(c)
	require.Equal(t, []any{int64(7)}, p.Pool)
}

func TestCompileSourceMapCoversEveryCodeSlot(t *testing.T) {
	c := &ast.Chunk{Stmts: []ast.Expr{
		&ast.BinOp{Op: "+", Left: &ast.IntLit{Value: 1, Ln: 3}, Right: &ast.IntLit{Value: 2, Ln: 3}, Ln: 3},
	}}
	p := compiler.Compile(c)
	require.Equal(t, len(p.Code), len(p.SourceMap))
	for _, line := range p.SourceMap {
		require.Greater(t, line, int32(0))
	}
}

func TestCompileEmptyChunkHalts(t *testing.T) {
	p := compiler.Compile(&ast.Chunk{})
	ops := disasmOps(t, p)
	require.Equal(t, []compiler.Opcode{compiler.HALT}, ops)
}
