// Package compiler takes a parsed AST and compiles it to bytecode that can
// be executed by the virtual machine, in a single pass that resolves
// variable references and emits instructions together (spec.md §4.3 folds
// what the teacher keeps as a separate resolver pass into the compiler
// itself, since Blocks' grammar has no need for a standalone resolution
// pass). It also provides a pseudo-assembly serialization and
// deserialization (Asm/Dasm) and a pure Disassemble decoder.
package compiler

import (
	"github.com/nobucketdev/blocks/lang/ast"
)

// Compile compiles a whole chunk (a flat sequence of top-level
// expressions) into a Program. Each top-level statement is compiled; a POP
// is emitted between statements, and a HALT follows the last one.
func Compile(c *ast.Chunk) *Program {
	cc := &compiler{
		intCache: make(map[int64]int32),
		strCache: make(map[string]int32),
	}
	lastLine := 0
	for i, s := range c.Stmts {
		cc.compileExpr(s, false)
		lastLine = s.Line()
		if i < len(c.Stmts)-1 {
			cc.emit(POP, s.Line())
		}
	}
	cc.emit(HALT, lastLine)
	return &Program{Code: cc.code, Pool: cc.pool, SourceMap: cc.sourceMap}
}

// compiler holds the whole-program compilation state: the growing code
// buffer, constant pool, source map, and the stack of lexical scopes
// introduced by enclosing block literals.
type compiler struct {
	code      []int32
	sourceMap []int32
	pool      []any

	intCache map[int64]int32
	strCache map[string]int32

	scopes []*scope
}

// scope tracks the local bindings of one enclosing block literal, in
// declaration order; a binding's slot index is its position in names.
type scope struct {
	names []string
}

func (cc *compiler) compileExpr(e ast.Expr, tail bool) {
	switch n := e.(type) {
	case *ast.IntLit:
		cc.emit1(PUSH_CONST, n.Ln, cc.internInt(n.Value))
	case *ast.StrLit:
		cc.emit1(PUSH_CONST, n.Ln, cc.internStr(n.Value))
	case *ast.Ident:
		cc.emitLoad(n.Name, n.Ln)
	case *ast.Assign:
		cc.compileAssign(n)
	case *ast.BinOp:
		cc.compileExpr(n.Left, false)
		cc.compileExpr(n.Right, false)
		cc.emit1(BINARY_OP, n.Ln, cc.internStr(n.Op))
	case *ast.If:
		cc.compileIf(n, tail)
	case *ast.Block:
		cc.compileBlock(n)
	case *ast.Call:
		cc.compileCall(n, tail)
	default:
		panic("compiler: unknown ast node")
	}
}

// compileAssign implements the self-recursion special case (spec.md §4.3):
// when the right-hand side is a block literal, the name is resolved as a
// store target (possibly implicitly declaring it) *before* the body is
// compiled, so the body can call itself by name. For any other right-hand
// side, the value is compiled first, so reads of the same name inside it
// see the prior binding, and the store target is resolved afterward.
// Either way the store leaves its value on the stack: assignment is an
// expression.
func (cc *compiler) compileAssign(n *ast.Assign) {
	if _, ok := n.Value.(*ast.Block); ok {
		t := cc.resolveStore(n.Name)
		cc.compileExpr(n.Value, false)
		cc.emitStore(t, n.Ln)
		return
	}
	cc.compileExpr(n.Value, false)
	t := cc.resolveStore(n.Name)
	cc.emitStore(t, n.Ln)
}

func (cc *compiler) compileIf(n *ast.If, tail bool) {
	cc.compileExpr(n.Cond, false)
	cjmp := cc.emitJumpPlaceholder(JUMP_IF_F, n.Ln)

	cc.compileExpr(n.Then, tail)
	cc.emitCallIfClosure(tail, n.Ln)
	jmp := cc.emitJumpPlaceholder(JUMP, n.Ln)

	cc.patchJump(cjmp, int32(len(cc.code)))
	cc.compileExpr(n.Else, tail)
	cc.emitCallIfClosure(tail, n.Ln)

	cc.patchJump(jmp, int32(len(cc.code)))
}

func (cc *compiler) emitCallIfClosure(tail bool, line int) {
	if tail {
		cc.emit(TAIL_CALL_IF_CLOSURE, line)
	} else {
		cc.emit(CALL_IF_CLOSURE, line)
	}
}

// compileBlock emits a forward jump over the block's body, then the body
// itself as a callable entry point, then a MAKE_BLOCK that captures the
// entry address, the current environment, and the block's parameter list.
func (cc *compiler) compileBlock(n *ast.Block) {
	jmp := cc.emitJumpPlaceholder(JUMP, n.Ln)
	entry := int32(len(cc.code))

	sc := &scope{}
	cc.scopes = append(cc.scopes, sc)
	for _, p := range n.Params {
		cc.declareLocal(p)
	}

	body := n.Body
	if len(body) == 0 {
		// An empty block body has no defined result in spec.md; treat it as
		// returning Int 0, matching the implicit else-branch convention.
		body = []ast.Expr{&ast.IntLit{Value: 0, Ln: n.Ln}}
	}
	for i, b := range body {
		tail := i == len(body)-1
		cc.compileExpr(b, tail)
		if i < len(body)-1 {
			cc.emit(POP, b.Line())
		}
	}
	cc.emit(RETURN, n.Ln)

	localsCount := int32(len(sc.names))
	cc.scopes = cc.scopes[:len(cc.scopes)-1]

	cc.patchJump(jmp, int32(len(cc.code)))

	paramsIdx := cc.internParams(n.Params)
	cc.emit3(MAKE_BLOCK, n.Ln, paramsIdx, entry, localsCount)
}

func (cc *compiler) compileCall(n *ast.Call, tail bool) {
	cc.compileExpr(n.Callee, false)
	for _, a := range n.Args {
		cc.compileExpr(a, false)
	}
	op := CALL
	if tail {
		op = TAIL_CALL
	}
	cc.emit1(op, n.Ln, int32(len(n.Args)))
}

// --- variable resolution ---

type storeKind int

const (
	storeLocal storeKind = iota
	storeUpvalue
	storeGlobal
)

type storeTarget struct {
	kind storeKind
	idx  int32
	hops int32
}

func (cc *compiler) emitLoad(name string, line int) {
	if len(cc.scopes) > 0 {
		if idx, ok := cc.findLocal(cc.scopes[len(cc.scopes)-1], name); ok {
			cc.emit1(LOAD_LOCAL, line, int32(idx))
			return
		}
		if idx, hops, ok := cc.findUpvalue(name); ok {
			cc.emit2(LOAD_UPVALUE, line, idx, hops)
			return
		}
	}
	cc.emit1(LOAD_GLOBAL, line, cc.internStr(name))
}

// resolveStore determines where name is stored without emitting the store
// instruction itself. Writes with no enclosing scope (top level) or no
// local/upvalue match at the global scope go straight to the global
// environment. Writes inside a block with no visible binding implicitly
// declare a new local in the innermost scope — the only way locals come
// into existence, per spec.md §4.3.
func (cc *compiler) resolveStore(name string) storeTarget {
	if len(cc.scopes) == 0 {
		return storeTarget{kind: storeGlobal, idx: cc.internStr(name)}
	}
	if idx, ok := cc.findLocal(cc.scopes[len(cc.scopes)-1], name); ok {
		return storeTarget{kind: storeLocal, idx: int32(idx)}
	}
	if idx, hops, ok := cc.findUpvalue(name); ok {
		return storeTarget{kind: storeUpvalue, idx: idx, hops: hops}
	}
	idx := cc.declareLocal(name)
	return storeTarget{kind: storeLocal, idx: int32(idx)}
}

func (cc *compiler) emitStore(t storeTarget, line int) {
	switch t.kind {
	case storeLocal:
		cc.emit1(STORE_LOCAL, line, t.idx)
	case storeUpvalue:
		cc.emit2(STORE_UPVALUE, line, t.idx, t.hops)
	case storeGlobal:
		cc.emit1(STORE_GLOBAL, line, t.idx)
	}
}

// findLocal scans scope's bindings newest to oldest, so a later declaration
// of a repeated name shadows an earlier one within the same scope.
func (cc *compiler) findLocal(sc *scope, name string) (int, bool) {
	for i := len(sc.names) - 1; i >= 0; i-- {
		if sc.names[i] == name {
			return i, true
		}
	}
	return 0, false
}

// findUpvalue scans enclosing scopes from the immediately-enclosing one
// outward; hops counts the number of parent links to traverse from the
// innermost scope to the one holding the match.
func (cc *compiler) findUpvalue(name string) (idx, hops int32, ok bool) {
	for h := 1; h < len(cc.scopes); h++ {
		j := len(cc.scopes) - 1 - h
		if i, found := cc.findLocal(cc.scopes[j], name); found {
			return int32(i), int32(h), true
		}
	}
	return 0, 0, false
}

func (cc *compiler) declareLocal(name string) int {
	sc := cc.scopes[len(cc.scopes)-1]
	sc.names = append(sc.names, name)
	return len(sc.names) - 1
}

// --- pool interning ---

func (cc *compiler) internInt(v int64) int32 {
	if idx, ok := cc.intCache[v]; ok {
		return idx
	}
	idx := int32(len(cc.pool))
	cc.pool = append(cc.pool, v)
	cc.intCache[v] = idx
	return idx
}

func (cc *compiler) internStr(s string) int32 {
	if idx, ok := cc.strCache[s]; ok {
		return idx
	}
	idx := int32(len(cc.pool))
	cc.pool = append(cc.pool, s)
	cc.strCache[s] = idx
	return idx
}

// internParams appends a parameter-name list as a fresh pool entry. Unlike
// ints and strings, these never dedupe (spec.md §4.3).
func (cc *compiler) internParams(names []string) int32 {
	idx := int32(len(cc.pool))
	cp := make([]string, len(names))
	copy(cp, names)
	cc.pool = append(cc.pool, cp)
	return idx
}

// --- raw emission ---

func (cc *compiler) emitRaw(v int32, line int) {
	cc.code = append(cc.code, v)
	cc.sourceMap = append(cc.sourceMap, int32(line))
}

func (cc *compiler) emit(op Opcode, line int) {
	cc.emitRaw(int32(op), line)
}

func (cc *compiler) emit1(op Opcode, line int, a int32) {
	cc.emitRaw(int32(op), line)
	cc.emitRaw(a, line)
}

func (cc *compiler) emit2(op Opcode, line int, a, b int32) {
	cc.emitRaw(int32(op), line)
	cc.emitRaw(a, line)
	cc.emitRaw(b, line)
}

func (cc *compiler) emit3(op Opcode, line int, a, b, c int32) {
	cc.emitRaw(int32(op), line)
	cc.emitRaw(a, line)
	cc.emitRaw(b, line)
	cc.emitRaw(c, line)
}

// emitJumpPlaceholder emits op with a placeholder operand and returns the
// code index of that operand, to be filled in later by patchJump.
func (cc *compiler) emitJumpPlaceholder(op Opcode, line int) int32 {
	cc.emitRaw(int32(op), line)
	idx := int32(len(cc.code))
	cc.emitRaw(-1, line)
	return idx
}

func (cc *compiler) patchJump(operandIdx, target int32) {
	cc.code[operandIdx] = target
}
