package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// This file implements a human-readable/writable form of a compiled
// program, mostly to let VM tests exercise the machine without going
// through the scanner/parser/compiler. Disassembly back to this same
// format is also provided.
//
// The format (indentation is arbitrary, order of sections is not):
//
//	program:
//		constants:
//			int 10
//			str "abc"
//			params n x
//		code:
//			push_const 0
//			load_local 1
//			jump 3                # refers to an instruction index, not a slot address
//			halt
//
// Jump targets are written as the 0-based index of the target instruction
// within the code: section, not a raw slot address — Asm translates
// between the two since every instruction's width is fixed and known
// (1 + Opcode.OperandCount()), so a single forward pass over the textual
// code section is enough to compute every instruction's slot address
// before any jump needs resolving.
var asmSections = map[string]bool{
	"program:":   true,
	"constants:": true,
	"code:":      true,
}

// Asm loads a compiled Program from its assembler textual format.
func Asm(b []byte) (*Program, error) {
	a := &asm{s: bufio.NewScanner(bytes.NewReader(b)), p: &Program{}}

	fields := a.next()
	if len(fields) == 0 || fields[0] != "program:" {
		return nil, fmt.Errorf("expected program:, got %q", a.rawLine)
	}

	fields = a.next()
	fields = a.constants(fields)
	fields = a.code(fields)

	if a.err == nil && len(fields) > 0 {
		a.err = fmt.Errorf("unexpected section: %s", fields[0])
	}
	return a.p, a.err
}

// Dasm renders a Program in the same textual format read by Asm.
func Dasm(p *Program) ([]byte, error) {
	instrs, err := Disassemble(p)
	if err != nil {
		return nil, err
	}
	addrToIdx := make(map[int]int, len(instrs))
	for i, in := range instrs {
		addrToIdx[in.IP] = i
	}

	var sb strings.Builder
	sb.WriteString("program:\n")

	if len(p.Pool) > 0 {
		sb.WriteString("\tconstants:\n")
		for _, c := range p.Pool {
			switch v := c.(type) {
			case int64:
				fmt.Fprintf(&sb, "\t\tint %d\n", v)
			case string:
				fmt.Fprintf(&sb, "\t\tstr %s\n", strconv.Quote(v))
			case []string:
				sb.WriteString("\t\tparams")
				for _, n := range v {
					sb.WriteByte(' ')
					sb.WriteString(n)
				}
				sb.WriteByte('\n')
			default:
				return nil, fmt.Errorf("unsupported pool entry type %T", c)
			}
		}
	}

	sb.WriteString("\tcode:\n")
	for _, in := range instrs {
		sb.WriteString("\t\t")
		sb.WriteString(in.Op.String())
		for ai, arg := range in.Args {
			sb.WriteByte(' ')
			if ai == 0 && IsJump(in.Op) {
				fmt.Fprintf(&sb, "%d", addrToIdx[int(arg)])
			} else {
				fmt.Fprintf(&sb, "%d", arg)
			}
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

type asm struct {
	s       *bufio.Scanner
	rawLine string
	p       *Program
	err     error
}

func (a *asm) next() []string {
	for a.s.Scan() {
		line := strings.TrimSpace(a.s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if ci := strings.IndexByte(line, '#'); ci >= 0 {
			line = strings.TrimSpace(line[:ci])
		}
		a.rawLine = line
		return strings.Fields(line)
	}
	if err := a.s.Err(); err != nil {
		a.err = err
	}
	return nil
}

func (a *asm) constants(fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "constants:" {
		return fields
	}
	fields = a.next()
	for a.err == nil && len(fields) > 0 && !asmSections[fields[0]] {
		switch fields[0] {
		case "int":
			v, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				a.err = fmt.Errorf("invalid int constant: %s", a.rawLine)
				return nil
			}
			a.p.Pool = append(a.p.Pool, v)
		case "str":
			v, err := strconv.Unquote(strings.Join(fields[1:], " "))
			if err != nil {
				a.err = fmt.Errorf("invalid str constant: %s", a.rawLine)
				return nil
			}
			a.p.Pool = append(a.p.Pool, v)
		case "params":
			ps := make([]string, len(fields)-1)
			copy(ps, fields[1:])
			a.p.Pool = append(a.p.Pool, ps)
		default:
			a.err = fmt.Errorf("unexpected constant kind: %s", a.rawLine)
			return nil
		}
		fields = a.next()
	}
	return fields
}

func (a *asm) code(fields []string) []string {
	if a.err != nil || len(fields) == 0 || fields[0] != "code:" {
		a.err = fmt.Errorf("expected code:, got %q", a.rawLine)
		return fields
	}

	type rawInsn struct {
		op   Opcode
		args []int32
	}
	var insns []rawInsn

	fields = a.next()
	for a.err == nil && len(fields) > 0 && !asmSections[fields[0]] {
		op, ok := reverseOpcode[fields[0]]
		if !ok {
			a.err = fmt.Errorf("unknown opcode: %s", a.rawLine)
			return nil
		}
		n := op.OperandCount()
		if len(fields)-1 != n {
			a.err = fmt.Errorf("%s wants %d operands, got %d: %s", op, n, len(fields)-1, a.rawLine)
			return nil
		}
		args := make([]int32, n)
		for i, f := range fields[1:] {
			v, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				a.err = fmt.Errorf("invalid operand %q: %s", f, a.rawLine)
				return nil
			}
			args[i] = int32(v)
		}
		insns = append(insns, rawInsn{op: op, args: args})
		fields = a.next()
	}

	addrs := make([]int32, len(insns))
	addr := int32(0)
	for i, in := range insns {
		addrs[i] = addr
		addr += 1 + int32(len(in.args))
	}

	for i, in := range insns {
		if IsJump(in.op) {
			target := in.args[0]
			if target < 0 || int(target) >= len(addrs) {
				a.err = fmt.Errorf("jump target out of range: instruction %d", i)
				return nil
			}
			in.args[0] = addrs[target]
		}
		a.p.Code = append(a.p.Code, int32(in.op))
		a.p.Code = append(a.p.Code, in.args...)
		line := int32(i + 1)
		a.p.SourceMap = append(a.p.SourceMap, line)
		for range in.args {
			a.p.SourceMap = append(a.p.SourceMap, line)
		}
	}
	return fields
}

var reverseOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()
