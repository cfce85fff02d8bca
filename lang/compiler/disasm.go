package compiler

import "fmt"

// Instruction is one decoded bytecode instruction, as produced by
// Disassemble. It never executes anything: it is the single source of
// truth for opcode shapes, used by both Dasm and the compiler tests to
// check structural invariants (spec.md §4.4).
type Instruction struct {
	IP   int
	Op   Opcode
	Args []int32
	Line int
}

// Disassemble decodes a Program's Code array into a flat list of
// instruction records. It is a pure function: it never allocates an
// environment or consults the pool beyond what's needed to report an
// error.
//
// Testable property (spec.md §8): the sum over decoded instructions of
// (1 + len(Args)) equals len(p.Code) whenever Disassemble returns no
// error, since every slot is consumed by exactly one instruction.
func Disassemble(p *Program) ([]Instruction, error) {
	var out []Instruction
	ip := 0
	for ip < len(p.Code) {
		op := Opcode(p.Code[ip])
		n := op.OperandCount()
		if ip+1+n > len(p.Code) {
			return out, fmt.Errorf("truncated instruction at ip=%d (%s wants %d operands)", ip, op, n)
		}
		args := make([]int32, n)
		copy(args, p.Code[ip+1:ip+1+n])
		out = append(out, Instruction{IP: ip, Op: op, Args: args, Line: p.Line(ip)})
		ip += 1 + n
	}
	return out, nil
}
