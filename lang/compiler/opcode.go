package compiler

import "fmt"

// Opcode identifies one bytecode instruction. Every opcode is encoded as a
// single 32-bit signed integer in a Program's Code array, followed by a
// fixed number of 32-bit operands (OperandCount).
type Opcode int32

//nolint:revive
const (
	PUSH_CONST Opcode = iota // 0  1 operand: pool index of literal
	LOAD_LOCAL               // 1  1 operand: local slot index
	STORE_LOCAL               // 2  1 operand: local slot index
	LOAD_GLOBAL               // 3  1 operand: pool index of name
	STORE_GLOBAL              // 4  1 operand: pool index of name
	LOAD_UPVALUE              // 5  2 operands: slot index, hop count
	STORE_UPVALUE             // 6  2 operands: slot index, hop count
	BINARY_OP                 // 7  1 operand: pool index of op symbol
	JUMP                      // 8  1 operand: absolute target address
	JUMP_IF_F                 // 9  1 operand: absolute target address
	MAKE_BLOCK                // 10 3 operands: params pool idx, entry addr, locals count
	CALL                      // 11 1 operand: argument count
	TAIL_CALL                 // 12 1 operand: argument count
	RETURN                    // 13 0 operands
	HALT                      // 14 0 operands
	POP                       // 15 0 operands
	CALL_IF_CLOSURE           // 16 0 operands
	TAIL_CALL_IF_CLOSURE      // 17 0 operands

	numOpcodes
)

// OperandCount returns the number of 32-bit operands that follow op in the
// code array.
func (op Opcode) OperandCount() int {
	if int(op) < 0 || int(op) >= len(operandCounts) {
		return 0
	}
	return operandCounts[op]
}

var operandCounts = [...]int{
	PUSH_CONST:           1,
	LOAD_LOCAL:           1,
	STORE_LOCAL:          1,
	LOAD_GLOBAL:          1,
	STORE_GLOBAL:         1,
	LOAD_UPVALUE:         2,
	STORE_UPVALUE:        2,
	BINARY_OP:            1,
	JUMP:                 1,
	JUMP_IF_F:            1,
	MAKE_BLOCK:           3,
	CALL:                 1,
	TAIL_CALL:            1,
	RETURN:               0,
	HALT:                 0,
	POP:                  0,
	CALL_IF_CLOSURE:      0,
	TAIL_CALL_IF_CLOSURE: 0,
}

var opcodeNames = [...]string{
	PUSH_CONST:           "push_const",
	LOAD_LOCAL:           "load_local",
	STORE_LOCAL:          "store_local",
	LOAD_GLOBAL:          "load_global",
	STORE_GLOBAL:         "store_global",
	LOAD_UPVALUE:         "load_upvalue",
	STORE_UPVALUE:        "store_upvalue",
	BINARY_OP:            "binary_op",
	JUMP:                 "jump",
	JUMP_IF_F:            "jump_if_f",
	MAKE_BLOCK:           "make_block",
	CALL:                 "call",
	TAIL_CALL:            "tail_call",
	RETURN:               "return",
	HALT:                 "halt",
	POP:                  "pop",
	CALL_IF_CLOSURE:      "call_if_closure",
	TAIL_CALL_IF_CLOSURE: "tail_call_if_closure",
}

func (op Opcode) String() string {
	if op >= 0 && int(op) < len(opcodeNames) {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// IsJump reports whether op's single operand is an absolute code address.
func IsJump(op Opcode) bool {
	return op == JUMP || op == JUMP_IF_F
}
