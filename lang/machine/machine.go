// Much of the dispatch loop's shape is adapted from the Starlark-derived
// VM this repository's teacher (mna/nenuphar) implements: a flat operand
// stack read by index and a switch over the decoded opcode. Each failing
// instruction reports its error through vm.fault, which annotates it with
// the source line of that instruction.
package machine

import (
	"fmt"
	"io"
	"os"

	"github.com/nobucketdev/blocks/lang/compiler"
)

// stackCapacity is the fixed operand stack capacity (spec.md §3).
const stackCapacity = 4096

// Fault is a runtime error annotated with the source line of the
// instruction that caused it (spec.md §7).
type Fault struct {
	Line int
	Msg  string
}

func (f *Fault) Error() string { return fmt.Sprintf("%d: %s", f.Line, f.Msg) }

// callFrame records a non-tail call's return address and the environment
// to restore on RETURN (spec.md §3).
type callFrame struct {
	returnIP int
	env      *Environment
}

// VM executes a compiled Program against a Global environment and a print
// sink. Construct with New; call Run to execute to completion, or Step
// repeatedly to drive it from an external debugger.
type VM struct {
	program *compiler.Program
	global  *Global

	stack     []Value
	sp        int
	callStack []callFrame
	env       *Environment
	ip        int

	// MaxSteps bounds the number of executed instructions before the VM
	// aborts with a fault; 0 means unlimited. This is an ambient addition
	// beyond spec.md's core semantics, used to bound runaway programs when
	// embedding the VM (e.g. in a playground).
	MaxSteps int
	steps    int

	maxCallDepth int
}

// New constructs a VM ready to run p, printing through stdout (os.Stdout
// if nil) and pre-populated with the default global environment (print,
// to_s, to_n).
func New(p *compiler.Program, stdout io.Writer) *VM {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &VM{
		program: p,
		global:  NewGlobal(func(s string) { fmt.Fprintln(stdout, s) }),
		stack:   make([]Value, stackCapacity),
		env:     &Environment{},
	}
}

// NewWithGlobal is like New but runs against a caller-supplied Global,
// letting a host pre-populate additional bindings before the run starts.
func NewWithGlobal(p *compiler.Program, global *Global) *VM {
	return &VM{
		program: p,
		global:  global,
		stack:   make([]Value, stackCapacity),
		env:     &Environment{},
	}
}

// Global returns the VM's global environment.
func (vm *VM) Global() *Global { return vm.global }

// IP returns the current instruction pointer, for an external debugger.
func (vm *VM) IP() int { return vm.ip }

// Stack returns a snapshot of the live portion of the operand stack, for
// an external debugger.
func (vm *VM) Stack() []Value {
	out := make([]Value, vm.sp)
	copy(out, vm.stack[:vm.sp])
	return out
}

// Env returns the currently active runtime environment, for an external
// debugger.
func (vm *VM) Env() *Environment { return vm.env }

// MaxCallDepth returns the deepest the call-frame stack has grown so far
// during this VM's execution. Used to check that tail calls reuse frames
// instead of growing the call stack (spec.md §8, "Tail-call O(1) frames").
func (vm *VM) MaxCallDepth() int { return vm.maxCallDepth }

// Run executes the program to completion (HALT) or until a fault occurs,
// returning the final top-of-stack value.
func (vm *VM) Run() (Value, error) {
	for {
		halted, err := vm.Step()
		if err != nil {
			return nil, err
		}
		if halted {
			break
		}
	}
	if vm.sp == 0 {
		return Nil{}, nil
	}
	return vm.stack[vm.sp-1], nil
}

// Step executes exactly one instruction (opcode plus its operand reads)
// and returns. halted is true once HALT has executed; after that, further
// calls to Step are a no-op returning (true, nil).
func (vm *VM) Step() (halted bool, err error) {
	if vm.ip >= len(vm.program.Code) {
		return true, nil
	}

	vm.steps++
	if vm.MaxSteps > 0 && vm.steps > vm.MaxSteps {
		return false, vm.fault("step budget exceeded")
	}

	op := compiler.Opcode(vm.program.Code[vm.ip])
	vm.ip++
	args := vm.readOperands(op)

	switch op {
	case compiler.PUSH_CONST:
		v, err := vm.constant(args[0])
		if err != nil {
			return false, vm.fault(err.Error())
		}
		if err := vm.push(v); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.LOAD_LOCAL:
		v, err := vm.localAt(vm.env, args[0])
		if err != nil {
			return false, vm.fault(err.Error())
		}
		if err := vm.push(v); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.STORE_LOCAL:
		v, err := vm.peek()
		if err != nil {
			return false, vm.fault(err.Error())
		}
		if err := vm.setLocalAt(vm.env, args[0], v); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.LOAD_GLOBAL:
		name, err := vm.poolStr(args[0])
		if err != nil {
			return false, vm.fault(err.Error())
		}
		v, ok := vm.global.Get(name)
		if !ok {
			return false, vm.fault(fmt.Sprintf("undefined global: %s", name))
		}
		if err := vm.push(v); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.STORE_GLOBAL:
		name, err := vm.poolStr(args[0])
		if err != nil {
			return false, vm.fault(err.Error())
		}
		v, err := vm.peek()
		if err != nil {
			return false, vm.fault(err.Error())
		}
		vm.global.Set(name, v)

	case compiler.LOAD_UPVALUE:
		parent, ok := vm.env.at(args[1])
		if !ok {
			return false, vm.fault("upvalue lookup reaches a null parent")
		}
		v, err := vm.localAt(parent, args[0])
		if err != nil {
			return false, vm.fault(err.Error())
		}
		if err := vm.push(v); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.STORE_UPVALUE:
		parent, ok := vm.env.at(args[1])
		if !ok {
			return false, vm.fault("upvalue lookup reaches a null parent")
		}
		v, err := vm.peek()
		if err != nil {
			return false, vm.fault(err.Error())
		}
		if err := vm.setLocalAt(parent, args[0], v); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.BINARY_OP:
		opSym, err := vm.poolStr(args[0])
		if err != nil {
			return false, vm.fault(err.Error())
		}
		b, err := vm.pop()
		if err != nil {
			return false, vm.fault(err.Error())
		}
		a, err := vm.pop()
		if err != nil {
			return false, vm.fault(err.Error())
		}
		res, err := binaryOp(opSym, a, b)
		if err != nil {
			return false, vm.fault(err.Error())
		}
		if err := vm.push(res); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.JUMP:
		vm.ip = int(args[0])

	case compiler.JUMP_IF_F:
		v, err := vm.pop()
		if err != nil {
			return false, vm.fault(err.Error())
		}
		if !Truthy(v) {
			vm.ip = int(args[0])
		}

	case compiler.MAKE_BLOCK:
		params, err := vm.poolParams(args[0])
		if err != nil {
			return false, vm.fault(err.Error())
		}
		cl := &Closure{Entry: args[1], LocalsCount: args[2], Params: params, Env: vm.env}
		if err := vm.push(cl); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.CALL, compiler.TAIL_CALL:
		if err := vm.call(args[0], op == compiler.TAIL_CALL); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.CALL_IF_CLOSURE, compiler.TAIL_CALL_IF_CLOSURE:
		v, err := vm.pop()
		if err != nil {
			return false, vm.fault(err.Error())
		}
		switch v.(type) {
		case *Closure, *Native:
			if err := vm.push(v); err != nil {
				return false, vm.fault(err.Error())
			}
			if err := vm.call(0, op == compiler.TAIL_CALL_IF_CLOSURE); err != nil {
				return false, vm.fault(err.Error())
			}
		default:
			if err := vm.push(v); err != nil {
				return false, vm.fault(err.Error())
			}
		}

	case compiler.RETURN:
		if len(vm.callStack) == 0 {
			return false, vm.fault("return with no caller frame")
		}
		fr := vm.callStack[len(vm.callStack)-1]
		vm.callStack = vm.callStack[:len(vm.callStack)-1]
		vm.ip = fr.returnIP
		vm.env = fr.env

	case compiler.POP:
		if _, err := vm.pop(); err != nil {
			return false, vm.fault(err.Error())
		}

	case compiler.HALT:
		vm.ip = len(vm.program.Code)
		return true, nil

	default:
		return false, vm.fault(fmt.Sprintf("unknown opcode %d", op))
	}

	return false, nil
}

func (vm *VM) readOperands(op compiler.Opcode) []int32 {
	n := op.OperandCount()
	if n == 0 {
		return nil
	}
	args := make([]int32, n)
	copy(args, vm.program.Code[vm.ip:vm.ip+n])
	vm.ip += n
	return args
}

// call implements the calling convention of spec.md §4.5, including
// TAIL_CALL's frame reuse.
func (vm *VM) call(argc int32, tail bool) error {
	args := make([]Value, argc)
	for i := int(argc) - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	callee, err := vm.pop()
	if err != nil {
		return err
	}

	switch c := callee.(type) {
	case *Native:
		result := c.Fn(args)
		if result == nil {
			result = Nil{}
		}
		return vm.push(result)

	case *Closure:
		if !tail {
			vm.callStack = append(vm.callStack, callFrame{returnIP: vm.ip, env: vm.env})
			if len(vm.callStack) > vm.maxCallDepth {
				vm.maxCallDepth = len(vm.callStack)
			}
		}
		vm.env = newCallEnvironment(c.LocalsCount, c.Env, args)
		vm.ip = int(c.Entry)
		return nil

	default:
		return fmt.Errorf("target is not callable: %s", callee.Type())
	}
}

func (vm *VM) push(v Value) error {
	if vm.sp >= len(vm.stack) {
		return fmt.Errorf("stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (Value, error) {
	if vm.sp <= 0 {
		return nil, fmt.Errorf("stack underflow")
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

func (vm *VM) peek() (Value, error) {
	if vm.sp <= 0 {
		return nil, fmt.Errorf("stack underflow")
	}
	return vm.stack[vm.sp-1], nil
}

func (vm *VM) localAt(env *Environment, idx int32) (Value, error) {
	values := env.Values()
	if idx < 0 || int(idx) >= len(values) {
		return nil, fmt.Errorf("local slot out of range: %d", idx)
	}
	return values[idx], nil
}

func (vm *VM) setLocalAt(env *Environment, idx int32, v Value) error {
	values := env.Values()
	if idx < 0 || int(idx) >= len(values) {
		return fmt.Errorf("local slot out of range: %d", idx)
	}
	values[idx] = v
	return nil
}

func (vm *VM) constant(idx int32) (Value, error) {
	if idx < 0 || int(idx) >= len(vm.program.Pool) {
		return nil, fmt.Errorf("constant pool index out of range: %d", idx)
	}
	switch v := vm.program.Pool[idx].(type) {
	case int64:
		return Int(v), nil
	case string:
		return Str(v), nil
	default:
		return nil, fmt.Errorf("unexpected constant pool entry %T at %d", v, idx)
	}
}

func (vm *VM) poolStr(idx int32) (string, error) {
	if idx < 0 || int(idx) >= len(vm.program.Pool) {
		return "", fmt.Errorf("pool index out of range: %d", idx)
	}
	s, ok := vm.program.Pool[idx].(string)
	if !ok {
		return "", fmt.Errorf("pool entry at %d is not a string", idx)
	}
	return s, nil
}

func (vm *VM) poolParams(idx int32) ([]string, error) {
	if idx < 0 || int(idx) >= len(vm.program.Pool) {
		return nil, fmt.Errorf("pool index out of range: %d", idx)
	}
	p, ok := vm.program.Pool[idx].([]string)
	if !ok {
		return nil, fmt.Errorf("pool entry at %d is not a parameter list", idx)
	}
	return p, nil
}

// fault annotates msg with the source line of the instruction that just
// failed (spec.md §4.5, "Error reporting").
func (vm *VM) fault(msg string) error {
	return &Fault{Line: vm.program.Line(max(0, vm.ip-1)), Msg: msg}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
