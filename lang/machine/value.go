// Package machine implements the virtual machine that executes compiled
// Blocks programs. It also provides the runtime representation of the
// five value variants (spec.md §3) and the global environment.
package machine

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a runtime value: one of Int, Str, *Closure, *Native, or Nil.
type Value interface {
	Type() string
	String() string
}

// Int is a signed integer value.
type Int int64

func (Int) Type() string       { return "int" }
func (v Int) String() string   { return strconv.FormatInt(int64(v), 10) }

// Str is an immutable text value.
type Str string

func (Str) Type() string     { return "str" }
func (v Str) String() string { return string(v) }

// Nil is the single absent value; it is also the literal printed
// representation when a value needs to be stringified and there is
// nothing else to say.
type Nil struct{}

func (Nil) Type() string     { return "nil" }
func (Nil) String() string   { return "null" }

// Native is a host-provided callable taking an ordered sequence of
// argument values and returning a single value (Nil if it has nothing
// to return).
type Native struct {
	Name string
	Fn   func(args []Value) Value
}

func (*Native) Type() string     { return "native" }
func (*Native) String() string   { return "<native>" }

// Closure is a user-defined callable created by MAKE_BLOCK. It carries the
// entry address, the number of local slots to pre-allocate on a call, the
// parameter names (for diagnostics only — resolution is by index), and the
// runtime environment active when the block literal was evaluated.
type Closure struct {
	Entry       int32
	LocalsCount int32
	Params      []string
	Env         *Environment
}

func (*Closure) Type() string { return "closure" }
func (c *Closure) String() string {
	return fmt.Sprintf("<closure params=%s>", strings.Join(c.Params, ","))
}

// Truthy reports whether v counts as true in a boolean context. Nil, Int 0,
// and the empty string are false; every other value is true (spec.md §3).
func Truthy(v Value) bool {
	switch v := v.(type) {
	case Nil:
		return false
	case Int:
		return v != 0
	case Str:
		return v != ""
	default:
		return true
	}
}

// Equal reports whether a and b are equal: integers numerically, strings by
// content, and everything else (Closure, Native) by reference identity
// (spec.md §3, §6).
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Int:
		b, ok := b.(Int)
		return ok && a == b
	case Str:
		b, ok := b.(Str)
		return ok && a == b
	case Nil:
		_, ok := b.(Nil)
		return ok
	case *Closure:
		b, ok := b.(*Closure)
		return ok && a == b
	case *Native:
		b, ok := b.(*Native)
		return ok && a == b
	default:
		return false
	}
}
