package machine

import "fmt"

// binaryOp implements the semantics of spec.md §6's binary operator table
// for a op b (a was pushed first, b second, so the VM pops b then a before
// calling this).
func binaryOp(op string, a, b Value) (Value, error) {
	switch op {
	case "+":
		if ai, ok := a.(Int); ok {
			if bi, ok := b.(Int); ok {
				return ai + bi, nil
			}
		}
		if as, ok := a.(Str); ok {
			if bs, ok := b.(Str); ok {
				return as + bs, nil
			}
		}
		return nil, invalidOperands("+", a, b)

	case "-":
		if ai, ok := a.(Int); ok {
			if bi, ok := b.(Int); ok {
				return ai - bi, nil
			}
			if bs, ok := b.(Str); ok {
				// n - s: drop the first n characters of s.
				s := string(bs)
				n := int(ai)
				if n < 0 {
					n = 0
				}
				if n > len(s) {
					n = len(s)
				}
				return Str(s[n:]), nil
			}
		}
		if as, ok := a.(Str); ok {
			if bi, ok := b.(Int); ok {
				// s - n: drop the last n characters of s.
				s := string(as)
				n := int(bi)
				if n <= 0 {
					return as, nil
				}
				if n > len(s) {
					n = len(s)
				}
				return Str(s[:len(s)-n]), nil
			}
		}
		return nil, invalidOperands("-", a, b)

	case "*":
		ai, aok := a.(Int)
		bi, bok := b.(Int)
		if !aok || !bok {
			return nil, invalidOperands("*", a, b)
		}
		return ai * bi, nil

	case "/":
		ai, aok := a.(Int)
		bi, bok := b.(Int)
		if !aok || !bok {
			return nil, invalidOperands("/", a, b)
		}
		if bi == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return floorDiv(ai, bi), nil

	case "%":
		ai, aok := a.(Int)
		bi, bok := b.(Int)
		if !aok || !bok {
			return nil, invalidOperands("%", a, b)
		}
		if bi == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return ai % bi, nil

	case "<":
		ai, aok := a.(Int)
		bi, bok := b.(Int)
		if !aok || !bok {
			return nil, invalidOperands("<", a, b)
		}
		return boolInt(ai < bi), nil

	case ">":
		ai, aok := a.(Int)
		bi, bok := b.(Int)
		if !aok || !bok {
			return nil, invalidOperands(">", a, b)
		}
		return boolInt(ai > bi), nil

	case "==":
		return boolInt(Equal(a, b)), nil

	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

func floorDiv(a, b Int) Int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func boolInt(b bool) Int {
	if b {
		return 1
	}
	return 0
}

func invalidOperands(op string, a, b Value) error {
	return fmt.Errorf("invalid operands for %s: %s, %s", op, a.Type(), b.Type())
}
