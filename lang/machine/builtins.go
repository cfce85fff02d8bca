package machine

import (
	"strconv"
	"strings"
)

// registerBuiltins installs the default global environment's
// host-provided callables (spec.md §6): print, to_s, to_n. print's sink is
// injected so a VM's print target (its Stdio / Writer) is reachable from
// inside the Native without the Value model needing a hidden VM
// back-reference.
func registerBuiltins(g *Global, sink func(string)) {
	g.Set("print", &Native{Name: "print", Fn: func(args []Value) Value {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		sink(strings.Join(parts, " "))
		if len(args) == 0 {
			return Nil{}
		}
		return args[len(args)-1]
	}})
	g.Set("to_s", &Native{Name: "to_s", Fn: toS})
	g.Set("to_n", &Native{Name: "to_n", Fn: toN})
}

func toS(args []Value) Value {
	if len(args) == 0 {
		return Str("")
	}
	return Str(args[0].String())
}

// toN parses a leading integer from the string form of its argument
// (whatever that value's own String() produces), returning Int 0 on
// failure (spec.md §6).
func toN(args []Value) Value {
	if len(args) == 0 {
		return Int(0)
	}
	s := args[0].String()

	i := 0
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return Int(0)
	}

	n, err := strconv.ParseInt(s[start:i], 10, 64)
	if err != nil {
		return Int(0)
	}
	if neg {
		n = -n
	}
	return Int(n)
}
