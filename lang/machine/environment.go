package machine

// Environment is a runtime environment record: a fixed-size vector of
// value slots and a link to a parent environment (or none). Block literals
// capture the environment active when they are evaluated (spec.md §3), so
// environments form a DAG through closure capture as execution proceeds —
// never a cycle, but implementations must tolerate long parent chains.
type Environment struct {
	values []Value
	parent *Environment
}

// newCallEnvironment allocates the environment for a call to a closure
// with the given number of local slots and captured parent environment.
// Every slot defaults to Int 0, then args are copied into the leading
// slots up to min(len(args), localsCount); this is the calling
// convention's explicit initialization rule (spec.md §4.5 step 4), which
// takes precedence over the more general "Nil is the default for unset
// locals" statement in §3 — the latter describes a fresh environment in
// the abstract, but every environment Blocks ever creates is created this
// way, through a call.
func newCallEnvironment(localsCount int32, parent *Environment, args []Value) *Environment {
	values := make([]Value, localsCount)
	for i := range values {
		values[i] = Int(0)
	}
	for i := 0; i < len(args) && i < int(localsCount); i++ {
		values[i] = args[i]
	}
	return &Environment{values: values, parent: parent}
}

// at walks hops parent links and returns the environment found there, or
// false if the chain ends before hops is exhausted.
func (e *Environment) at(hops int32) (*Environment, bool) {
	cur := e
	for i := int32(0); i < hops; i++ {
		if cur == nil {
			return nil, false
		}
		cur = cur.parent
	}
	return cur, cur != nil
}

// Values exposes the slot vector for introspection (the stepping debugger
// accessor required by spec.md §2 item (c)). Callers must not mutate the
// returned slice's backing array through a held reference across calls.
func (e *Environment) Values() []Value {
	if e == nil {
		return nil
	}
	return e.values
}

// Parent returns the environment captured as e's lexical parent, or nil at
// the root.
func (e *Environment) Parent() *Environment {
	if e == nil {
		return nil
	}
	return e.parent
}
