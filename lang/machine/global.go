package machine

import "github.com/dolthub/swiss"

// Global is the process-wide mapping from identifier to value (spec.md
// §3), pre-populated with the host-provided callables and mutated by
// STORE_GLOBAL. It is backed by a swiss-table map, the same structure the
// teacher repo uses for its own user-facing Map value type — reused here
// for Blocks' single global table instead of a bare map[string]Value.
type Global struct {
	m *swiss.Map[string, Value]
}

// NewGlobal returns a Global pre-populated with the default builtins
// (print, to_s, to_n), whose print builtin writes through sink.
func NewGlobal(sink func(string)) *Global {
	g := &Global{m: swiss.NewMap[string, Value](8)}
	registerBuiltins(g, sink)
	return g
}

// Get looks up name, returning ok=false if it has never been set.
func (g *Global) Get(name string) (Value, bool) {
	return g.m.Get(name)
}

// Set writes name to v, updating it in place if already present or
// inserting it otherwise (spec.md §4.5, STORE_GLOBAL).
func (g *Global) Set(name string, v Value) {
	g.m.Put(name, v)
}
