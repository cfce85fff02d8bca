package ast

// A Visitor's Visit method is invoked for each node encountered by Walk. If
// the result visitor w is not nil, Walk visits each of the node's children
// with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Expr) (w Visitor)
}

// Walk traverses an AST in depth-first order: it starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor w for
// each of the non-nil children of node, followed by a call of
// w.Visit(nil).
func Walk(v Visitor, node Expr) {
	if v = v.Visit(node); v == nil {
		return
	}
	node.Walk(v)
	v.Visit(nil)
}
