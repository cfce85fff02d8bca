package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a chunk as a parenthesized s-expression, one line per
// top-level statement, primarily for the `parse` CLI command and tests.
// Each statement is rendered by driving a sexpBuilder through Walk, so the
// Visitor/Walk traversal in visitor.go does the real work of descending
// into a node's children instead of a node type switch recursing by hand.
func Print(c *Chunk) string {
	var sb strings.Builder
	for i, s := range c.Stmts {
		if i > 0 {
			sb.WriteByte('\n')
		}
		b := &sexpBuilder{}
		Walk(b, s)
		sb.WriteString(b.render())
	}
	return sb.String()
}

// sexpBuilder is a Visitor that renders the node it is first shown, plus the
// children Walk subsequently feeds it, as a parenthesized s-expression. The
// first Visit call records node; every later non-nil Visit call is a direct
// child, rendered by recursing into a fresh sexpBuilder (so that child's own
// descendants aren't attributed to this builder) with the result appended
// to children in traversal order.
type sexpBuilder struct {
	node     Expr
	children []string
}

func (b *sexpBuilder) Visit(n Expr) Visitor {
	if n == nil {
		return nil
	}
	if b.node == nil {
		b.node = n
		return b
	}
	child := &sexpBuilder{}
	Walk(child, n)
	b.children = append(b.children, child.render())
	return nil
}

func (b *sexpBuilder) render() string {
	switch n := b.node.(type) {
	case *IntLit:
		return strconv.FormatInt(n.Value, 10)
	case *StrLit:
		return strconv.Quote(n.Value)
	case *Ident:
		return n.Name
	case *Assign:
		return fmt.Sprintf("(= %s %s)", n.Name, b.children[0])
	case *BinOp:
		return fmt.Sprintf("(%s %s %s)", n.Op, b.children[0], b.children[1])
	case *If:
		return fmt.Sprintf("(if %s %s %s)", b.children[0], b.children[1], b.children[2])
	case *Block:
		var sb strings.Builder
		sb.WriteString("(block (")
		sb.WriteString(strings.Join(n.Params, " "))
		sb.WriteString(")")
		for _, c := range b.children {
			sb.WriteByte(' ')
			sb.WriteString(c)
		}
		sb.WriteByte(')')
		return sb.String()
	case *Call:
		var sb strings.Builder
		sb.WriteString("(call ")
		sb.WriteString(b.children[0])
		for _, c := range b.children[1:] {
			sb.WriteByte(' ')
			sb.WriteString(c)
		}
		sb.WriteByte(')')
		return sb.String()
	default:
		return fmt.Sprintf("<?%T>", n)
	}
}
