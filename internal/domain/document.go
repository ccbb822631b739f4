package domain

import "strings"

// Document is a namespace-agnostic XML element tree. Names hold the local part only.
type Document struct {
	Root *Node
}

// Node is a single XML element.
type Node struct {
	Name     string
	Text     string
	Children []*Node
}

// Find walks the given local-name path from the node and returns the first match.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		if cur == nil {
			return nil
		}
		cur = cur.Child(name)
	}
	return cur
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every direct child with the given local name.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Value returns the trimmed text content, or "" for a nil node.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Text)
}

// Lookup resolves a path below the document root element.
func (d *Document) Lookup(path ...string) *Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Find(path...)
}
