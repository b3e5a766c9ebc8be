// SPDX-License-Identifier: MPL-2.0

package opextree

// PostOrder returns every directory of the tree such that each node comes
// after all of its descendants. Siblings keep insertion order.
func (t *Tree) PostOrder() []DirID {
	return t.PostOrderFrom(RootID)
}

// PostOrderFrom is PostOrder restricted to the subtree rooted at start.
func (t *Tree) PostOrderFrom(start DirID) []DirID {
	type frame struct {
		id   DirID
		next int
	}

	order := make([]DirID, 0, len(t.nodes))
	stack := []frame{{id: start}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := t.node(top.id).children
		if top.next < len(children) {
			child := children[top.next]
			top.next++
			stack = append(stack, frame{id: child})
			continue
		}
		order = append(order, top.id)
		stack = stack[:len(stack)-1]
	}
	return order
}

// PreOrder returns every directory of the tree such that each node comes
// before its descendants. Siblings keep insertion order.
func (t *Tree) PreOrder() []DirID {
	return t.PreOrderFrom(RootID)
}

// PreOrderFrom is PreOrder restricted to the subtree rooted at start.
func (t *Tree) PreOrderFrom(start DirID) []DirID {
	order := make([]DirID, 0, len(t.nodes))
	stack := []DirID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)

		children := t.node(id).children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return order
}

// RelPath returns the path of id relative to its ancestor base, without a
// leading slash ("" when id == base).
func (t *Tree) RelPath(base, id DirID) string {
	full := t.Path(id)
	prefix := t.Path(base)
	rel := full[len(prefix):]
	if len(rel) > 0 && rel[0] == '/' {
		rel = rel[1:]
	}
	return rel
}
