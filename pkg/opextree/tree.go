// SPDX-License-Identifier: MPL-2.0

package opextree

import (
	"fmt"
	"strings"
)

// RootID addresses the root node of every Tree.
const RootID DirID = 0

// noParent is the parent link of the root.
const noParent DirID = -1

type (
	// DirID addresses a directory node inside its Tree.
	DirID int

	// node is one directory. Ownership runs from the Tree's table; parent is
	// an index, never an owning link.
	node struct {
		name       string
		parent     DirID
		items      []Item
		itemIndex  map[string]int
		children   []DirID
		childIndex map[string]DirID
	}

	// Tree is a rooted directory tree of Items.
	Tree struct {
		nodes []*node
	}
)

// New creates a tree holding only a root node called rootName. The root name
// is used for naming the root's archive; it never appears in Path.
func New(rootName string) *Tree {
	t := &Tree{}
	t.nodes = append(t.nodes, newNode(rootName, noParent))
	return t
}

func newNode(name string, parent DirID) *node {
	return &node{
		name:       name,
		parent:     parent,
		itemIndex:  make(map[string]int),
		childIndex: make(map[string]DirID),
	}
}

func (t *Tree) node(id DirID) *node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("opextree: directory id %d out of range", id))
	}
	return t.nodes[id]
}

// Len returns the number of directory nodes, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Name returns the last path segment of a directory (the root name for RootID).
func (t *Tree) Name(id DirID) string {
	return t.node(id).name
}

// IsRoot reports whether id is the root node.
func (t *Tree) IsRoot(id DirID) bool {
	return t.node(id).parent == noParent
}

// Parent returns the parent of id. ok is false for the root.
func (t *Tree) Parent(id DirID) (parent DirID, ok bool) {
	p := t.node(id).parent
	if p == noParent {
		return 0, false
	}
	return p, true
}

// Path returns the slash-separated path from the root to id: "" for the root,
// "/a/b" for nested nodes.
func (t *Tree) Path(id DirID) string {
	var segments []string
	for cur := id; !t.IsRoot(cur); cur = t.node(cur).parent {
		segments = append(segments, t.node(cur).name)
	}
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segments[i])
	}
	return b.String()
}

// ItemPath returns the destination path of the named item inside id.
func (t *Tree) ItemPath(id DirID, name string) string {
	return t.Path(id) + "/" + name
}

// Items returns a copy of the items of id in insertion order.
func (t *Tree) Items(id DirID) []Item {
	n := t.node(id)
	out := make([]Item, len(n.items))
	copy(out, n.items)
	return out
}

// ItemCount returns the number of items attached to id.
func (t *Tree) ItemCount(id DirID) int {
	return len(t.node(id).items)
}

// Item looks up an item of id by name.
func (t *Tree) Item(id DirID, name string) (Item, bool) {
	n := t.node(id)
	idx, ok := n.itemIndex[name]
	if !ok {
		return Item{}, false
	}
	return n.items[idx], true
}

// Children returns a copy of the child directories of id in insertion order.
func (t *Tree) Children(id DirID) []DirID {
	n := t.node(id)
	out := make([]DirID, len(n.children))
	copy(out, n.children)
	return out
}

// Child looks up a child directory of id by name.
func (t *Tree) Child(id DirID, name string) (DirID, bool) {
	child, ok := t.node(id).childIndex[name]
	return child, ok
}

// Lookup resolves a slash path ("" or "/" for the root) to a directory.
func (t *Tree) Lookup(path string) (DirID, bool) {
	cur := RootID
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		child, ok := t.Child(cur, seg)
		if !ok {
			return 0, false
		}
		cur = child
	}
	return cur, true
}

// Mkdir returns the child directory called name, creating it if needed.
// It fails with a ConflictError when an item already uses the name.
func (t *Tree) Mkdir(parent DirID, name string) (DirID, error) {
	if child, ok := t.Child(parent, name); ok {
		return child, nil
	}
	if _, ok := t.node(parent).itemIndex[name]; ok {
		at := t.ItemPath(parent, name)
		return 0, &ConflictError{Path: at, At: at, Kind: ConflictItemInPath}
	}
	id := DirID(len(t.nodes))
	t.nodes = append(t.nodes, newNode(name, parent))
	p := t.node(parent)
	p.children = append(p.children, id)
	p.childIndex[name] = id
	return id, nil
}

// AddItem attaches item to id. The item name must not be used by another item
// or child directory of id.
func (t *Tree) AddItem(id DirID, item Item) error {
	if item.Name == "" {
		return &InvalidDestinationError{Path: t.ItemPath(id, ""), Reason: "empty item name"}
	}
	n := t.node(id)
	dest := t.ItemPath(id, item.Name)
	if _, ok := n.itemIndex[item.Name]; ok {
		return &ConflictError{Path: dest, At: dest, Kind: ConflictItemExists, Source: item.SourcePath}
	}
	if _, ok := n.childIndex[item.Name]; ok {
		return &ConflictError{Path: dest, At: dest, Kind: ConflictDirExists, Source: item.SourcePath}
	}
	n.itemIndex[item.Name] = len(n.items)
	n.items = append(n.items, item)
	return nil
}

// Insert places item at destination, a slash path whose last segment becomes
// the item name. Missing directories along the way are created. The returned
// DirID is the directory the item was attached to.
func (t *Tree) Insert(destination string, item Item) (DirID, error) {
	segments, err := SplitDestination(destination)
	if err != nil {
		return 0, err
	}

	cur := RootID
	for _, seg := range segments[:len(segments)-1] {
		if child, ok := t.Child(cur, seg); ok {
			cur = child
			continue
		}
		if _, ok := t.node(cur).itemIndex[seg]; ok {
			return 0, &ConflictError{
				Path:   "/" + strings.Join(segments, "/"),
				At:     t.ItemPath(cur, seg),
				Kind:   ConflictItemInPath,
				Source: item.SourcePath,
			}
		}
		if cur, err = t.Mkdir(cur, seg); err != nil {
			return 0, err
		}
	}

	item.Name = segments[len(segments)-1]
	if err := t.AddItem(cur, item); err != nil {
		return 0, err
	}
	return cur, nil
}

// SplitDestination splits a destination path into its segments. Empty and "."
// segments are dropped; ".." is rejected, as is a path without a file name.
func SplitDestination(destination string) ([]string, error) {
	var segments []string
	for _, seg := range strings.Split(destination, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return nil, &InvalidDestinationError{Path: destination, Reason: "parent directory segments are not allowed"}
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 || strings.HasSuffix(destination, "/") {
		return nil, &InvalidDestinationError{Path: destination, Reason: "no file name"}
	}
	return segments, nil
}
