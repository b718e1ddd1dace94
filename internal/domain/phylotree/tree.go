// Package phylotree implements the phylogenetic tree bounded context: a
// Newick parser and an immutable tree with the traversal primitives the
// search services build on (pre-order walks, leaf lookup by species code,
// cumulative root distances, lowest common ancestor).
package phylotree

import (
	"fmt"

	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Node
// ─────────────────────────────────────────────────────────────────────────────

// Node is a single tree node.  Leaves carry the species code in Name;
// internal nodes carry either a clade name or a numeric support value,
// depending on what the source file provides.
type Node struct {
	// Name is the node label.  Empty for unnamed internal nodes.
	Name string

	// Length is the branch length to the parent.  Zero when absent.
	Length float64

	// Support is the clade support value parsed from a numeric internal
	// label.  Only meaningful when HasSupport is true.
	Support    float64
	HasSupport bool

	Children []*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// ─────────────────────────────────────────────────────────────────────────────
// Tree
// ─────────────────────────────────────────────────────────────────────────────

// Tree wraps a parsed node hierarchy with the derived lookup structures.
// All fields are computed once at construction; a Tree is immutable and safe
// for unsynchronised concurrent reads.
type Tree struct {
	root *Node

	// nodes holds every node in pre-order (parent before children, children
	// left to right).
	nodes []*Node

	// leaves holds the leaf nodes in pre-order.
	leaves []*Node

	parent     map[*Node]*Node
	depth      map[*Node]int
	distance   map[*Node]float64
	order      map[*Node]int
	leafByCode map[string]*Node
}

// NewTree derives the lookup structures for a parsed node hierarchy.  It
// fails when two leaves share the same label, since leaf lookup by species
// code and first-match name resolution both require unique leaves.
func NewTree(root *Node) (*Tree, error) {
	t := &Tree{
		root:       root,
		parent:     make(map[*Node]*Node),
		depth:      make(map[*Node]int),
		distance:   make(map[*Node]float64),
		order:      make(map[*Node]int),
		leafByCode: make(map[string]*Node),
	}
	if err := t.index(root, nil, 0, 0); err != nil {
		return nil, err
	}
	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Nodes returns every node in pre-order.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Leaves returns the leaf nodes in pre-order.
func (t *Tree) Leaves() []*Node {
	out := make([]*Node, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// NodeCount returns the total number of nodes.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int { return len(t.leaves) }

// LeafByCode returns the leaf whose label equals the species code.
func (t *Tree) LeafByCode(code string) (*Node, bool) {
	n, ok := t.leafByCode[code]
	return n, ok
}

// Parent returns the parent of n, or nil for the root and unknown nodes.
func (t *Tree) Parent(n *Node) *Node { return t.parent[n] }

// Depth returns the edge count from the root to n.
func (t *Tree) Depth(n *Node) int { return t.depth[n] }

// DistanceToRoot returns the cumulative branch length from the root to n.
func (t *Tree) DistanceToRoot(n *Node) float64 { return t.distance[n] }

// PreorderIndex returns n's position in the pre-order numbering, or -1 when
// n does not belong to this tree.
func (t *Tree) PreorderIndex(n *Node) int {
	idx, ok := t.order[n]
	if !ok {
		return -1
	}
	return idx
}

// Contains reports whether n belongs to this tree.
func (t *Tree) Contains(n *Node) bool {
	_, ok := t.order[n]
	return ok
}

// DisplayName returns the node label, synthesizing a stable
// "clade_<preorderIndex>" for unnamed nodes.
func (t *Tree) DisplayName(n *Node) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("clade_%d", t.PreorderIndex(n))
}

// LeavesUnder returns the leaves of n's subtree in pre-order.  A leaf's
// subtree is the leaf itself.
func (t *Tree) LeavesUnder(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(*Node)
	walk = func(m *Node) {
		if m.IsLeaf() {
			out = append(out, m)
			return
		}
		for _, c := range m.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// CommonAncestor returns the lowest common ancestor of the given nodes.
// Nodes not belonging to the tree are ignored; the result is nil when no
// node qualifies.  A single node is its own ancestor.
func (t *Tree) CommonAncestor(nodes ...*Node) *Node {
	var anc *Node
	for _, n := range nodes {
		if n == nil || !t.Contains(n) {
			continue
		}
		if anc == nil {
			anc = n
			continue
		}
		anc = t.lca(anc, n)
	}
	return anc
}

// ─────────────────────────────────────────────────────────────────────────────
// internals
// ─────────────────────────────────────────────────────────────────────────────

func (t *Tree) index(n, parent *Node, depth int, dist float64) error {
	t.order[n] = len(t.nodes)
	t.nodes = append(t.nodes, n)
	t.parent[n] = parent
	t.depth[n] = depth
	t.distance[n] = dist
	if n.IsLeaf() {
		t.leaves = append(t.leaves, n)
		if n.Name != "" {
			if _, dup := t.leafByCode[n.Name]; dup {
				return errors.Newf(errors.ErrCodeDuplicateLeaf, "duplicate leaf label %q", n.Name)
			}
			t.leafByCode[n.Name] = n
		}
		return nil
	}
	for _, c := range n.Children {
		if err := t.index(c, n, depth+1, dist+c.Length); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) lca(a, b *Node) *Node {
	da, db := t.depth[a], t.depth[b]
	for da > db {
		a = t.parent[a]
		da--
	}
	for db > da {
		b = t.parent[b]
		db--
	}
	for a != b {
		a = t.parent[a]
		b = t.parent[b]
	}
	return a
}
