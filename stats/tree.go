// Package stats computes windowed load and timing statistics over finalized
// event lines.
package stats

import "loov.dev/tracestat/trace"

// Statistic is a node that aggregates over one query window.
//
// Init resets the window-scoped accumulators, Update feeds one time slice of
// the current execution and Consolidate folds the execution into the running
// aggregate.
type Statistic interface {
	Init(firstSample trace.Time, window trace.TimeRange)
	Update(start, end trace.Time)
	Consolidate()
}

// NodeID addresses a node inside a Tree.
type NodeID int

const NoNode NodeID = -1

type node struct {
	name     string
	parent   NodeID
	children []NodeID
	stat     Statistic
}

// Tree owns a set of statistic nodes. Parents are kept as ids, nodes never
// point to each other.
type Tree struct {
	nodes []node
}

// NewTree creates a tree with a root group named name.
func NewTree(name string) *Tree {
	return &Tree{
		nodes: []node{{name: name, parent: NoNode}},
	}
}

func (tree *Tree) Root() Node { return Node{tree: tree, id: 0} }

// Add creates a child of parent. stat is nil for grouping nodes.
func (tree *Tree) Add(parent NodeID, name string, stat Statistic) NodeID {
	id := NodeID(len(tree.nodes))
	tree.nodes = append(tree.nodes, node{name: name, parent: parent, stat: stat})
	tree.nodes[parent].children = append(tree.nodes[parent].children, id)
	return id
}

// Node returns the handle for id.
func (tree *Tree) Node(id NodeID) Node { return Node{tree: tree, id: id} }

// Len returns the number of nodes including the root.
func (tree *Tree) Len() int { return len(tree.nodes) }

// Init initializes every statistic below id.
func (tree *Tree) Init(id NodeID, firstSample trace.Time, window trace.TimeRange) {
	tree.each(id, func(stat Statistic) {
		stat.Init(firstSample, window)
	})
}

// Consolidate consolidates every statistic below id.
func (tree *Tree) Consolidate(id NodeID) {
	tree.each(id, Statistic.Consolidate)
}

func (tree *Tree) each(id NodeID, fn func(Statistic)) {
	n := &tree.nodes[id]
	if n.stat != nil {
		fn(n.stat)
	}
	for _, child := range n.children {
		tree.each(child, fn)
	}
}

// Walk visits the subtree of n depth first.
func (tree *Tree) Walk(n Node, fn func(n Node, depth int)) {
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		fn(n, depth)
		for _, child := range n.Children() {
			walk(child, depth+1)
		}
	}
	walk(n, 0)
}

// Node is a read-only handle into a Tree.
type Node struct {
	tree *Tree
	id   NodeID
}

func (n Node) ID() NodeID           { return n.id }
func (n Node) Name() string         { return n.tree.nodes[n.id].name }
func (n Node) Statistic() Statistic { return n.tree.nodes[n.id].stat }
func (n Node) IsZero() bool         { return n.tree == nil }
func (n Node) Tree() *Tree          { return n.tree }

// Parent returns the parent node, false for the root.
func (n Node) Parent() (Node, bool) {
	p := n.tree.nodes[n.id].parent
	if p == NoNode {
		return Node{}, false
	}
	return Node{tree: n.tree, id: p}, true
}

func (n Node) Children() []Node {
	ids := n.tree.nodes[n.id].children
	children := make([]Node, len(ids))
	for i, id := range ids {
		children[i] = Node{tree: n.tree, id: id}
	}
	return children
}
