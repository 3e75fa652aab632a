// Package reqdag implements the resource-request DAG of spec §4.2: a tree
// (in practice a forest) of nodes, each storing a request set as a delta
// against its parent, supporting exact-match and best-parent queries used
// by the stage manager to decide whether a prior task's output is still
// valid for the current task's recorded reads.
//
// The traversal and parent-selection logic is grounded in the pack's
// evalgo-org-eve/graph package, which builds an adjacency list plus
// in-degree map and walks it breadth-first (Kahn's algorithm) to produce a
// deterministic order; here the "order" produced is a depth-ordered BFS over
// parent/child edges rather than a topological sort of independent nodes,
// but the queue-and-in-degree shape is the same.
package reqdag

import (
	"sync"

	"github.com/forgebuild/engine/pkg/request"
)

// NodeID identifies a node in the graph. IDs are monotonically increasing
// from 1.
type NodeID int64

// Node is one request-set delta in the DAG.
type Node struct {
	ID       NodeID
	Parent   *NodeID
	Added    request.Set // addedRequests: the delta relative to Parent
	Metadata any

	materialized request.Set // cached union from root to this node
}

// Graph is a forest of request-set delta nodes.
type Graph struct {
	mu     sync.Mutex
	nodes  map[NodeID]*Node
	nextID NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: map[NodeID]*Node{}, nextID: 1}
}

// AddRequestSet creates a new node for requests, choosing the best existing
// parent via FindBestParent and storing only the delta against it (or the
// full set if there is no parent). It always adds a node — callers that
// want to avoid duplicate materialized sets should consult FindExactMatch
// first.
func (g *Graph) AddRequestSet(requests request.Set, metadata any) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	parentID, hasParent := g.findBestParentLocked(requests)

	id := g.nextID
	g.nextID++

	node := &Node{ID: id, Metadata: metadata}
	if hasParent {
		p := parentID
		node.Parent = &p
		parentMaterialized := g.getMaterializedLocked(parentID)
		node.Added = requests.Subtract(parentMaterialized)
		node.materialized = parentMaterialized.Union(node.Added)
	} else {
		node.Added = requests.Clone()
		node.materialized = requests.Clone()
	}

	g.nodes[id] = node
	return id
}

// FindExactMatch returns the id of a node whose materialized set equals
// requests exactly, or (0, false) if none exists.
func (g *Graph) FindExactMatch(requests request.Set) (NodeID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id := range g.nodes {
		if g.getMaterializedLocked(id).Equal(requests) {
			return id, true
		}
	}
	return 0, false
}

// FindBestParent returns the id of the node whose materialized set is a
// subset of requests and has the maximum cardinality among such nodes. Ties
// are broken by smallest id. Returns (0, false) if no node's materialized
// set is a subset of requests (including the case of an empty graph).
func (g *Graph) FindBestParent(requests request.Set) (NodeID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.findBestParentLocked(requests)
}

func (g *Graph) findBestParentLocked(requests request.Set) (NodeID, bool) {
	var bestID NodeID
	bestSize := -1
	found := false
	for id := range g.nodes {
		m := g.getMaterializedLocked(id)
		if !m.IsSubsetOf(requests) {
			continue
		}
		if m.Len() > bestSize || (m.Len() == bestSize && id < bestID) {
			bestID = id
			bestSize = m.Len()
			found = true
		}
	}
	return bestID, found
}

// NodeMetadata returns the Metadata stored on node id, and whether id
// exists.
func (g *Graph) NodeMetadata(id NodeID) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Metadata, true
}

// GetMaterialized returns the union of addedRequests from root to id.
func (g *Graph) GetMaterialized(id NodeID) request.Set {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getMaterializedLocked(id).Clone()
}

func (g *Graph) getMaterializedLocked(id NodeID) request.Set {
	n, ok := g.nodes[id]
	if !ok {
		return request.NewSet()
	}
	if n.materialized != nil {
		return n.materialized
	}
	if n.Parent == nil {
		n.materialized = n.Added.Clone()
	} else {
		n.materialized = g.getMaterializedLocked(*n.Parent).Union(n.Added)
	}
	return n.materialized
}

// invalidate clears the cached materialized set for id and every descendant,
// per the contract that addedRequests mutation invalidates the cache. The
// engine never mutates a node's Added today, but the hook is kept so a
// future compaction pass can use it safely.
func (g *Graph) invalidate(id NodeID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	n.materialized = nil
	for _, c := range g.getChildrenLocked(id) {
		g.invalidate(c)
	}
}

// GetChildren returns the ids of nodes whose Parent is id.
func (g *Graph) GetChildren(id NodeID) []NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.getChildrenLocked(id)
}

func (g *Graph) getChildrenLocked(id NodeID) []NodeID {
	var out []NodeID
	for cid, n := range g.nodes {
		if n.Parent != nil && *n.Parent == id {
			out = append(out, cid)
		}
	}
	return out
}

// TraversalEntry is one step of a breadth-first walk of the graph.
type TraversalEntry struct {
	ID     NodeID
	Node   *Node
	Depth  int
	Parent *NodeID
}

// TraverseByDepth walks every node in the forest breadth-first, in
// non-decreasing depth order; multiple roots are all visited at depth 0.
// visit is called once per node; returning false stops the traversal early.
func (g *Graph) TraverseByDepth(visit func(TraversalEntry) bool) {
	g.mu.Lock()
	var roots []NodeID
	for id, n := range g.nodes {
		if n.Parent == nil {
			roots = append(roots, id)
		}
	}
	g.mu.Unlock()

	type queued struct {
		id     NodeID
		depth  int
		parent *NodeID
	}
	queue := make([]queued, 0, len(roots))
	for _, r := range roots {
		queue = append(queue, queued{id: r, depth: 0})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		g.mu.Lock()
		n := g.nodes[cur.id]
		g.mu.Unlock()
		if n == nil {
			continue
		}

		if !visit(TraversalEntry{ID: cur.id, Node: n, Depth: cur.depth, Parent: cur.parent}) {
			return
		}

		for _, c := range g.GetChildren(cur.id) {
			id := cur.id
			queue = append(queue, queued{id: c, depth: cur.depth + 1, parent: &id})
		}
	}
}

// TraverseSubtree walks the subtree rooted at root breadth-first, depths
// relative to root (root itself at depth 0). visit returning false stops
// the traversal early.
func (g *Graph) TraverseSubtree(root NodeID, visit func(TraversalEntry) bool) {
	g.mu.Lock()
	_, ok := g.nodes[root]
	g.mu.Unlock()
	if !ok {
		return
	}

	type queued struct {
		id     NodeID
		depth  int
		parent *NodeID
	}
	queue := []queued{{id: root, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		g.mu.Lock()
		n := g.nodes[cur.id]
		g.mu.Unlock()
		if n == nil {
			continue
		}

		if !visit(TraversalEntry{ID: cur.id, Node: n, Depth: cur.depth, Parent: cur.parent}) {
			return
		}

		for _, c := range g.GetChildren(cur.id) {
			id := cur.id
			queue = append(queue, queued{id: c, depth: cur.depth + 1, parent: &id})
		}
	}
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Stats holds the aggregate statistics named in spec §4.2.
type Stats struct {
	NodeCount              int
	AverageRequestsPerNode  float64
	AverageStoredDeltaSize  float64
	MaxDepth                int
	CompressionRatio        float64
}

// Stats computes the aggregate statistics over the whole graph.
func (g *Graph) Stats() Stats {
	n := g.NodeCount()
	if n == 0 {
		return Stats{}
	}

	var sumMaterialized, sumDelta, maxDepth int
	g.TraverseByDepth(func(e TraversalEntry) bool {
		sumMaterialized += g.GetMaterialized(e.ID).Len()
		sumDelta += e.Node.Added.Len()
		if e.Depth > maxDepth {
			maxDepth = e.Depth
		}
		return true
	})

	stats := Stats{
		NodeCount:             n,
		AverageRequestsPerNode: float64(sumMaterialized) / float64(n),
		AverageStoredDeltaSize: float64(sumDelta) / float64(n),
		MaxDepth:               maxDepth,
	}
	if sumMaterialized > 0 {
		stats.CompressionRatio = float64(sumDelta) / float64(sumMaterialized)
	}
	return stats
}
