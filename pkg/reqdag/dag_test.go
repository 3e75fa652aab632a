package reqdag_test

import (
	"testing"

	"github.com/forgebuild/engine/pkg/reqdag"
	"github.com/forgebuild/engine/pkg/request"
	"gotest.tools/v3/assert"
)

func sets(paths ...string) request.Set {
	reqs := make([]request.Request, len(paths))
	for i, p := range paths {
		reqs[i] = request.NewPath(p)
	}
	return request.NewSet(reqs...)
}

func TestSubsetDetectionPicksExistingParent(t *testing.T) {
	g := reqdag.New()
	first := g.AddRequestSet(sets("a.js", "b.js"), nil)
	second := g.AddRequestSet(sets("a.js", "b.js", "c.js"), nil)

	node := mustNode(t, g, second)
	assert.Assert(t, node.Parent != nil)
	assert.Equal(t, *node.Parent, first)
	assert.Equal(t, node.Added.Len(), 1)
	_, hasC := node.Added[request.NewPath("c.js").Key()]
	assert.Assert(t, hasC)

	// order-swapped exact match still resolves to the first node
	id, ok := g.FindExactMatch(sets("b.js", "a.js"))
	assert.Assert(t, ok)
	assert.Equal(t, id, first)
}

func TestBestParentSelectsLargestSubset(t *testing.T) {
	g := reqdag.New()
	small := g.AddRequestSet(sets("x", "y"), nil)
	big := g.AddRequestSet(sets("x", "y", "z"), nil)

	parent, ok := g.FindBestParent(sets("x", "y", "z", "w"))
	assert.Assert(t, ok)
	assert.Equal(t, parent, big)
	assert.Assert(t, parent != small)
}

func TestEmptyRequestSetCreatesValidRoot(t *testing.T) {
	g := reqdag.New()
	id := g.AddRequestSet(request.NewSet(), nil)
	node := mustNode(t, g, id)
	assert.Assert(t, node.Parent == nil)
	assert.Equal(t, node.Added.Len(), 0)
}

func TestDisjointRequestSetsAreMultipleRoots(t *testing.T) {
	g := reqdag.New()
	a := g.AddRequestSet(sets("a"), nil)
	b := g.AddRequestSet(sets("z"), nil)

	var depths []int
	g.TraverseByDepth(func(e reqdag.TraversalEntry) bool {
		if e.ID == a || e.ID == b {
			depths = append(depths, e.Depth)
		}
		return true
	})
	assert.Equal(t, len(depths), 2)
	for _, d := range depths {
		assert.Equal(t, d, 0)
	}
}

func TestNoOverlapQueryReturnsNull(t *testing.T) {
	g := reqdag.New()
	g.AddRequestSet(sets("a", "b"), nil)

	_, ok := g.FindBestParent(sets("x", "y"))
	assert.Assert(t, !ok)

	_, ok = g.FindExactMatch(sets("a"))
	assert.Assert(t, !ok)
}

func TestSubsetInvariantHoldsAcrossChain(t *testing.T) {
	g := reqdag.New()
	ids := []reqdag.NodeID{
		g.AddRequestSet(sets("a"), nil),
	}
	ids = append(ids, g.AddRequestSet(sets("a", "b"), nil))
	ids = append(ids, g.AddRequestSet(sets("a", "b", "c"), nil))

	for i := 1; i < len(ids); i++ {
		node := mustNode(t, g, ids[i])
		assert.Assert(t, node.Parent != nil)
		parentMat := g.GetMaterialized(*node.Parent)
		selfMat := g.GetMaterialized(ids[i])
		assert.Assert(t, parentMat.IsSubsetOf(selfMat))
		assert.Assert(t, parentMat.Len() < selfMat.Len())

		expectedAdded := selfMat.Subtract(parentMat)
		assert.Assert(t, node.Added.Equal(expectedAdded))
	}
}

func TestSerializationRoundTrip(t *testing.T) {
	g := reqdag.New()
	a := g.AddRequestSet(sets("a", "b"), "meta-a")
	b := g.AddRequestSet(sets("a", "b", "c"), "meta-b")

	obj := g.ToCacheObject()
	restored := reqdag.FromCache(obj)

	assert.Assert(t, restored.GetMaterialized(a).Equal(g.GetMaterialized(a)))
	assert.Assert(t, restored.GetMaterialized(b).Equal(g.GetMaterialized(b)))

	restoredObj := restored.ToCacheObject()
	assert.Equal(t, restoredObj.NextID, obj.NextID)
}

func mustNode(t *testing.T, g *reqdag.Graph, id reqdag.NodeID) *reqdag.Node {
	t.Helper()
	var found *reqdag.Node
	g.TraverseByDepth(func(e reqdag.TraversalEntry) bool {
		if e.ID == id {
			found = e.Node
			return false
		}
		return true
	})
	if found == nil {
		t.Fatalf("node %d not found", id)
	}
	return found
}
