package reqdag

import "github.com/forgebuild/engine/pkg/request"

// CacheObject is the serializable form of a Graph, matching the on-disk
// dag.json layout of spec §6.
type CacheObject struct {
	Nodes  []CacheNode `json:"nodes"`
	NextID NodeID      `json:"nextId"`
}

// CacheNode is the serializable form of a Node: addedRequests flattened to
// their canonical keys, since the key is the request's sole identity.
type CacheNode struct {
	ID       NodeID   `json:"id"`
	Parent   *NodeID  `json:"parent"`
	Added    []string `json:"addedRequests"`
	Metadata any      `json:"metadata,omitempty"`
}

// ToCacheObject serializes the graph. Added requests are stored as their
// canonical keys; reconstructing them into typed Requests on load is done
// by reconstructKeyed, since a key alone still identifies a path vs.
// patterns request unambiguously (the "<type>:" prefix).
func (g *Graph) ToCacheObject() CacheObject {
	g.mu.Lock()
	defer g.mu.Unlock()

	obj := CacheObject{NextID: g.nextID}
	for id, n := range g.nodes {
		cn := CacheNode{ID: id, Parent: n.Parent, Metadata: n.Metadata}
		cn.Added = n.Added.Keys()
		obj.Nodes = append(obj.Nodes, cn)
	}
	return obj
}

// FromCache reconstructs a Graph from a CacheObject. Materialized-set caches
// are left empty and recomputed lazily on first query.
func FromCache(obj CacheObject) *Graph {
	g := New()
	g.nextID = obj.NextID
	for _, cn := range obj.Nodes {
		added := make(request.Set, len(cn.Added))
		for _, k := range cn.Added {
			added[k] = keyToRequest(k)
		}
		g.nodes[cn.ID] = &Node{
			ID:       cn.ID,
			Parent:   cn.Parent,
			Added:    added,
			Metadata: cn.Metadata,
		}
	}
	return g
}

// keyToRequest reconstructs a best-effort Request from its canonical key.
// Only the Key() value round-trips through the DAG's own operations
// (equality, subset, union all operate on keys), so the reconstructed
// Request need only preserve that key, not necessarily the exact original
// Path/Patterns field split for the "patterns" case beyond what's needed to
// regenerate the same key — which storing the raw key string already does.
func keyToRequest(key string) request.Request {
	// "path:<value>" or "patterns:<json array>" — find the first colon.
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			typ := request.Type(key[:i])
			value := key[i+1:]
			if typ == request.TypePath {
				return request.NewPath(value)
			}
			// FromCache keys the set by the stored key string itself, so
			// this Request only needs its Patterns split back out of the
			// JSON array literal; they were stored sorted, so no re-sort
			// is applied here.
			return request.Request{Type: request.TypePatterns, Patterns: splitJSONArrayBestEffort(value)}
		}
	}
	return request.NewPath(key)
}

// splitJSONArrayBestEffort parses a compact JSON string array literal
// (e.g. ["**/*.js","**/*.css"]) without pulling in encoding/json twice per
// key; used only on the cache-load path.
func splitJSONArrayBestEffort(s string) []string {
	var out []string
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return out
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return out
	}
	var cur []byte
	inQuotes := false
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			out = append(out, string(cur))
			cur = nil
		default:
			cur = append(cur, c)
		}
	}
	out = append(out, string(cur))
	return out
}
