package waypost

import (
	"encoding/binary"
	"strings"

	"github.com/VictoriaMetrics/fastcache"
)

// readOnlyTable is the immutable projection of a sealed route tree. It is
// published exactly once at seal time and shared across all worker threads
// without locking.
type readOnlyTable struct {
	staticMaps [methodCount]map[string]uint16

	// root is a pointer-only view over the sealed tree, walked for any
	// path the static maps cannot resolve.
	root       *treeNode
	hasDynamic bool

	interner *interner

	// memo remembers dynamic-match results keyed by method+path. Entries
	// never invalidate; the table they describe is frozen.
	memo *fastcache.Cache
}

// buildReadOnlyTable derives a `readOnlyTable` from the sealed t.
func buildReadOnlyTable(t *routeTree, memoBytes int) *readOnlyTable {
	ro := &readOnlyTable{
		root:     t.root,
		interner: t.interner,
	}

	for i := range ro.staticMaps {
		ro.staticMaps[i] = map[string]uint16{}
	}

	var buf strings.Builder
	collectStatic(t.root, t.interner, &buf, &ro.staticMaps)

	ro.hasDynamic = hasDynamicBranch(t.root)

	if memoBytes > 0 && ro.hasDynamic {
		ro.memo = fastcache.New(memoBytes)
	}

	return ro
}

// collectStatic walks the purely static reaches of the tree and emits a
// static-map entry at every node that terminates a route, fused edges
// included.
func collectStatic(
	n *treeNode,
	in *interner,
	buf *strings.Builder,
	maps *[methodCount]map[string]uint16,
) {
	for i, key := range n.routes {
		if key == 0 {
			continue
		}

		path := buf.String()
		if path == "" {
			path = "/"
		}

		maps[i][path] = key
	}

	for id, edge := range n.staticChildren {
		prev := buf.Len()

		seg, ok := in.lookup(id)
		if !ok {
			continue
		}

		buf.WriteByte('/')
		buf.WriteString(seg)

		skip := false
		for _, restID := range edge.rest {
			restSeg, ok := in.lookup(restID)
			if !ok {
				skip = true
				break
			}

			buf.WriteByte('/')
			buf.WriteString(restSeg)
		}

		if !skip {
			collectStatic(edge.node, in, buf, maps)
		}

		truncateBuilder(buf, prev)
	}
}

// truncateBuilder rewinds the b to the n bytes it held earlier.
func truncateBuilder(b *strings.Builder, n int) {
	s := b.String()[:n]
	b.Reset()
	b.WriteString(s)
}

// hasDynamicBranch reports whether any subtree of the n carries a parameter
// or wildcard edge.
func hasDynamicBranch(n *treeNode) bool {
	if n.param != nil || n.wildcard != nil {
		return true
	}

	for _, edge := range n.staticChildren {
		if hasDynamicBranch(edge.node) {
			return true
		}
	}

	return false
}

// find resolves the raw request path for the method to a route key. A zero
// key means no route matched.
func (ro *readOnlyTable) find(method Method, rawPath string) uint16 {
	if !isPathCharacterAllowed(rawPath) {
		return 0
	}

	normalized := normalizePath(rawPath)

	if key, ok := ro.staticMaps[method][normalized]; ok {
		return key
	}

	if !ro.hasDynamic {
		return 0
	}

	if ro.memo != nil {
		if key, ok := ro.memoGet(method, normalized); ok {
			return key
		}
	}

	key := matchNode(ro.root, ro.interner, splitRequestPath(normalized), method)

	if key != 0 && ro.memo != nil {
		ro.memoSet(method, normalized, key)
	}

	return key
}

// memoGet consults the match memo.
func (ro *readOnlyTable) memoGet(method Method, path string) (uint16, bool) {
	k := make([]byte, 0, len(path)+1)
	k = append(k, byte(method))
	k = append(k, path...)

	v := ro.memo.Get(nil, k)
	if len(v) != 2 {
		return 0, false
	}

	return binary.LittleEndian.Uint16(v), true
}

// memoSet records a dynamic-match result in the memo.
func (ro *readOnlyTable) memoSet(method Method, path string, key uint16) {
	k := make([]byte, 0, len(path)+1)
	k = append(k, byte(method))
	k = append(k, path...)

	var v [2]byte
	binary.LittleEndian.PutUint16(v[:], key)
	ro.memo.Set(k, v[:])
}

// matchNode descends the dynamic view segment by segment. At every depth a
// static edge wins over the parameter edge, which wins over the wildcard;
// failed subtrees fall back to the next kind in that order.
func matchNode(n *treeNode, in *interner, segs []string, method Method) uint16 {
	if len(segs) == 0 {
		return n.routes[method]
	}

	if id, ok := in.get(segs[0]); ok {
		if edge, ok := n.staticChildren[id]; ok {
			if rest, ok := consumeFused(edge, in, segs[1:]); ok {
				if key := matchNode(edge.node, in, rest, method); key != 0 {
					return key
				}
			}
		}
	}

	if n.param != nil {
		if n.param.re == nil || n.param.re.MatchString(segs[0]) {
			if key := matchNode(n.param.node, in, segs[1:], method); key != 0 {
				return key
			}
		}
	}

	if n.wildcard != nil {
		return n.wildcard.routes[method]
	}

	return 0
}

// consumeFused matches the fused ids of the edge against the leading segs,
// returning the remaining segments.
func consumeFused(edge *staticEdge, in *interner, segs []string) ([]string, bool) {
	if len(edge.rest) == 0 {
		return segs, true
	}

	if len(segs) < len(edge.rest) {
		return nil, false
	}

	for i, id := range edge.rest {
		segID, ok := in.get(segs[i])
		if !ok || segID != id {
			return nil, false
		}
	}

	return segs[len(edge.rest):], true
}

// splitRequestPath splits the normalized request path into its non-empty
// segments. Duplicate slashes collapse the way they do in URLs.
func splitRequestPath(path string) []string {
	segs := make([]string, 0, 8)

	i, l := 0, len(path)
	for i < l {
		if path[i] == '/' {
			i++
			continue
		}

		j := i
		for j < l && path[j] != '/' {
			j++
		}

		segs = append(segs, path[i:j])
		i = j
	}

	return segs
}
