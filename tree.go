package waypost

import (
	"regexp"
	"strings"
	"sync"
)

type (
	// routeTree is the mutable radix tree of a `Waypost` instance during
	// its build phase. Inserts are contractually single-threaded; the
	// mutex serializes calls from hosts that violate the contract, it
	// does not report them.
	routeTree struct {
		interner *interner
		regexes  *regexCache

		mutex   sync.Mutex
		root    *treeNode
		nextKey uint32
		sealed  bool

		maxPatternLength int
	}

	// treeNode is the position between two path segment boundaries.
	treeNode struct {
		// routes holds the route key terminating here per method;
		// 0 means no route.
		routes [methodCount]uint16

		staticChildren map[uint32]*staticEdge
		param          *paramChild
		wildcard       *treeNode
	}

	// staticEdge links a node to a static child. The rest ids are only
	// set by the compression pass: a fused edge consumes the first
	// segment and then every id in rest, in order.
	staticEdge struct {
		rest []uint32
		node *treeNode
	}

	// paramChild is the single parameter edge a node may carry.
	paramChild struct {
		name string
		re   *regexp.Regexp
		node *treeNode
	}
)

// maxRouteKey is the largest assignable route key. Keys are u16 and 0 is
// reserved as "absent".
const maxRouteKey = 65534

// defaultMaxPatternLength bounds route pattern sizes. Patterns longer than
// this fail with PatternTooLong.
const defaultMaxPatternLength = 2048

// newRouteTree returns a pointer of a new instance of the `routeTree`.
func newRouteTree(in *interner, rc *regexCache, maxPatternLength int) *routeTree {
	if maxPatternLength <= 0 {
		maxPatternLength = defaultMaxPatternLength
	}

	return &routeTree{
		interner:         in,
		regexes:          rc,
		root:             newTreeNode(),
		nextKey:          1,
		maxPatternLength: maxPatternLength,
	}
}

// newTreeNode returns a pointer of a new instance of the `treeNode`.
func newTreeNode() *treeNode {
	return &treeNode{}
}

// add registers the pattern for the method and returns the assigned route
// key.
func (t *routeTree) add(method Method, pattern string) (uint16, *RouterError) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.sealed {
		return 0, newRouterError(
			CodeAlreadySealed,
			"routes cannot be added after sealing",
			nil,
		)
	}

	if pattern == "" {
		return 0, newRouterError(
			CodeEmptyPath,
			"route pattern cannot be empty",
			nil,
		)
	}

	if len(pattern) > t.maxPatternLength {
		return 0, newRouterError(
			CodePatternTooLong,
			"route pattern exceeds the maximum length",
			map[string]interface{}{
				"max": t.maxPatternLength,
				"got": len(pattern),
			},
		)
	}

	if pattern[0] != '/' {
		return 0, newRouterError(
			CodeInvalidPath,
			"route pattern must start with /",
			map[string]interface{}{"pattern": pattern},
		)
	}

	if t.nextKey > maxRouteKey {
		return 0, newRouterError(
			CodeMaxRoutesExceeded,
			"route key space is exhausted",
			map[string]interface{}{"max": maxRouteKey},
		)
	}

	segments := splitPattern(normalizePath(pattern))

	node, rerr := t.descend(segments, pattern)
	if rerr != nil {
		return 0, rerr
	}

	if node.routes[method] != 0 {
		return 0, newRouterError(
			CodeDuplicatedPath,
			"an identical method-path registration already exists",
			map[string]interface{}{
				"method":  method.String(),
				"pattern": pattern,
			},
		)
	}

	key := uint16(t.nextKey)
	node.routes[method] = key
	t.nextKey++

	return key, nil
}

// descend walks (and grows) the tree along the segments, returning the
// terminal node.
func (t *routeTree) descend(segments []string, pattern string) (*treeNode, *RouterError) {
	node := t.root
	paramNames := map[string]bool{}

	for i, seg := range segments {
		switch {
		case seg == "*":
			if i != len(segments)-1 {
				return nil, newRouterError(
					insertWildcardPosition.routerCode(),
					"* can only be the final segment",
					map[string]interface{}{"pattern": pattern},
				)
			}

			if node.wildcard != nil {
				return nil, newRouterError(
					CodeWildcardAlreadyExists,
					"a wildcard already terminates here",
					map[string]interface{}{"pattern": pattern},
				)
			}

			if node.param != nil {
				return nil, newRouterError(
					CodeInvalidWildcard,
					"a wildcard cannot share a node with a parameter",
					map[string]interface{}{"pattern": pattern},
				)
			}

			node.wildcard = newTreeNode()
			node = node.wildcard

		case strings.HasPrefix(seg, ":"):
			name, constraint, ok := splitParamSegment(seg[1:])
			if !ok || !isParamNameValid(name) {
				return nil, newRouterError(
					CodeInvalidParamName,
					"parameter name is empty or contains disallowed characters",
					map[string]interface{}{"segment": seg},
				)
			}

			if paramNames[name] {
				return nil, newRouterError(
					CodeDuplicateParamName,
					"the same parameter name appears twice in one pattern",
					map[string]interface{}{"name": name},
				)
			}

			paramNames[name] = true

			var re *regexp.Regexp
			if constraint != "" {
				compiled, err := t.regexes.compile(constraint)
				if err != nil {
					ie := err.(insertError)
					return nil, newRouterError(
						ie.routerCode(),
						"parameter constraint was rejected: "+ie.Error(),
						map[string]interface{}{"constraint": constraint},
					)
				}

				re = compiled
			}

			if node.wildcard != nil {
				return nil, newRouterError(
					CodeParamNameConflicted,
					"a parameter cannot share a node with a wildcard",
					map[string]interface{}{"name": name},
				)
			}

			if node.param != nil {
				if node.param.name != name {
					return nil, newRouterError(
						CodeParamNameConflicted,
						"a parameter with a different name already exists here",
						map[string]interface{}{
							"existing": node.param.name,
							"got":      name,
						},
					)
				}

				if !sameConstraint(node.param.re, re) {
					return nil, newRouterError(
						CodeParamNameConflicted,
						"a parameter with a different constraint already exists here",
						map[string]interface{}{"name": name},
					)
				}

				node = node.param.node
				break
			}

			// Intern the name so it survives reverse-table release.
			t.interner.intern(name)

			node.param = &paramChild{
				name: name,
				re:   re,
				node: newTreeNode(),
			}
			node = node.param.node

		default:
			if !isPathCharacterAllowed(seg) {
				return nil, newRouterError(
					CodeInvalidPath,
					"static segment contains disallowed characters",
					map[string]interface{}{"segment": seg},
				)
			}

			id := t.interner.intern(seg)
			if node.staticChildren == nil {
				node.staticChildren = map[uint32]*staticEdge{}
			}

			edge := node.staticChildren[id]
			if edge == nil {
				edge = &staticEdge{node: newTreeNode()}
				node.staticChildren[id] = edge
			}

			node = edge.node
		}
	}

	return node, nil
}

// seal freezes the tree. The first call runs the compression pass; later
// calls are no-ops.
func (t *routeTree) seal() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.sealed {
		return
	}

	t.sealed = true
	compressNode(t.root)
}

// isSealed reports whether the t has been sealed.
func (t *routeTree) isSealed() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.sealed
}

// compressNode fuses every maximal chain of single-static-child, keyless,
// parameterless nodes below the n into one edge. Matching semantics are
// unchanged; deep static traversals just take fewer hops.
func compressNode(n *treeNode) {
	for _, edge := range n.staticChildren {
		for isPassThrough(edge.node) {
			var (
				childID   uint32
				childEdge *staticEdge
			)
			for id, e := range edge.node.staticChildren {
				childID, childEdge = id, e
			}

			edge.rest = append(edge.rest, childID)
			edge.rest = append(edge.rest, childEdge.rest...)
			edge.node = childEdge.node
		}

		compressNode(edge.node)
	}

	if n.param != nil {
		compressNode(n.param.node)
	}
}

// isPassThrough reports whether the n carries nothing but exactly one
// static child.
func isPassThrough(n *treeNode) bool {
	if len(n.staticChildren) != 1 || n.param != nil || n.wildcard != nil {
		return false
	}

	for _, key := range n.routes {
		if key != 0 {
			return false
		}
	}

	return true
}

// splitPattern splits the already-normalized pattern into its segments.
// The root pattern "/" yields no segments.
func splitPattern(pattern string) []string {
	trimmed := strings.TrimPrefix(pattern, "/")
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "/")
}

// splitParamSegment splits the seg (without its leading ':') into the
// parameter name and the optional "(constraint)" suffix.
func splitParamSegment(seg string) (name, constraint string, ok bool) {
	open := strings.IndexByte(seg, '(')
	if open < 0 {
		return seg, "", true
	}

	if !strings.HasSuffix(seg, ")") {
		return "", "", false
	}

	return seg[:open], seg[open+1 : len(seg)-1], true
}

// isParamNameValid reports whether the name is non-empty and uses only
// letters, digits and underscores.
func isParamNameValid(name string) bool {
	if name == "" {
		return false
	}

	for i := 0; i < len(name); i++ {
		b := name[i]
		switch {
		case 'a' <= b && b <= 'z':
		case 'A' <= b && b <= 'Z':
		case '0' <= b && b <= '9':
		case b == '_':
		default:
			return false
		}
	}

	return true
}

// sameConstraint reports whether the a and the b describe the same
// compiled constraint.
func sameConstraint(a, b *regexp.Regexp) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.String() == b.String()
}
