package waypost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildTestTable(t *testing.T, memoBytes int, routes map[string]Method) (*readOnlyTable, map[string]uint16) {
	t.Helper()

	tree := newTestTree()
	keys := map[string]uint16{}

	for pattern, method := range routes {
		key, rerr := tree.add(method, pattern)
		assert.Nil(t, rerr, "pattern %q", pattern)
		keys[pattern] = key
	}

	tree.seal()

	return buildReadOnlyTable(tree, memoBytes), keys
}

func TestReadOnlyTableStaticMaps(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/":                  MethodGET,
		"/static":            MethodGET,
		"/api/v1/users/list": MethodGET,
		"/users/:id":         MethodGET,
	})

	assert.Equal(t, keys["/"], ro.staticMaps[MethodGET]["/"])
	assert.Equal(t, keys["/static"], ro.staticMaps[MethodGET]["/static"])
	assert.Equal(
		t,
		keys["/api/v1/users/list"],
		ro.staticMaps[MethodGET]["/api/v1/users/list"],
	)

	// Dynamic patterns never land in the static maps.
	assert.Len(t, ro.staticMaps[MethodGET], 3)
	assert.Empty(t, ro.staticMaps[MethodPOST])
}

func TestReadOnlyTableFindStatic(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/static": MethodGET,
	})

	assert.Equal(t, keys["/static"], ro.find(MethodGET, "/static"))
	assert.Equal(t, keys["/static"], ro.find(MethodGET, "/static/"))
	assert.Zero(t, ro.find(MethodPOST, "/static"))
	assert.Zero(t, ro.find(MethodGET, "/missing"))
}

func TestReadOnlyTableFindParam(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/users/:id": MethodGET,
	})

	assert.Equal(t, keys["/users/:id"], ro.find(MethodGET, "/users/42"))
	assert.Equal(t, keys["/users/:id"], ro.find(MethodGET, "/users/alice"))
	assert.Zero(t, ro.find(MethodGET, "/users"))
	assert.Zero(t, ro.find(MethodGET, "/users/42/posts"))
}

func TestReadOnlyTableFindConstrainedParam(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/users/:id([0-9]+)": MethodGET,
	})

	assert.Equal(t, keys["/users/:id([0-9]+)"], ro.find(MethodGET, "/users/42"))
	assert.Zero(t, ro.find(MethodGET, "/users/alice"))
}

func TestReadOnlyTableFindWildcard(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/files/*": MethodPOST,
	})

	assert.Equal(t, keys["/files/*"], ro.find(MethodPOST, "/files/a"))
	assert.Equal(t, keys["/files/*"], ro.find(MethodPOST, "/files/a/b/c"))
	assert.Zero(t, ro.find(MethodPOST, "/files"))
	assert.Zero(t, ro.find(MethodGET, "/files/a"))
}

func TestReadOnlyTableStaticBeatsParam(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/shop/cart":  MethodGET,
		"/shop/:item": MethodGET,
	})

	assert.Equal(t, keys["/shop/cart"], ro.find(MethodGET, "/shop/cart"))
	assert.Equal(t, keys["/shop/:item"], ro.find(MethodGET, "/shop/hat"))
}

func TestReadOnlyTableStaticFallsBackToWildcard(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/a/:x/b": MethodGET,
		"/a/:x/*": MethodGET,
	})

	assert.Equal(t, keys["/a/:x/b"], ro.find(MethodGET, "/a/foo/b"))

	// No static edge for the final segment; the wildcard takes over.
	assert.Equal(t, keys["/a/:x/*"], ro.find(MethodGET, "/a/foo/c"))
	assert.Equal(t, keys["/a/:x/*"], ro.find(MethodGET, "/a/foo/c/d"))
}

func TestReadOnlyTableStaticSubtreeFallsBackToParam(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/a/b/c": MethodGET,
		"/a/:x":  MethodGET,
	})

	assert.Equal(t, keys["/a/b/c"], ro.find(MethodGET, "/a/b/c"))

	// /a/b matches the static child b but carries no key there; the
	// parameter edge wins instead.
	assert.Equal(t, keys["/a/:x"], ro.find(MethodGET, "/a/b"))
}

func TestReadOnlyTableRejectsBadPathBytes(t *testing.T) {
	ro, _ := buildTestTable(t, 0, map[string]Method{
		"/static": MethodGET,
	})

	assert.Zero(t, ro.find(MethodGET, "/sta tic"))
	assert.Zero(t, ro.find(MethodGET, "/static\x00"))
}

func TestReadOnlyTableDuplicateSlashesCollapse(t *testing.T) {
	ro, keys := buildTestTable(t, 0, map[string]Method{
		"/users/:id": MethodGET,
	})

	assert.Equal(t, keys["/users/:id"], ro.find(MethodGET, "/users//42"))
}

func TestReadOnlyTableMemoAgreesWithWalk(t *testing.T) {
	routes := map[string]Method{
		"/users/:id([0-9]+)": MethodGET,
		"/files/*":           MethodGET,
		"/static":            MethodGET,
	}

	plain, plainKeys := buildTestTable(t, 0, routes)
	memoized, memoKeys := buildTestTable(t, 32<<20, routes)

	// The two tables come from separate trees whose keys follow map
	// iteration order, so keys are compared through the pattern they name.
	patterns := map[uint16]string{}
	for pattern, key := range plainKeys {
		patterns[key] = pattern
	}

	paths := []string{
		"/users/42",
		"/users/alice",
		"/files/a/b",
		"/static",
		"/missing",
	}

	for _, p := range paths {
		var want uint16
		if k := plain.find(MethodGET, p); k != 0 {
			want = memoKeys[patterns[k]]
		}

		// Twice: the second hit reads the memo.
		assert.Equal(t, want, memoized.find(MethodGET, p), "path %q", p)
		assert.Equal(t, want, memoized.find(MethodGET, p), "path %q", p)
	}
}

func TestReadOnlyTableNoMemoWithoutDynamicRoutes(t *testing.T) {
	ro, _ := buildTestTable(t, 32<<20, map[string]Method{
		"/static": MethodGET,
	})

	assert.Nil(t, ro.memo)
}
