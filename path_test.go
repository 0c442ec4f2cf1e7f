package waypost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath("/"))
	assert.Equal(t, "", normalizePath(""))
	assert.Equal(t, "/a", normalizePath("/a"))
	assert.Equal(t, "/a", normalizePath("/a/"))
	assert.Equal(t, "/a", normalizePath("/a///"))
	assert.Equal(t, "/a/b", normalizePath("/a/b/"))
	assert.Equal(t, "/", normalizePath("//"))
}

func TestNormalizePathIdempotent(t *testing.T) {
	for _, p := range []string{
		"/",
		"/a",
		"/a/",
		"/a/b///",
		"/static",
		"",
	} {
		once := normalizePath(p)
		assert.Equal(t, once, normalizePath(once), "path %q", p)
	}
}

func TestIsPathCharacterAllowed(t *testing.T) {
	assert.True(t, isPathCharacterAllowed("/"))
	assert.True(t, isPathCharacterAllowed("/users/42"))
	assert.True(t, isPathCharacterAllowed("/a-b.c_d~e"))
	assert.True(t, isPathCharacterAllowed("/a!$&'()*+,;=:@"))
	assert.True(t, isPathCharacterAllowed(""))

	assert.False(t, isPathCharacterAllowed("/a b"))
	assert.False(t, isPathCharacterAllowed("/a\tb"))
	assert.False(t, isPathCharacterAllowed("/a\x00b"))
	assert.False(t, isPathCharacterAllowed("/a%20b"))
	assert.False(t, isPathCharacterAllowed("/a#b"))
	assert.False(t, isPathCharacterAllowed("/a?b"))
	assert.False(t, isPathCharacterAllowed("/日本"))
}
