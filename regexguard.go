package waypost

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// catastrophicSubpatterns is a conservative denylist of regex fragments
// known to blow up backtracking matchers. The routing core refuses them
// outright so that worst-case match time stays bounded for untrusted
// input. This is a heuristic, not a soundness proof.
var catastrophicSubpatterns = []string{
	"(.+)+",
	"(.*)+",
	"(.+){",
	"(.*){",
	"+)+",
	"*)+",
	"{,}",
	".+.*+",
	".*.++",
}

// isRegexSafe reports whether the re avoids every denylisted fragment.
func isRegexSafe(re string) bool {
	for _, bad := range catastrophicSubpatterns {
		if strings.Contains(re, bad) {
			return false
		}
	}

	return true
}

// anchorRegex returns the trimmed re wrapped in ^...$ anchors unless it
// already carries both. The anchored form is the cache key.
func anchorRegex(re string) string {
	trimmed := strings.TrimSpace(re)
	if strings.HasPrefix(trimmed, "^") && strings.HasSuffix(trimmed, "$") {
		return trimmed
	}

	return "^" + trimmed + "$"
}

// regexCacheEntry is a compiled constraint together with the tick of its
// last use.
type regexCacheEntry struct {
	re   *regexp.Regexp
	tick atomic.Uint64
}

// regexCache caches compiled parameter constraints keyed by their anchored
// source. Eviction is sampled rather than exact: when over capacity, up to
// 8 entries are inspected and the stalest one dropped. Capacity may be
// over- or undershot by a small bounded amount under concurrency.
type regexCache struct {
	entries  sync.Map // string → *regexCacheEntry
	size     atomic.Int64
	clock    atomic.Uint64
	capacity int
}

// regexCacheSampleSize is the number of entries a single eviction inspects.
const regexCacheSampleSize = 8

// newRegexCache returns a pointer of a new instance of the `regexCache`.
func newRegexCache(capacity int) *regexCache {
	return &regexCache{
		capacity: capacity,
	}
}

// compile anchors, guards and compiles the src, consulting the cache first.
func (rc *regexCache) compile(src string) (*regexp.Regexp, error) {
	if !isRegexSafe(src) {
		return nil, insertUnsafeRegex
	}

	anchored := anchorRegex(src)

	if e, ok := rc.entries.Load(anchored); ok {
		entry := e.(*regexCacheEntry)
		entry.tick.Store(rc.clock.Add(1))
		return entry.re, nil
	}

	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, insertSyntax
	}

	entry := &regexCacheEntry{re: re}
	entry.tick.Store(rc.clock.Add(1))

	if _, loaded := rc.entries.LoadOrStore(anchored, entry); loaded {
		// Lost the race; the winner's entry is equivalent.
		return re, nil
	}

	if rc.size.Add(1) > int64(rc.capacity) {
		rc.evictOne()
	}

	return re, nil
}

// evictOne samples up to `regexCacheSampleSize` entries and drops the one
// with the lowest tick.
func (rc *regexCache) evictOne() {
	var (
		oldestKey  string
		oldestTick = uint64(1<<64 - 1)
		seen       = 0
	)

	rc.entries.Range(func(k, v interface{}) bool {
		tick := v.(*regexCacheEntry).tick.Load()
		if tick <= oldestTick {
			oldestTick = tick
			oldestKey = k.(string)
		}

		seen++

		return seen < regexCacheSampleSize
	})

	if oldestKey != "" {
		if _, ok := rc.entries.LoadAndDelete(oldestKey); ok {
			rc.size.Add(-1)
		}
	}
}

// len returns the current number of cached constraints.
func (rc *regexCache) len() int {
	return int(rc.size.Load())
}
