//go:build waypost_poolreinit

package waypost

// poolReinitOnSubmit is true under the waypost_poolreinit tag: a submit
// after shutdown lazily starts a fresh pool, which lets test suites cycle
// shutdown semantics without poisoning the process.
const poolReinitOnSubmit = true
