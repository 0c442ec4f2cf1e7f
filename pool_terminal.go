//go:build !waypost_poolreinit

package waypost

// poolReinitOnSubmit is false in release builds: once the pool shuts down,
// every later submit fails. Build with the waypost_poolreinit tag to let
// test suites cycle the pool.
const poolReinitOnSubmit = false
