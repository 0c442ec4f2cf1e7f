// Package main is the C-ABI surface of the routing core, built as a
// c-shared library.
//
// Every string and payload argument is a length-prefixed buffer: a
// little-endian u32 length followed by UTF-8 bytes. The two legacy logger
// entry points are the only NUL-terminated exception. Every buffer the
// core returns or delivers through a callback is owned by the host from
// that moment on and must be released with free_string exactly once.
package main

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

typedef void (*request_callback)(uint64_t request_key, uint16_t route_key, uint8_t *result);

static void invoke_request_callback(request_callback cb, uint64_t request_key, uint16_t route_key, uint8_t *result) {
	if (cb != NULL) {
		cb(request_key, route_key, result);
	}
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/hexlane/waypost"
)

// waypost_init creates a new server instance in its build phase and
// returns its handle. The C symbol `init` (see shim.c) aliases this; Go
// cannot export a function of that name.
//
//export waypost_init
func waypost_init() C.uint64_t {
	return C.uint64_t(waypost.RegisterInstance(waypost.New()))
}

// destroy unregisters and releases the instance of the handle. Double
// destroy is a no-op. In-flight requests keep their shared reference to
// the sealed routing table and complete normally.
//
//export destroy
func destroy(handle C.uint64_t) {
	if w := waypost.UnregisterInstance(uint64(handle)); w != nil {
		w.Close()
	}
}

// add_route registers a route pattern for the method on the instance of
// the handle. It returns a length-prefixed JSON buffer: {"key":n} on
// success, an error object otherwise. The host frees it with free_string.
//
//export add_route
func add_route(handle C.uint64_t, method C.uint8_t, path *C.uint8_t) *C.uint8_t {
	w := waypost.LookupInstance(uint64(handle))
	if w == nil {
		return makeResultBuffer(waypost.NewAppNotFoundError())
	}

	m, err := waypost.MethodFromU8(uint8(method))
	if err != nil {
		return makeResultBuffer(waypost.NewInvalidMethodError())
	}

	pattern, ok := readLengthPrefixed(path)
	if !ok {
		return makeResultBuffer(waypost.NewInvalidArgumentError())
	}

	key, rerr := w.AddRoute(m, string(pattern))
	if rerr != nil {
		return makeResultBuffer(rerr)
	}

	return makeResultBuffer(map[string]interface{}{"key": key})
}

// seal_routes freezes the routing table of the instance of the handle.
// Idempotent; unknown handles are ignored.
//
//export seal_routes
func seal_routes(handle C.uint64_t) {
	if w := waypost.LookupInstance(uint64(handle)); w != nil {
		w.SealRoutes()
	}
}

// handle_request enqueues a request descriptor for the instance of the
// handle. The outcome always arrives through the callback: a route key of
// 0 together with an error buffer, or the matched key together with the
// parsed request. The callback owns the buffer it receives.
//
//export handle_request
func handle_request(
	handle C.uint64_t,
	requestKey C.uint64_t,
	payload *C.uint8_t,
	cb C.request_callback,
) {
	deliver := wrapCallback(cb)

	w := waypost.LookupInstance(uint64(handle))
	if w == nil {
		waypost.Dispatch(deliver, uint64(requestKey), 0, waypost.NewAppNotFoundError())
		return
	}

	body, ok := readLengthPrefixed(payload)
	if !ok {
		waypost.Dispatch(deliver, uint64(requestKey), 0, waypost.NewInvalidArgumentError())
		return
	}

	w.HandleRequest(uint64(requestKey), body, deliver)
}

// free_string releases a buffer previously returned or delivered by the
// core. Null-safe; freeing the same buffer twice is on the host.
//
//export free_string
func free_string(ptr *C.uint8_t) {
	if ptr != nil {
		C.free(unsafe.Pointer(ptr))
	}
}

// wrapCallback adapts the C callback into the core's delivery type,
// copying each result into host-owned memory. A null callback drops the
// result instead of allocating memory nobody can free.
func wrapCallback(cb C.request_callback) waypost.Callback {
	if cb == nil {
		return func(requestKey uint64, routeKey uint16, result []byte) {}
	}

	return func(requestKey uint64, routeKey uint16, result []byte) {
		C.invoke_request_callback(
			cb,
			C.uint64_t(requestKey),
			C.uint16_t(routeKey),
			copyToC(result),
		)
	}
}

// copyToC clones the b into C-allocated memory.
func copyToC(b []byte) *C.uint8_t {
	p := C.malloc(C.size_t(len(b)))
	if len(b) > 0 {
		C.memcpy(p, unsafe.Pointer(&b[0]), C.size_t(len(b)))
	}

	return (*C.uint8_t)(p)
}

// makeResultBuffer serializes the v into a fresh host-owned buffer.
func makeResultBuffer(v interface{}) *C.uint8_t {
	return copyToC(waypost.EncodeResult(v))
}

// readLengthPrefixed reads the length-prefixed buffer at the ptr.
func readLengthPrefixed(ptr *C.uint8_t) ([]byte, bool) {
	if ptr == nil {
		return nil, false
	}

	header := C.GoBytes(unsafe.Pointer(ptr), 4)
	l := uint32(header[0]) |
		uint32(header[1])<<8 |
		uint32(header[2])<<16 |
		uint32(header[3])<<24

	if l == 0 {
		return nil, true
	}

	body := C.GoBytes(unsafe.Add(unsafe.Pointer(ptr), 4), C.int(l))

	return body, true
}

var (
	loggerOnce     sync.Once
	loggerInstance *waypost.Waypost
)

// init_logger prepares the process logger used by log_message. Legacy
// NUL-terminated surface.
//
//export init_logger
func init_logger() {
	loggerOnce.Do(func() {
		loggerInstance = waypost.New()
		loggerInstance.LoggerEnabled = true
		loggerInstance.DebugMode = true
	})
}

// log_message writes a NUL-terminated message at the level: 0 trace,
// 1 debug, 2 info, 3 warn, 4 error. Legacy NUL-terminated surface.
//
//export log_message
func log_message(level C.uint8_t, message *C.char) {
	if loggerInstance == nil || message == nil {
		return
	}

	msg := C.GoString(message)
	l := loggerInstance.Logger()

	switch level {
	case 0, 1:
		l.Debug(msg)
	case 2:
		l.Info(msg)
	case 3:
		l.Warn(msg)
	default:
		l.Error(msg)
	}
}

func main() {}
