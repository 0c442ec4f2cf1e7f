package waypost

import (
	"encoding/binary"
	"encoding/json"
)

// Callback delivers a serialized result to the host. The result is a
// length-prefixed buffer whose ownership passes to the callback; over the
// FFI boundary the host must release it with free_string. A route key of 0
// means no route matched.
type Callback func(requestKey uint64, routeKey uint16, result []byte)

// internalErrorJSON is the fixed-shape payload delivered when result
// serialization itself fails. It is a literal so that it can never fail to
// serialize.
const internalErrorJSON = `{"code":0,"error":"Internal","description":"result serialization failed","detail":null}`

// serializeResult encodes the v as JSON, falling back to the fixed
// internal-error payload.
func serializeResult(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(internalErrorJSON)
	}

	return b
}

// encodeLengthPrefixed wraps the payload in the wire framing: a
// little-endian u32 length header followed by the payload bytes.
func encodeLengthPrefixed(payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)

	return buf
}

// decodeLengthPrefixed returns the payload carried by the buf.
func decodeLengthPrefixed(buf []byte) ([]byte, bool) {
	if len(buf) < 4 {
		return nil, false
	}

	l := binary.LittleEndian.Uint32(buf)
	if uint64(l) > uint64(len(buf)-4) {
		return nil, false
	}

	return buf[4 : 4+l], true
}

// EncodeResult serializes the v into the wire framing the host frees with
// free_string.
func EncodeResult(v interface{}) []byte {
	return encodeLengthPrefixed(serializeResult(v))
}

// Dispatch serializes the v and hands it to the cb. Safe to call from any
// worker thread. A nil callback still produces the buffer and then drops
// it; that is the documented contract for no-op hosts.
func Dispatch(cb Callback, requestKey uint64, routeKey uint16, v interface{}) {
	buf := EncodeResult(v)

	if cb != nil {
		cb(requestKey, routeKey, buf)
	}
}
