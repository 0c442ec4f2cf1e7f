package waypost

import (
	"encoding/json"
	"strings"

	"github.com/aofei/mimesniffer"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/encoding/htmlindex"
)

// BodyParser decodes the request body based on the parsed content type.
// JSON and MessagePack media types decode into generic values; everything
// else, and every decode failure, keeps the body as the raw string. A
// missing content type is sniffed from the body bytes.
type BodyParser struct{}

// Handle implements the `Middleware` interface.
func (BodyParser) Handle(req *Request, res *Response, payload *Payload) bool {
	if payload.Body == nil {
		return true
	}

	raw := *payload.Body

	if req.Charset != "" {
		raw = decodeCharset(raw, req.Charset)
	}

	mediaType := req.ContentType
	if mediaType == "" && raw != "" {
		mediaType = mimesniffer.Sniff([]byte(raw))
	}

	switch {
	case strings.HasPrefix(mediaType, "application/json"),
		strings.HasSuffix(mediaType, "+json"):
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			req.Body = raw
		} else {
			req.Body = v
		}
	case mediaType == "application/msgpack",
		mediaType == "application/x-msgpack":
		var v interface{}
		if err := msgpack.Unmarshal([]byte(raw), &v); err != nil {
			req.Body = raw
		} else {
			req.Body = v
		}
	default:
		req.Body = raw
	}

	return true
}

// decodeCharset transcodes the raw into UTF-8 from the charset. Unknown
// charsets and transcode failures leave the raw alone.
func decodeCharset(raw, charset string) string {
	if strings.EqualFold(charset, "utf-8") {
		return raw
	}

	e, err := htmlindex.Get(charset)
	if err != nil {
		return raw
	}

	decoded, err := e.NewDecoder().String(raw)
	if err != nil {
		return raw
	}

	return decoded
}
