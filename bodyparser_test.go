package waypost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vmihailenco/msgpack/v5"
)

func parseBody(t *testing.T, contentType, charset, body string) *Request {
	t.Helper()

	req := &Request{
		ContentType: contentType,
		Charset:     charset,
	}

	ok := BodyParser{}.Handle(req, &Response{}, &Payload{Body: &body})
	assert.True(t, ok)

	return req
}

func TestBodyParserDecodesJSON(t *testing.T) {
	req := parseBody(t, "application/json", "", `{"a":1,"b":["x"]}`)

	m, ok := req.Body.(map[string]interface{})
	assert.True(t, ok)
	assert.EqualValues(t, 1, m["a"])
}

func TestBodyParserKeepsRawStringOnBadJSON(t *testing.T) {
	req := parseBody(t, "application/json", "", `{"a":`)

	assert.Equal(t, `{"a":`, req.Body)
}

func TestBodyParserDecodesJSONSuffixTypes(t *testing.T) {
	req := parseBody(t, "application/problem+json", "", `{"title":"x"}`)

	m, ok := req.Body.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "x", m["title"])
}

func TestBodyParserDecodesMsgpack(t *testing.T) {
	b, err := msgpack.Marshal(map[string]interface{}{"a": 1})
	assert.NoError(t, err)

	req := parseBody(t, "application/msgpack", "", string(b))

	m, ok := req.Body.(map[string]interface{})
	assert.True(t, ok)
	assert.EqualValues(t, 1, m["a"])
}

func TestBodyParserKeepsRawStringOnBadMsgpack(t *testing.T) {
	req := parseBody(t, "application/msgpack", "", "\xc1not-msgpack")

	assert.Equal(t, "\xc1not-msgpack", req.Body)
}

func TestBodyParserKeepsOtherMediaTypesRaw(t *testing.T) {
	req := parseBody(t, "text/plain", "", `{"a":1}`)

	assert.Equal(t, `{"a":1}`, req.Body)
}

func TestBodyParserNilBody(t *testing.T) {
	req := &Request{}
	ok := BodyParser{}.Handle(req, &Response{}, &Payload{})

	assert.True(t, ok)
	assert.Nil(t, req.Body)
}

func TestBodyParserDecodesCharset(t *testing.T) {
	req := parseBody(t, "text/plain", "iso-8859-1", "caf\xe9")

	assert.Equal(t, "café", req.Body)
}

func TestBodyParserUnknownCharsetKeepsRaw(t *testing.T) {
	req := parseBody(t, "text/plain", "no-such-charset", "abc")

	assert.Equal(t, "abc", req.Body)
}
