package waypost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUrlParserParsesAbsoluteURL(t *testing.T) {
	req := &Request{}
	res := &Response{}

	ok := UrlParser{}.Handle(req, res, &Payload{
		URL: "https://example.com:8443/users/42?page=2&tag=a&tag=b",
	})

	assert.True(t, ok)
	assert.Equal(t, "/users/42", req.Path)
	assert.Equal(t, "page=2&tag=a&tag=b", req.QueryString)
	assert.Equal(t, []string{"2"}, req.QueryParams["page"])
	assert.Equal(t, []string{"a", "b"}, req.QueryParams["tag"])
	assert.Equal(t, "https", req.Protocol)
	assert.Equal(t, "example.com:8443", req.Host)
	assert.Equal(t, "example.com", req.Hostname)
	assert.Equal(t, 8443, req.Port)
}

func TestUrlParserKnownDefaultPorts(t *testing.T) {
	req := &Request{}
	ok := UrlParser{}.Handle(req, &Response{}, &Payload{
		URL: "http://example.com/",
	})

	assert.True(t, ok)
	assert.Equal(t, 80, req.Port)

	req = &Request{}
	ok = UrlParser{}.Handle(req, &Response{}, &Payload{
		URL: "https://example.com/",
	})

	assert.True(t, ok)
	assert.Equal(t, 443, req.Port)
}

func TestUrlParserKeepsForwardedValues(t *testing.T) {
	req := &Request{
		Protocol: "https",
		Host:     "proxy.example",
	}

	ok := UrlParser{}.Handle(req, &Response{}, &Payload{
		URL: "http://internal:3000/a",
	})

	assert.True(t, ok)
	assert.Equal(t, "https", req.Protocol)
	assert.Equal(t, "proxy.example", req.Host)
	assert.Equal(t, "internal", req.Hostname)
	assert.Equal(t, 3000, req.Port)
}

func TestUrlParserRejectsUnparsableURL(t *testing.T) {
	for _, raw := range []string{
		"",
		"://missing-scheme",
		"not a url",
		"/relative/only",
	} {
		req := &Request{}
		res := &Response{}

		ok := UrlParser{}.Handle(req, res, &Payload{URL: raw})

		assert.False(t, ok, "url %q", raw)
		assert.Equal(t, 400, res.Status, "url %q", raw)
	}
}
