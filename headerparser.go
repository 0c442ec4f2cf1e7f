package waypost

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// HeaderParser normalizes header names to lower case and derives the
// request fields that come from headers: the content type with its
// parameters, and the forwarding chain (proto, host, client) with the
// standard Forwarded header taking precedence over the x-forwarded-*
// family.
type HeaderParser struct{}

// Handle implements the `Middleware` interface.
func (HeaderParser) Handle(req *Request, res *Response, payload *Payload) bool {
	req.Headers = make(map[string]string, len(payload.Headers))
	for name, value := range payload.Headers {
		name = strings.ToLower(name)
		if !httpguts.ValidHeaderFieldName(name) ||
			!httpguts.ValidHeaderFieldValue(value) {
			continue
		}

		req.Headers[name] = value
	}

	if ct, ok := req.Headers["content-type"]; ok {
		if mediaType, params, err := parseContentType(ct); err == nil {
			req.ContentType = mediaType
			req.Charset = params["charset"]
		}
	}

	if req.Host == "" {
		req.Host = req.Headers["host"]
	}

	if fwd, ok := req.Headers["forwarded"]; ok {
		proto, host, client := parseForwardedValues(fwd)
		if proto != "" {
			req.Protocol = proto
		}

		if host != "" {
			req.Host = host
		}

		if client != "" {
			req.ClientIP = client
		}
	} else {
		if proto := firstHeaderValue(req.Headers["x-forwarded-proto"]); proto != "" {
			req.Protocol = strings.ToLower(proto)
		}

		if host := firstHeaderValue(req.Headers["x-forwarded-host"]); host != "" {
			req.Host = host
		}

		if client := firstHeaderValue(req.Headers["x-forwarded-for"]); client != "" {
			req.ClientIP = client
		}
	}

	return true
}

// parseContentType splits the ct into its lower-cased media type and its
// parameters. First occurrence of a parameter wins.
func parseContentType(ct string) (string, map[string]string, error) {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return "", nil, errInvalidContentType
	}

	mediaType, rest, _ := strings.Cut(ct, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return "", nil, errInvalidContentType
	}

	params := map[string]string{}
	for _, param := range strings.Split(rest, ";") {
		param = strings.TrimSpace(param)
		if param == "" {
			continue
		}

		key, value, _ := strings.Cut(param, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}

		if _, ok := params[key]; !ok {
			params[key] = stripSurroundingQuotes(strings.TrimSpace(value))
		}
	}

	return mediaType, params, nil
}

// parseForwardedValues extracts proto, host and client from the first
// element of a Forwarded header.
func parseForwardedValues(header string) (proto, host, client string) {
	first, _, _ := strings.Cut(header, ",")

	for _, segment := range strings.Split(first, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, _ := strings.Cut(segment, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}

		cleaned := stripSurroundingQuotes(strings.TrimSpace(value))

		switch key {
		case "proto":
			proto = strings.ToLower(cleaned)
		case "host":
			host = cleaned
		case "for":
			client = cleaned
		}
	}

	return proto, host, client
}

// firstHeaderValue returns the first comma-separated element of the
// header, trimmed.
func firstHeaderValue(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}

// stripSurroundingQuotes removes one matching pair of wrapping quotes.
func stripSurroundingQuotes(value string) string {
	trimmed := strings.TrimSpace(value)

	if len(trimmed) >= 2 {
		first, last := trimmed[0], trimmed[len(trimmed)-1]
		if (first == '"' && last == '"') ||
			(first == '\'' && last == '\'') {
			trimmed = trimmed[1 : len(trimmed)-1]
		}
	}

	return strings.TrimSpace(trimmed)
}
