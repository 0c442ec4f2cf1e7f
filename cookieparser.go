package waypost

import "strings"

// CookieParser splits the cookie header along RFC 6265 delimiters into the
// request's cookie map. Duplicate names keep the last value; empty values
// are kept; wrapping quotes stay verbatim; malformed segments are skipped.
type CookieParser struct{}

// Handle implements the `Middleware` interface.
func (CookieParser) Handle(req *Request, res *Response, payload *Payload) bool {
	req.Cookies = map[string]string{}

	header, ok := req.Headers["cookie"]
	if !ok {
		return true
	}

	for _, segment := range strings.Split(header, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		name, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" || !validCookieName(name) {
			continue
		}

		req.Cookies[name] = strings.TrimSpace(value)
	}

	return true
}

// validCookieName reports whether the name is an RFC 6265 token.
func validCookieName(name string) bool {
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b <= 0x20 || b >= 0x7f {
			return false
		}

		switch b {
		case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/',
			'[', ']', '?', '=', '{', '}':
			return false
		}
	}

	return len(name) > 0
}
