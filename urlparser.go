package waypost

import (
	"net/http"
	"net/url"
	"strconv"
)

// UrlParser parses the raw request URL into protocol, host, hostname, port,
// path and query. Forwarded-derived values win: slots another middleware
// already filled are left alone. An unparsable URL rejects the request with
// a 400 and stops the pipeline.
type UrlParser struct{}

// Handle implements the `Middleware` interface.
func (UrlParser) Handle(req *Request, res *Response, payload *Payload) bool {
	u, err := url.Parse(payload.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		res.Status = http.StatusBadRequest
		return false
	}

	req.Path = u.Path
	req.QueryString = u.RawQuery

	if qp, err := url.ParseQuery(u.RawQuery); err == nil {
		req.QueryParams = qp
	}

	if req.Protocol == "" {
		req.Protocol = u.Scheme
	}

	if req.Host == "" {
		req.Host = u.Host
	}

	if req.Hostname == "" {
		req.Hostname = u.Hostname()
	}

	if req.Port == 0 {
		req.Port = portOrKnownDefault(u)
	}

	return true
}

// portOrKnownDefault returns the explicit port of the u, or the well-known
// port of its scheme.
func portOrKnownDefault(u *url.URL) int {
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}

	switch u.Scheme {
	case "http", "ws":
		return 80
	case "https", "wss":
		return 443
	}

	return 0
}
