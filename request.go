package waypost

// Payload is a request descriptor the way the host delivers it: pre-parsed
// by the host's HTTP frontend, encoded as JSON inside a length-prefixed
// buffer.
type Payload struct {
	HTTPMethod *uint8            `json:"httpMethod"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers"`
	Body       *string           `json:"body"`
}

// Request is the in-flight request descriptor. The middleware chain fills
// in everything beyond the raw fields before dispatch; the serialized form
// is what a successful callback carries.
type Request struct {
	Method      Method                 `json:"httpMethod"`
	Path        string                 `json:"path"`
	QueryParams map[string][]string    `json:"queryParams"`
	QueryString string                 `json:"queryString,omitempty"`
	Protocol    string                 `json:"protocol,omitempty"`
	Host        string                 `json:"host,omitempty"`
	Hostname    string                 `json:"hostname,omitempty"`
	Port        int                    `json:"port,omitempty"`
	Headers     map[string]string      `json:"headers"`
	ContentType string                 `json:"contentType,omitempty"`
	Charset     string                 `json:"charset,omitempty"`
	Cookies     map[string]string      `json:"cookies"`
	Body        interface{}            `json:"body"`
	ClientIP    string                 `json:"clientIp,omitempty"`
	Values      map[string]interface{} `json:"-"`
}

// Response is the in-flight response descriptor. Middleware may write a
// rejection status to short-circuit the pipeline; the host renders actual
// response bodies.
type Response struct {
	Status int         `json:"status"`
	Body   interface{} `json:"body"`
}

// reset clears the r for reuse.
func (r *Request) reset() {
	*r = Request{}
}

// reset clears the r for reuse.
func (r *Response) reset() {
	*r = Response{}
}
