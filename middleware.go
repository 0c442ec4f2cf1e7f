package waypost

// Middleware mutates a request/response pair before route dispatch. It
// reports whether the pipeline should continue; false short-circuits every
// remaining middleware in all phases and skips dispatch, leaving the
// current response state as the result.
type Middleware interface {
	Handle(req *Request, res *Response, payload *Payload) bool
}

// MiddlewareFunc adapts a plain function into a `Middleware`.
type MiddlewareFunc func(req *Request, res *Response, payload *Payload) bool

// Handle implements the `Middleware` interface.
func (f MiddlewareFunc) Handle(req *Request, res *Response, payload *Payload) bool {
	return f(req, res, payload)
}

// Phase is a stage of the middleware pipeline. Phases run in declaration
// order; within a phase, registration order is execution order.
type Phase uint8

// phases
const (
	PhasePreRequest Phase = iota
	PhaseOnRequest
	PhaseBeforeHandle
)

// Chain is the ordered, phased middleware pipeline of a `Waypost`
// instance.
type Chain struct {
	preRequest   []Middleware
	onRequest    []Middleware
	beforeHandle []Middleware
}

// newChain returns a pointer of a new instance of the `Chain`.
func newChain() *Chain {
	return &Chain{}
}

// AddTo appends the mw to the phase.
func (c *Chain) AddTo(phase Phase, mw Middleware) *Chain {
	switch phase {
	case PhasePreRequest:
		c.preRequest = append(c.preRequest, mw)
	case PhaseOnRequest:
		c.onRequest = append(c.onRequest, mw)
	case PhaseBeforeHandle:
		c.beforeHandle = append(c.beforeHandle, mw)
	}

	return c
}

// execute runs every phase in order against the req and the res. It
// reports whether the pipeline ran to completion.
func (c *Chain) execute(req *Request, res *Response, payload *Payload) bool {
	for _, phase := range [][]Middleware{
		c.preRequest,
		c.onRequest,
		c.beforeHandle,
	} {
		for _, mw := range phase {
			if !mw.Handle(req, res, payload) {
				return false
			}
		}
	}

	return true
}
