package waypost

import "encoding/json"

// HandleRequest decodes the payload, enqueues the request on the worker
// pool and delivers the outcome through the cb. The calling thread only
// decodes, enqueues and reports synchronous errors; middleware and matching
// always run on a worker. Every path invokes the cb exactly once.
func (w *Waypost) HandleRequest(requestKey uint64, payload []byte, cb Callback) {
	p, serr := decodePayload(payload)
	if serr != nil {
		Dispatch(cb, requestKey, 0, serr)
		return
	}

	ro := w.readOnly()
	if ro == nil {
		Dispatch(cb, requestKey, 0, newRouterError(
			CodeNotSealed,
			"requests cannot be handled before seal_routes",
			nil,
		))
		return
	}

	method := Method(*p.HTTPMethod)

	err := submitJob(func() {
		w.processRequest(requestKey, method, p, ro, cb)
	})
	if err != nil {
		se := newServerError(CodeQueueFull, "the worker queue rejected the request")
		if err == errQueueClosed {
			se.Description = "the worker pool is not accepting requests"
		}

		Dispatch(cb, requestKey, 0, se)
	}
}

// decodePayload parses and validates the host payload.
func decodePayload(payload []byte) (*Payload, *ServerError) {
	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, newServerError(
			CodeInvalidJSONString,
			"request payload is not valid JSON",
		)
	}

	if p.HTTPMethod == nil || p.URL == "" {
		return nil, newServerError(
			CodeInvalidJSONString,
			"request payload is missing required fields",
		)
	}

	if _, err := MethodFromU8(*p.HTTPMethod); err != nil {
		return nil, newServerError(
			CodeInvalidHTTPMethod,
			"httpMethod must be an integer in 0..6",
		)
	}

	if p.Headers == nil {
		p.Headers = map[string]string{}
	}

	return &p, nil
}

// processRequest runs on a worker: middleware, match, dispatch.
func (w *Waypost) processRequest(
	requestKey uint64,
	method Method,
	p *Payload,
	ro *readOnlyTable,
	cb Callback,
) {
	req := w.requestPool.Get().(*Request)
	res := w.responsePool.Get().(*Response)
	defer func() {
		req.reset()
		res.reset()
		w.requestPool.Put(req)
		w.responsePool.Put(res)
	}()

	req.Method = method

	if !w.chain.execute(req, res, p) {
		Dispatch(cb, requestKey, 0, res)
		return
	}

	key := ro.find(method, req.Path)
	if key == 0 {
		Dispatch(cb, requestKey, 0, newRouterError(
			CodePathNotFound,
			"no route matches the method and path",
			map[string]interface{}{
				"method": method.String(),
				"path":   req.Path,
			},
		))
		return
	}

	Dispatch(cb, requestKey, key, req)
}
