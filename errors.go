package waypost

import (
	"errors"
	"fmt"
)

// ServerErrorCode identifies a failure of the serving surface itself, as
// opposed to a routing failure. The numeric values are part of the host
// contract and must never be renumbered; appending new codes is fine.
type ServerErrorCode uint16

// server error codes
const (
	CodeAppNotFound ServerErrorCode = iota + 1
	CodeInvalidHTTPMethod
	CodeQueueFull
	CodeInvalidArgument
	CodeInvalidJSONString
)

// name returns the stable tag of the c.
func (c ServerErrorCode) name() string {
	switch c {
	case CodeAppNotFound:
		return "AppNotFound"
	case CodeInvalidHTTPMethod:
		return "InvalidHttpMethod"
	case CodeQueueFull:
		return "QueueFull"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeInvalidJSONString:
		return "InvalidJsonString"
	}

	return "Unknown"
}

// RouterErrorCode identifies a routing build or match failure. The numeric
// values are part of the host contract and must never be renumbered;
// appending new codes is fine.
type RouterErrorCode uint16

// router error codes
const (
	CodeAlreadySealed RouterErrorCode = iota + 1
	CodeNotSealed
	CodeEmptyPath
	CodeInvalidPath
	CodeDuplicatedPath
	CodeInvalidParamName
	CodeDuplicateParamName
	CodeParamNameConflicted
	CodePatternTooLong
	CodeInvalidWildcard
	CodeWildcardAlreadyExists
	CodeMaxRoutesExceeded
	CodePathNotFound
	CodeUnsafeRegex
	CodeRegexSyntax
)

// name returns the stable tag of the c.
func (c RouterErrorCode) name() string {
	switch c {
	case CodeAlreadySealed:
		return "AlreadySealed"
	case CodeNotSealed:
		return "NotSealed"
	case CodeEmptyPath:
		return "EmptyPath"
	case CodeInvalidPath:
		return "InvalidPath"
	case CodeDuplicatedPath:
		return "DuplicatedPath"
	case CodeInvalidParamName:
		return "InvalidParamName"
	case CodeDuplicateParamName:
		return "DuplicateParamName"
	case CodeParamNameConflicted:
		return "ParamNameConflicted"
	case CodePatternTooLong:
		return "PatternTooLong"
	case CodeInvalidWildcard:
		return "InvalidWildcard"
	case CodeWildcardAlreadyExists:
		return "WildcardAlreadyExists"
	case CodeMaxRoutesExceeded:
		return "MaxRoutesExceeded"
	case CodePathNotFound:
		return "PathNotFound"
	case CodeUnsafeRegex:
		return "UnsafeRegex"
	case CodeRegexSyntax:
		return "RegexSyntax"
	}

	return "Unknown"
}

// insertError is a low-level radix insertion failure. It never reaches the
// host directly; `routeTree.add` maps it to a `RouterError`.
type insertError uint8

// insert errors
const (
	insertConflict insertError = iota + 1
	insertUnsafeRegex
	insertSyntax
	insertWildcardPosition
)

// Error implements the `error` interface.
func (e insertError) Error() string {
	switch e {
	case insertConflict:
		return "conflict"
	case insertUnsafeRegex:
		return "unsafe-regex"
	case insertSyntax:
		return "syntax"
	case insertWildcardPosition:
		return "wildcard-position"
	}

	return "unknown"
}

// routerCode returns the `RouterErrorCode` the host sees for the e.
func (e insertError) routerCode() RouterErrorCode {
	switch e {
	case insertUnsafeRegex:
		return CodeUnsafeRegex
	case insertSyntax:
		return CodeRegexSyntax
	case insertWildcardPosition:
		return CodeInvalidWildcard
	}

	return CodeDuplicatedPath
}

// RouterError is a routing failure in the shape the host receives it.
type RouterError struct {
	Code        RouterErrorCode        `json:"code"`
	Tag         string                 `json:"error"`
	Description string                 `json:"description"`
	Detail      map[string]interface{} `json:"detail"`
}

// newRouterError returns a new instance of the `RouterError`. The caller
// provides a context-specific description.
func newRouterError(
	code RouterErrorCode,
	description string,
	detail map[string]interface{},
) *RouterError {
	return &RouterError{
		Code:        code,
		Tag:         code.name(),
		Description: description,
		Detail:      detail,
	}
}

// Error implements the `error` interface.
func (re *RouterError) Error() string {
	return fmt.Sprintf("waypost: %s: %s", re.Tag, re.Description)
}

// mergeDetail merges the m into the detail of the re, initializing the
// detail if it is absent.
func (re *RouterError) mergeDetail(m map[string]interface{}) {
	if re.Detail == nil {
		re.Detail = map[string]interface{}{}
	}

	for k, v := range m {
		re.Detail[k] = v
	}
}

// ServerError is a serving failure in the shape the host receives it.
type ServerError struct {
	Code        ServerErrorCode        `json:"code"`
	Tag         string                 `json:"error"`
	Description string                 `json:"description"`
	Detail      map[string]interface{} `json:"detail"`
}

// newServerError returns a new instance of the `ServerError`.
func newServerError(code ServerErrorCode, description string) *ServerError {
	return &ServerError{
		Code:        code,
		Tag:         code.name(),
		Description: description,
	}
}

// Error implements the `error` interface.
func (se *ServerError) Error() string {
	return fmt.Sprintf("waypost: %s: %s", se.Tag, se.Description)
}

// NewAppNotFoundError returns the error delivered for a destroyed or
// unknown handle.
func NewAppNotFoundError() *ServerError {
	return newServerError(
		CodeAppNotFound,
		"no instance exists for the handle",
	)
}

// NewInvalidMethodError returns the error delivered for a method byte
// outside 0..6.
func NewInvalidMethodError() *ServerError {
	return newServerError(
		CodeInvalidHTTPMethod,
		"method must be an integer in 0..6",
	)
}

// NewInvalidArgumentError returns the error delivered for an unreadable
// argument buffer.
func NewInvalidArgumentError() *ServerError {
	return newServerError(
		CodeInvalidArgument,
		"argument buffer is null or malformed",
	)
}

// sentinel errors of the serving surface
var (
	errInvalidHTTPMethod  = errors.New("waypost: invalid http method")
	errQueueFull          = errors.New("waypost: worker queue is full")
	errQueueClosed        = errors.New("waypost: worker queue is closed")
	errInvalidContentType = errors.New("waypost: invalid content type")
)
