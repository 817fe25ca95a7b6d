package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

// Soft "not found" results are never errors in this codebase; lookups return
// (value, ok) pairs instead. These codes cover the hard tier: invariant
// violations inside the interpreter, and real I/O or parse failures.
const (
	CodeInvariant  ErrorCode = "INVARIANT_VIOLATION"
	CodeParse      ErrorCode = "PARSE_ERROR"
	CodeDatabase   ErrorCode = "DATABASE_ERROR"
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
)

const (
	CtxPath     = "path"
	CtxNodeKind = "node_kind"
	CtxConstant = "constant"
	CtxScope    = "scope"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Invariant reports an internal interpreter bug, as opposed to a problem in
// the analyzed code. Callers abort the current run when they see one.
func Invariant(format string, args ...interface{}) error {
	return Newf(CodeInvariant, format, args...)
}

func IsInvariant(err error) bool {
	return IsCode(err, CodeInvariant)
}
