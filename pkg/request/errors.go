package request

import (
	"errors"
	"fmt"
)

// Kind classifies a request failure.
type Kind int

const (
	// KindRequest is a transport failure (connection, DNS, TLS, encoding).
	KindRequest Kind = iota + 1
	// KindDecode means the success body did not match the expected shape.
	KindDecode
	// KindInvalidHeaders means a protocol header was missing or unparsable.
	KindInvalidHeaders
	// KindHTTPNotOk is a transport status other than 200.
	KindHTTPNotOk
	// KindError is a failure reported by the server through the status headers.
	KindError
	// KindInvalidState is a local precondition failure. Nothing was sent.
	KindInvalidState
	// KindConsumed means the request was already executed once.
	KindConsumed
	// KindInvalidConfig is a bad base URL or argument, detected before sending.
	KindInvalidConfig
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindDecode:
		return "decode"
	case KindInvalidHeaders:
		return "invalid headers"
	case KindHTTPNotOk:
		return "http not ok"
	case KindError:
		return "error"
	case KindInvalidState:
		return "invalid state"
	case KindConsumed:
		return "consumed"
	case KindInvalidConfig:
		return "invalid config"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by every failing call in this package and the facade.
type Error struct {
	Kind Kind
	// Code is the HTTP status for KindHTTPNotOk.
	Code int
	// Message is the server message for KindError.
	Message string
	Err     error
}

var (
	ErrRequest        = &Error{Kind: KindRequest}
	ErrDecode         = &Error{Kind: KindDecode}
	ErrInvalidHeaders = &Error{Kind: KindInvalidHeaders}
	ErrHTTPNotOk      = &Error{Kind: KindHTTPNotOk}
	ErrServer         = &Error{Kind: KindError}
	ErrInvalidState   = &Error{Kind: KindInvalidState}
	ErrConsumed       = &Error{Kind: KindConsumed}
	ErrInvalidConfig  = &Error{Kind: KindInvalidConfig}
)

// HTTPNotOk builds the error for an unexpected transport status.
func HTTPNotOk(code int) *Error {
	return &Error{Kind: KindHTTPNotOk, Code: code}
}

// ServerError builds the error for an application failure.
func ServerError(message string) *Error {
	return &Error{Kind: KindError, Message: message}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPNotOk:
		return fmt.Sprintf("http status %d", e.Code)
	case KindError:
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind. Code and Message of the target
// are compared only when set, so the package sentinels match any instance.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Code != 0 && t.Code != e.Code {
		return false
	}
	if t.Message != "" && t.Message != e.Message {
		return false
	}
	return true
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
