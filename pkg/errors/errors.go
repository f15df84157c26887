package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeStateConflict       Code = "STATE_CONFLICT"
	CodeRateLimit           Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
	CodeTransport           Code = "TRANSPORT_ERROR"
	CodePaymentWidget       Code = "PAYMENT_WIDGET_ERROR"
	CodePaymentVerification Code = "PAYMENT_VERIFICATION_FAILED"
)

type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:    http.StatusBadRequest,
		PublicMessage: "validation failed",
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "please sign in to continue",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
	},
	CodeStateConflict: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "state transition disallowed",
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		PublicMessage: "too many requests, try again shortly",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "something went wrong",
	},
	CodeDependency: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "service unavailable",
	},
	CodeTransport: {
		HTTPStatus:    http.StatusBadGateway,
		Retryable:     true,
		PublicMessage: "network error, check your connection",
	},
	CodePaymentWidget: {
		HTTPStatus:    http.StatusBadGateway,
		Retryable:     true,
		PublicMessage: "failed to load payment widget",
	},
	CodePaymentVerification: {
		HTTPStatus:    http.StatusPaymentRequired,
		PublicMessage: "payment verification failed",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// FromStatus maps a backend HTTP status onto the client error taxonomy.
func FromStatus(status int) Code {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return CodeValidation
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusTooManyRequests:
		return CodeRateLimit
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return CodeDependency
	case status >= 400 && status < 500:
		return CodeValidation
	default:
		return CodeInternal
	}
}

type Error struct {
	code    Code
	message string
	status  int
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Status is the HTTP status the backend answered with, or 0 for client-side failures.
func (e *Error) Status() int {
	if e == nil {
		return 0
	}
	return e.status
}

func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	e.status = status
	return e
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// UserMessage returns the transient message a view shows for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	typed := As(err)
	if typed == nil {
		return MetadataFor(CodeInternal).PublicMessage
	}
	if msg := strings.TrimSpace(typed.Message()); msg != "" {
		return msg
	}
	return MetadataFor(typed.Code()).PublicMessage
}

// ParseCode returns the Code named by value when it is part of the taxonomy.
func ParseCode(value string) (Code, bool) {
	code := Code(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := metadataByCode[code]; ok {
		return code, true
	}
	return "", false
}
