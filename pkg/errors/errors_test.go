package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeConflict, status: http.StatusConflict},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeTransport, status: http.StatusBadGateway, retryable: true},
		{code: CodePaymentWidget, status: http.StatusBadGateway, retryable: true},
		{code: CodePaymentVerification, status: http.StatusPaymentRequired},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s missing public message", tt.code)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestFromStatus(t *testing.T) {
	cases := map[int]Code{
		http.StatusBadRequest:          CodeValidation,
		http.StatusUnprocessableEntity: CodeValidation,
		http.StatusUnauthorized:        CodeUnauthorized,
		http.StatusForbidden:           CodeForbidden,
		http.StatusNotFound:            CodeNotFound,
		http.StatusConflict:            CodeConflict,
		http.StatusTooManyRequests:     CodeRateLimit,
		http.StatusTeapot:              CodeValidation,
		http.StatusServiceUnavailable:  CodeDependency,
		http.StatusInternalServerError: CodeInternal,
	}
	for status, want := range cases {
		if got := FromStatus(status); got != want {
			t.Fatalf("status %d expected %s got %s", status, want, got)
		}
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"field": "foo"}).WithStatus(http.StatusBadRequest)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}
	if base.Status() != http.StatusBadRequest {
		t.Fatalf("status should be preserved, got %d", base.Status())
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeForbidden) {
		t.Fatalf("IsCode should match wrapped code")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil, got %q", got)
	}
	if got := UserMessage(New(CodeValidation, "Please enter shipping address.")); got != "Please enter shipping address." {
		t.Fatalf("unexpected message %q", got)
	}
	if got := UserMessage(New(CodeTransport, "")); got != MetadataFor(CodeTransport).PublicMessage {
		t.Fatalf("expected public fallback, got %q", got)
	}
	if got := UserMessage(stdErrors.New("raw")); got != MetadataFor(CodeInternal).PublicMessage {
		t.Fatalf("untyped errors should map to internal message, got %q", got)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp"), "list products").WithStatus(http.StatusServiceUnavailable)
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %v", dump.Chain)
	}
	fields := dump.Fields()
	if fields["http_status"] != http.StatusServiceUnavailable {
		t.Fatalf("expected http_status field, got %v", fields)
	}
}

func TestParseCode(t *testing.T) {
	if code, ok := ParseCode(" conflict "); !ok || code != CodeConflict {
		t.Fatalf("expected CONFLICT, got %q ok=%v", code, ok)
	}
	if _, ok := ParseCode("E_DUPLICATE"); ok {
		t.Fatalf("unknown codes should not parse")
	}
}
