package types

import "strings"

// ErrorBody is the failure payload the backend returns. Older handlers send
// only a message, newer ones also send a code.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Text returns the best human-readable description in the body.
func (b ErrorBody) Text() string {
	if msg := strings.TrimSpace(b.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(b.Error)
}

// MessageBody is the acknowledgement payload of mutations that return no resource.
type MessageBody struct {
	Message string `json:"message"`
}
