package provider

import "fmt"

type ErrorKind string

const (
	ErrKindRequest   ErrorKind = "REQUEST"
	ErrKindTransport ErrorKind = "TRANSPORT"
	ErrKindHTTP      ErrorKind = "HTTP"
	ErrKindDecode    ErrorKind = "DECODE"
)

// ProviderError is a failed provider call. Provider-side logical errors
// (result != "ok") are not ProviderErrors; they come back as a Response.
type ProviderError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.Kind == ErrKindHTTP {
		return "API error: " + e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
