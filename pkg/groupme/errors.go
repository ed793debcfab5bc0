package groupme

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRequest matches any *MalformedRequestError.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrTransport matches any *TransportError.
	ErrTransport = errors.New("transport failure")
	// ErrDecode matches any *DecodeError.
	ErrDecode = errors.New("decode failure")
)

// MalformedRequestError reports a request URL that could not be built.
// It is a caller or configuration bug and should not be retried.
type MalformedRequestError struct {
	Target string
	Reason string
	Err    error
}

func (e *MalformedRequestError) Error() string {
	msg := fmt.Sprintf("malformed request %q: %s", e.Target, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRequestError) Unwrap() error        { return e.Err }
func (e *MalformedRequestError) Is(target error) bool { return target == ErrMalformedRequest }

// TransportError reports a request that never produced a response.
// URL has the token redacted.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DecodeError reports a response body that does not match the expected shape.
type DecodeError struct {
	Shape      Shape
	StatusCode int
	Snippet    string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (status %d): %v; body: %s", e.Shape, e.StatusCode, e.Err, e.Snippet)
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
