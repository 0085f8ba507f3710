package slack

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/fr4nk3nst1ner/slackquote/internal/redact"
)

// TransportError is a network failure or a non-200 HTTP status
type TransportError struct {
	Method     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return redact.String(fmt.Sprintf("%s: transport failure: %v", e.Method, e.Err))
	}
	return fmt.Sprintf("%s: unexpected http status %d", e.Method, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError is a body that could not be decoded
type MalformedResponseError struct {
	Method string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Method, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// APIError is a well-formed response with ok=false
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: request failed: %s", e.Method, e.Code)
}

// scrub removes the query token from errors produced by http.Client
func scrub(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &url.Error{Op: uerr.Op, URL: redact.URL(uerr.URL), Err: uerr.Err}
	}
	return err
}

func resultLabel(err error) string {
	var (
		apiErr       *APIError
		malformedErr *MalformedResponseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &malformedErr):
		return "malformed"
	default:
		return "transport"
	}
}
