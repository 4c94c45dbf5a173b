package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/astrokml/parser"
)

// FetchError is a transport or navigation failure. It is fatal for a
// run because the result set can no longer be assumed complete.
type FetchError struct {
	Stage string
	URL   string
	Err   error
}

func (e FetchError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URL, e.Err)
}

func (e FetchError) Unwrap() error {
	return e.Err
}

// Request failure kinds. A classified error matches exactly one of them
// with errors.Is.
var (
	ErrTimeout     = errors.New("timeout")
	ErrConnection  = errors.New("connection")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not_found")
	ErrRateLimited = errors.New("rate_limited")
	ErrServer      = errors.New("server_error")
)

var requestKinds = []error{ErrTimeout, ErrConnection, ErrForbidden, ErrNotFound, ErrRateLimited, ErrServer}

// RequestError tags a transport failure with its kind.
type RequestError struct {
	Kind error
	Err  error
}

func (e RequestError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e RequestError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// errorTypeLabel maps err to the error_type metric label.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	for _, kind := range requestKinds {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	if errors.Is(err, parser.ErrNotPlacemark) {
		return "not_placemark"
	}
	var metaErr parser.MetadataParseError
	if errors.As(err, &metaErr) {
		return "metadata_parse"
	}
	return "other"
}

// retryable reports whether a classified error is worth another attempt.
func retryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnection) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServer)
}

func statusKind(code int) error {
	switch {
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= http.StatusInternalServerError:
		return ErrServer
	}
	return nil
}

// classifyError wraps err in a RequestError when the failure or status
// code maps to a known kind. Unknown failures are returned unchanged.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return RequestError{Kind: ErrTimeout, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return RequestError{Kind: ErrConnection, Err: err}
	}

	if err == nil {
		err = fmt.Errorf("http status %d", statusCode)
	}
	if kind := statusKind(statusCode); kind != nil {
		return RequestError{Kind: kind, Err: err}
	}
	return err
}
