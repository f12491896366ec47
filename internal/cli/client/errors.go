package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// Kind classifies a failed request
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRejected     Kind = "rejected" // 2xx with success=false
	KindServer       Kind = "server"
	KindTransport    Kind = "transport"
	KindDecode       Kind = "decode"
)

// TransportMessage is shown when the backend could not be reached
const TransportMessage = "Unable to reach the server. Check your connection and try again."

// APIError is the failure side of every endpoint call
type APIError struct {
	Kind    Kind
	Status  int
	Method  string
	Path    string
	Message string
	Errors  []models.FieldError
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && len(e.Errors) > 0 {
		msg = e.Errors[0].Message
	}
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Method, e.Path, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// kindForStatus maps an HTTP status to a Kind
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindRejected
	}
}

// IsKind reports whether err is an APIError of kind k
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// IsSessionEnded reports whether err means the backend no longer accepts
// the session (401 or 403).
func IsSessionEnded(err error) bool {
	return IsKind(err, KindUnauthorized) || IsKind(err, KindForbidden)
}

// ErrorMessage extracts the most specific human-readable message from err:
// backend message, then the first field error, then a generic transport
// message, then fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	for _, fe := range apiErr.Errors {
		if fe.Message != "" {
			return fe.Message
		}
	}
	if apiErr.Kind == KindTransport {
		return TransportMessage
	}
	return fallback
}
