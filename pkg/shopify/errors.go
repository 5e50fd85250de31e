package shopify

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an APIError for retry and fallback decisions.
type ErrorKind int

const (
	// KindTransient covers network failures, timeouts and 5xx responses.
	KindTransient ErrorKind = iota
	// KindUnauthorized is a 401: the access token is invalid or revoked.
	// Never retried; surfaces as a broken connection.
	KindUnauthorized
	// KindRateLimited is a 429 or a GraphQL THROTTLED error.
	KindRateLimited
	// KindNotFound is a 404.
	KindNotFound
	// KindProtectedData is a 403 caused by the missing protected-customer-data
	// scope; the caller should fall back to the GraphQL field set.
	KindProtectedData
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	case KindProtectedData:
		return "protected_data"
	default:
		return "transient"
	}
}

// APIError is the raw error surface of the Shopify transport.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("shopify api: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("shopify api: %s: %s", e.Kind, e.Message)
}

func newAPIError(status int, message string) *APIError {
	return &APIError{Kind: kindForStatus(status), StatusCode: status, Message: message}
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindProtectedData
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusNotFound:
		return KindNotFound
	default:
		return KindTransient
	}
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

// AsAPIError unwraps err to the underlying *APIError, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
