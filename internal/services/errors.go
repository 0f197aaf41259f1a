package services

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrorKind classifies catalog request failures. Every non-2xx response
// maps to exactly one kind; call sites switch on the kind rather than
// inspecting status codes or error strings.
type ErrorKind int

const (
	// KindAuth is a rejected credential (HTTP 401). Never retried; the
	// whole batch must surface it so the caller can re-authenticate.
	KindAuth ErrorKind = iota
	// KindRateLimited is a throttled request (HTTP 429), optionally
	// carrying a provider-supplied retry-after hint in seconds.
	KindRateLimited
	// KindServer is a provider-side failure (HTTP 5xx). Retryable.
	KindServer
	// KindClient is any other non-2xx response. Not retryable.
	KindClient
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth_error"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server_error"
	case KindClient:
		return "client_error"
	default:
		return "unknown"
	}
}

// CatalogError is the classified form of a failed catalog request.
type CatalogError struct {
	Kind       ErrorKind
	StatusCode int
	// RetryAfter is the provider's retry hint in seconds for
	// [KindRateLimited]; 0 when absent.
	RetryAfter int
}

func (e *CatalogError) Error() string {
	if e.Kind == KindRateLimited && e.RetryAfter > 0 {
		return fmt.Sprintf("catalog %s: status %d (retry after %ds)", e.Kind, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("catalog %s: status %d", e.Kind, e.StatusCode)
}

// Retryable reports whether a request failing with this kind may be retried.
func (e *CatalogError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindServer
}

// ClassifyStatus maps a non-2xx HTTP status and optional Retry-After header
// value to a CatalogError.
func ClassifyStatus(status int, retryAfter string) *CatalogError {
	cerr := &CatalogError{StatusCode: status}

	switch {
	case status == 401:
		cerr.Kind = KindAuth
	case status == 429:
		cerr.Kind = KindRateLimited
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			cerr.RetryAfter = secs
		}
	case status >= 500:
		cerr.Kind = KindServer
	default:
		cerr.Kind = KindClient
	}

	return cerr
}

// AsCatalogError unwraps err into a *CatalogError if one is present.
func AsCatalogError(err error) (*CatalogError, bool) {
	var cerr *CatalogError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}
