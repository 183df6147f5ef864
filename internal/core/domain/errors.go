package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError is a classified admission failure. Every kind carries a stable
// HTTP status and a machine-readable numeric code so clients can branch
// without parsing messages.
type AuthError struct {
	Kind    string
	Code    int
	Status  int
	Message string
	cause   error
}

func (e *AuthError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.cause }

// Is matches by kind so wrapped instances compare equal to the sentinel.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// WithCause returns a copy of the sentinel carrying an underlying error.
// The cause is logged, never serialized to clients.
func (e *AuthError) WithCause(err error) *AuthError {
	c := *e
	c.cause = err
	return &c
}

var (
	ErrMissingToken     = &AuthError{Kind: "missing_token", Code: 1001, Status: http.StatusUnauthorized, Message: "missing bearer token"}
	ErrInvalidToken     = &AuthError{Kind: "invalid_token", Code: 1002, Status: http.StatusUnauthorized, Message: "invalid or inactive token"}
	ErrStoreUnavailable = &AuthError{Kind: "store_unavailable", Code: 1003, Status: http.StatusServiceUnavailable, Message: "persistent store unavailable"}
	ErrRateLimited      = &AuthError{Kind: "rate_limited", Code: 1004, Status: http.StatusTooManyRequests, Message: "rate limit exceeded"}
	ErrOriginForbidden  = &AuthError{Kind: "origin_forbidden", Code: 1005, Status: http.StatusForbidden, Message: "origin not allowed"}
	ErrMethodNotAllowed = &AuthError{Kind: "method_not_allowed", Code: 1006, Status: http.StatusMethodNotAllowed, Message: "method not allowed"}
	ErrValidationFailed = &AuthError{Kind: "validation_failed", Code: 1007, Status: http.StatusBadRequest, Message: "request validation failed"}
	ErrSiteUnauthorized = &AuthError{Kind: "unauthorized", Code: 1008, Status: http.StatusUnauthorized, Message: "token does not match site"}
	ErrSiteNotFound     = &AuthError{Kind: "site_not_found", Code: 1009, Status: http.StatusNotFound, Message: "site not found"}
	ErrAdminOnly        = &AuthError{Kind: "insufficient_privilege", Code: 1010, Status: http.StatusForbidden, Message: "admin privileges required"}
)

// ErrDomainConflict signals a unique-constraint violation on the sites
// domain index. It never crosses the service boundary: the registration
// reconciler recovers it by re-reading the winning row.
var ErrDomainConflict = errors.New("domain already registered")
