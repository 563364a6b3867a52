package pds

import "errors"

// Typed errors for PDS operations, matched with errors.Is.
var (
	// ErrUnauthorized indicates invalid or expired credentials (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates insufficient permissions (HTTP 403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the record or blob does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest indicates a malformed or invalid request (HTTP 400).
	ErrBadRequest = errors.New("bad request")

	// ErrConflict indicates a swapRecord CID mismatch or other write conflict.
	ErrConflict = errors.New("conflict")

	// ErrPayloadTooLarge indicates an upload above the PDS limit (HTTP 413).
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrRateLimited indicates the PDS is throttling requests (HTTP 429).
	ErrRateLimited = errors.New("rate limited")
)

// IsAuthError reports whether re-authentication might help.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsRetryable reports whether the same request may succeed later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrConflict)
}
