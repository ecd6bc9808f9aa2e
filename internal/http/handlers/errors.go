// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants give clients a stable, machine-readable error
// taxonomy alongside the human-readable message in the error envelope (see
// fail() in response.go). Generic codes mirror common HTTP status semantics;
// domain-specific codes cover business errors that a status alone cannot
// convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeGenerateFailed   = "generate_failed"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeCleanupFailed    = "cleanup_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
