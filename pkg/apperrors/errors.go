package apperrors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrNotAllowed    = errors.New("operation not allowed")
	ErrBadRequest    = errors.New("bad request")
	ErrUpstream      = errors.New("upstream database failure")
	ErrInvalidClient = errors.New("invalid client credentials")

	// ErrUnsupportedGrant rejects token requests with a grant type other
	// than client_credentials.
	ErrUnsupportedGrant = errors.New("unsupported grant type")
)
