package client

import "errors"

var (
	// ErrServiceUnavailable covers transport failures, timeouts and 5xx answers of the extraction service.
	ErrServiceUnavailable = errors.New("extraction service unavailable")
	// ErrAuthExpired is returned when the extraction service rejects the access token.
	ErrAuthExpired = errors.New("extraction service rejected credential")
	// ErrCredentialUnavailable is returned when no access token can be obtained for a principal.
	ErrCredentialUnavailable = errors.New("extraction credential unavailable")
	ErrJobNotFound           = errors.New("extraction job not found")
)
