package llm

import "errors"

var (
	// ErrRateLimited is returned when the model API responds with HTTP 429.
	ErrRateLimited = errors.New("llm rate limited")

	// ErrUnauthorized is returned for HTTP 401/403 responses.
	ErrUnauthorized = errors.New("llm unauthorized")

	// ErrUnavailable is returned for HTTP 5xx responses.
	ErrUnavailable = errors.New("llm unavailable")
)
