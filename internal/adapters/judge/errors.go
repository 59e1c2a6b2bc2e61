package judge

import "errors"

// Sentinel kinds for judge API errors.
var (
	// ErrAPIStatus is returned when the API answers with status FAILED.
	ErrAPIStatus = errors.New("judge api returned failure status")

	// ErrHTTPStatus is returned for unexpected HTTP status codes.
	ErrHTTPStatus = errors.New("judge api unexpected http status")

	// ErrDecode is returned for malformed response bodies.
	ErrDecode = errors.New("judge api malformed response")
)
