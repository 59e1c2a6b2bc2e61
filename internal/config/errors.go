package config

import "errors"

var (
	// ErrInvalidConfig wraps validation failures and unknown backends.
	ErrInvalidConfig = errors.New("config: invalid")
	// ErrLoadConfig wraps file, env and unmarshal failures.
	ErrLoadConfig = errors.New("config: load failed")
)
