package service

import "errors"

// ErrNotOpen is returned by operations called before Open or Start.
var ErrNotOpen = errors.New("service not open")
