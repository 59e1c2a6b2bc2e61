package repository

import (
	"errors"

	"github.com/okian/podium/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound       = model.ErrNotFound
	ErrAlreadyApplied = model.ErrAlreadyApplied
	ErrUnknownDriver  = errors.New("unknown database driver")
)
