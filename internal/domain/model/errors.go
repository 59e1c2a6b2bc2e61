package model

import "errors"

// Sentinel error kinds shared by stores and the components that consume them.
var (
	// ErrNotFound marks a missing contest, participant or profile.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyApplied is returned when the unapplied -> applied rating
	// transition of a contest has already happened.
	ErrAlreadyApplied = errors.New("rating already applied")
)
