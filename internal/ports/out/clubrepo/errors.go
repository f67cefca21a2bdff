package clubrepo

import "errors"

var (
	// ErrNotFound indicates no club exists for the requested id.
	ErrNotFound = errors.New("club not found")

	// ErrAlreadyExists indicates a club already exists with the provided id.
	ErrAlreadyExists = errors.New("club already exists")
)
