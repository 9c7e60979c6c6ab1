package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateTripNumber is returned when a trip number is already taken.
	ErrDuplicateTripNumber = errors.New("trip number already exists")
)
