package storage

import "errors"

var (
	// ErrNotFound indicates that a referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates that an operation would collide with an
	// existing name or alias.
	ErrConflict = errors.New("name conflict")

	// ErrPersistence indicates that the backing store could not be read
	// or written.
	ErrPersistence = errors.New("persistence failure")
)
