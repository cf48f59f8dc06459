package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicate indicates that a uniqueness constraint was violated,
	// e.g. registering an already-taken username.
	ErrDuplicate = errors.New("duplicate resource")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)
