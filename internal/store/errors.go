package store

import "errors"

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a document that already
	// exists (duplicate account email or conversation id).
	ErrAlreadyExists = errors.New("already exists")

	// ErrPersistence marks a transient store failure. The same logical
	// operation is safe to retry.
	ErrPersistence = errors.New("persistence error")
)
