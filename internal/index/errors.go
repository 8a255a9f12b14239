package index

import "errors"

var (
	// ErrNotFound is returned when a note is not in the index.
	ErrNotFound = errors.New("index: note not found")

	// ErrNotNote is returned for files that are not notes of the vault.
	ErrNotNote = errors.New("index: not a note")

	// ErrOutsideRoot is returned for paths that do not belong to the vault.
	ErrOutsideRoot = errors.New("index: path outside of vault")
)
