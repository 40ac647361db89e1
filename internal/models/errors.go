package models

import "errors"

var (
	// ErrConflict marks a remote rejection caused by a concurrent or stale write.
	ErrConflict = errors.New("remote conflict")
	// ErrNotFound marks a missing remote entity.
	ErrNotFound = errors.New("not found")
)
