package database

import "errors"

var (
	// ErrConflict is returned when a uniqueness constraint rejects a write
	ErrConflict = errors.New("record already exists")
	// ErrNotFound is returned when a write targets a missing row
	ErrNotFound = errors.New("record not found")
)
