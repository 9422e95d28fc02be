package store

import "errors"

var (
	ErrNotFound      = errors.New("store: artifact not found")
	ErrEmptyID       = errors.New("store: artifact id cannot be empty")
	ErrEmptyContent  = errors.New("store: artifact content cannot be empty")
	ErrDimMismatch   = errors.New("store: embedding dimensionality mismatch")
	ErrVecExtMissing = errors.New("store: sqlite-vec extension not loaded")
)
