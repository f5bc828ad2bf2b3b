package model

import "errors"

// User-visible failure kinds. Everything else is absorbed at stage boundaries.
var (
	// ErrInput marks missing or malformed content rejected before the pipeline runs
	ErrInput = errors.New("invalid input")

	// ErrPersistence marks a record that could not be saved or loaded
	ErrPersistence = errors.New("persistence failure")

	// ErrUnauthorized marks a mutation attempted without a valid credential
	ErrUnauthorized = errors.New("unauthorized")
)
