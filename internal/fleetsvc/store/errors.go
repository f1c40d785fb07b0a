package store

import "errors"

var (
	// ErrNotFound means no record matched a required identifier.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is the single error kind for uniqueness violations,
	// whether the pre-check or the write-time index conflict caught it.
	// Never retried: the conflict would recur.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidReference means a malformed identifier was supplied where
	// a reference key is required. Raised before any store access.
	ErrInvalidReference = errors.New("invalid reference identifier")

	// ErrInvalidInput covers rejected payload values (unknown category,
	// missing required fields).
	ErrInvalidInput = errors.New("invalid input")
)
