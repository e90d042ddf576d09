package domain

import "errors"

var (
	// ErrQuizNotFound indicates no quiz with the requested ID exists.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuizFormat is returned when imported data lacks a title or a questions array.
	ErrInvalidQuizFormat = errors.New("invalid quiz format")
	// ErrSaveFailed wraps any persistence failure of the quiz collections.
	ErrSaveFailed = errors.New("failed to save quiz data")
	// ErrLoadFailed wraps a failed read of the stored collections. Nothing is seeded or
	// written until a later read succeeds.
	ErrLoadFailed = errors.New("failed to load quiz data")
	// ErrValidation is wrapped by builder validation failures.
	ErrValidation = errors.New("quiz validation failed")
)
