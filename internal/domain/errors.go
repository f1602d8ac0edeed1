package domain

import "github.com/pkg/errors"

// Error taxonomy shared by registries, the user store and the CSV bridge.
// Callers wrap these with context and classify them with errors.Is.
var (
	ErrConflict     = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
)
