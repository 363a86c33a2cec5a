package models

import "errors"

// Error kinds shared by the stores and services. Wrap with %w and test with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrSequenceGap = errors.New("sequence gap")
	ErrNotFound    = errors.New("not found")
	ErrStoreIO     = errors.New("store i/o error")
)
