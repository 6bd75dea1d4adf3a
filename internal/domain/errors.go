package domain

import "errors"

// Sentinel errors shared across the record services. Layers wrap these
// with fmt.Errorf("...: %w", ...) and callers test with errors.Is.
var (
	// ErrNotFound means the target identifier is absent from its collection.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidData means a record failed structural validation on write.
	ErrInvalidData = errors.New("invalid record data")

	// ErrInvalidFormat means an import document is missing required structure.
	ErrInvalidFormat = errors.New("invalid document format")
)
