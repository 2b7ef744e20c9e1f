package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal")

	// Ingestion side.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorruptFile       = errors.New("corrupt file")
	ErrEmbeddingFailed   = errors.New("embedding failed")

	// Query side. ErrStoreUnavailable lets callers tell "the system is down"
	// apart from an empty retrieval result, which is a normal condition.
	ErrStoreUnavailable  = errors.New("chunk store unavailable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
