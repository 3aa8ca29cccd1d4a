package auction

import "errors"

// Sentinel errors surfaced across subsystem boundaries.
var (
	// ErrDocumentNotFound indicates the source has no document for the key.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrRunNotFound indicates an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
)
