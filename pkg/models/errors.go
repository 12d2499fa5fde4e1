package models

import "errors"

// Error classes shared by the stores, services and handlers. Callers wrap
// them with fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrConfiguration means a required endpoint or credential is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrPermission means a remote backend rejected the operation.
	ErrPermission = errors.New("permission denied")
	// ErrTransient covers aborted storage writes and failed network calls.
	ErrTransient = errors.New("transient i/o error")
	// ErrValidation means the caller sent malformed input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound means the addressed record does not exist.
	ErrNotFound = errors.New("not found")
)
