// Package provider defines the error taxonomy shared by the embedding and
// LLM provider adapters.
package provider

import "errors"

var (
	// ErrEmptyInput is returned when the trimmed input text is empty.
	ErrEmptyInput = errors.New("empty input")

	// ErrUnavailable is returned when no credential is configured for the
	// provider. Callers fall through to the next tier rather than retrying.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrProvider is returned on transport or parse failure.
	ErrProvider = errors.New("provider error")
)
