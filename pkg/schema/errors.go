package schema

import "errors"

////////////////////////////////////////////////////////////////////////////////
// ERRORS

var (
	// ErrInvalidInput is returned for bad declared sizes, names or counts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionNotFound is returned for unknown, completed, cancelled and
	// expired sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidChunk is returned when a chunk index, length or the session
	// state does not match the agreed plan.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrIncompleteUpload is returned by Complete when chunks are missing.
	ErrIncompleteUpload = errors.New("incomplete upload")

	// ErrTransport marks timeouts and connection failures seen by the uploader.
	ErrTransport = errors.New("transport failure")

	// ErrNotFound is returned for unknown objects.
	ErrNotFound = errors.New("not found")
)
