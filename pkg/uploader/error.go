package uploader

import (
	"errors"
	"fmt"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Phase is the step of an upload which failed.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseChunk    Phase = "chunk"
	PhaseComplete Phase = "complete"
)

// Error is returned by Upload. Index is the failed chunk when Phase is
// PhaseChunk.
type Error struct {
	Phase Phase
	Index int
	Err   error
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (e *Error) Error() string {
	if e.Phase == PhaseChunk {
		return fmt.Sprintf("upload %s %d: %v", e.Phase, e.Index, e.Err)
	}
	return fmt.Sprintf("upload %s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

var protocolErrs = []error{
	schema.ErrInvalidInput,
	schema.ErrSessionNotFound,
	schema.ErrInvalidChunk,
	schema.ErrIncompleteUpload,
	schema.ErrNotFound,
	schema.ErrTransport,
}

// phaseErr wraps err for the phase. Anything which is not a protocol error,
// including timeouts and cancellation, is a transport error.
func phaseErr(phase Phase, index int, err error) *Error {
	for _, target := range protocolErrs {
		if errors.Is(err, target) {
			return &Error{Phase: phase, Index: index, Err: err}
		}
	}
	return &Error{Phase: phase, Index: index, Err: fmt.Errorf("%w: %w", schema.ErrTransport, err)}
}
