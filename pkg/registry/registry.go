// Package registry stores upload session records. Records are copied on the
// way in and out, so callers never share a session with the registry.
package registry

import (
	"context"
	"io"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Registry is the interface for session record storage.
type Registry interface {
	io.Closer

	// Create stores a new session. It fails if the id is already in use.
	Create(context.Context, schema.UploadSession) error

	// Get returns a session, or ErrSessionNotFound.
	Get(context.Context, string) (*schema.UploadSession, error)

	// Put replaces an existing session, or returns ErrSessionNotFound.
	Put(context.Context, schema.UploadSession) error

	// Update applies fn to the current record and stores the result, with no
	// other write in between. fn may be called more than once and its error
	// is returned unchanged, leaving the record as it was.
	Update(context.Context, string, func(*schema.UploadSession) error) (*schema.UploadSession, error)

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(context.Context, string) error

	// List returns all sessions ordered by creation time.
	List(context.Context) ([]schema.UploadSession, error)
}
