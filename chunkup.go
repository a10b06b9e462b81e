// Package chunkup transfers large payloads as a sequence of bounded-size
// chunks under a shared upload session, and reassembles them server-side.
package chunkup

import (
	"context"
	"io"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// INTERFACES

// Store is the upload session protocol. It is implemented in-process by the
// session manager and remotely by the HTTP client.
type Store interface {
	// Init opens a session for a payload of the declared size and chunk count.
	Init(context.Context, schema.InitRequest) (*schema.InitResponse, error)

	// PutChunk delivers the chunk at index. Re-delivering a chunk which has
	// already been received is acknowledged without change.
	PutChunk(context.Context, string, int, io.Reader) (*schema.ChunkResponse, error)

	// Complete reassembles a session whose chunks have all been received.
	Complete(context.Context, string) (*schema.Object, error)

	// Cancel discards a session. It succeeds for unknown and finished sessions.
	Cancel(context.Context, string) error
}

// Logger is a context-aware logger.
type Logger interface {
	Print(context.Context, ...any)
	Printf(context.Context, string, ...any)
	Debugf(context.Context, string, ...any)
}

// Notifier is told about each object once its upload has completed.
type Notifier interface {
	Notify(context.Context, schema.Object) error
}
