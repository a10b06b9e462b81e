package backend

import (
	"context"
	"io"
	"net/url"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Backend stores the chunk bytes of open sessions and the objects assembled
// from them.
type Backend interface {
	io.Closer

	// URL returns the backend destination URL. The scheme, host (bucket) and
	// path (prefix or directory) identify the storage location.
	URL() *url.URL

	// WriteChunk stores the chunk at index for a session. The body must carry
	// exactly length bytes, otherwise nothing is stored and ErrInvalidChunk
	// is returned.
	WriteChunk(ctx context.Context, session string, index int, length int64, body io.Reader) error

	// ListChunks returns the stored chunk indices for a session, in order.
	ListChunks(ctx context.Context, session string) ([]int, error)

	// DeleteChunks removes every stored chunk for a session and returns the
	// number removed. Removing the chunks of an unknown session is not an error.
	DeleteChunks(ctx context.Context, session string) (int, error)

	// Assemble concatenates chunks [0, ChunkCount) in index order into a
	// single object. On error no object is left behind.
	Assemble(ctx context.Context, req schema.AssembleRequest) (*schema.Object, error)

	// GetObject returns object metadata.
	GetObject(ctx context.Context, path string) (*schema.Object, error)

	// ReadObject returns object content. Caller must close the returned reader.
	ReadObject(ctx context.Context, path string) (io.ReadCloser, *schema.Object, error)

	// DeleteObject removes an object.
	DeleteObject(ctx context.Context, path string) error
}
