package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	blob "gocloud.dev/blob"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Assemble concatenates the chunks of a session, strictly in index order,
// into the object at req.Path. The chunks themselves are left in place.
func (b *blobbackend) Assemble(ctx context.Context, req schema.AssembleRequest) (*schema.Object, error) {
	if req.ChunkCount <= 0 {
		return nil, fmt.Errorf("%w: no chunks to assemble", schema.ErrInvalidInput)
	}
	sk := b.storageKey(req.Path)

	// Cancelling the writer context before Close discards the partial object
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := b.bucket.NewWriter(wctx, sk, &blob.WriterOptions{
		ContentType: req.ContentType,
		Metadata:    req.Meta,
	})
	if err != nil {
		return nil, blobErr(err, sk)
	}
	for index := range req.ChunkCount {
		if err := b.copyChunk(ctx, w, req.Session, index); err != nil {
			cancel()
			_ = w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, blobErr(err, sk)
	}

	// Return the object metadata
	return b.GetObject(ctx, req.Path)
}

// GetObject returns object metadata
func (b *blobbackend) GetObject(ctx context.Context, path string) (*schema.Object, error) {
	sk := b.storageKey(path)
	attrs, err := b.bucket.Attributes(ctx, sk)
	if err != nil {
		return nil, blobErr(err, path)
	}
	return attrsToObject(b.pathFromStorageKey(sk), attrs), nil
}

// ReadObject reads object content
func (b *blobbackend) ReadObject(ctx context.Context, path string) (io.ReadCloser, *schema.Object, error) {
	obj, err := b.GetObject(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	r, err := b.bucket.NewReader(ctx, b.storageKey(path), nil)
	if err != nil {
		return nil, nil, blobErr(err, path)
	}
	return r, obj, nil
}

// DeleteObject deletes an object
func (b *blobbackend) DeleteObject(ctx context.Context, path string) error {
	if err := b.bucket.Delete(ctx, b.storageKey(path)); err != nil {
		return blobErr(err, path)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (b *blobbackend) copyChunk(ctx context.Context, w io.Writer, session string, index int) error {
	sk := b.storageKey(chunkPath(session, index))
	r, err := b.bucket.NewReader(ctx, sk, nil)
	if err != nil {
		return blobErr(err, sk)
	}
	defer r.Close()
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("chunk %d: %w", index, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, schema.ErrNotFound)
}
