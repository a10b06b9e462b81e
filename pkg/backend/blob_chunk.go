package backend

import (
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"

	// Packages
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	types "github.com/mutablelogic/go-server/pkg/types"
	blob "gocloud.dev/blob"
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WriteChunk stores the chunk at index. The body is read up to one byte past
// length so that oversized chunks are detected; a short or long body aborts
// the write.
func (b *blobbackend) WriteChunk(ctx context.Context, session string, index int, length int64, body io.Reader) error {
	sk := b.storageKey(chunkPath(session, index))

	// Cancelling the writer context before Close discards the write
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := b.bucket.NewWriter(wctx, sk, &blob.WriterOptions{
		ContentType: types.ContentTypeBinary,
	})
	if err != nil {
		return blobErr(err, sk)
	}
	n, err := io.Copy(w, io.LimitReader(body, length+1))
	if err == nil && n != length {
		err = fmt.Errorf("%w: chunk %d has %d bytes, expected %d", schema.ErrInvalidChunk, index, n, length)
	}
	if err != nil {
		cancel()
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return blobErr(err, sk)
	}

	// Return success
	return nil
}

// ListChunks returns the stored chunk indices for a session in order.
func (b *blobbackend) ListChunks(ctx context.Context, session string) ([]int, error) {
	keys, err := b.chunkKeys(ctx, session)
	if err != nil {
		return nil, err
	}
	result := make([]int, 0, len(keys))
	for _, key := range keys {
		if index, err := strconv.Atoi(path.Base(key)); err == nil {
			result = append(result, index)
		}
	}
	slices.Sort(result)
	return result, nil
}

// DeleteChunks removes every stored chunk for a session.
func (b *blobbackend) DeleteChunks(ctx context.Context, session string) (int, error) {
	keys, err := b.chunkKeys(ctx, session)
	if err != nil {
		return 0, err
	}
	var deleted int
	for _, key := range keys {
		if err := b.bucket.Delete(ctx, key); err != nil {
			if err := blobErr(err, key); err != nil && !isNotFound(err) {
				return deleted, err
			}
			continue
		}
		deleted++
	}
	return deleted, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// chunkKeys lists the storage keys of a session's chunks. Keys are collected
// before any are deleted so iteration is not affected by removal.
func (b *blobbackend) chunkKeys(ctx context.Context, session string) ([]string, error) {
	prefix := b.storageKey(chunkPrefix(session)) + "/"
	iter := b.bucket.List(&blob.ListOptions{
		Prefix: prefix,
	})

	var keys []string
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, blobErr(err, prefix)
		}
		if obj.IsDir || obj.Key == prefix {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}
