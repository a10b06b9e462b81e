// Package uploader drives a chunked upload against a session store: it opens
// a session, delivers each chunk in order, and completes the session,
// reporting progress as it goes.
package uploader

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	// Packages
	chunkup "github.com/mutablelogic/go-chunkup"
	chunk "github.com/mutablelogic/go-chunkup/pkg/chunk"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type Uploader struct {
	opts
	store chunkup.Store
}

// ProgressFn receives the percentage of an upload which has been
// acknowledged, from 0 to 100. Chunk transfer accounts for up to 95 and
// completion for the remainder.
type ProgressFn func(percent int)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	transferPercent = 95
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New returns an uploader which delivers chunks to the store.
func New(store chunkup.Store, opts ...Opt) (*Uploader, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: missing store", schema.ErrInvalidInput)
	}
	o, err := applyOpts(opts)
	if err != nil {
		return nil, err
	}
	return &Uploader{opts: o, store: store}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// UploadFile uploads a local file under its base name.
func (u *Uploader) UploadFile(ctx context.Context, path string, progress ProgressFn) (*schema.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	} else if info.IsDir() {
		return nil, fmt.Errorf("%w: %q is a directory", schema.ErrInvalidInput, path)
	}

	return u.Upload(ctx, filepath.Base(path), f, info.Size(), progress)
}

// Upload transfers size bytes of payload as the named upload. Chunks are
// sent one at a time in index order, so at most one chunk is in flight. If
// any chunk fails, or the context is cancelled, the session is cancelled
// and the error returned; completion is never attempted. A failed completion
// leaves the session to be reclaimed by the store.
func (u *Uploader) Upload(ctx context.Context, name string, payload io.ReaderAt, size int64, progress ProgressFn) (*schema.Object, error) {
	if size <= 0 {
		return nil, &Error{Phase: PhaseInit, Err: fmt.Errorf("%w: nothing to upload", schema.ErrInvalidInput)}
	}

	// Open the session
	resp, err := u.store.Init(ctx, schema.InitRequest{
		Name:       name,
		Size:       size,
		ChunkCount: chunk.Count(size, u.chunkSize),
	})
	if err != nil {
		return nil, phaseErr(PhaseInit, 0, err)
	}

	// Plan with the chunk size the store agreed
	chunks, err := chunk.Split(size, resp.ChunkSize)
	if err != nil {
		u.cancel(ctx, resp.Id)
		return nil, phaseErr(PhaseInit, 0, err)
	} else if len(chunks) != resp.ChunkCount {
		u.cancel(ctx, resp.Id)
		return nil, phaseErr(PhaseInit, 0, fmt.Errorf("%w: planned %d chunks, session expects %d", schema.ErrInvalidInput, len(chunks), resp.ChunkCount))
	}

	// Deliver the chunks
	for _, c := range chunks {
		if err := u.put(ctx, resp.Id, payload, c); err != nil {
			u.cancel(ctx, resp.Id)
			return nil, phaseErr(PhaseChunk, c.Index, err)
		}
		report(progress, percent(c.Index+1, len(chunks)))
	}

	// Complete the session
	report(progress, transferPercent)
	obj, err := u.complete(ctx, resp.Id)
	if err != nil {
		return nil, phaseErr(PhaseComplete, 0, err)
	}
	report(progress, 100)

	// Return success
	return obj, nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (u *Uploader) put(ctx context.Context, id string, payload io.ReaderAt, c schema.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, u.chunkTimeout)
	defer cancel()

	ack, err := u.store.PutChunk(ctx, id, c.Index, io.NewSectionReader(payload, c.Offset, c.Length))
	if err != nil {
		return err
	} else if ack.Index != c.Index {
		return fmt.Errorf("%w: acknowledged chunk %d", schema.ErrInvalidChunk, ack.Index)
	}
	return nil
}

func (u *Uploader) complete(ctx context.Context, id string) (*schema.Object, error) {
	ctx, cancel := context.WithTimeout(ctx, u.completeTimeout)
	defer cancel()
	return u.store.Complete(ctx, id)
}

// cancel discards the session. It runs after the caller may have given up,
// so it is detached from cancellation of ctx. Failures are logged.
func (u *Uploader) cancel(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.cancelTimeout)
	defer cancel()
	if err := u.store.Cancel(ctx, id); err != nil && u.logger != nil {
		u.logger.Printf(ctx, "cancel session %s: %v", id, err)
	}
}

func percent(sent, total int) int {
	return int(math.Round(float64(transferPercent*sent) / float64(total)))
}

func report(progress ProgressFn, value int) {
	if progress != nil {
		progress(value)
	}
}
