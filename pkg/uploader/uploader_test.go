package uploader_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	// Packages
	chunkup "github.com/mutablelogic/go-chunkup"
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	uploader "github.com/mutablelogic/go-chunkup/pkg/uploader"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////
// HELPERS

// store wraps a session manager, recording calls and injecting failures
type store struct {
	chunkup.Store
	sync.Mutex
	calls       []string
	id          string
	beforePut   func(ctx context.Context, index int) error
	completeErr error
	deadlines   map[string]time.Duration
}

// deadline records the time left on ctx for a call
func (s *store) deadline(ctx context.Context, call string) {
	if d, ok := ctx.Deadline(); ok {
		s.Lock()
		defer s.Unlock()
		if s.deadlines == nil {
			s.deadlines = make(map[string]time.Duration)
		}
		s.deadlines[call] = time.Until(d)
	}
}

func (s *store) record(call string) {
	s.Lock()
	defer s.Unlock()
	s.calls = append(s.calls, call)
}

func (s *store) Calls() []string {
	s.Lock()
	defer s.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *store) Init(ctx context.Context, req schema.InitRequest) (*schema.InitResponse, error) {
	s.record("init")
	resp, err := s.Store.Init(ctx, req)
	if err == nil {
		s.id = resp.Id
	}
	return resp, err
}

func (s *store) PutChunk(ctx context.Context, id string, index int, r io.Reader) (*schema.ChunkResponse, error) {
	s.record(fmt.Sprint("put ", index))
	s.deadline(ctx, "put")
	if s.beforePut != nil {
		if err := s.beforePut(ctx, index); err != nil {
			return nil, err
		}
	}
	return s.Store.PutChunk(ctx, id, index, r)
}

func (s *store) Complete(ctx context.Context, id string) (*schema.Object, error) {
	s.record("complete")
	s.deadline(ctx, "complete")
	if s.completeErr != nil {
		return nil, s.completeErr
	}
	return s.Store.Complete(ctx, id)
}

func (s *store) Cancel(ctx context.Context, id string) error {
	s.record("cancel")
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Cancel(ctx, id)
}

func newStore(t *testing.T, chunkSize int64) (*manager.Manager, *store) {
	t.Helper()
	mgr, err := manager.New(context.Background(), manager.WithChunkSize(chunkSize), manager.WithExtensions())
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr, &store{Store: mgr}
}

func newUploader(t *testing.T, s chunkup.Store, opts ...uploader.Opt) *uploader.Uploader {
	t.Helper()
	u, err := uploader.New(s, opts...)
	require.NoError(t, err)
	return u
}

// progress records reported values
type progress struct {
	sync.Mutex
	values []int
}

func (p *progress) Report(value int) {
	p.Lock()
	defer p.Unlock()
	p.values = append(p.values, value)
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func readObject(t *testing.T, mgr *manager.Manager, id string) []byte {
	t.Helper()
	r, _, err := mgr.ReadObject(context.TODO(), id)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func assertMonotonic(t *testing.T, values []int) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress %v", values)
	}
}

////////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_Uploader_New(t *testing.T) {
	assert := assert.New(t)
	_, err := uploader.New(nil)
	assert.ErrorIs(err, schema.ErrInvalidInput)

	_, s := newStore(t, 4)
	for _, opt := range []uploader.Opt{
		uploader.WithChunkSize(0),
		uploader.WithChunkTimeout(0),
		uploader.WithCompleteTimeout(-time.Second),
		uploader.WithCancelTimeout(0),
	} {
		_, err := uploader.New(s, opt)
		assert.Error(err)
	}
}

func Test_Uploader_DefaultTimeouts(t *testing.T) {
	assert := assert.New(t)
	_, s := newStore(t, 4)
	u := newUploader(t, s, uploader.WithChunkSize(4))

	_, err := u.Upload(context.TODO(), "talk.mp4", bytes.NewReader(payload(10)), 10, nil)
	require.NoError(t, err)

	// Reassembly reads every chunk, so completion gets longer than a chunk
	assert.Greater(uploader.DefaultCompleteTimeout, uploader.DefaultChunkTimeout)
	assert.Greater(s.deadlines["complete"], uploader.DefaultChunkTimeout)
	assert.LessOrEqual(s.deadlines["put"], uploader.DefaultChunkTimeout)
	assert.LessOrEqual(s.deadlines["complete"], uploader.DefaultCompleteTimeout)
}

func Test_Uploader_Upload(t *testing.T) {
	const chunkSize = 5_000_000
	assert := assert.New(t)
	mgr, s := newStore(t, chunkSize)
	u := newUploader(t, s, uploader.WithChunkSize(chunkSize))

	data := payload(12_000_000)
	var p progress
	obj, err := u.Upload(context.TODO(), "talk.mp4", bytes.NewReader(data), int64(len(data)), p.Report)
	require.NoError(t, err)

	assert.Equal([]string{"init", "put 0", "put 1", "put 2", "complete"}, s.Calls())
	assert.Equal([]int{32, 63, 95, 95, 100}, p.values)
	assert.Equal(int64(len(data)), obj.Size)
	assert.True(bytes.Equal(data, readObject(t, mgr, obj.Id)))

	session, err := mgr.GetSession(context.TODO(), s.id)
	if assert.NoError(err) {
		assert.Equal(schema.StateCompleted, session.State)
	}
}

func Test_Uploader_ChunkBoundaries(t *testing.T) {
	tests := []struct {
		size   int
		chunks int
	}{
		{1, 1},
		{3, 1},
		{4, 1},
		{8, 2},
		{9, 3},
		{100, 25},
	}
	for _, test := range tests {
		t.Run(fmt.Sprint(test.size), func(t *testing.T) {
			assert := assert.New(t)
			mgr, s := newStore(t, 4)
			u := newUploader(t, s, uploader.WithChunkSize(4))

			data := payload(test.size)
			var p progress
			obj, err := u.Upload(context.TODO(), "a.mp4", bytes.NewReader(data), int64(len(data)), p.Report)
			require.NoError(t, err)
			assert.Equal(data, readObject(t, mgr, obj.Id))

			// One acknowledgement per chunk, then 95 and 100
			if assert.Len(p.values, test.chunks+2) {
				assert.Equal(95, p.values[test.chunks-1])
				assert.Equal([]int{95, 100}, p.values[test.chunks:])
			}
			assertMonotonic(t, p.values)
		})
	}
}

func Test_Uploader_ChunkFailure(t *testing.T) {
	assert := assert.New(t)
	mgr, s := newStore(t, 4)
	s.beforePut = func(_ context.Context, index int) error {
		if index == 1 {
			return errors.New("connection reset")
		}
		return nil
	}
	u := newUploader(t, s, uploader.WithChunkSize(4))

	var p progress
	_, err := u.Upload(context.TODO(), "a.mp4", bytes.NewReader(payload(10)), 10, p.Report)
	require.Error(t, err)

	var uerr *uploader.Error
	if assert.ErrorAs(err, &uerr) {
		assert.Equal(uploader.PhaseChunk, uerr.Phase)
		assert.Equal(1, uerr.Index)
	}
	assert.ErrorIs(err, schema.ErrTransport)
	assert.Contains(err.Error(), "chunk 1")

	// Cancelled, never completed
	assert.Equal([]string{"init", "put 0", "put 1", "cancel"}, s.Calls())
	assert.Equal([]int{32}, p.values)
	session, err := mgr.GetSession(context.TODO(), s.id)
	if assert.NoError(err) {
		assert.Equal(schema.StateCancelled, session.State)
	}
	indices, err := mgr.Storage().ListChunks(context.TODO(), s.id)
	assert.NoError(err)
	assert.Empty(indices)
}

func Test_Uploader_ProtocolError(t *testing.T) {
	assert := assert.New(t)
	_, s := newStore(t, 4)
	s.beforePut = func(_ context.Context, index int) error {
		return fmt.Errorf("%w: gone", schema.ErrSessionNotFound)
	}
	u := newUploader(t, s, uploader.WithChunkSize(4))

	_, err := u.Upload(context.TODO(), "a.mp4", bytes.NewReader(payload(10)), 10, nil)
	assert.ErrorIs(err, schema.ErrSessionNotFound)
	assert.NotErrorIs(err, schema.ErrTransport)
}

func Test_Uploader_ChunkTimeout(t *testing.T) {
	assert := assert.New(t)
	mgr, s := newStore(t, 4)
	s.beforePut = func(ctx context.Context, index int) error {
		<-ctx.Done()
		return ctx.Err()
	}
	u := newUploader(t, s, uploader.WithChunkSize(4), uploader.WithChunkTimeout(20*time.Millisecond))

	_, err := u.Upload(context.TODO(), "a.mp4", bytes.NewReader(payload(10)), 10, nil)
	assert.ErrorIs(err, schema.ErrTransport)
	assert.ErrorIs(err, context.DeadlineExceeded)

	session, err := mgr.GetSession(context.TODO(), s.id)
	if assert.NoError(err) {
		assert.Equal(schema.StateCancelled, session.State)
	}
}

func Test_Uploader_CallerCancel(t *testing.T) {
	assert := assert.New(t)
	mgr, s := newStore(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The caller gives up once the first chunk is acknowledged
	u := newUploader(t, s, uploader.WithChunkSize(4))
	_, err := u.Upload(ctx, "a.mp4", bytes.NewReader(payload(10)), 10, func(int) { cancel() })
	assert.ErrorIs(err, context.Canceled)
	assert.ErrorIs(err, schema.ErrTransport)

	// Cancel still reaches the store
	assert.Equal([]string{"init", "put 0", "cancel"}, s.Calls())
	session, err := mgr.GetSession(context.TODO(), s.id)
	if assert.NoError(err) {
		assert.Equal(schema.StateCancelled, session.State)
	}
}

func Test_Uploader_CompleteFailure(t *testing.T) {
	assert := assert.New(t)
	mgr, s := newStore(t, 4)
	s.completeErr = errors.New("gateway timeout")
	u := newUploader(t, s, uploader.WithChunkSize(4))

	var p progress
	_, err := u.Upload(context.TODO(), "a.mp4", bytes.NewReader(payload(10)), 10, p.Report)

	var uerr *uploader.Error
	if assert.ErrorAs(err, &uerr) {
		assert.Equal(uploader.PhaseComplete, uerr.Phase)
	}
	assert.ErrorIs(err, schema.ErrTransport)

	// No cancel after a failed completion
	assert.NotContains(s.Calls(), "cancel")
	assert.Equal([]int{32, 63, 95, 95}, p.values)
	session, err := mgr.GetSession(context.TODO(), s.id)
	if assert.NoError(err) {
		assert.Equal(schema.StateCollecting, session.State)
	}
}

func Test_Uploader_InitFailure(t *testing.T) {
	assert := assert.New(t)
	mgr, err := manager.New(context.Background(), manager.WithChunkSize(4))
	require.NoError(t, err)
	defer mgr.Close()
	s := &store{Store: mgr}

	// Rejected extension
	u := newUploader(t, s, uploader.WithChunkSize(4))
	_, err = u.Upload(context.TODO(), "a.txt", bytes.NewReader(payload(10)), 10, nil)
	var uerr *uploader.Error
	if assert.ErrorAs(err, &uerr) {
		assert.Equal(uploader.PhaseInit, uerr.Phase)
	}
	assert.ErrorIs(err, schema.ErrInvalidInput)

	// Chunk size disagreement
	u = newUploader(t, s, uploader.WithChunkSize(5))
	_, err = u.Upload(context.TODO(), "a.mp4", bytes.NewReader(payload(10)), 10, nil)
	assert.ErrorIs(err, schema.ErrInvalidInput)

	// Nothing to upload
	_, err = u.Upload(context.TODO(), "a.mp4", bytes.NewReader(nil), 0, nil)
	assert.ErrorIs(err, schema.ErrInvalidInput)

	assert.Equal([]string{"init", "init"}, s.Calls())
}

func Test_Uploader_UploadFile(t *testing.T) {
	assert := assert.New(t)
	mgr, s := newStore(t, 4)
	u := newUploader(t, s, uploader.WithChunkSize(4))

	data := payload(13)
	path := filepath.Join(t.TempDir(), "clip.mov")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	obj, err := u.UploadFile(context.TODO(), path, nil)
	if assert.NoError(err) {
		assert.Equal("clip.mov", obj.Name)
		assert.Equal(data, readObject(t, mgr, obj.Id))
	}

	_, err = u.UploadFile(context.TODO(), filepath.Join(t.TempDir(), "missing.mov"), nil)
	assert.ErrorIs(err, os.ErrNotExist)

	_, err = u.UploadFile(context.TODO(), t.TempDir(), nil)
	assert.ErrorIs(err, schema.ErrInvalidInput)
}
