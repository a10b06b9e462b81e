package manager

import (
	"context"
	"strings"
	"sync"
	"testing"

	// Packages
	uuid "github.com/google/uuid"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

func Test_keyedMutex_serializes(t *testing.T) {
	var k keyedMutex
	var wg sync.WaitGroup
	counter := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock("a")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, k.len())
}

func Test_keyedMutex_distinct(t *testing.T) {
	var k keyedMutex
	unlockA := k.lock("a")
	unlockB := k.lock("b")
	assert.Equal(t, 2, k.len())
	unlockA()
	assert.Equal(t, 1, k.len())
	unlockB()
	assert.Equal(t, 0, k.len())
}

func Test_Manager_locksReleased(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	mgr, err := New(ctx, WithChunkSize(4))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	// Unknown ids
	for range 10000 {
		assert.NoError(mgr.Cancel(ctx, uuid.NewString()))
	}
	_, err = mgr.Reclaim(ctx)
	assert.NoError(err)
	assert.Equal(0, mgr.locks.len())

	// A session through to completion
	session, err := mgr.Init(ctx, schema.InitRequest{Name: "talk.mp4", Size: 4, ChunkCount: 1})
	require.NoError(t, err)
	_, err = mgr.PutChunk(ctx, session.Id, 0, strings.NewReader("abcd"))
	require.NoError(t, err)
	_, err = mgr.Complete(ctx, session.Id)
	require.NoError(t, err)
	assert.Equal(0, mgr.locks.len())
}
