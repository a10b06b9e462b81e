package registry_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	// Packages
	uuid "github.com/google/uuid"
	registry "github.com/mutablelogic/go-chunkup/pkg/registry"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	redis "github.com/redis/go-redis/v9"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////
// HELPERS

// registries returns the registries under test. The Redis registry is
// included when CHUNKUP_TEST_REDIS is set to a redis:// URL.
func registries(t *testing.T) map[string]registry.Registry {
	t.Helper()
	result := map[string]registry.Registry{
		"memory": registry.NewMemory(),
	}
	if url := os.Getenv("CHUNKUP_TEST_REDIS"); url != "" {
		r, err := registry.NewRedis(context.Background(), url, "chunkup-test-"+uuid.NewString())
		require.NoError(t, err)
		result["redis"] = r
	}
	t.Cleanup(func() {
		for _, r := range result {
			r.Close()
		}
	})
	return result
}

func newSession(created time.Time) schema.UploadSession {
	return schema.UploadSession{
		Id:         uuid.NewString(),
		Name:       "clip.mp4",
		Size:       12,
		ChunkSize:  5,
		ChunkCount: 3,
		State:      schema.StateCollecting,
		CreatedAt:  created,
		ActivityAt: created,
	}
}

////////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_Registry_CRUD(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			session := newSession(now)
			assert.NoError(r.Create(ctx, session))
			assert.Error(r.Create(ctx, session))

			got, err := r.Get(ctx, session.Id)
			if assert.NoError(err) {
				assert.Equal(session.Id, got.Id)
				assert.Equal(schema.StateCollecting, got.State)
				assert.True(now.Equal(got.CreatedAt))
			}

			// Updates are visible
			got.Add(1)
			got.Add(0)
			assert.NoError(r.Put(ctx, *got))
			got, err = r.Get(ctx, session.Id)
			if assert.NoError(err) {
				assert.Equal([]int{0, 1}, got.Received)
			}

			// Put on an unknown session fails
			assert.ErrorIs(r.Put(ctx, newSession(now)), schema.ErrSessionNotFound)

			// Delete is idempotent
			assert.NoError(r.Delete(ctx, session.Id))
			assert.NoError(r.Delete(ctx, session.Id))
			_, err = r.Get(ctx, session.Id)
			assert.ErrorIs(err, schema.ErrSessionNotFound)
		})
	}
}

func Test_Registry_Isolation(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()

			session := newSession(time.Now())
			assert.NoError(r.Create(ctx, session))

			// Mutating a returned record does not change the stored one
			got, err := r.Get(ctx, session.Id)
			require.NoError(t, err)
			got.Add(2)
			got.State = schema.StateCancelled

			again, err := r.Get(ctx, session.Id)
			require.NoError(t, err)
			assert.Empty(again.Received)
			assert.Equal(schema.StateCollecting, again.State)
		})
	}
}

func Test_Registry_List(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			now := time.Now().UTC()

			list, err := r.List(ctx)
			assert.NoError(err)
			assert.Empty(list)

			second := newSession(now.Add(time.Minute))
			first := newSession(now)
			assert.NoError(r.Create(ctx, second))
			assert.NoError(r.Create(ctx, first))

			list, err = r.List(ctx)
			if assert.NoError(err) && assert.Len(list, 2) {
				assert.Equal(first.Id, list[0].Id)
				assert.Equal(second.Id, list[1].Id)
			}
		})
	}
}

func Test_Registry_List_sameSecond(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			// Sessions created within the same second keep their order
			sessions := []schema.UploadSession{
				newSession(now.Add(3 * time.Millisecond)),
				newSession(now.Add(time.Microsecond)),
				newSession(now.Add(2 * time.Millisecond)),
			}
			for _, session := range sessions {
				require.NoError(t, r.Create(ctx, session))
			}
			list, err := r.List(ctx)
			if assert.NoError(err) && assert.Len(list, 3) {
				assert.Equal(sessions[1].Id, list[0].Id)
				assert.Equal(sessions[2].Id, list[1].Id)
				assert.Equal(sessions[0].Id, list[2].Id)
			}
		})
	}
}

func Test_Registry_Update(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()

			session := newSession(time.Now().UTC())
			require.NoError(t, r.Create(ctx, session))

			// The returned record reflects the change
			got, err := r.Update(ctx, session.Id, func(session *schema.UploadSession) error {
				session.Add(2)
				return nil
			})
			if assert.NoError(err) {
				assert.Equal([]int{2}, got.Received)
			}

			// An error from fn leaves the record unchanged
			errStop := errors.New("stop")
			_, err = r.Update(ctx, session.Id, func(session *schema.UploadSession) error {
				session.Add(0)
				return errStop
			})
			assert.ErrorIs(err, errStop)
			got, err = r.Get(ctx, session.Id)
			if assert.NoError(err) {
				assert.Equal([]int{2}, got.Received)
			}

			// Unknown session
			_, err = r.Update(ctx, uuid.NewString(), func(*schema.UploadSession) error {
				return nil
			})
			assert.ErrorIs(err, schema.ErrSessionNotFound)
		})
	}
}

func Test_Registry_Update_concurrent(t *testing.T) {
	const chunks = 8
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := newSession(time.Now().UTC())
			session.ChunkCount = chunks
			require.NoError(t, r.Create(ctx, session))

			// Each writer adds its own chunk; none may be lost
			var wg sync.WaitGroup
			for i := range chunks {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := r.Update(ctx, session.Id, func(session *schema.UploadSession) error {
						session.Add(i)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := r.Get(ctx, session.Id)
			if assert.NoError(t, err) {
				assert.True(t, got.Full(), "received %v", got.Received)
			}
		})
	}
}

func Test_Redis_StaleIndex(t *testing.T) {
	url := os.Getenv("CHUNKUP_TEST_REDIS")
	if url == "" {
		t.Skip("CHUNKUP_TEST_REDIS not set")
	}
	assert := assert.New(t)
	ctx := context.Background()

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	prefix := "chunkup-test-" + uuid.NewString()
	r := registry.NewRedisWithClient(client, prefix)

	session := newSession(time.Now().UTC())
	require.NoError(t, r.Create(ctx, session))
	card, err := client.ZCard(ctx, prefix+":uploads:created").Result()
	if assert.NoError(err) {
		assert.Equal(int64(1), card)
	}

	// A record which disappears is dropped from the index on List
	require.NoError(t, client.Del(ctx, prefix+":upload:"+session.Id).Err())
	list, err := r.List(ctx)
	assert.NoError(err)
	assert.Empty(list)
	card, err = client.ZCard(ctx, prefix+":uploads:created").Result()
	if assert.NoError(err) {
		assert.Zero(card)
	}
}
