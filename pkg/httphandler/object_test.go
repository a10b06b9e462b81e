package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	// Packages
	uuid "github.com/google/uuid"
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

///////////////////////////////////////////////////////////////////////////////
// HELPERS

// completed uploads data as name through the manager and returns the object
func completed(t *testing.T, mgr *manager.Manager, name string, data []byte) *schema.Object {
	t.Helper()
	ctx := context.TODO()
	resp, err := mgr.Init(ctx, schema.InitRequest{Name: name, Size: int64(len(data)), ChunkCount: 1})
	require.NoError(t, err)
	_, err = mgr.PutChunk(ctx, resp.Id, 0, bytes.NewReader(data))
	require.NoError(t, err)
	obj, err := mgr.Complete(ctx, resp.Id)
	require.NoError(t, err)
	return obj
}

///////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_objectGet(t *testing.T) {
	mgr := newTestManager(t, manager.WithBackend(context.TODO(), "file://"+t.TempDir()))
	mux := serveMux(t, mgr)
	obj := completed(t, mgr, "Talk.MOV", []byte("not really a movie"))

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		t.Run(method, func(t *testing.T) {
			assert := assert.New(t)
			rw := do(mux, method, "/object/"+obj.Id, nil)
			require.Equal(t, http.StatusOK, rw.Code)

			assert.Equal("video/quicktime", rw.Header().Get("Content-Type"))
			assert.Equal("18", rw.Header().Get("Content-Length"))
			assert.Contains(rw.Header().Get("Content-Disposition"), "Talk.MOV")
			assert.NotEmpty(rw.Header().Get("Last-Modified"))

			var meta schema.Object
			if assert.NoError(json.Unmarshal([]byte(rw.Header().Get(schema.ObjectMetaHeader)), &meta)) {
				assert.Equal(obj.Id, meta.Id)
				assert.Equal("Talk.MOV", meta.Name)
				assert.Equal(int64(18), meta.Size)
			}

			if method == http.MethodGet {
				assert.Equal("not really a movie", rw.Body.String())
			} else {
				assert.Empty(rw.Body.String())
			}
		})
	}
}

func Test_objectGet_notFound(t *testing.T) {
	mux := serveMux(t, newTestManager(t))
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		assert.Equal(t, http.StatusNotFound, do(mux, method, "/object/"+uuid.NewString(), nil).Code)
		assert.Equal(t, http.StatusNotFound, do(mux, method, "/object/not-an-id", nil).Code)
	}
}

func Test_objectGet_preconditions(t *testing.T) {
	mgr := newTestManager(t)
	mux := serveMux(t, mgr)
	obj := completed(t, mgr, "a.mp4", []byte("abcd"))

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	tests := []struct {
		header, value string
		status        int
	}{
		{"If-Modified-Since", future, http.StatusNotModified},
		{"If-Modified-Since", past, http.StatusOK},
		{"If-Unmodified-Since", past, http.StatusPreconditionFailed},
		{"If-Unmodified-Since", future, http.StatusOK},
		{"If-Match", `"no-such-etag"`, http.StatusPreconditionFailed},
	}
	for _, test := range tests {
		t.Run(test.header+" "+test.value, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/object/"+obj.Id, nil)
			req.Header.Set(test.header, test.value)
			rw := httptest.NewRecorder()
			mux.ServeHTTP(rw, req)
			assert.Equal(t, test.status, rw.Code)
			if test.status != http.StatusOK {
				assert.False(t, strings.Contains(rw.Body.String(), "abcd"))
			}
		})
	}
}
