package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	// Packages
	httphandler "github.com/mutablelogic/go-chunkup/pkg/httphandler"
	manager "github.com/mutablelogic/go-chunkup/pkg/manager"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httprouter "github.com/mutablelogic/go-server/pkg/httprouter"
	jsonschema "github.com/mutablelogic/go-server/pkg/jsonschema"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
)

///////////////////////////////////////////////////////////////////////////////
// MOCK ROUTER

type mockRouter struct {
	prefix string
	paths  []string
	retErr error
}

func (m *mockRouter) Prefix() string {
	return m.prefix
}

func (m *mockRouter) RegisterPath(path string, _ *jsonschema.Schema, _ httprequest.PathItem) error {
	m.paths = append(m.paths, path)
	return m.retErr
}

///////////////////////////////////////////////////////////////////////////////
// HELPERS

func newTestManager(t *testing.T, opts ...manager.Opt) *manager.Manager {
	t.Helper()
	mgr, err := manager.New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func serveMux(t *testing.T, mgr *manager.Manager) http.Handler {
	return servePrefix(t, mgr, "/")
}

func servePrefix(t *testing.T, mgr *manager.Manager, prefix string) http.Handler {
	t.Helper()
	router, err := httprouter.NewRouter(context.Background(), http.NewServeMux(), prefix, "", "chunkup", "0.0.0")
	require.NoError(t, err)
	require.NoError(t, httphandler.RegisterHandlers(mgr, router))
	return router
}

func do(handler http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if method == http.MethodPost && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req)
	return rw
}

func doJSON(t *testing.T, handler http.Handler, method, path string, in, out any, status int) {
	t.Helper()
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		require.NoError(t, err)
	}
	rw := do(handler, method, path, body)
	require.Equal(t, status, rw.Code, rw.Body.String())
	if out != nil {
		require.NoError(t, json.NewDecoder(rw.Body).Decode(out))
	}
}

///////////////////////////////////////////////////////////////////////////////
// TESTS

func Test_RegisterHandlers(t *testing.T) {
	mgr := newTestManager(t)

	t.Run("Root", func(t *testing.T) {
		router := &mockRouter{prefix: "/"}
		if assert.NoError(t, httphandler.RegisterHandlers(mgr, router)) {
			assert.Equal(t, []string{
				"{$}",
				"upload",
				"upload/{id}",
				"upload/{id}/{index}",
				"object/{id}",
			}, router.paths)
		}
	})
	t.Run("Prefix", func(t *testing.T) {
		router := &mockRouter{prefix: "/api/chunkup"}
		if assert.NoError(t, httphandler.RegisterHandlers(mgr, router)) {
			assert.Equal(t, "", router.paths[0])
		}
	})
}

func Test_RegisterHandlers_prefix(t *testing.T) {
	assert := assert.New(t)
	mux := servePrefix(t, newTestManager(t, manager.WithChunkSize(4)), "/api/chunkup")

	// The service root is the prefix itself
	var info schema.ServiceInfo
	doJSON(t, mux, http.MethodGet, "/api/chunkup", nil, &info, http.StatusOK)
	assert.Equal(int64(4), info.ChunkSize)

	assert.Equal(http.StatusOK, do(mux, http.MethodGet, "/api/chunkup/upload", nil).Code)
	assert.Equal(http.StatusNotFound, do(mux, http.MethodGet, "/api/other", nil).Code)
	assert.Equal(http.StatusNotFound, do(mux, http.MethodGet, "/upload", nil).Code)
}

func Test_RegisterHandlers_routerError(t *testing.T) {
	mgr := newTestManager(t)

	router := &mockRouter{retErr: fmt.Errorf("router error")}
	assert.Error(t, httphandler.RegisterHandlers(mgr, router))
}

func Test_MethodNotAllowed(t *testing.T) {
	mux := serveMux(t, newTestManager(t))
	for _, test := range []struct{ method, path string }{
		{http.MethodPost, "/"},
		{http.MethodDelete, "/upload"},
		{http.MethodPut, "/upload/x"},
		{http.MethodGet, "/upload/x/0"},
		{http.MethodPut, "/object/x"},
	} {
		t.Run(test.method+" "+test.path, func(t *testing.T) {
			assert.Equal(t, http.StatusMethodNotAllowed, do(mux, test.method, test.path, nil).Code)
		})
	}
}
